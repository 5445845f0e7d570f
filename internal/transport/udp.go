package transport

import (
	"log"
	"net"
	"sync/atomic"
	"time"
)

// DefaultBufferSize bounds a single received datagram. Frames are short
// text; anything larger than this is not ours.
const DefaultBufferSize = 4096

// UDP implements Transport over a bound UDP socket.
type UDP struct {
	conn    *net.UDPConn
	bufSize int
	closed  atomic.Bool
}

// ListenUDP binds a UDP socket on addr ("host:port"). bufSize <= 0 selects
// DefaultBufferSize.
func ListenUDP(addr string, bufSize int) (*UDP, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &UDP{conn: conn, bufSize: bufSize}, nil
}

func (u *UDP) Send(data []byte, addr string) bool {
	if u.closed.Load() {
		return false
	}
	dst, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		log.Printf("transport: bad destination %q: %v", addr, err)
		return false
	}
	if _, err := u.conn.WriteToUDP(data, dst); err != nil {
		log.Printf("transport: send to %s: %v", addr, err)
		return false
	}
	return true
}

func (u *UDP) Receive(timeout time.Duration) ([]byte, string, bool) {
	if u.closed.Load() {
		return nil, "", false
	}
	u.conn.SetReadDeadline(time.Now().Add(timeout)) //nolint:errcheck
	buf := make([]byte, u.bufSize)
	n, sender, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, "", false
		}
		if !u.closed.Load() {
			log.Printf("transport: receive: %v", err)
		}
		return nil, "", false
	}
	return buf[:n], sender.String(), true
}

func (u *UDP) LocalAddr() string {
	return u.conn.LocalAddr().String()
}

func (u *UDP) Close() error {
	u.closed.Store(true)
	return u.conn.Close()
}
