package transport

import (
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Transport for tests. Each instance registers
// itself under a unique address in a global registry; Send looks the
// destination up there. No wiring step is needed — any instance can send
// to any other by address, mirroring UDP semantics.
type Memory struct {
	addr   string
	inbox  chan datagram
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	drop func(data []byte, to string) bool
}

type datagram struct {
	data []byte
	from string
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Memory{}
	nextAddr   int
)

// NewMemory creates a Memory transport with a fresh unique address.
func NewMemory() *Memory {
	registryMu.Lock()
	nextAddr++
	addr := fmt.Sprintf("mem-%d", nextAddr)
	m := &Memory{
		addr:   addr,
		inbox:  make(chan datagram, 1024),
		closed: make(chan struct{}),
	}
	registry[addr] = m
	registryMu.Unlock()
	return m
}

// SetLoss installs a hook consulted before every Send; returning true drops
// the datagram silently. Used by tests to simulate loss.
func (m *Memory) SetLoss(drop func(data []byte, to string) bool) {
	m.mu.Lock()
	m.drop = drop
	m.mu.Unlock()
}

func (m *Memory) Send(data []byte, addr string) bool {
	m.mu.Lock()
	drop := m.drop
	m.mu.Unlock()
	if drop != nil && drop(data, addr) {
		return true // "sent" — the network ate it
	}

	registryMu.Lock()
	dst, ok := registry[addr]
	registryMu.Unlock()
	if !ok {
		return false
	}

	// Copy: the sender may reuse its buffer.
	cp := make([]byte, len(data))
	copy(cp, data)

	select {
	case dst.inbox <- datagram{data: cp, from: m.addr}:
		return true
	default:
		return true // full inbox drops like a full socket buffer would
	}
}

func (m *Memory) Receive(timeout time.Duration) ([]byte, string, bool) {
	select {
	case d := <-m.inbox:
		return d.data, d.from, true
	case <-m.closed:
		return nil, "", false
	case <-time.After(timeout):
		return nil, "", false
	}
}

func (m *Memory) LocalAddr() string {
	return m.addr
}

func (m *Memory) Close() error {
	m.once.Do(func() {
		close(m.closed)
		registryMu.Lock()
		delete(registry, m.addr)
		registryMu.Unlock()
	})
	return nil
}
