// Package reliable turns a fire-and-forget, unordered, duplicating datagram
// transport into at-least-once delivery with duplicate suppression.
//
// Design:
//   - Every outgoing frame is prefixed with a "seq: N" line and recorded as
//     pending until an ACK for (N, destination) arrives.
//   - One goroutine runs the retransmission sweep: any pending frame older
//     than the ACK timeout is resent verbatim, up to the retry budget.
//   - Incoming frames are keyed by (sequence, sender). A key already seen is
//     re-ACKed — the previous ACK may have been lost — but the application
//     callback runs at most once per key.
//
// There is no ordering guarantee across senders or message types, and no
// hard failure signal: a frame that exhausts its retries is dropped with a
// log line and the optional give-up callback. The protocol above must
// tolerate this (terminal states are re-derived, never round-trip-confirmed).
package reliable

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pokewire/pokewire/internal/seen"
)

// SendFunc transmits raw bytes to an address, reporting success.
// A false return is treated like a lost datagram.
type SendFunc func(data []byte, addr string) bool

// Config carries the layer's tunables. The zero value selects the defaults
// below. A Config is immutable once passed to New.
type Config struct {
	AckTimeout      time.Duration // wait before a pending frame is overdue (default 2s)
	RetransmitEvery time.Duration // sweep period (default 500ms)
	MaxRetries      int           // resend budget per frame (default 5)
	DedupBound      int           // delivered-frame set size cap (default seen.DefaultBound)
}

func (c Config) withDefaults() Config {
	if c.AckTimeout <= 0 {
		c.AckTimeout = 2 * time.Second
	}
	if c.RetransmitEvery <= 0 {
		c.RetransmitEvery = 500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	return c
}

type pendingKey struct {
	seq  uint16
	addr string
}

// pendingDelivery is one frame awaiting acknowledgment.
type pendingDelivery struct {
	data    []byte // framed bytes, resent verbatim
	sentAt  time.Time
	retries int
}

// Layer provides reliable delivery over a SendFunc.
//
// The three callbacks are invoked on whichever goroutine triggered them:
// OnMessage and OnAck on the caller of HandleReceived, OnGiveUp on the
// retransmission goroutine. Set them before Start.
type Layer struct {
	// OnMessage receives each application frame exactly once per
	// (sequence, sender) key, with the original payload.
	OnMessage func(data []byte, addr string)

	// OnAck observes acknowledgments for frames this layer sent.
	OnAck func(seq uint16, addr string)

	// OnGiveUp observes retry exhaustion. The frame is already dropped when
	// this fires; it is an observability hook, not a failure channel.
	OnGiveUp func(seq uint16, addr string)

	send SendFunc
	cfg  Config

	seqMu sync.Mutex
	seq   uint16

	pendingMu sync.Mutex
	pending   map[pendingKey]*pendingDelivery

	dedup *seen.Store

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Layer that transmits through send.
func New(send SendFunc, cfg Config) *Layer {
	cfg = cfg.withDefaults()
	return &Layer{
		send:    send,
		cfg:     cfg,
		pending: make(map[pendingKey]*pendingDelivery),
		dedup:   seen.New(cfg.DedupBound),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the retransmission goroutine.
func (l *Layer) Start() {
	go l.retransmitLoop()
}

// Stop signals the retransmission goroutine; it exits at its next wake, so
// shutdown is bounded by the sweep period rather than instantaneous.
func (l *Layer) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// NextSequence returns the current counter value and advances it. Sequence
// numbers wrap modulo 65536 and are monotonic per layer, shared across all
// destinations; uniqueness for deduplication is (sequence, sender), never
// the sequence alone.
func (l *Layer) NextSequence() uint16 {
	l.seqMu.Lock()
	defer l.seqMu.Unlock()
	s := l.seq
	l.seq++ // wraps at 65536
	return s
}

// SendReliable prefixes payload with its sequence line, transmits it once,
// and records it for retransmission. The sequence number is returned so
// higher layers can correlate acknowledgments.
func (l *Layer) SendReliable(payload []byte, addr string) uint16 {
	seq := l.NextSequence()
	framed := append([]byte(fmt.Sprintf("seq: %d\n", seq)), payload...)

	if l.send(framed, addr) {
		l.pendingMu.Lock()
		l.pending[pendingKey{seq, addr}] = &pendingDelivery{
			data:   framed,
			sentAt: time.Now(),
		}
		l.pendingMu.Unlock()
	}
	return seq
}

// SendAck acknowledges sequence seq to addr. ACK frames are protocol-internal:
// they carry no fields and are never delivered to OnMessage.
func (l *Layer) SendAck(seq uint16, addr string) {
	frame := fmt.Sprintf("seq: %d\ntype: ACK\n\n", seq)
	l.send([]byte(frame), addr)
}

// HandleReceived processes one raw datagram from sender addr. It is called
// synchronously on the receive thread; OnMessage must not block, or it
// delays duplicate-ACK responsiveness and inflates the peer's retries.
func (l *Layer) HandleReceived(data []byte, addr string) {
	seq, hasSeq, isAck := scanFrame(data)

	if !hasSeq {
		// Unreliable frame: straight through, no dedup, no ACK.
		if l.OnMessage != nil {
			l.OnMessage(data, addr)
		}
		return
	}

	if isAck {
		l.pendingMu.Lock()
		delete(l.pending, pendingKey{seq, addr})
		l.pendingMu.Unlock()
		if l.OnAck != nil {
			l.OnAck(seq, addr)
		}
		return
	}

	if !l.dedup.Add(seen.Key{Seq: seq, Sender: addr}) {
		// Redelivery: our ACK was lost, answer again, deliver nothing.
		l.SendAck(seq, addr)
		return
	}

	l.SendAck(seq, addr)
	if l.OnMessage != nil {
		l.OnMessage(data, addr)
	}
}

// Pending returns the number of frames still awaiting acknowledgment.
func (l *Layer) Pending() int {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	return len(l.pending)
}

// ClearPending abandons every unacknowledged frame, e.g. on disconnect.
func (l *Layer) ClearPending() {
	l.pendingMu.Lock()
	l.pending = make(map[pendingKey]*pendingDelivery)
	l.pendingMu.Unlock()
}

func (l *Layer) retransmitLoop() {
	ticker := time.NewTicker(l.cfg.RetransmitEvery)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.sweep(time.Now())
		}
	}
}

// sweep resends overdue frames and drops the exhausted ones. The pending
// lock is held only while scanning and updating, never during network I/O,
// so a slow send cannot stall the receive path.
func (l *Layer) sweep(now time.Time) {
	type resend struct {
		key  pendingKey
		data []byte
	}
	var due []resend
	var exhausted []pendingKey

	l.pendingMu.Lock()
	for key, p := range l.pending {
		if now.Sub(p.sentAt) <= l.cfg.AckTimeout {
			continue
		}
		if p.retries < l.cfg.MaxRetries {
			due = append(due, resend{key, p.data})
		} else {
			exhausted = append(exhausted, key)
		}
	}
	for _, key := range exhausted {
		delete(l.pending, key)
	}
	l.pendingMu.Unlock()

	for _, r := range due {
		l.send(r.data, r.key.addr)
	}

	l.pendingMu.Lock()
	for _, r := range due {
		if p, ok := l.pending[r.key]; ok {
			p.sentAt = now
			p.retries++
		}
	}
	l.pendingMu.Unlock()

	for _, key := range exhausted {
		log.Printf("reliable: gave up on seq=%d to %s after %d retries", key.seq, key.addr, l.cfg.MaxRetries)
		if l.OnGiveUp != nil {
			l.OnGiveUp(key.seq, key.addr)
		}
	}
}

// scanFrame extracts the reliability header from a raw frame: the sequence
// line and whether the frame is a bare ACK. It looks only at line shape and
// never fails; garbage simply reads as "no sequence".
func scanFrame(data []byte) (seq uint16, hasSeq, isAck bool) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "seq":
			n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 16)
			if err == nil {
				seq = uint16(n)
				hasSeq = true
			}
		case "type":
			if strings.TrimSpace(value) == "ACK" {
				isAck = true
			}
		}
	}
	return seq, hasSeq, isAck
}
