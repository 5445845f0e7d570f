// Package chat keeps an in-memory history of text messages and stickers
// exchanged during a session. It knows nothing about the wire; the peer
// layer feeds it both directions.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// maxHistory bounds the log; older messages are dropped.
const maxHistory = 100

// Stickers maps sticker IDs to their display glyphs. IDs travel on the
// wire; glyphs are local rendering.
var Stickers = map[string]string{
	"1":  "😀 Happy",
	"2":  "😢 Sad",
	"3":  "😠 Angry",
	"4":  "👍 Thumbs Up",
	"5":  "❤️ Heart",
	"6":  "🔥 Fire",
	"7":  "⚡ Thunder",
	"8":  "💧 Water",
	"9":  "🌿 Grass",
	"10": "🎉 Party",
}

// Message is one chat entry, text and/or sticker.
type Message struct {
	Sender  string
	Text    string
	Sticker string // sticker ID, "" for none
	At      time.Time
}

// String formats the message for display.
func (m Message) String() string {
	ts := m.At.Format("15:04:05")
	if m.Sticker == "" {
		return fmt.Sprintf("[%s] %s: %s", ts, m.Sender, m.Text)
	}
	glyph, ok := Stickers[m.Sticker]
	if !ok {
		glyph = "[Sticker " + m.Sticker + "]"
	}
	if m.Text == "" {
		return fmt.Sprintf("[%s] %s: %s", ts, m.Sender, glyph)
	}
	return fmt.Sprintf("[%s] %s: %s %s", ts, m.Sender, m.Text, glyph)
}

// Log is a bounded chat history, safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	messages []Message
}

// NewLog returns an empty chat log.
func NewLog() *Log {
	return &Log{}
}

// Add appends a message, trimming history past the bound, and returns the
// stored message with its timestamp filled in.
func (l *Log) Add(sender, text, sticker string) Message {
	m := Message{Sender: sender, Text: text, Sticker: sticker, At: time.Now()}
	l.mu.Lock()
	l.messages = append(l.messages, m)
	if len(l.messages) > maxHistory {
		l.messages = append([]Message(nil), l.messages[len(l.messages)-maxHistory:]...)
	}
	l.mu.Unlock()
	return m
}

// System records a message not attributed to any player.
func (l *Log) System(text string) Message {
	return l.Add("SYSTEM", text, "")
}

// Recent returns the last n messages, or everything for n <= 0.
func (l *Log) Recent(n int) []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.messages) {
		n = len(l.messages)
	}
	return append([]Message(nil), l.messages[len(l.messages)-n:]...)
}

// Clear drops the whole history.
func (l *Log) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
}

// ValidSticker reports whether id names a known sticker.
func ValidSticker(id string) bool {
	_, ok := Stickers[id]
	return ok
}

// StickerList formats the sticker catalog for display, IDs in numeric order.
func StickerList() string {
	var b strings.Builder
	b.WriteString("Available Stickers:\n")
	for i := 1; i <= len(Stickers); i++ {
		id := fmt.Sprint(i)
		fmt.Fprintf(&b, "  %s: %s\n", id, Stickers[id])
	}
	return b.String()
}
