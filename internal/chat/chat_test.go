package chat

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestAddAndRecent(t *testing.T) {
	l := NewLog()
	l.Add("Ash", "hello", "")
	l.Add("Misty", "hi!", "")
	l.System("Misty connected")

	all := l.Recent(0)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[2].Sender != "SYSTEM" {
		t.Fatalf("last sender = %s", all[2].Sender)
	}

	last := l.Recent(1)
	if len(last) != 1 || last[0].Text != "Misty connected" {
		t.Fatalf("recent(1) = %+v", last)
	}
}

func TestHistoryBounded(t *testing.T) {
	l := NewLog()
	for i := 0; i < maxHistory+25; i++ {
		l.Add("Ash", "msg", "")
	}
	if got := len(l.Recent(0)); got != maxHistory {
		t.Fatalf("len = %d, want %d", got, maxHistory)
	}
}

func TestMessageFormatting(t *testing.T) {
	at := time.Date(2025, 3, 1, 14, 30, 5, 0, time.UTC)

	m := Message{Sender: "Ash", Text: "gg", At: at}
	if got := m.String(); got != "[14:30:05] Ash: gg" {
		t.Fatalf("got %q", got)
	}

	m = Message{Sender: "Ash", Sticker: "6", At: at}
	if got := m.String(); got != "[14:30:05] Ash: 🔥 Fire" {
		t.Fatalf("got %q", got)
	}

	m = Message{Sender: "Ash", Text: "gg", Sticker: "10", At: at}
	if got := m.String(); got != "[14:30:05] Ash: gg 🎉 Party" {
		t.Fatalf("got %q", got)
	}

	// Unknown sticker IDs still render.
	m = Message{Sender: "Ash", Sticker: "42", At: at}
	if got := m.String(); !strings.Contains(got, "[Sticker 42]") {
		t.Fatalf("got %q", got)
	}
}

func TestValidSticker(t *testing.T) {
	for id := 1; id <= 10; id++ {
		if !ValidSticker(strconv.Itoa(id)) {
			t.Fatalf("sticker %d should be valid", id)
		}
	}
	if ValidSticker("0") || ValidSticker("11") || ValidSticker("fire") {
		t.Fatal("out-of-range stickers should be invalid")
	}
}

func TestClear(t *testing.T) {
	l := NewLog()
	l.Add("Ash", "hello", "")
	l.Clear()
	if len(l.Recent(0)) != 0 {
		t.Fatal("clear should empty the log")
	}
}
