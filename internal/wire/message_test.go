package wire

import (
	"bytes"
	"testing"
)

func TestEncodeRoundTrip(t *testing.T) {
	m := NewAttack("Ash", "Fire Strike", "fire", 24, 3, "Misty")
	out := Decode(m.Encode())
	if out == nil {
		t.Fatal("decode returned nil")
	}
	if out.Type != TypeAttack {
		t.Fatalf("type = %q, want %q", out.Type, TypeAttack)
	}
	if out.Get("attacker") != "Ash" || out.Get("next_turn_player") != "Misty" {
		t.Fatalf("fields lost: %v", out)
	}
	if out.GetInt("damage", 0) != 24 || out.GetInt("turn_number", 0) != 3 {
		t.Fatal("numeric fields lost")
	}
}

func TestEncodeFormat(t *testing.T) {
	m := New(TypeReady).Set("status", "READY")
	got := m.Encode()

	want := []byte("type: READY\nstatus: READY\n\n")
	if !bytes.Equal(got, want) {
		t.Fatalf("encoded frame = %q, want %q", got, want)
	}
}

func TestDecodeRequiresType(t *testing.T) {
	if m := Decode([]byte("player_name: Ash\nrole: HOST\n\n")); m != nil {
		t.Fatalf("frame without type line should decode to nil, got %v", m)
	}
	if m := Decode(nil); m != nil {
		t.Fatal("nil data should decode to nil")
	}
	if m := Decode([]byte("complete garbage with no colons at all")); m != nil {
		t.Fatal("garbage should decode to nil")
	}
}

func TestDecodeToleratesGarbledLines(t *testing.T) {
	data := []byte("noise without separator\ntype: HELLO\n\nplayer_name: Ash\n????\nrole: JOINER\n")
	m := Decode(data)
	if m == nil {
		t.Fatal("decode returned nil")
	}
	if m.Get("player_name") != "Ash" || m.Get("role") != RoleJoiner {
		t.Fatalf("fields = %v", m)
	}
}

func TestDecodeValueMayContainColons(t *testing.T) {
	m := Decode([]byte("type: CHAT_MESSAGE\nsender: Ash\nmessage: meet at 12:30:00 sharp\n\n"))
	if m == nil {
		t.Fatal("decode returned nil")
	}
	if got := m.Get("message"); got != "meet at 12:30:00 sharp" {
		t.Fatalf("message = %q", got)
	}
}

func TestDecodeDuplicateKeyLastWins(t *testing.T) {
	m := Decode([]byte("type: READY\nstatus: FIRST\nstatus: SECOND\n\n"))
	if m == nil {
		t.Fatal("decode returned nil")
	}
	if got := m.Get("status"); got != "SECOND" {
		t.Fatalf("status = %q, want SECOND", got)
	}
}

func TestDecodeCapturesSequenceSeparately(t *testing.T) {
	m := Decode([]byte("seq: 412\ntype: READY\nstatus: READY\n\n"))
	if m == nil {
		t.Fatal("decode returned nil")
	}
	if !m.HasSeq || m.Seq != 412 {
		t.Fatalf("seq = %d (present=%v), want 412", m.Seq, m.HasSeq)
	}
	if m.Has("seq") {
		t.Fatal("seq must not appear as an application field")
	}
}

func TestGetIntDefaultOnParseFailure(t *testing.T) {
	m := New(TypeAttack).Set("damage", "not-a-number")
	if got := m.GetInt("damage", 7); got != 7 {
		t.Fatalf("GetInt = %d, want default 7", got)
	}
	if got := m.GetInt("missing", 3); got != 3 {
		t.Fatalf("GetInt on absent key = %d, want default 3", got)
	}
}

func TestValidate(t *testing.T) {
	ok, _ := Validate(NewHello("Ash", RoleHost))
	if !ok {
		t.Fatal("complete HELLO should validate")
	}

	incomplete := New(TypeAttack).Set("attacker", "Ash")
	ok, reason := Validate(incomplete)
	if ok {
		t.Fatal("ATTACK without damage should not validate")
	}
	if reason == "" {
		t.Fatal("validation failure should name the missing field")
	}

	ok, _ = Validate(NewSpectatorSync("Brock", "10.0.0.3:5000"))
	if !ok {
		t.Fatal("complete SPECTATOR_SYNC should validate")
	}
	ok, _ = Validate(New(TypeSpectatorSync).Set("spectator_name", "Brock"))
	if ok {
		t.Fatal("SPECTATOR_SYNC without an address should not validate")
	}

	ok, _ = Validate(New("FUTURE_TYPE").Set("anything", "goes"))
	if !ok {
		t.Fatal("unknown types validate")
	}
}
