// Package wire implements the battle protocol's text frame format.
//
// Every frame is newline-delimited UTF-8 text: a "type: <TYPE>" line, one
// "<key>: <value>" line per field, and a terminating blank line. The format
// is deliberately human-diagnosable rather than compact: a frame captured
// with tcpdump reads like a miniature HTTP header block.
//
// Decode is tolerant by design. Blank lines and lines without a colon are
// skipped, values may contain colons (only the first one splits), duplicate
// keys keep the last occurrence, and anything unparseable yields nil instead
// of an error — a garbled datagram is dropped, never raised.
//
// A "seq: <n>" line is reserved for the reliability layer. Decode captures
// it on the Message but never exposes it as an application field.
package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Message types carried on the wire. ACK is reliability-layer internal and
// never reaches application dispatch.
const (
	TypeAck = "ACK"

	TypeHello            = "HELLO"
	TypeHelloAck         = "HELLO_ACK"
	TypePokemonSelect    = "POKEMON_SELECT"
	TypePokemonSelectAck = "POKEMON_SELECT_ACK"
	TypeReady            = "READY"
	TypeReadyAck         = "READY_ACK"
	TypeBattleStart      = "BATTLE_START"
	TypeAttack           = "ATTACK"
	TypeAttackAck        = "ATTACK_ACK"
	TypeBattleResult     = "BATTLE_RESULT"
	TypeBattleEnd        = "BATTLE_END"
	TypeBattleState      = "BATTLE_STATE"
	TypeSpectatorSync    = "SPECTATOR_SYNC"
	TypeChatMessage      = "CHAT_MESSAGE"
	TypeDisconnect       = "DISCONNECT"
	TypeError            = "ERROR"
)

// Participant roles carried in HELLO.
const (
	RoleHost      = "HOST"
	RoleJoiner    = "JOINER"
	RoleSpectator = "SPECTATOR"
)

// Message is one protocol frame: a type tag plus ordered string fields.
// Numeric fields are parsed on demand by the consumer with a default on
// failure; unknown fields ride along as opaque strings.
type Message struct {
	Type string

	// Seq is the reliability-layer sequence number, present only when the
	// frame arrived through (or is destined for) the reliable path.
	Seq    uint16
	HasSeq bool

	keys   []string
	fields map[string]string
}

// New creates an empty message of the given type.
func New(typ string) *Message {
	return &Message{Type: typ, fields: make(map[string]string)}
}

// Set stores a field, stringifying the value. Chainable. Setting an existing
// key overwrites it in place, preserving the original field order.
func (m *Message) Set(key string, value any) *Message {
	if m.fields == nil {
		m.fields = make(map[string]string)
	}
	if _, ok := m.fields[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = fmt.Sprint(value)
	return m
}

// Get returns the field value, or "" when absent.
func (m *Message) Get(key string) string {
	return m.fields[key]
}

// Has reports whether the field is present.
func (m *Message) Has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

// GetInt parses the field as an integer, returning def on absence or failure.
func (m *Message) GetInt(key string, def int) int {
	v, ok := m.fields[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// GetFloat parses the field as a float, returning def on absence or failure.
func (m *Message) GetFloat(key string, def float64) float64 {
	v, ok := m.fields[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// Encode serialises the message: type line, fields in insertion order, and a
// terminating blank line. The sequence line is the reliability layer's to
// add; Encode never emits one.
func (m *Message) Encode() []byte {
	var b strings.Builder
	b.WriteString("type: ")
	b.WriteString(m.Type)
	b.WriteByte('\n')
	for _, k := range m.keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(m.fields[k])
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func (m *Message) String() string {
	return fmt.Sprintf("Message(%s, %v)", m.Type, m.fields)
}

// Decode parses a frame. It returns nil — never an error — when no type line
// is present or the data is otherwise unusable, so a corrupted datagram
// costs the caller nothing but the frame itself.
func Decode(data []byte) *Message {
	lines := strings.Split(string(data), "\n")

	m := &Message{fields: make(map[string]string)}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		key, value, _ := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "type":
			m.Type = value
		case "seq":
			n, err := strconv.ParseUint(value, 10, 16)
			if err == nil {
				m.Seq = uint16(n)
				m.HasSeq = true
			}
		default:
			m.Set(key, value)
		}
	}

	if m.Type == "" {
		return nil
	}
	return m
}

// requiredFields lists the fields a frame must carry to be acted upon.
// Unknown types validate as-is; the dispatcher decides what to do with them.
var requiredFields = map[string][]string{
	TypeHello:         {"player_name", "role"},
	TypeHelloAck:      {"player_name"},
	TypePokemonSelect: {"pokemon_number", "pokemon_name"},
	TypeBattleStart:   {"first_player"},
	TypeAttack:        {"attacker", "move_type", "damage", "turn_number", "next_turn_player"},
	TypeAttackAck:     {"defender_hp"},
	TypeBattleResult:  {"winner", "loser"},
	TypeBattleState:   {"battle_state"},
	TypeSpectatorSync: {"spectator_name", "spectator_addr"},
	TypeChatMessage:   {"sender", "message"},
	TypeDisconnect:    {"player_name"},
	TypeError:         {"error_code", "error_message"},
}

// Validate checks that the message carries the fields its type requires.
func Validate(m *Message) (bool, string) {
	for _, f := range requiredFields[m.Type] {
		if m.Get(f) == "" {
			return false, "missing required field: " + f
		}
	}
	return true, ""
}
