// Package session tracks the lifecycle of one logical battle session and
// gates which message types may legally be sent in each state.
package session

import (
	"fmt"
	"log"
	"sync"

	"github.com/pokewire/pokewire/internal/wire"
)

// State is one of the session lifecycle states.
type State string

const (
	Disconnected   State = "DISCONNECTED"
	Connecting     State = "CONNECTING"
	Connected      State = "CONNECTED"
	SelectionPhase State = "POKEMON_SELECTION"
	Ready          State = "READY"
	BattleActive   State = "BATTLE_ACTIVE"
	BattleEnded    State = "BATTLE_ENDED"
)

// transitions is the static adjacency table: the only legal next states for
// each state. Everything else is rejected without effect.
var transitions = map[State][]State{
	Disconnected:   {Connecting},
	Connecting:     {Connected, Disconnected},
	Connected:      {SelectionPhase, Disconnected},
	SelectionPhase: {Ready, Disconnected},
	Ready:          {BattleActive, Disconnected},
	BattleActive:   {BattleEnded, Disconnected},
	BattleEnded:    {Disconnected, SelectionPhase}, // rematch path
}

// allowedSends maps each state to the message types that may originate from
// it. Chat and disconnect are additionally allowed from any connected state;
// see CanSend. BATTLE_STATE and SPECTATOR_SYNC ride along in connected
// states because spectator plumbing runs outside the sender's own lifecycle.
var allowedSends = map[State][]string{
	Disconnected: {},
	Connecting:   {wire.TypeHello, wire.TypeHelloAck},
	Connected: {
		wire.TypePokemonSelect, wire.TypePokemonSelectAck,
		wire.TypeBattleState, wire.TypeSpectatorSync,
	},
	SelectionPhase: {
		wire.TypePokemonSelect, wire.TypePokemonSelectAck,
		wire.TypeReady, wire.TypeReadyAck,
		wire.TypeBattleState, wire.TypeSpectatorSync,
	},
	Ready: {
		wire.TypeReadyAck, wire.TypeBattleStart,
		wire.TypeBattleState, wire.TypeSpectatorSync,
	},
	BattleActive: {
		wire.TypeAttack, wire.TypeAttackAck, wire.TypeBattleResult,
		wire.TypeBattleState, wire.TypeSpectatorSync,
	},
	BattleEnded: {
		wire.TypeBattleEnd, wire.TypeBattleResult,
		wire.TypeBattleState, wire.TypeSpectatorSync,
	},
}

// Callback observes entry into a state it was registered for.
type Callback func(from, to State)

// Machine validates and records lifecycle transitions. Safe for concurrent
// use; the receive thread and the UI thread both consult it.
type Machine struct {
	mu        sync.Mutex
	state     State
	history   []string
	callbacks map[State][]Callback
}

// NewMachine starts in Disconnected.
func NewMachine() *Machine {
	return &Machine{
		state:     Disconnected,
		callbacks: make(map[State][]Callback),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) canTransitionLocked(target State) bool {
	for _, s := range transitions[m.state] {
		if s == target {
			return true
		}
	}
	return false
}

// Transition moves to target. An illegal pair is rejected: the state and
// history are untouched, false is returned, and the attempt is logged for
// diagnostics only. On success the transition is appended to the history and
// every callback registered for target runs synchronously, in registration
// order; a panicking callback is logged and the rest still run.
func (m *Machine) Transition(target State, reason string) bool {
	m.mu.Lock()
	if !m.canTransitionLocked(target) {
		log.Printf("session: invalid transition %s -> %s (%s)", m.state, target, reason)
		m.mu.Unlock()
		return false
	}

	from := m.state
	m.state = target

	entry := fmt.Sprintf("%s -> %s", from, target)
	if reason != "" {
		entry += " (" + reason + ")"
	}
	m.history = append(m.history, entry)
	cbs := append([]Callback(nil), m.callbacks[target]...)
	m.mu.Unlock()

	log.Printf("session: %s", entry)
	for _, cb := range cbs {
		runCallback(cb, from, target)
	}
	return true
}

func runCallback(cb Callback, from, to State) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("session: callback for %s panicked: %v", to, r)
		}
	}()
	cb(from, to)
}

// OnEnter registers a callback fired whenever the machine enters state.
func (m *Machine) OnEnter(state State, cb Callback) {
	m.mu.Lock()
	m.callbacks[state] = append(m.callbacks[state], cb)
	m.mu.Unlock()
}

// History returns a copy of the append-only transition log.
func (m *Machine) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

// Reset returns the machine to Disconnected and clears the history.
// Registered callbacks survive a reset.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.state = Disconnected
	m.history = nil
	m.mu.Unlock()
}

// IsConnected reports whether a peer relationship exists — any state past
// the handshake.
func (m *Machine) IsConnected() bool {
	s := m.State()
	return s != Disconnected && s != Connecting
}

// InBattle reports whether a battle is in progress.
func (m *Machine) InBattle() bool {
	return m.State() == BattleActive
}

// CanSend reports whether msgType may be sent in the current state.
// Chat and disconnect are allowed from any connected state regardless of
// the per-state table. The same table gates incoming frames: a message that
// could not legally be sent from a state is not acted upon in it either.
func (m *Machine) CanSend(msgType string) bool {
	if msgType == wire.TypeChatMessage || msgType == wire.TypeDisconnect {
		return m.IsConnected()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range allowedSends[m.state] {
		if t == msgType {
			return true
		}
	}
	return false
}
