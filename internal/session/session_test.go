package session

import (
	"strings"
	"testing"

	"github.com/pokewire/pokewire/internal/wire"
)

// advance walks the machine through the happy path up to target.
func advance(t *testing.T, m *Machine, target State) {
	t.Helper()
	path := []State{Connecting, Connected, SelectionPhase, Ready, BattleActive, BattleEnded}
	for _, s := range path {
		if !m.Transition(s, "test setup") {
			t.Fatalf("setup transition to %s failed from %s", s, m.State())
		}
		if s == target {
			return
		}
	}
	t.Fatalf("target %s not on happy path", target)
}

func TestInitialState(t *testing.T) {
	m := NewMachine()
	if m.State() != Disconnected {
		t.Fatalf("initial state = %s", m.State())
	}
	if m.IsConnected() {
		t.Fatal("fresh machine reports connected")
	}
}

func TestValidTransitionAppendsHistoryOnce(t *testing.T) {
	m := NewMachine()
	if !m.Transition(Connecting, "sent HELLO") {
		t.Fatal("Disconnected -> Connecting should be legal")
	}
	h := m.History()
	if len(h) != 1 {
		t.Fatalf("history length = %d, want 1", len(h))
	}
	if !strings.Contains(h[0], "DISCONNECTED -> CONNECTING") || !strings.Contains(h[0], "sent HELLO") {
		t.Fatalf("history entry = %q", h[0])
	}
}

func TestInvalidTransitionIsInert(t *testing.T) {
	m := NewMachine()
	if m.Transition(BattleActive, "skipping ahead") {
		t.Fatal("Disconnected -> BattleActive should be rejected")
	}
	if m.State() != Disconnected {
		t.Fatalf("state changed on rejected transition: %s", m.State())
	}
	if len(m.History()) != 0 {
		t.Fatal("history grew on rejected transition")
	}
}

func TestEveryStateMayDisconnect(t *testing.T) {
	for _, from := range []State{Connecting, Connected, SelectionPhase, Ready, BattleActive, BattleEnded} {
		m := NewMachine()
		advance(t, m, from)
		if !m.Transition(Disconnected, "peer gone") {
			t.Fatalf("%s -> Disconnected should be legal", from)
		}
	}
}

func TestRematchPath(t *testing.T) {
	m := NewMachine()
	advance(t, m, BattleEnded)
	if !m.Transition(SelectionPhase, "rematch") {
		t.Fatal("BattleEnded -> SelectionPhase (rematch) should be legal")
	}
}

func TestCallbacksFireInRegistrationOrder(t *testing.T) {
	m := NewMachine()

	var order []int
	m.OnEnter(Connecting, func(from, to State) { order = append(order, 1) })
	m.OnEnter(Connecting, func(from, to State) { order = append(order, 2) })
	m.OnEnter(Connected, func(from, to State) { order = append(order, 99) })

	m.Transition(Connecting, "")
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("callback order = %v, want [1 2]", order)
	}
}

func TestCallbackReceivesOldAndNewState(t *testing.T) {
	m := NewMachine()
	var gotFrom, gotTo State
	m.OnEnter(Connecting, func(from, to State) { gotFrom, gotTo = from, to })
	m.Transition(Connecting, "")
	if gotFrom != Disconnected || gotTo != Connecting {
		t.Fatalf("callback saw %s -> %s", gotFrom, gotTo)
	}
}

func TestPanickingCallbackDoesNotAbortOthers(t *testing.T) {
	m := NewMachine()

	ran := false
	m.OnEnter(Connecting, func(from, to State) { panic("boom") })
	m.OnEnter(Connecting, func(from, to State) { ran = true })

	if !m.Transition(Connecting, "") {
		t.Fatal("transition should succeed despite panicking callback")
	}
	if !ran {
		t.Fatal("second callback did not run after first panicked")
	}
}

func TestCanSendPerState(t *testing.T) {
	m := NewMachine()

	if m.CanSend(wire.TypeHello) {
		t.Fatal("HELLO must not be sendable while disconnected")
	}

	advance(t, m, Connecting)
	if !m.CanSend(wire.TypeHello) {
		t.Fatal("HELLO should be sendable while connecting")
	}
	if m.CanSend(wire.TypeAttack) {
		t.Fatal("ATTACK must not be sendable while connecting")
	}

	advance2 := func(s State) {
		t.Helper()
		if !m.Transition(s, "test") {
			t.Fatalf("setup to %s", s)
		}
	}
	advance2(Connected)
	advance2(SelectionPhase)
	advance2(Ready)
	advance2(BattleActive)
	if !m.CanSend(wire.TypeAttack) || !m.CanSend(wire.TypeAttackAck) {
		t.Fatal("battle messages should be sendable in battle")
	}
	if m.CanSend(wire.TypeReady) {
		t.Fatal("READY must not be sendable mid-battle")
	}
}

func TestSpectatorSyncAllowedInConnectedStates(t *testing.T) {
	m := NewMachine()
	if m.CanSend(wire.TypeSpectatorSync) {
		t.Fatal("spectator sync needs a connection")
	}
	for _, s := range []State{Connected, SelectionPhase, Ready, BattleActive, BattleEnded} {
		m := NewMachine()
		advance(t, m, s)
		if !m.CanSend(wire.TypeSpectatorSync) {
			t.Fatalf("spectator sync should be sendable in %s", s)
		}
	}
}

func TestInBattle(t *testing.T) {
	m := NewMachine()
	advance(t, m, Ready)
	if m.InBattle() {
		t.Fatal("not yet in battle")
	}
	m.Transition(BattleActive, "")
	if !m.InBattle() {
		t.Fatal("battle active should report in battle")
	}
	m.Transition(BattleEnded, "")
	if m.InBattle() {
		t.Fatal("ended battle still reports in battle")
	}
}

func TestChatAndDisconnectAllowedInAnyConnectedState(t *testing.T) {
	m := NewMachine()
	if m.CanSend(wire.TypeChatMessage) || m.CanSend(wire.TypeDisconnect) {
		t.Fatal("chat/disconnect need a connection")
	}

	for _, s := range []State{Connected, SelectionPhase, Ready, BattleActive, BattleEnded} {
		m := NewMachine()
		advance(t, m, s)
		if !m.CanSend(wire.TypeChatMessage) {
			t.Fatalf("chat should be sendable in %s", s)
		}
		if !m.CanSend(wire.TypeDisconnect) {
			t.Fatalf("disconnect should be sendable in %s", s)
		}
	}
}

func TestResetKeepsCallbacks(t *testing.T) {
	m := NewMachine()
	fired := 0
	m.OnEnter(Connecting, func(from, to State) { fired++ })

	m.Transition(Connecting, "")
	m.Reset()

	if m.State() != Disconnected || len(m.History()) != 0 {
		t.Fatal("reset did not restore initial state")
	}
	m.Transition(Connecting, "")
	if fired != 2 {
		t.Fatalf("callback fired %d times, want 2 (survives reset)", fired)
	}
}
