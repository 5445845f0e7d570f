// Package peer implements the turn-synchronization protocol engine.
//
// Design:
//   - One goroutine polls the transport and feeds every datagram to the
//     reliability layer synchronously, so duplicate ACKs go out before the
//     next datagram is read.
//   - The reliability layer's message callback runs the dispatcher on that
//     same goroutine; handlers must not block.
//   - Both peers hold their own copy of the battle. An attack round
//     converges the two copies: the attacker's ATTACK carries the computed
//     damage, the new turn number, and the explicit next-turn player; the
//     defender applies the sent value and answers with its resulting HP;
//     the attacker adopts the turn fields only once the per-turn
//     acknowledger set reaches quorum.
//   - Battle and protocol state share one mutex. The user-action path
//     (Attack, Forfeit) and the receive path both take it, so concurrent
//     initiation cannot interleave with an arriving frame.
package peer

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pokewire/pokewire/internal/battle"
	"github.com/pokewire/pokewire/internal/chat"
	"github.com/pokewire/pokewire/internal/dex"
	"github.com/pokewire/pokewire/internal/reliable"
	"github.com/pokewire/pokewire/internal/session"
	"github.com/pokewire/pokewire/internal/transport"
	"github.com/pokewire/pokewire/internal/wire"
)

const (
	defaultReceiveTimeout = 1 * time.Second
	eventQueueDepth       = 64
	ackQuorum             = 2
)

// Config configures a Peer.
type Config struct {
	Name      string
	Role      string // wire.RoleHost, wire.RoleJoiner or wire.RoleSpectator
	Transport transport.Transport
	Dex       *dex.Dex

	Reliable       reliable.Config
	ReceiveTimeout time.Duration // transport poll interval; defaults to 1s
}

// EventKind tags events surfaced to the UI.
type EventKind string

const (
	EventConnected    EventKind = "CONNECTED"
	EventPokemon      EventKind = "POKEMON"
	EventBattleStart  EventKind = "BATTLE_START"
	EventAttack       EventKind = "ATTACK"
	EventTurn         EventKind = "TURN"
	EventBattleEnd    EventKind = "BATTLE_END"
	EventChat         EventKind = "CHAT"
	EventSnapshot     EventKind = "SNAPSHOT"
	EventDisconnected EventKind = "DISCONNECTED"
	EventDeliveryLost EventKind = "DELIVERY_LOST"
)

// Event is delivered to callers via the Events() channel.
type Event struct {
	Kind EventKind
	Text string
}

// turnAgreement tracks one in-flight attack until both parties have
// acknowledged it. Only the attacker keeps one open; the defender's receipt
// of the ATTACK plus its own ACK is instant quorum.
type turnAgreement struct {
	turn       int
	damage     int
	nextPlayer string
	acks       map[string]bool // player names
}

// Peer is one participant's protocol engine.
type Peer struct {
	name string
	role string

	tr   transport.Transport
	rel  *reliable.Layer
	sm   *session.Machine
	dex  *dex.Dex
	chat *chat.Log

	receiveTimeout time.Duration

	mu          sync.Mutex
	battle      *battle.Battle
	peerAddr    string
	peerName    string
	localChoice *battle.Pokemon
	peerChoice  *battle.Pokemon
	localReady  bool
	peerReady   bool
	agreements  map[int]*turnAgreement
	spectators  map[string]string // addr -> name

	events chan Event

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Peer. Transport and Dex are required; Role defaults to
// joiner.
func New(cfg Config) (*Peer, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("peer: transport is required")
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("peer: name is required")
	}
	if cfg.Role == "" {
		cfg.Role = wire.RoleJoiner
	}
	if cfg.ReceiveTimeout == 0 {
		cfg.ReceiveTimeout = defaultReceiveTimeout
	}
	p := &Peer{
		name:           cfg.Name,
		role:           cfg.Role,
		tr:             cfg.Transport,
		sm:             session.NewMachine(),
		dex:            cfg.Dex,
		chat:           chat.NewLog(),
		receiveTimeout: cfg.ReceiveTimeout,
		agreements:     make(map[int]*turnAgreement),
		spectators:     make(map[string]string),
		events:         make(chan Event, eventQueueDepth),
		stopCh:         make(chan struct{}),
	}
	p.rel = reliable.New(cfg.Transport.Send, cfg.Reliable)
	p.rel.OnMessage = p.dispatch
	p.rel.OnGiveUp = func(seq uint16, addr string) {
		p.emit(EventDeliveryLost, fmt.Sprintf("delivery of seq %d to %s abandoned", seq, addr))
	}
	return p, nil
}

// Start launches the reliability layer and the receive goroutine.
func (p *Peer) Start() {
	p.rel.Start()
	go p.receiveLoop()
}

// Stop shuts the peer down. Loops exit at their next poll; shutdown is
// bounded by the receive timeout, not instantaneous.
func (p *Peer) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.rel.Stop()
		p.tr.Close() //nolint:errcheck
	})
}

// Events returns the channel of events surfaced to the UI.
func (p *Peer) Events() <-chan Event {
	return p.events
}

// State returns the current session state.
func (p *Peer) State() session.State {
	return p.sm.State()
}

// Chat returns the session's chat log.
func (p *Peer) Chat() *chat.Log {
	return p.chat
}

// PeerName returns the remote player's name, "" before the handshake.
func (p *Peer) PeerName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peerName
}

// Battle returns the live battle, nil outside one. Callers must treat it
// as read-only; the peer owns all writes.
func (p *Peer) Battle() *battle.Battle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.battle
}

// Connect dials the host: joiners and spectators send a HELLO and wait for
// the HELLO_ACK to arrive on the receive loop.
func (p *Peer) Connect(hostAddr string) error {
	if !p.sm.Transition(session.Connecting, "dialing host") {
		return fmt.Errorf("peer: cannot connect from state %s", p.sm.State())
	}
	p.mu.Lock()
	p.peerAddr = hostAddr
	p.mu.Unlock()
	p.sendReliable(wire.NewHello(p.name, p.role), hostAddr)
	return nil
}

// receiveLoop polls the transport and hands each datagram to the
// reliability layer on this goroutine.
func (p *Peer) receiveLoop() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}
		data, addr, ok := p.tr.Receive(p.receiveTimeout)
		if !ok {
			continue
		}
		p.rel.HandleReceived(data, addr)
	}
}

// dispatch decodes, validates and routes one application frame. Runs on
// the receive goroutine via the reliability layer's message callback.
func (p *Peer) dispatch(data []byte, addr string) {
	msg := wire.Decode(data)
	if msg == nil {
		return // malformed frames are dropped, never surfaced
	}
	if ok, reason := wire.Validate(msg); !ok {
		log.Printf("peer: dropping %s from %s: %s", msg.Type, addr, reason)
		return
	}

	// HELLO arrives before any session exists on the host side, and
	// spectators may join mid-battle, so it bypasses the state gate.
	if msg.Type == wire.TypeHello {
		p.handleHello(msg, addr)
		return
	}
	// BATTLE_START can outrun the host's READY frame on a reordering
	// transport, and the dedup store would eat the retransmit. It implies
	// both sides were ready, so it skips the gate too.
	if msg.Type == wire.TypeBattleStart {
		p.handleBattleStart(msg, addr)
		return
	}
	if !p.sm.CanSend(msg.Type) {
		log.Printf("peer: %s not permitted in state %s, ignoring", msg.Type, p.sm.State())
		return
	}

	switch msg.Type {
	case wire.TypeHelloAck:
		p.handleHelloAck(msg, addr)
	case wire.TypePokemonSelect:
		p.handlePokemonSelect(msg, addr)
	case wire.TypePokemonSelectAck:
		log.Printf("peer: selection confirmed by %s", addr)
	case wire.TypeReady:
		p.handleReady(msg, addr)
	case wire.TypeReadyAck:
		log.Printf("peer: ready confirmed by %s", addr)
	case wire.TypeAttack:
		p.handleAttack(msg, addr)
	case wire.TypeAttackAck:
		p.handleAttackAck(msg, addr)
	case wire.TypeBattleResult:
		p.handleBattleResult(msg)
	case wire.TypeBattleEnd:
		p.handleBattleEnd(msg)
	case wire.TypeBattleState:
		p.handleBattleState(msg)
	case wire.TypeSpectatorSync:
		p.handleSpectatorSync(msg, addr)
	case wire.TypeChatMessage:
		p.handleChat(msg)
	case wire.TypeDisconnect:
		p.handleDisconnect(msg)
	case wire.TypeError:
		log.Printf("peer: ERROR from %s: %s %s", addr, msg.Get("error_code"), msg.Get("error_message"))
	default:
		log.Printf("peer: unknown message type %q from %s", msg.Type, addr)
	}
}

func (p *Peer) handleHello(msg *wire.Message, addr string) {
	name := msg.Get("player_name")
	role := msg.Get("role")

	if strings.EqualFold(role, wire.RoleSpectator) {
		p.mu.Lock()
		p.spectators[addr] = name
		primary := p.peerAddr
		p.mu.Unlock()
		p.sendReliable(wire.NewHelloAck(p.name), addr)
		// Tell the other primary where the spectator lives, so its chat
		// and snapshots reach the watcher without a relay hop.
		if primary != "" && p.sm.CanSend(wire.TypeSpectatorSync) {
			p.sendReliable(wire.NewSpectatorSync(name, addr), primary)
		}
		p.chat.System(name + " is watching")
		p.emit(EventConnected, name+" joined as spectator")
		log.Printf("peer: spectator %s registered at %s", name, addr)
		return
	}

	// Primary participant. The host walks Disconnected → Connecting →
	// Connected on its behalf, then both sides enter selection.
	if !p.sm.Transition(session.Connecting, "peer hello") && p.sm.State() != session.Connecting {
		// Replayed HELLO after the handshake: just re-confirm.
		if p.peerAddrIs(addr) {
			p.sendReliable(wire.NewHelloAck(p.name), addr)
		}
		return
	}
	p.mu.Lock()
	p.peerAddr = addr
	p.peerName = name
	p.mu.Unlock()

	p.sendReliable(wire.NewHelloAck(p.name), addr)
	p.sm.Transition(session.Connected, "handshake complete")
	p.sm.Transition(session.SelectionPhase, "choose pokemon")
	p.emit(EventConnected, name+" connected")
}

func (p *Peer) handleHelloAck(msg *wire.Message, addr string) {
	p.mu.Lock()
	p.peerName = msg.Get("player_name")
	p.peerAddr = addr
	p.mu.Unlock()

	p.sm.Transition(session.Connected, "handshake complete")
	if p.role != wire.RoleSpectator {
		p.sm.Transition(session.SelectionPhase, "choose pokemon")
	}
	p.emit(EventConnected, "connected to "+msg.Get("player_name"))
}

// SelectPokemon picks the local combatant by dex number and announces it.
func (p *Peer) SelectPokemon(number int) error {
	if !p.sm.CanSend(wire.TypePokemonSelect) {
		return fmt.Errorf("peer: cannot select pokemon in state %s", p.sm.State())
	}
	chosen := p.dex.ByNumber(number)
	if chosen == nil {
		return fmt.Errorf("peer: no pokemon with number %d", number)
	}
	p.mu.Lock()
	p.localChoice = chosen.Clone()
	addr := p.peerAddr
	p.mu.Unlock()

	p.sendReliable(wire.NewPokemonSelect(number, chosen.Name), addr)
	return nil
}

func (p *Peer) handlePokemonSelect(msg *wire.Message, addr string) {
	if p.fromSpectator(addr) {
		log.Printf("peer: rejecting POKEMON_SELECT from spectator %s", addr)
		return
	}
	number := msg.GetInt("pokemon_number", 0)
	chosen := p.dex.ByNumber(number)
	if chosen == nil {
		chosen = p.dex.ByName(msg.Get("pokemon_name"))
	}
	if chosen == nil {
		p.sendReliable(wire.NewError("UNKNOWN_POKEMON", msg.Get("pokemon_name")), addr)
		return
	}
	p.mu.Lock()
	p.peerChoice = chosen.Clone()
	p.mu.Unlock()

	p.sendReliable(wire.NewPokemonSelectAck(), addr)
	p.emit(EventPokemon, p.PeerName()+" chose "+chosen.Name)
	p.maybeStartBattle()
}

// Ready marks the local side ready and announces it. The battle starts
// when both sides have chosen and declared ready.
func (p *Peer) Ready() error {
	if !p.sm.CanSend(wire.TypeReady) {
		return fmt.Errorf("peer: cannot declare ready in state %s", p.sm.State())
	}
	p.mu.Lock()
	if p.localChoice == nil {
		p.mu.Unlock()
		return fmt.Errorf("peer: choose a pokemon before declaring ready")
	}
	p.localReady = true
	addr := p.peerAddr
	p.mu.Unlock()

	p.sendReliable(wire.NewReady(), addr)
	p.maybeStartBattle()
	return nil
}

func (p *Peer) handleReady(_ *wire.Message, addr string) {
	if p.fromSpectator(addr) {
		log.Printf("peer: rejecting READY from spectator %s", addr)
		return
	}
	p.mu.Lock()
	p.peerReady = true
	p.mu.Unlock()

	p.sendReliable(wire.NewReadyAck(), addr)
	p.maybeStartBattle()
}

// maybeStartBattle transitions to Ready once both sides are set, and — on
// the host — builds the battle and broadcasts BATTLE_START. The joiner
// builds its copy when that frame arrives, adopting the host's first-player
// pick so a speed-tie coin toss cannot split the two views.
func (p *Peer) maybeStartBattle() {
	p.mu.Lock()
	ready := p.localReady && p.peerReady && p.localChoice != nil && p.peerChoice != nil
	p.mu.Unlock()
	if !ready {
		return
	}
	if p.sm.State() == session.SelectionPhase {
		p.sm.Transition(session.Ready, "both sides ready")
	}
	if p.role != wire.RoleHost || p.sm.State() != session.Ready {
		return
	}

	p.mu.Lock()
	if p.battle != nil { // user action and receive path raced here
		p.mu.Unlock()
		return
	}
	b := battle.New(p.name, p.peerName, p.localChoice, p.peerChoice)
	b.Start()
	p.battle = b
	addr := p.peerAddr
	first := b.FirstPlayer
	p.mu.Unlock()

	p.sendReliable(wire.NewBattleStart(first), addr)
	p.sm.Transition(session.BattleActive, "battle start")
	p.emit(EventBattleStart, first+" moves first")
	p.broadcastSnapshot()
}

func (p *Peer) handleBattleStart(msg *wire.Message, addr string) {
	if p.fromSpectator(addr) {
		return
	}
	if p.role == wire.RoleHost {
		return // only the host originates BATTLE_START
	}
	first := msg.Get("first_player")

	p.mu.Lock()
	if p.localChoice == nil || p.peerChoice == nil {
		p.mu.Unlock()
		log.Printf("peer: BATTLE_START before both selections, ignoring")
		return
	}
	p.peerReady = true
	if p.battle == nil {
		// Player1 is the host on both sides, so "player1" names the same
		// player everywhere, and the host's first-player pick is adopted
		// rather than re-tossed locally.
		b := battle.New(p.peerName, p.name, p.peerChoice, p.localChoice)
		b.FirstPlayer = first
		b.Start()
		p.battle = b
	}
	p.mu.Unlock()

	if p.sm.State() == session.SelectionPhase {
		p.sm.Transition(session.Ready, "host started battle")
	}
	p.sm.Transition(session.BattleActive, "battle start")
	p.emit(EventBattleStart, first+" moves first")
}

// Attack executes the local player's move and starts an attack round:
// damage is computed and applied locally, an agreement record opens with
// the local side pre-seeded, and the ATTACK frame carries the computed
// damage plus the explicit turn fields the defender will adopt.
func (p *Peer) Attack(moveIndex int) error {
	if !p.sm.CanSend(wire.TypeAttack) {
		return fmt.Errorf("peer: cannot attack in state %s", p.sm.State())
	}

	p.mu.Lock()
	b := p.battle
	if b == nil || !b.Active() {
		p.mu.Unlock()
		return fmt.Errorf("peer: no active battle")
	}
	if !b.IsPlayerTurn(p.name) {
		p.mu.Unlock()
		return battle.ErrNotYourTurn
	}
	mine := b.PokemonOf(p.name)
	if moveIndex < 0 || moveIndex >= len(mine.Moves) {
		p.mu.Unlock()
		return fmt.Errorf("peer: no move at index %d", moveIndex)
	}
	move := mine.Moves[moveIndex]
	if !move.Use() {
		p.mu.Unlock()
		return fmt.Errorf("peer: %s is out of uses", move.Name)
	}
	res, err := b.ExecuteAttack(p.name, move)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.agreements[res.TurnNumber] = &turnAgreement{
		turn:       res.TurnNumber,
		damage:     res.Damage,
		nextPlayer: res.NextTurnPlayer,
		acks:       map[string]bool{p.name: true},
	}
	addr := p.peerAddr
	outcome := res.Outcome
	p.mu.Unlock()

	p.sendReliable(wire.NewAttack(p.name, move.Name, move.Type, res.Damage, res.TurnNumber, res.NextTurnPlayer), addr)
	p.emit(EventAttack, fmt.Sprintf("%s used %s for %d damage", p.name, move.Name, res.Damage))
	p.broadcastSnapshot()

	if outcome != battle.Ongoing {
		p.finishBattle(outcome)
	}
	return nil
}

func (p *Peer) handleAttack(msg *wire.Message, addr string) {
	if p.fromSpectator(addr) {
		log.Printf("peer: rejecting ATTACK from spectator %s", addr)
		p.sendReliable(wire.NewError("SPECTATOR_ACTION", "spectators cannot attack"), addr)
		return
	}

	attacker := msg.Get("attacker")
	sentDamage := msg.GetInt("damage", 0)
	turn := msg.GetInt("turn_number", 0)
	next := msg.Get("next_turn_player")

	p.mu.Lock()
	b := p.battle
	if b == nil {
		p.mu.Unlock()
		return
	}

	// A retransmitted ATTACK that survived a dedup-store reset must not
	// reapply damage; the turn counter already reflects it, so just
	// re-answer with the current HP.
	defenderName := b.Opponent(attacker)
	defender := b.PokemonOf(defenderName)
	if defender == nil {
		p.mu.Unlock()
		return
	}
	if turn <= b.TurnCount {
		hp := defender.CurrentHP
		p.mu.Unlock()
		p.sendReliable(wire.NewAttackAck(hp, p.name, turn), addr)
		return
	}

	// Recompute with local stats for the diagnostic; the sent value is
	// what gets applied, so both copies stay identical.
	if attackerPokemon := b.PokemonOf(attacker); attackerPokemon != nil {
		if move := findMove(attackerPokemon, msg.Get("move_name")); move != nil {
			expected := battle.Damage(attackerPokemon, defender, move)
			if expected != sentDamage {
				log.Printf("peer: damage recompute %d differs from sent %d (random roll), applying sent", expected, sentDamage)
			}
		}
	}

	hp := b.ApplyDamage(defenderName, sentDamage)
	b.SetTurn(turn, next)
	b.Log(fmt.Sprintf("%s used %s for %d damage", attacker, msg.Get("move_name"), sentDamage))
	outcome := b.Outcome()
	p.mu.Unlock()

	p.sendReliable(wire.NewAttackAck(hp, p.name, turn), addr)
	p.emit(EventAttack, fmt.Sprintf("%s used %s for %d damage", attacker, msg.Get("move_name"), sentDamage))
	p.broadcastSnapshot()

	if outcome != battle.Ongoing {
		p.finishBattle(outcome)
	}
}

func (p *Peer) handleAttackAck(msg *wire.Message, addr string) {
	sender := msg.Get("sender")
	if sender == "" {
		sender = addr
	}
	reportedHP := msg.GetInt("defender_hp", -1)
	turn := msg.GetInt("turn_number", -1)

	p.mu.Lock()
	b := p.battle
	if b == nil {
		p.mu.Unlock()
		return
	}
	ag := p.agreements[turn]
	if ag == nil && turn < 0 && len(p.agreements) == 1 {
		// Frame without a turn number; only one attack can be in flight.
		for _, a := range p.agreements {
			ag = a
		}
	}
	if ag == nil {
		p.mu.Unlock()
		log.Printf("peer: ATTACK_ACK for unknown turn %d from %s", turn, addr)
		return
	}
	if ag.acks[sender] {
		p.mu.Unlock()
		return // duplicate ack; quorum and reconciliation already ran
	}
	ag.acks[sender] = true
	if len(ag.acks) < ackQuorum {
		p.mu.Unlock()
		return
	}

	// Quorum. Reconcile HP with the defender's report: HP only ever
	// decreases from accepted damage, so the higher value wins and a
	// mismatch is worth a warning.
	defender := b.PokemonOf(b.Opponent(p.name))
	if reportedHP >= 0 && defender != nil && reportedHP != defender.CurrentHP {
		log.Printf("peer: HP mismatch on turn %d: local %d, reported %d", ag.turn, defender.CurrentHP, reportedHP)
		if reportedHP > defender.CurrentHP {
			defender.CurrentHP = reportedHP
		}
	}
	b.SetTurn(ag.turn, ag.nextPlayer)
	delete(p.agreements, ag.turn)
	nextPlayer := ag.nextPlayer
	outcome := b.Outcome()
	p.mu.Unlock()

	p.emit(EventTurn, "turn passes to "+nextPlayer)
	if outcome != battle.Ongoing {
		p.finishBattle(outcome)
	}
}

// finishBattle emits BATTLE_RESULT for a decided outcome and closes the
// session's battle phase. Both sides run this independently; whoever
// observes the faint first informs the other.
func (p *Peer) finishBattle(outcome battle.Outcome) {
	p.mu.Lock()
	b := p.battle
	if b == nil {
		p.mu.Unlock()
		return
	}
	var winner, loser string
	switch outcome {
	case battle.Player1Win:
		winner, loser = b.Player1Name, b.Player2Name
	case battle.Player2Win:
		winner, loser = b.Player2Name, b.Player1Name
	case battle.Draw:
		winner, loser = "DRAW", "DRAW"
	default:
		p.mu.Unlock()
		return
	}
	addr := p.peerAddr
	p.mu.Unlock()

	if p.sm.CanSend(wire.TypeBattleResult) {
		p.sendReliable(wire.NewBattleResult(winner, loser), addr)
	}
	p.sm.Transition(session.BattleEnded, "battle decided")
	p.emit(EventBattleEnd, winner+" wins")
	p.broadcastSnapshot()
}

func (p *Peer) handleBattleResult(msg *wire.Message) {
	p.mu.Lock()
	if p.battle != nil {
		p.battle.Phase = battle.Ended
	}
	p.mu.Unlock()
	p.sm.Transition(session.BattleEnded, "result received")
	p.emit(EventBattleEnd, msg.Get("winner")+" wins")
}

func (p *Peer) handleBattleEnd(msg *wire.Message) {
	p.sm.Transition(session.BattleEnded, msg.Get("reason"))
	p.emit(EventBattleEnd, "battle over: "+msg.Get("reason"))
}

func (p *Peer) handleBattleState(msg *wire.Message) {
	snap, err := battle.ParseSnapshot(msg.Get("battle_state"))
	if err != nil {
		log.Printf("peer: bad battle snapshot: %v", err)
		return
	}
	p.emit(EventSnapshot, fmt.Sprintf("%s %d/%d vs %s %d/%d, %s to move",
		snap.Player1.Pokemon.Name, snap.Player1.Pokemon.HP, snap.Player1.Pokemon.MaxHP,
		snap.Player2.Pokemon.Name, snap.Player2.Pokemon.HP, snap.Player2.Pokemon.MaxHP,
		snap.CurrentTurn))
}

// handleSpectatorSync adopts a spectator registered on the other primary.
// Only the host accepts HELLOs from watchers; this frame is how the other
// side learns where to fan out.
func (p *Peer) handleSpectatorSync(msg *wire.Message, addr string) {
	if p.fromSpectator(addr) {
		return
	}
	name := msg.Get("spectator_name")
	watcherAddr := msg.Get("spectator_addr")
	p.mu.Lock()
	_, known := p.spectators[watcherAddr]
	p.spectators[watcherAddr] = name
	p.mu.Unlock()
	if known {
		return
	}
	p.chat.System(name + " is watching")
	p.emit(EventConnected, name+" joined as spectator")
	log.Printf("peer: spectator %s adopted at %s", name, watcherAddr)
}

// SendChat sends a chat line (and optional sticker) to the peer and every
// spectator.
func (p *Peer) SendChat(text, sticker string) error {
	if !p.sm.CanSend(wire.TypeChatMessage) {
		return fmt.Errorf("peer: cannot chat in state %s", p.sm.State())
	}
	if sticker != "" && !chat.ValidSticker(sticker) {
		return fmt.Errorf("peer: unknown sticker %q", sticker)
	}
	p.chat.Add(p.name, text, sticker)
	msg := wire.NewChatMessage(p.name, text, sticker)

	p.mu.Lock()
	addr := p.peerAddr
	specs := p.spectatorAddrs()
	p.mu.Unlock()

	if addr != "" {
		p.sendReliable(msg, addr)
	}
	for _, s := range specs {
		p.sendReliable(msg, s)
	}
	return nil
}

func (p *Peer) handleChat(msg *wire.Message) {
	m := p.chat.Add(msg.Get("sender"), msg.Get("message"), msg.Get("sticker"))
	p.emit(EventChat, m.String())
}

// Forfeit concedes the battle: the opponent is declared winner and both
// sides move to BattleEnded.
func (p *Peer) Forfeit() error {
	if !p.sm.InBattle() {
		return fmt.Errorf("peer: cannot forfeit in state %s", p.sm.State())
	}
	p.mu.Lock()
	b := p.battle
	if b == nil || !b.Active() {
		p.mu.Unlock()
		return fmt.Errorf("peer: no active battle to forfeit")
	}
	b.Forfeit(p.name)
	winner := b.Opponent(p.name)
	addr := p.peerAddr
	p.mu.Unlock()

	if p.sm.CanSend(wire.TypeBattleResult) {
		p.sendReliable(wire.NewBattleResult(winner, p.name), addr)
	}
	p.sm.Transition(session.BattleEnded, "forfeit")
	p.emit(EventBattleEnd, winner+" wins by forfeit")
	p.broadcastSnapshot()
	return nil
}

// Disconnect tells everyone we are leaving and tears the session down.
// Advisory only: a peer that simply vanishes looks the same on the other
// side as extended loss.
func (p *Peer) Disconnect(reason string) {
	msg := wire.NewDisconnect(p.name, reason)

	p.mu.Lock()
	addr := p.peerAddr
	specs := p.spectatorAddrs()
	p.mu.Unlock()

	if p.sm.CanSend(wire.TypeDisconnect) && addr != "" {
		p.sendReliable(msg, addr)
	}
	for _, s := range specs {
		p.sendReliable(msg, s)
	}
	p.sm.Transition(session.Disconnected, reason)
}

func (p *Peer) handleDisconnect(msg *wire.Message) {
	p.sm.Transition(session.Disconnected, "peer disconnect: "+msg.Get("reason"))
	p.rel.ClearPending()
	p.emit(EventDisconnected, msg.Get("player_name")+" disconnected: "+msg.Get("reason"))
}

// broadcastSnapshot relays the current battle state to every spectator
// through the same reliable path the primary exchange uses.
func (p *Peer) broadcastSnapshot() {
	p.mu.Lock()
	if p.battle == nil || len(p.spectators) == 0 {
		p.mu.Unlock()
		return
	}
	raw, err := p.battle.Snapshot().MarshalText()
	specs := p.spectatorAddrs()
	p.mu.Unlock()
	if err != nil {
		log.Printf("peer: snapshot marshal: %v", err)
		return
	}
	msg := wire.NewBattleState(raw)
	for _, addr := range specs {
		p.sendReliable(msg, addr)
	}
}

// spectatorAddrs returns the registered spectator addresses. Callers hold mu.
func (p *Peer) spectatorAddrs() []string {
	out := make([]string, 0, len(p.spectators))
	for addr := range p.spectators {
		out = append(out, addr)
	}
	return out
}

func (p *Peer) fromSpectator(addr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.spectators[addr]
	return ok
}

func (p *Peer) peerAddrIs(addr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peerAddr == addr
}

func (p *Peer) sendReliable(msg *wire.Message, addr string) {
	if addr == "" {
		return
	}
	p.rel.SendReliable(msg.Encode(), addr)
}

func (p *Peer) emit(kind EventKind, text string) {
	select {
	case p.events <- Event{Kind: kind, Text: text}:
	default:
		// UI not draining; drop rather than block the receive goroutine.
	}
}

func findMove(pok *battle.Pokemon, name string) *battle.Move {
	for _, m := range pok.Moves {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}
