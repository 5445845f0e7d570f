package battle

import (
	"errors"
	"math/rand"
)

// Phase is the battle's coarse progression.
type Phase string

const (
	NotStarted  Phase = "NOT_STARTED"
	Player1Turn Phase = "PLAYER1_TURN"
	Player2Turn Phase = "PLAYER2_TURN"
	Ended       Phase = "ENDED"
)

// Outcome is derived from both combatants' fainted status at read time,
// never stored.
type Outcome string

const (
	Ongoing    Outcome = "ONGOING"
	Player1Win Outcome = "PLAYER1_WIN"
	Player2Win Outcome = "PLAYER2_WIN"
	Draw       Outcome = "DRAW"
)

// ErrNotYourTurn rejects an attack initiated out of turn. Purely local;
// nothing reaches the network.
var ErrNotYourTurn = errors.New("battle: not your turn")

// Battle is one peer's local copy of the shared battle state. Player1 is
// always the host's side on both peers, so "player1" names the same player
// everywhere. The turn-sync protocol is the only writer once a battle
// starts; it serializes access externally.
type Battle struct {
	Player1Name string
	Player2Name string
	Player1     *Pokemon
	Player2     *Pokemon

	Phase       Phase
	TurnCount   int
	FirstPlayer string

	log []string
}

// New builds a battle, restores both Pokémon to full HP, and decides who
// moves first: the faster Pokémon, coin toss on a speed tie.
func New(player1Name, player2Name string, player1, player2 *Pokemon) *Battle {
	player1.ResetHP()
	player2.ResetHP()
	b := &Battle{
		Player1Name: player1Name,
		Player2Name: player2Name,
		Player1:     player1,
		Player2:     player2,
		Phase:       NotStarted,
	}
	switch {
	case player1.Speed > player2.Speed:
		b.FirstPlayer = player1Name
	case player2.Speed > player1.Speed:
		b.FirstPlayer = player2Name
	case rand.Intn(2) == 0:
		b.FirstPlayer = player1Name
	default:
		b.FirstPlayer = player2Name
	}
	return b
}

// Start opens the battle with the first player's turn.
func (b *Battle) Start() {
	if b.FirstPlayer == b.Player1Name {
		b.Phase = Player1Turn
	} else {
		b.Phase = Player2Turn
	}
	b.Log(b.Player1Name + "'s " + b.Player1.Name + " vs " + b.Player2Name + "'s " + b.Player2.Name + "!")
	b.Log(b.FirstPlayer + " goes first!")
}

// Result is what one executed attack produced, including the turn-sync
// fields the ATTACK frame carries.
type Result struct {
	Damage         int
	DefenderHP     int
	DefenderMaxHP  int
	Attacker       string
	Defender       string
	Move           *Move
	TurnNumber     int
	NextTurnPlayer string
	Outcome        Outcome
}

// ExecuteAttack validates the turn, computes and applies damage locally, and
// returns the result to carry on the wire. The phase is NOT switched here:
// the attacker's local turn flips only once the peer acknowledges, from the
// explicit next-turn fields, so a duplicated frame can never double-toggle.
func (b *Battle) ExecuteAttack(attackerName string, move *Move) (Result, error) {
	if !b.IsPlayerTurn(attackerName) {
		return Result{}, ErrNotYourTurn
	}

	attacker, defender := b.Player1, b.Player2
	defenderName := b.Player2Name
	if attackerName == b.Player2Name {
		attacker, defender = b.Player2, b.Player1
		defenderName = b.Player1Name
	}

	damage := Damage(attacker, defender, move)
	actual := defender.TakeDamage(damage)

	b.Log(attackerName + "'s " + attacker.Name + " used " + move.Name + "!")
	if txt := EffectivenessText(Effectiveness(move.Type, defender)); txt != "" {
		b.Log(txt)
	}
	b.noteFaint(defender)
	b.TurnCount++

	next := b.Player1Name
	if attackerName == b.Player1Name {
		next = b.Player2Name
	}

	return Result{
		Damage:         actual,
		DefenderHP:     defender.CurrentHP,
		DefenderMaxHP:  defender.MaxHP,
		Attacker:       attackerName,
		Defender:       defenderName,
		Move:           move,
		TurnNumber:     b.TurnCount,
		NextTurnPlayer: next,
		Outcome:        b.Outcome(),
	}, nil
}

// IsPlayerTurn reports whether it is playerName's turn.
func (b *Battle) IsPlayerTurn(playerName string) bool {
	switch b.Phase {
	case Player1Turn:
		return playerName == b.Player1Name
	case Player2Turn:
		return playerName == b.Player2Name
	}
	return false
}

// CurrentTurnPlayer returns whose turn it is, or "" outside active play.
func (b *Battle) CurrentTurnPlayer() string {
	switch b.Phase {
	case Player1Turn:
		return b.Player1Name
	case Player2Turn:
		return b.Player2Name
	}
	return ""
}

// SetTurn adopts an explicit turn number and next player, as carried by an
// ATTACK frame. Idempotent: adopting the same values twice is harmless,
// which is what makes duplicated frames safe. An ended battle keeps its
// phase; only the counter is adopted.
func (b *Battle) SetTurn(turnNumber int, nextPlayer string) {
	b.TurnCount = turnNumber
	if b.Phase == Ended {
		return
	}
	if nextPlayer == b.Player1Name {
		b.Phase = Player1Turn
	} else {
		b.Phase = Player2Turn
	}
}

// ApplyDamage applies externally computed damage to playerName's Pokémon
// and returns its remaining HP. A faint ends the battle.
func (b *Battle) ApplyDamage(playerName string, damage int) int {
	p := b.PokemonOf(playerName)
	if p == nil {
		return 0
	}
	p.TakeDamage(damage)
	b.noteFaint(p)
	return p.CurrentHP
}

func (b *Battle) noteFaint(p *Pokemon) {
	if p.Fainted() {
		b.Log(p.Name + " fainted!")
		b.Phase = Ended
	}
}

// PokemonOf returns the Pokémon owned by playerName, nil for strangers.
func (b *Battle) PokemonOf(playerName string) *Pokemon {
	switch playerName {
	case b.Player1Name:
		return b.Player1
	case b.Player2Name:
		return b.Player2
	}
	return nil
}

// Opponent returns the other player's name.
func (b *Battle) Opponent(playerName string) string {
	if playerName == b.Player1Name {
		return b.Player2Name
	}
	return b.Player1Name
}

// Outcome derives the battle result from both fainted flags. It is a pure
// read; the phase moves to Ended on the damage-application paths, never
// from observation.
func (b *Battle) Outcome() Outcome {
	p1Out, p2Out := b.Player1.Fainted(), b.Player2.Fainted()
	switch {
	case p1Out && p2Out:
		return Draw
	case p1Out:
		return Player2Win
	case p2Out:
		return Player1Win
	}
	return Ongoing
}

// Forfeit ends the battle with the other player as winner.
func (b *Battle) Forfeit(playerName string) Outcome {
	b.Phase = Ended
	b.Log(playerName + " forfeited!")
	if playerName == b.Player1Name {
		return Player2Win
	}
	return Player1Win
}

// Active reports whether the battle is being played.
func (b *Battle) Active() bool {
	return b.Phase == Player1Turn || b.Phase == Player2Turn
}

// Log appends one line to the battle log.
func (b *Battle) Log(line string) {
	b.log = append(b.log, line)
}

// LogLines returns a copy of the battle log.
func (b *Battle) LogLines() []string {
	return append([]string(nil), b.log...)
}
