// Package battle implements the local battle model: Pokémon, moves, the
// simplified damage formula, and the per-peer copy of battle state the
// turn-synchronization protocol mutates.
package battle

import "fmt"

// Pokemon carries the stats a battle needs. Each peer holds its own copies
// of both combatants; the network protocol keeps the copies convergent.
type Pokemon struct {
	Number    int
	Name      string
	Type1     string
	Type2     string // empty when mono-typed
	MaxHP     int
	CurrentHP int
	Attack    int
	Defense   int
	SpAttack  int
	SpDefense int
	Speed     int

	// Against maps lowercase attacking type -> damage multiplier taken.
	Against map[string]float64

	Moves []*Move
}

// TakeDamage applies damage, clamping HP at zero, and returns the amount
// actually dealt. Damage arrives off the wire, so a negative value is
// ignored rather than allowed to heal.
func (p *Pokemon) TakeDamage(damage int) int {
	actual := damage
	if actual < 0 {
		actual = 0
	}
	if actual > p.CurrentHP {
		actual = p.CurrentHP
	}
	p.CurrentHP -= actual
	return actual
}

// Fainted reports whether the Pokémon is out of the battle.
func (p *Pokemon) Fainted() bool {
	return p.CurrentHP <= 0
}

// ResetHP restores full health, e.g. at battle start or rematch.
func (p *Pokemon) ResetHP() {
	p.CurrentHP = p.MaxHP
}

// HPPercent returns current HP as a percentage of max.
func (p *Pokemon) HPPercent() float64 {
	if p.MaxHP <= 0 {
		return 0
	}
	return float64(p.CurrentHP) / float64(p.MaxHP) * 100
}

// Types returns the display form of the type pair.
func (p *Pokemon) Types() string {
	if p.Type2 != "" {
		return p.Type1 + "/" + p.Type2
	}
	return p.Type1
}

func (p *Pokemon) String() string {
	return fmt.Sprintf("%s (#%d) - %s | HP: %d/%d | ATK: %d | DEF: %d | SPD: %d",
		p.Name, p.Number, p.Types(), p.CurrentHP, p.MaxHP, p.Attack, p.Defense, p.Speed)
}

// Clone returns an independent copy, so one peer's battle never aliases
// the dex's canonical entry.
func (p *Pokemon) Clone() *Pokemon {
	cp := *p
	cp.Against = make(map[string]float64, len(p.Against))
	for k, v := range p.Against {
		cp.Against[k] = v
	}
	cp.Moves = make([]*Move, len(p.Moves))
	for i, m := range p.Moves {
		mc := *m
		cp.Moves[i] = &mc
	}
	return &cp
}
