package battle

import (
	"math/rand"
	"strings"
)

// battleLevel is the fixed level all Pokémon fight at.
const battleLevel = 50

// Damage computes attack damage with the simplified level-50 formula:
//
//	((2*L/5 + 2) * power * A/D / 50 + 2) * STAB * type * rand(0.85..1.0)
//
// and never returns less than 1: an attack that connects always hurts.
// The random factor means two peers computing "the same" attack disagree
// slightly; the turn-sync protocol reconciles that, not this function.
func Damage(attacker, defender *Pokemon, move *Move) int {
	return damageWith(attacker, defender, move, rand.Float64())
}

// damageWith is Damage with the random roll injected, for deterministic tests.
// roll is in [0,1) and maps to the 0.85–1.0 spread.
func damageWith(attacker, defender *Pokemon, move *Move, roll float64) int {
	attack, defense := attacker.Attack, defender.Defense
	if move.Category == CategorySpecial {
		attack, defense = attacker.SpAttack, defender.SpDefense
	}
	if defense <= 0 {
		defense = 1
	}

	base := (2.0*battleLevel/5.0+2.0)*float64(move.Power)*float64(attack)/float64(defense)/50.0 + 2.0

	modifier := 1.0
	if sameType(move.Type, attacker.Type1) || sameType(move.Type, attacker.Type2) {
		modifier *= 1.5 // STAB
	}
	modifier *= Effectiveness(move.Type, defender)
	modifier *= 0.85 + roll*0.15

	damage := int(base * modifier)
	if damage < 1 {
		damage = 1
	}
	return damage
}

func sameType(a, b string) bool {
	return b != "" && strings.EqualFold(a, b)
}

// Effectiveness returns the type multiplier the defender takes from
// attackType, 1.0 when the defender's chart has no entry.
func Effectiveness(attackType string, defender *Pokemon) float64 {
	if mult, ok := defender.Against[strings.ToLower(attackType)]; ok {
		return mult
	}
	return 1.0
}

// EffectivenessText is the battle-log flavor line for a multiplier.
func EffectivenessText(mult float64) string {
	switch {
	case mult == 0:
		return "It has no effect!"
	case mult < 1.0:
		return "It's not very effective..."
	case mult > 1.0:
		return "It's super effective!"
	default:
		return ""
	}
}
