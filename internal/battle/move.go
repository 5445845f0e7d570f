package battle

import "fmt"

// Move categories. Physical moves use Attack/Defense, special moves use
// SpAttack/SpDefense.
const (
	CategoryPhysical = "physical"
	CategorySpecial  = "special"
)

// Move is one usable attack with PP accounting.
type Move struct {
	Name     string
	Category string
	Type     string
	Power    int
	MaxUses  int
	Uses     int // remaining
}

// Use consumes one PP, reporting whether the move had any left.
func (m *Move) Use() bool {
	if m.Uses <= 0 {
		return false
	}
	m.Uses--
	return true
}

func (m *Move) String() string {
	return fmt.Sprintf("%s (%s, %s) | Power: %d, Uses: %d/%d",
		m.Name, m.Category, m.Type, m.Power, m.Uses, m.MaxUses)
}

// MovesForType generates the standard physical/special move pair for a type.
func MovesForType(typ string) []*Move {
	return []*Move{
		{Name: typ + " Strike", Category: CategoryPhysical, Type: typ, Power: 60, MaxUses: 25, Uses: 25},
		{Name: typ + " Blast", Category: CategorySpecial, Type: typ, Power: 60, MaxUses: 25, Uses: 25},
	}
}
