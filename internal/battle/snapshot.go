package battle

import "encoding/json"

// Snapshot is the JSON shape carried in a BATTLE_STATE frame and relayed to
// spectators. It is a view, not live state.
type Snapshot struct {
	Phase       Phase          `json:"phase"`
	TurnCount   int            `json:"turn_count"`
	CurrentTurn string         `json:"current_turn"`
	Player1     PlayerSnapshot `json:"player1"`
	Player2     PlayerSnapshot `json:"player2"`
	Outcome     Outcome        `json:"outcome"`
}

type PlayerSnapshot struct {
	Name    string          `json:"name"`
	Pokemon PokemonSnapshot `json:"pokemon"`
}

type PokemonSnapshot struct {
	Name  string `json:"name"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"max_hp"`
	Type1 string `json:"type1"`
	Type2 string `json:"type2"`
}

// Snapshot captures the current battle state.
func (b *Battle) Snapshot() Snapshot {
	return Snapshot{
		Phase:       b.Phase,
		TurnCount:   b.TurnCount,
		CurrentTurn: b.CurrentTurnPlayer(),
		Player1: PlayerSnapshot{
			Name:    b.Player1Name,
			Pokemon: pokemonSnapshot(b.Player1),
		},
		Player2: PlayerSnapshot{
			Name:    b.Player2Name,
			Pokemon: pokemonSnapshot(b.Player2),
		},
		Outcome: b.Outcome(),
	}
}

func pokemonSnapshot(p *Pokemon) PokemonSnapshot {
	return PokemonSnapshot{
		Name:  p.Name,
		HP:    p.CurrentHP,
		MaxHP: p.MaxHP,
		Type1: p.Type1,
		Type2: p.Type2,
	}
}

// MarshalText serialises the snapshot for the wire.
func (s Snapshot) MarshalText() (string, error) {
	b, err := json.Marshal(s)
	return string(b), err
}

// ParseSnapshot decodes a BATTLE_STATE payload.
func ParseSnapshot(raw string) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal([]byte(raw), &s)
	return s, err
}
