// Package dex loads the Pokémon database from a CSV file and serves
// lookups by dex number and name.
//
// Every peer loads its own complete local copy at startup; no lookup ever
// leaves the process. Rows that fail to parse are skipped with a log line
// rather than aborting the load, so a partially damaged file still yields
// a usable database.
package dex

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/pokewire/pokewire/internal/battle"
)

// againstTypes are the type-chart columns the CSV carries, one
// "against_<type>" column per attacking type.
var againstTypes = []string{
	"bug", "dark", "dragon", "electric", "fairy", "fight", "fire",
	"flying", "ghost", "grass", "ground", "ice", "normal", "poison",
	"psychic", "rock", "steel", "water",
}

// Dex is an in-memory Pokémon database indexed by number and lower-cased
// name. It is read-only after Load and safe for concurrent readers.
type Dex struct {
	list     []*battle.Pokemon
	byNumber map[int]*battle.Pokemon
	byName   map[string]*battle.Pokemon
}

// Load reads the CSV at path and builds the database. The first record is
// the header; columns are located by name, so column order does not matter.
func Load(path string) (*Dex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dex: open database: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read builds a database from CSV data on r.
func Read(r io.Reader) (*Dex, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row length validated against the header below

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dex: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"pokedex_number", "name", "type1", "hp", "attack", "defense", "sp_attack", "sp_defense", "speed"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("dex: header missing column %q", required)
		}
	}

	d := &Dex{
		byNumber: make(map[int]*battle.Pokemon),
		byName:   make(map[string]*battle.Pokemon),
	}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("dex: skipping row %d: %v", line, err)
			continue
		}
		p, err := parseRow(record, col)
		if err != nil {
			log.Printf("dex: skipping row %d: %v", line, err)
			continue
		}
		d.list = append(d.list, p)
		d.byNumber[p.Number] = p
		d.byName[strings.ToLower(p.Name)] = p
	}
	if len(d.list) == 0 {
		return nil, fmt.Errorf("dex: no usable rows")
	}
	return d, nil
}

func parseRow(record []string, col map[string]int) (*battle.Pokemon, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	intField := func(name string) (int, error) {
		v, err := strconv.Atoi(field(name))
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", name, err)
		}
		return v, nil
	}

	p := &battle.Pokemon{
		Name:  field("name"),
		Type1: strings.ToLower(field("type1")),
		Type2: strings.ToLower(field("type2")),
	}
	if p.Name == "" {
		return nil, fmt.Errorf("empty name")
	}
	var err error
	if p.Number, err = intField("pokedex_number"); err != nil {
		return nil, err
	}
	if p.MaxHP, err = intField("hp"); err != nil {
		return nil, err
	}
	if p.Attack, err = intField("attack"); err != nil {
		return nil, err
	}
	if p.Defense, err = intField("defense"); err != nil {
		return nil, err
	}
	if p.SpAttack, err = intField("sp_attack"); err != nil {
		return nil, err
	}
	if p.SpDefense, err = intField("sp_defense"); err != nil {
		return nil, err
	}
	if p.Speed, err = intField("speed"); err != nil {
		return nil, err
	}
	p.CurrentHP = p.MaxHP

	// Type-chart columns are optional; a missing or bad cell means the
	// default neutral 1.0 at damage time.
	p.Against = make(map[string]float64, len(againstTypes))
	for _, typ := range againstTypes {
		raw := field("against_" + typ)
		if raw == "" {
			continue
		}
		mult, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		p.Against[typ] = mult
	}

	// One physical/special move pair per type.
	p.Moves = battle.MovesForType(p.Type1)
	if p.Type2 != "" {
		p.Moves = append(p.Moves, battle.MovesForType(p.Type2)...)
	}
	return p, nil
}

// Count returns the number of loaded Pokémon.
func (d *Dex) Count() int { return len(d.list) }

// ByNumber finds a Pokémon by dex number. Returns nil if not found.
// Callers that mutate the result (battles do) must Clone it first.
func (d *Dex) ByNumber(number int) *battle.Pokemon {
	return d.byNumber[number]
}

// ByName finds a Pokémon by name, case-insensitively. Returns nil if not found.
func (d *Dex) ByName(name string) *battle.Pokemon {
	return d.byName[strings.ToLower(name)]
}

// All returns the full list in file order. The slice is shared; treat it
// as read-only.
func (d *Dex) All() []*battle.Pokemon { return d.list }

// Random returns up to n distinct random Pokémon, fewer when the database
// holds fewer than n.
func (d *Dex) Random(n int) []*battle.Pokemon {
	if n > len(d.list) {
		n = len(d.list)
	}
	idx := rand.Perm(len(d.list))[:n]
	out := make([]*battle.Pokemon, n)
	for i, j := range idx {
		out[i] = d.list[j]
	}
	return out
}
