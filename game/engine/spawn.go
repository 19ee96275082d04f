package engine

import (
	"fmt"
	"math/rand"
)

// SpawnPolicy picks the value of a newly spawned tile
type SpawnPolicy interface {
	NextValue(rng *rand.Rand) int
}

// FixedPolicy always spawns the same value
type FixedPolicy struct {
	Value int
}

// NextValue returns the fixed value
func (p FixedPolicy) NextValue(*rand.Rand) int { return p.Value }

// SpawnWeight is one entry of a weighted spawn distribution
type SpawnWeight struct {
	Value  int `json:"value"`
	Weight int `json:"weight"`
}

// WeightedPolicy picks values proportionally to their weights
type WeightedPolicy struct {
	choices []SpawnWeight
	total   int
}

// NewWeightedPolicy validates weights and builds a policy from them
func NewWeightedPolicy(weights []SpawnWeight) (*WeightedPolicy, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("spawn weights: at least one entry is required")
	}

	p := &WeightedPolicy{}
	for _, w := range weights {
		if !isTileValue(w.Value) {
			return nil, fmt.Errorf("spawn weights: value %d is not a power of two >= 2", w.Value)
		}
		if w.Weight <= 0 {
			return nil, fmt.Errorf("spawn weights: weight for %d must be positive, got %d", w.Value, w.Weight)
		}
		p.choices = append(p.choices, w)
		p.total += w.Weight
	}
	return p, nil
}

// NextValue draws one value from the distribution
func (p *WeightedPolicy) NextValue(rng *rand.Rand) int {
	n := rng.Intn(p.total)
	for _, c := range p.choices {
		if n < c.Weight {
			return c.Value
		}
		n -= c.Weight
	}
	return p.choices[len(p.choices)-1].Value
}

// Spawner places new tiles on uniformly chosen empty cells
type Spawner struct {
	rng     *rand.Rand
	policy  SpawnPolicy
	perTurn int
}

// NewSpawner creates a spawner. A nil policy spawns DefaultStartValue and
// perTurn below one is treated as one.
func NewSpawner(rng *rand.Rand, policy SpawnPolicy, perTurn int) *Spawner {
	if policy == nil {
		policy = FixedPolicy{Value: DefaultStartValue}
	}
	if perTurn < 1 {
		perTurn = 1
	}
	return &Spawner{rng: rng, policy: policy, perTurn: perTurn}
}

// PerTurn returns how many tiles are spawned after each effective move
func (s *Spawner) PerTurn() int { return s.perTurn }

// Spawn places up to count tiles. Fewer are placed when the board runs out of
// empty cells; a full board yields no records.
func (s *Spawner) Spawn(b *Board, count int, nextID func() TileID) []ChangeRecord {
	empty := b.EmptyPositions()
	var records []ChangeRecord

	for n := 0; n < count && len(empty) > 0; n++ {
		i := s.rng.Intn(len(empty))
		p := empty[i]
		empty[i] = empty[len(empty)-1]
		empty = empty[:len(empty)-1]

		cell := Cell{Kind: Tile, Value: s.policy.NextValue(s.rng), ID: nextID()}
		b.cells[p.Row][p.Col] = cell
		records = append(records, ChangeRecord{
			Kind:   Spawned,
			From:   p,
			To:     p,
			TileID: cell.ID,
			Value:  cell.Value,
		})
	}
	return records
}

// isTileValue reports whether v is a power of two >= 2
func isTileValue(v int) bool {
	return v >= 2 && v&(v-1) == 0
}
