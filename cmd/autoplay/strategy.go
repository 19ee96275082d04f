package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wricardo/walls2048/game/engine"
)

const (
	emptyWeight  = 12.0
	pairWeight   = 3.0
	cornerWeight = 4.0
	deadPenalty  = -1000.0
)

// LookaheadStrategy picks moves by replaying the server's slide rules on a
// local copy of the board. Each level averages the best reply over sampled
// spawn positions.
type LookaheadStrategy struct {
	depth   int
	samples int
}

func NewLookaheadStrategy(depth, samples int) *LookaheadStrategy {
	if depth < 1 {
		depth = 1
	}
	if samples < 1 {
		samples = 1
	}
	return &LookaheadStrategy{depth: depth, samples: samples}
}

// NextMove returns the best direction for state, or "" when no move changes the board
func (s *LookaheadStrategy) NextMove(state *engine.GameState) (engine.Direction, error) {
	if state == nil || state.GameOver {
		return "", nil
	}

	board, err := boardFromState(state)
	if err != nil {
		return "", err
	}

	var best engine.Direction
	bestScore := math.Inf(-1)
	for _, dir := range engine.Directions {
		score, ok := s.scoreMove(board, dir, s.depth)
		if ok && score > bestScore {
			best, bestScore = dir, score
		}
	}
	return best, nil
}

func (s *LookaheadStrategy) scoreMove(board *engine.Board, dir engine.Direction, depth int) (float64, bool) {
	next := board.Clone()
	changes, gained, err := next.Slide(dir)
	if err != nil || len(changes) == 0 {
		return 0, false
	}
	return float64(gained) + s.expect(next, depth-1), true
}

func (s *LookaheadStrategy) expect(board *engine.Board, depth int) float64 {
	if depth <= 0 {
		return evaluate(board)
	}

	empty := spread(board.EmptyPositions(), s.samples)
	if len(empty) == 0 {
		return evaluate(board)
	}

	total := 0.0
	for _, pos := range empty {
		child := board.Clone()
		if err := child.Place(pos, engine.DefaultStartValue); err != nil {
			continue
		}
		best := deadPenalty
		for _, dir := range engine.Directions {
			if score, ok := s.scoreMove(child, dir, depth); ok && score > best {
				best = score
			}
		}
		total += best
	}
	return total / float64(len(empty))
}

// evaluate scores a resting board: room to spawn, pairs ready to merge and
// the largest tile parked in a corner
func evaluate(b *engine.Board) float64 {
	if b.Stuck() {
		return deadPenalty
	}

	size := b.Size()
	score := float64(len(b.EmptyPositions())) * emptyWeight

	best, bestCorner := 0, false
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			cell, _ := b.Get(r, c)
			if !cell.IsTile() {
				continue
			}
			if right, err := b.Get(r, c+1); err == nil && right.IsTile() && right.Value == cell.Value {
				score += pairWeight
			}
			if down, err := b.Get(r+1, c); err == nil && down.IsTile() && down.Value == cell.Value {
				score += pairWeight
			}
			if cell.Value > best {
				best = cell.Value
				bestCorner = (r == 0 || r == size-1) && (c == 0 || c == size-1)
			}
		}
	}
	if bestCorner {
		score += cornerWeight * math.Log2(float64(best))
	}
	return score
}

// spread keeps at most n positions, evenly spaced through the list
func spread(positions []engine.Position, n int) []engine.Position {
	if len(positions) <= n {
		return positions
	}
	out := make([]engine.Position, n)
	step := float64(len(positions)) / float64(n)
	for i := range out {
		out[i] = positions[int(float64(i)*step)]
	}
	return out
}

// boardFromState rebuilds an engine board from the transport grid
func boardFromState(state *engine.GameState) (*engine.Board, error) {
	if len(state.Grid) == 0 {
		return nil, fmt.Errorf("state has an empty grid")
	}

	rows := make([]string, len(state.Grid))
	for r, row := range state.Grid {
		tokens := make([]string, len(row))
		for c, cell := range row {
			switch cell.Kind {
			case engine.Wall:
				tokens[c] = "#"
			case engine.Tile:
				tokens[c] = strconv.Itoa(cell.Value)
			default:
				tokens[c] = "."
			}
		}
		rows[r] = strings.Join(tokens, " ")
	}
	return engine.ParseBoard(rows)
}
