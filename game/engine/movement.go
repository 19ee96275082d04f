package engine

import "fmt"

// slideResult aggregates one direction's resolution across all lines
type slideResult struct {
	changes []ChangeRecord
	gained  int
	merges  int
}

// Slide resolves every line of the board toward dir, mutating the board in place.
// Lines are processed in index order and records within a line leading-edge first.
func (b *Board) Slide(dir Direction) ([]ChangeRecord, int, error) {
	res, err := b.slide(dir)
	if err != nil {
		return nil, 0, err
	}
	return res.changes, res.gained, nil
}

func (b *Board) slide(dir Direction) (slideResult, error) {
	var res slideResult
	if !dir.Valid() {
		return res, fmt.Errorf("slide: %w: %q", ErrInvalidDirection, dir)
	}

	b.clearMerged()

	for idx := 0; idx < b.size; idx++ {
		line, err := b.ExtractLine(dir, idx)
		if err != nil {
			return res, err
		}

		resolved, lr := resolveLine(line, b.cellsAt(line))
		if len(lr.changes) == 0 {
			continue
		}
		if err := b.WriteLine(dir, idx, resolved); err != nil {
			return res, err
		}

		res.changes = append(res.changes, lr.changes...)
		res.gained += lr.gained
		res.merges += lr.merges
	}
	return res, nil
}

// resolveLine splits a line at walls and resolves each segment independently.
// Walls are copied through untouched.
func resolveLine(line []Position, cells []Cell) ([]Cell, slideResult) {
	var res slideResult
	out := make([]Cell, len(cells))

	start := 0
	for i := 0; i <= len(cells); i++ {
		if i < len(cells) && !cells[i].IsWall() {
			continue
		}
		if i > start {
			seg := resolveSegment(line[start:i], cells[start:i], out[start:i])
			res.changes = append(res.changes, seg.changes...)
			res.gained += seg.gained
			res.merges += seg.merges
		}
		if i < len(cells) {
			out[i] = cells[i]
		}
		start = i + 1
	}
	return out, res
}

// resolveSegment compacts the tiles of a wall-free run toward index 0 and merges
// equal neighbours greedily from the leading edge. A tile produced by a merge
// cannot merge again in the same turn.
func resolveSegment(pos []Position, in []Cell, out []Cell) slideResult {
	var res slideResult
	for i := range out {
		out[i] = Cell{Kind: Empty}
	}

	target := 0
	for i, c := range in {
		if !c.IsTile() {
			continue
		}

		if target > 0 {
			prev := &out[target-1]
			if !prev.justMerged && !c.justMerged && prev.Value == c.Value {
				prev.Value *= 2
				prev.justMerged = true
				res.changes = append(res.changes, ChangeRecord{
					Kind:       Merged,
					From:       pos[i],
					To:         pos[target-1],
					TileID:     prev.ID,
					AbsorbedID: c.ID,
					Value:      prev.Value,
				})
				res.gained += prev.Value
				res.merges++
				continue
			}
		}

		out[target] = c
		if target != i {
			res.changes = append(res.changes, ChangeRecord{
				Kind:   Moved,
				From:   pos[i],
				To:     pos[target],
				TileID: c.ID,
				Value:  c.Value,
			})
		}
		target++
	}
	return res
}
