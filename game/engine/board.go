package engine

import (
	"fmt"
	"strings"
)

// Board is a square grid of cells with a fixed wall layout
type Board struct {
	size  int
	cells [][]Cell
}

// NewBoard creates an empty size×size board with walls at the given positions
func NewBoard(size int, walls []Position) (*Board, error) {
	if size < MinGridSize || size > MaxGridSize {
		return nil, fmt.Errorf("board size must be between %d and %d, got %d", MinGridSize, MaxGridSize, size)
	}

	b := &Board{size: size, cells: make([][]Cell, size)}
	for r := range b.cells {
		b.cells[r] = make([]Cell, size)
		for c := range b.cells[r] {
			b.cells[r][c] = Cell{Kind: Empty}
		}
	}

	for _, w := range walls {
		if !b.inBounds(w.Row, w.Col) {
			return nil, fmt.Errorf("wall %s: %w", w, ErrOutOfRange)
		}
		b.cells[w.Row][w.Col] = Cell{Kind: Wall}
	}
	return b, nil
}

// Size returns the side length of the board
func (b *Board) Size() int { return b.size }

// Get returns the cell at (row, col)
func (b *Board) Get(row, col int) (Cell, error) {
	if !b.inBounds(row, col) {
		return Cell{}, fmt.Errorf("get %s: %w", Position{row, col}, ErrOutOfRange)
	}
	return b.cells[row][col], nil
}

// set places a tile or empties a cell. Walls cannot be overwritten.
func (b *Board) set(p Position, cell Cell) error {
	if !b.inBounds(p.Row, p.Col) {
		return fmt.Errorf("set %s: %w", p, ErrOutOfRange)
	}
	if b.cells[p.Row][p.Col].IsWall() != cell.IsWall() {
		return fmt.Errorf("set %s: wall layout is fixed", p)
	}
	b.cells[p.Row][p.Col] = cell
	return nil
}

// Place puts an id-less tile of value on an empty cell. Planners use it to
// simulate spawns on cloned boards.
func (b *Board) Place(p Position, value int) error {
	if !isTileValue(value) {
		return fmt.Errorf("place %s: invalid tile value %d", p, value)
	}
	cell, err := b.Get(p.Row, p.Col)
	if err != nil {
		return err
	}
	if !cell.IsEmpty() {
		return fmt.Errorf("place %s: cell is not empty", p)
	}
	return b.set(p, Cell{Kind: Tile, Value: value})
}

func (b *Board) inBounds(row, col int) bool {
	return row >= 0 && row < b.size && col >= 0 && col < b.size
}

// ExtractLine returns the positions of row or column index ordered from the
// leading edge of dir (the edge tiles slide toward).
func (b *Board) ExtractLine(dir Direction, index int) ([]Position, error) {
	if !dir.Valid() {
		return nil, fmt.Errorf("extract line: %w: %q", ErrInvalidDirection, dir)
	}
	if index < 0 || index >= b.size {
		return nil, fmt.Errorf("extract line %d: %w", index, ErrOutOfRange)
	}

	line := make([]Position, b.size)
	for i := 0; i < b.size; i++ {
		switch dir {
		case Left:
			line[i] = Position{Row: index, Col: i}
		case Right:
			line[i] = Position{Row: index, Col: b.size - 1 - i}
		case Up:
			line[i] = Position{Row: i, Col: index}
		case Down:
			line[i] = Position{Row: b.size - 1 - i, Col: index}
		}
	}
	return line, nil
}

// WriteLine commits resolved cells back to the positions ExtractLine returns
// for the same direction and index. Wall slots must carry walls.
func (b *Board) WriteLine(dir Direction, index int, cells []Cell) error {
	line, err := b.ExtractLine(dir, index)
	if err != nil {
		return err
	}
	if len(cells) != len(line) {
		return fmt.Errorf("write line %d: expected %d cells, got %d", index, len(line), len(cells))
	}

	for i, p := range line {
		if b.cells[p.Row][p.Col].IsWall() {
			if !cells[i].IsWall() {
				return fmt.Errorf("write line %d: wall at %s cannot be replaced", index, p)
			}
			continue
		}
		if cells[i].IsWall() {
			return fmt.Errorf("write line %d: cannot place wall at %s", index, p)
		}
		b.cells[p.Row][p.Col] = cells[i]
	}
	return nil
}

// cellsAt reads the cells at the given positions
func (b *Board) cellsAt(line []Position) []Cell {
	out := make([]Cell, len(line))
	for i, p := range line {
		out[i] = b.cells[p.Row][p.Col]
	}
	return out
}

// EmptyPositions lists empty, non-wall positions in row-major order
func (b *Board) EmptyPositions() []Position {
	var empty []Position
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			if b.cells[r][c].IsEmpty() {
				empty = append(empty, Position{Row: r, Col: c})
			}
		}
	}
	return empty
}

// Walls lists wall positions in row-major order
func (b *Board) Walls() []Position {
	var walls []Position
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			if b.cells[r][c].IsWall() {
				walls = append(walls, Position{Row: r, Col: c})
			}
		}
	}
	return walls
}

// HasMergeablePair reports whether two orthogonally adjacent tiles share a value
func (b *Board) HasMergeablePair() bool {
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			cell := b.cells[r][c]
			if !cell.IsTile() {
				continue
			}
			if c+1 < b.size && b.cells[r][c+1].IsTile() && b.cells[r][c+1].Value == cell.Value {
				return true
			}
			if r+1 < b.size && b.cells[r+1][c].IsTile() && b.cells[r+1][c].Value == cell.Value {
				return true
			}
		}
	}
	return false
}

// Stuck reports the classic loss condition: no empty cell and no mergeable pair
func (b *Board) Stuck() bool {
	return len(b.EmptyPositions()) == 0 && !b.HasMergeablePair()
}

// Clone returns a deep copy of the board
func (b *Board) Clone() *Board {
	nb := &Board{size: b.size, cells: make([][]Cell, b.size)}
	for r := range b.cells {
		nb.cells[r] = make([]Cell, b.size)
		copy(nb.cells[r], b.cells[r])
	}
	return nb
}

// clearMerged resets every tile's merge marker
func (b *Board) clearMerged() {
	for r := range b.cells {
		for c := range b.cells[r] {
			b.cells[r][c].justMerged = false
		}
	}
}

// view converts the grid to transport cells
func (b *Board) view() [][]CellView {
	grid := make([][]CellView, b.size)
	for r := range b.cells {
		grid[r] = make([]CellView, b.size)
		for c, cell := range b.cells[r] {
			grid[r][c] = CellView{Kind: cell.Kind, Value: cell.Value, ID: cell.ID}
		}
	}
	return grid
}

// String renders the board as rows of fixed-width values; walls show as '#'
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			cell := b.cells[r][c]
			switch {
			case cell.IsWall():
				sb.WriteString("    #")
			case cell.IsTile():
				fmt.Fprintf(&sb, "%5d", cell.Value)
			default:
				sb.WriteString("    .")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
