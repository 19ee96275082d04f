package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseBoard builds a board from rows of space separated tokens: "#" for a
// wall, "." or "0" for an empty cell, a power of two for a tile. Tiles are
// left without ids; Game.SetBoard numbers them.
func ParseBoard(rows []string) (*Board, error) {
	b, err := NewBoard(len(rows), nil)
	if err != nil {
		return nil, err
	}

	for r, row := range rows {
		tokens := strings.Fields(row)
		if len(tokens) != b.size {
			return nil, fmt.Errorf("row %d: expected %d cells, got %d", r+1, b.size, len(tokens))
		}
		for c, tok := range tokens {
			switch tok {
			case "#":
				b.cells[r][c] = Cell{Kind: Wall}
			case ".", "0":
				b.cells[r][c] = Cell{Kind: Empty}
			default:
				v, err := strconv.Atoi(tok)
				if err != nil || !isTileValue(v) {
					return nil, fmt.Errorf("row %d col %d: invalid tile %q", r+1, c+1, tok)
				}
				b.cells[r][c] = Cell{Kind: Tile, Value: v}
			}
		}
	}
	return b, nil
}

// CountTiles counts numbered tiles on the board
func CountTiles(b *Board) int {
	count := 0
	for _, row := range b.cells {
		for _, cell := range row {
			if cell.IsTile() {
				count++
			}
		}
	}
	return count
}

// SumTiles adds up every tile value on the board
func SumTiles(b *Board) int {
	sum := 0
	for _, row := range b.cells {
		for _, cell := range row {
			if cell.IsTile() {
				sum += cell.Value
			}
		}
	}
	return sum
}

// Segments returns the wall-free runs of one line, leading edge first
func Segments(b *Board, dir Direction, index int) ([][]Position, error) {
	line, err := b.ExtractLine(dir, index)
	if err != nil {
		return nil, err
	}

	var segments [][]Position
	var current []Position
	for _, p := range line {
		if b.cells[p.Row][p.Col].IsWall() {
			if len(current) > 0 {
				segments = append(segments, current)
				current = nil
			}
			continue
		}
		current = append(current, p)
	}
	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments, nil
}

// BlockedLines counts lines toward dir where walls leave no room to slide:
// every segment is a single cell.
func BlockedLines(b *Board, dir Direction) int {
	blocked := 0
	for idx := 0; idx < b.size; idx++ {
		segments, err := Segments(b, dir, idx)
		if err != nil {
			continue
		}
		open := true
		for _, seg := range segments {
			if len(seg) > 1 {
				open = false
				break
			}
		}
		if open {
			blocked++
		}
	}
	return blocked
}

// SealedCells lists open cells whose four neighbours are all walls or edges.
// A tile spawned there can never move or merge.
func SealedCells(b *Board) []Position {
	var sealed []Position
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			if b.cells[r][c].IsWall() {
				continue
			}
			boxed := true
			for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nr, nc := r+d[0], c+d[1]
				if b.inBounds(nr, nc) && !b.cells[nr][nc].IsWall() {
					boxed = false
					break
				}
			}
			if boxed {
				sealed = append(sealed, Position{Row: r, Col: c})
			}
		}
	}
	return sealed
}
