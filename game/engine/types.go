package engine

import (
	"errors"
	"fmt"
	"strings"
)

// CellKind represents the contents of a grid cell
type CellKind string

const (
	Empty CellKind = "empty"
	Wall  CellKind = "wall"
	Tile  CellKind = "tile"

	// Validation constants
	MinGridSize       = 2
	MaxGridSize       = 16
	DefaultGridSize   = 4
	DefaultStartValue = 2
	MaxBulkMoves      = 50
	SaveVersion       = 1
)

var (
	ErrOutOfRange       = errors.New("position out of range")
	ErrInvalidState     = errors.New("invalid game state")
	ErrDeserialize      = errors.New("malformed save data")
	ErrInvalidDirection = errors.New("invalid direction")
)

// TileID identifies one logical tile for the lifetime of a game
type TileID uint64

// Cell is the content of one board position
type Cell struct {
	Kind  CellKind `json:"kind"`
	Value int      `json:"value,omitempty"`
	ID    TileID   `json:"id,omitempty"`

	justMerged bool
}

// IsEmpty reports whether the cell holds nothing
func (c Cell) IsEmpty() bool { return c.Kind == Empty || c.Kind == "" }

// IsWall reports whether the cell is a permanent wall
func (c Cell) IsWall() bool { return c.Kind == Wall }

// IsTile reports whether the cell holds a numbered tile
func (c Cell) IsTile() bool { return c.Kind == Tile }

// Position is a (row, col) board coordinate
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Direction is one of the four slide directions
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Directions lists every direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

// ParseDirection converts user input such as "Up" or "l" into a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "w", "north":
		return Up, nil
	case "down", "d", "s", "south":
		return Down, nil
	case "left", "l", "a", "west":
		return Left, nil
	case "right", "r", "e", "east":
		return Right, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Valid reports whether d is one of the four directions
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// Horizontal reports whether d slices the board into rows
func (d Direction) Horizontal() bool {
	return d == Left || d == Right
}

// ChangeKind tags a ChangeRecord
type ChangeKind string

const (
	Moved   ChangeKind = "moved"
	Merged  ChangeKind = "merged"
	Spawned ChangeKind = "spawned"
)

// ChangeRecord describes how one tile changed during a turn.
//
// For Moved, TileID slid From -> To. For Merged, AbsorbedID slid From -> To and
// disappeared into TileID, which holds Value at To. For Spawned, TileID appeared
// at To (From == To) holding Value.
type ChangeRecord struct {
	Kind       ChangeKind `json:"kind"`
	From       Position   `json:"from"`
	To         Position   `json:"to"`
	TileID     TileID     `json:"tile_id"`
	AbsorbedID TileID     `json:"absorbed_id,omitempty"`
	Value      int        `json:"value"`
}

// Score accumulates merge results
type Score struct {
	points int
}

// Add increases the score by a merge result; negative values are ignored
func (s *Score) Add(v int) {
	if v > 0 {
		s.points += v
	}
}

// Points returns the accumulated score
func (s Score) Points() int { return s.points }

// Reset zeroes the score
func (s *Score) Reset() { s.points = 0 }

// GameStatus is the turn state machine position
type GameStatus string

const (
	StatusReady    GameStatus = "ready"
	StatusResolved GameStatus = "resolved"
	StatusOver     GameStatus = "over"
)

// CellView is the read-only form of a cell handed to transports
type CellView struct {
	Kind  CellKind `json:"kind"`
	Value int      `json:"value,omitempty"`
	ID    TileID   `json:"id,omitempty"`
}

// GameState is a snapshot of the whole game for collaborators
type GameState struct {
	Grid          [][]CellView   `json:"grid"`
	Size          int            `json:"size"`
	Score         int            `json:"score"`
	Turn          int            `json:"turn"`
	Status        GameStatus     `json:"status"`
	GameOver      bool           `json:"game_over"`
	BestTile      int            `json:"best_tile"`
	EmptyCells    int            `json:"empty_cells"`
	Message       string         `json:"message"`
	ConfigName    string         `json:"config_name"`
	PossibleMoves []Direction    `json:"possible_moves,omitempty"`
	LastChanges   []ChangeRecord `json:"last_changes,omitempty"`
}

// MoveHistoryEntry represents a single turn in the game history
type MoveHistoryEntry struct {
	MoveNumber int       `json:"move_number"`
	Direction  Direction `json:"direction"`
	Moved      bool      `json:"moved"`
	Merges     int       `json:"merges"`
	ScoreDelta int       `json:"score_delta"`
	Score      int       `json:"score"`
	Timestamp  int64     `json:"timestamp"`
}
