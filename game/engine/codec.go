package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// saveEnvelope is the versioned save format. Rows hold space separated tokens:
// "#" wall, "." empty, "<value>@<id>" tile.
type saveEnvelope struct {
	V       int                `json:"v"`
	Config  string             `json:"config"`
	Size    int                `json:"size"`
	Rows    []string           `json:"rows"`
	Score   int                `json:"score"`
	Turn    int                `json:"turn"`
	Status  GameStatus         `json:"status"`
	NextID  TileID             `json:"next_id"`
	History []MoveHistoryEntry `json:"history,omitempty"`
}

// Serialize encodes board, score, turn, status and history into an opaque string
func (g *Game) Serialize() string {
	env := saveEnvelope{
		V:       SaveVersion,
		Config:  g.config.Name,
		Size:    g.board.Size(),
		Rows:    encodeRows(g.board),
		Score:   g.score.Points(),
		Turn:    g.turn,
		Status:  g.status,
		NextID:  g.nextID,
		History: g.history,
	}

	data, err := json.Marshal(env)
	if err != nil {
		// only plain values are marshalled
		panic(fmt.Sprintf("engine: serialize: %v", err))
	}
	return string(data)
}

// Restore loads a string produced by Serialize. On malformed input it returns
// false and leaves the game unchanged; RestoreErr reports why.
func (g *Game) Restore(data string) bool {
	g.restoreErr = g.RestoreState(data)
	return g.restoreErr == nil
}

// RestoreErr returns the failure cause of the last Restore call
func (g *Game) RestoreErr() error {
	return g.restoreErr
}

// RestoreState is Restore with the failure cause as an error wrapping ErrDeserialize
func (g *Game) RestoreState(data string) error {
	var env saveEnvelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}

	if env.V != SaveVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrDeserialize, env.V)
	}
	if env.Size != g.config.GridSize {
		return fmt.Errorf("%w: size %d does not match grid_size %d", ErrDeserialize, env.Size, g.config.GridSize)
	}
	if env.Score < 0 || env.Turn < 0 {
		return fmt.Errorf("%w: negative score or turn", ErrDeserialize)
	}
	switch env.Status {
	case StatusReady, StatusResolved, StatusOver:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrDeserialize, env.Status)
	}

	board, err := decodeRows(env.Size, env.Rows, env.NextID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	if !samePositions(board.Walls(), g.config.Walls()) {
		return fmt.Errorf("%w: wall layout does not match config %q", ErrDeserialize, g.config.Name)
	}

	status := env.Status
	stuck := board.Stuck()
	switch {
	case status == StatusOver && !stuck:
		return fmt.Errorf("%w: status over on a board with moves left", ErrDeserialize)
	case status == StatusResolved && len(board.EmptyPositions()) == 0:
		return fmt.Errorf("%w: pending spawn on a full board", ErrDeserialize)
	case status == StatusReady && stuck:
		status = StatusOver
	}

	g.board = board
	g.score.Reset()
	g.score.Add(env.Score)
	g.turn = env.Turn
	g.status = status
	g.nextID = env.NextID
	g.history = env.History
	g.lastChanges = nil
	if g.status == StatusOver {
		g.message = fmt.Sprintf(g.config.Messages.GameOver, g.score.Points())
	} else {
		g.message = "Game restored"
	}
	return nil
}

func encodeRows(b *Board) []string {
	rows := make([]string, b.size)
	tokens := make([]string, b.size)
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			cell := b.cells[r][c]
			switch {
			case cell.IsWall():
				tokens[c] = "#"
			case cell.IsTile():
				tokens[c] = fmt.Sprintf("%d@%d", cell.Value, cell.ID)
			default:
				tokens[c] = "."
			}
		}
		rows[r] = strings.Join(tokens, " ")
	}
	return rows
}

func decodeRows(size int, rows []string, nextID TileID) (*Board, error) {
	if len(rows) != size {
		return nil, fmt.Errorf("expected %d rows, got %d", size, len(rows))
	}

	b, err := NewBoard(size, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[TileID]bool)
	for r, row := range rows {
		tokens := strings.Fields(row)
		if len(tokens) != size {
			return nil, fmt.Errorf("row %d: expected %d cells, got %d", r, size, len(tokens))
		}
		for c, tok := range tokens {
			cell, err := parseToken(tok)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %v", r, c, err)
			}
			if cell.IsTile() {
				if cell.ID == 0 || cell.ID > nextID || seen[cell.ID] {
					return nil, fmt.Errorf("row %d col %d: bad tile id %d", r, c, cell.ID)
				}
				seen[cell.ID] = true
			}
			b.cells[r][c] = cell
		}
	}
	return b, nil
}

func parseToken(tok string) (Cell, error) {
	switch tok {
	case "#":
		return Cell{Kind: Wall}, nil
	case ".":
		return Cell{Kind: Empty}, nil
	}

	v, id, ok := strings.Cut(tok, "@")
	if !ok {
		return Cell{}, fmt.Errorf("bad token %q", tok)
	}
	value, err := strconv.Atoi(v)
	if err != nil || !isTileValue(value) {
		return Cell{}, fmt.Errorf("bad tile value %q", v)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return Cell{}, fmt.Errorf("bad tile id %q", id)
	}
	return Cell{Kind: Tile, Value: value, ID: TileID(n)}, nil
}
