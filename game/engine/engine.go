package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Turn protocol
	ApplyMove(dir Direction) []ChangeRecord
	SpawnNext() []ChangeRecord
	Play(dir Direction) TurnResult

	// Game state management
	GetState() *GameState
	Reset() *GameState
	IsOver() bool
	Score() int
	Turn() int
	Status() GameStatus

	// Movement queries
	CanMove(dir Direction) bool
	GetPossibleMoves() []Direction

	// Configuration
	GetConfig() *GameConfig

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry

	// Persistence
	Serialize() string
	Restore(data string) bool
}

// TurnResult is the outcome of a full turn (slide followed by spawn)
type TurnResult struct {
	Direction  Direction      `json:"direction"`
	Moved      bool           `json:"moved"`
	Changes    []ChangeRecord `json:"changes"`
	Spawned    []ChangeRecord `json:"spawned"`
	ScoreDelta int            `json:"score_delta"`
	Merges     int            `json:"merges"`
	GameOver   bool           `json:"game_over"`
}

// Option customises a Game at construction
type Option func(*Game)

// WithRand makes spawning draw from rng, for reproducible games
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithSpawnPolicy overrides the configured spawn value policy
func WithSpawnPolicy(p SpawnPolicy) Option {
	return func(g *Game) { g.policy = p }
}

// WithClock sets the time source used for history timestamps
func WithClock(now func() time.Time) Option {
	return func(g *Game) { g.now = now }
}

// Game implements the Engine interface
type Game struct {
	config  *GameConfig
	board   *Board
	score   Score
	status  GameStatus
	turn    int
	nextID  TileID
	message string

	rng     *rand.Rand
	policy  SpawnPolicy
	spawner *Spawner
	now     func() time.Time

	lastChanges []ChangeRecord
	history     []MoveHistoryEntry
	restoreErr  error
}

// NewGame creates a new game with the provided configuration and spawns the
// initial tiles. A nil config uses DefaultConfig.
func NewGame(config *GameConfig, opts ...Option) (*Game, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	cfg := *config
	cfg.applyDefaults()

	g := &Game{config: &cfg, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}

	if g.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		g.rng = rand.New(rand.NewSource(seed))
	}
	if g.policy == nil {
		policy, err := cfg.spawnPolicy()
		if err != nil {
			return nil, err
		}
		g.policy = policy
	}
	g.spawner = NewSpawner(g.rng, g.policy, cfg.SpawnPerTurn)

	g.Reset()
	return g, nil
}

// ApplyMove resolves a slide toward dir and returns the moved/merged records.
// It returns nil for a no-op move, an invalid direction, or when the game is
// not awaiting input (a pending spawn or game over).
func (g *Game) ApplyMove(dir Direction) []ChangeRecord {
	if g.status != StatusReady {
		return nil
	}

	res, err := g.board.slide(dir)
	if err != nil {
		g.message = err.Error()
		return nil
	}

	if len(res.changes) == 0 {
		g.message = g.config.Messages.NoMove
		g.addHistory(dir, res)
		if g.board.Stuck() {
			g.finish()
		}
		return nil
	}

	g.score.Add(res.gained)
	g.turn++
	g.status = StatusResolved
	g.lastChanges = res.changes
	g.message = fmt.Sprintf("Moved %s", dir)
	g.addHistory(dir, res)

	return res.changes
}

// SpawnNext completes a turn by spawning new tiles. It is a no-op returning
// nil unless the preceding ApplyMove changed the board.
func (g *Game) SpawnNext() []ChangeRecord {
	if g.status != StatusResolved {
		return nil
	}

	spawned := g.spawner.Spawn(g.board, g.spawner.PerTurn(), g.newID)
	g.lastChanges = append(g.lastChanges, spawned...)
	g.status = StatusReady

	if g.board.Stuck() {
		g.finish()
	}
	return spawned
}

// Play runs ApplyMove followed by SpawnNext
func (g *Game) Play(dir Direction) TurnResult {
	before := g.score.Points()
	result := TurnResult{Direction: dir}

	result.Changes = g.ApplyMove(dir)
	if len(result.Changes) > 0 {
		result.Moved = true
		result.Spawned = g.SpawnNext()
	}
	for _, c := range result.Changes {
		if c.Kind == Merged {
			result.Merges++
		}
	}
	result.ScoreDelta = g.score.Points() - before
	result.GameOver = g.IsOver()
	return result
}

// Reset reinitialises the board layout, score and history, then spawns the
// initial tiles
func (g *Game) Reset() *GameState {
	board, err := NewBoard(g.config.GridSize, g.config.Walls())
	if err != nil {
		// config was validated in NewGame
		panic(fmt.Sprintf("engine: reset: %v", err))
	}

	g.board = board
	g.score.Reset()
	g.turn = 0
	g.nextID = 0
	g.history = nil
	g.lastChanges = g.spawner.Spawn(g.board, g.config.InitialTiles, g.newID)
	g.status = StatusReady
	g.message = g.config.Messages.Welcome

	if g.board.Stuck() {
		g.finish()
	}
	return g.GetState()
}

// SetBoard replaces the board, keeping score and turn. Every tile gets a fresh
// id from this game so ids stay unique and below the save's next_id. The board
// must match the configured size and wall layout.
func (g *Game) SetBoard(b *Board) error {
	if b == nil {
		return fmt.Errorf("board cannot be nil")
	}
	if b.Size() != g.config.GridSize {
		return fmt.Errorf("board size %d does not match config grid_size %d", b.Size(), g.config.GridSize)
	}
	if !samePositions(b.Walls(), g.config.Walls()) {
		return fmt.Errorf("board walls do not match config layout")
	}

	nb := b.Clone()
	for r := range nb.cells {
		for c := range nb.cells[r] {
			if nb.cells[r][c].IsTile() {
				nb.cells[r][c].ID = g.newID()
			}
		}
	}
	g.board = nb
	g.evaluate()
	return nil
}

// IsOver returns whether the game is over
func (g *Game) IsOver() bool {
	return g.status == StatusOver
}

// Score returns the current score
func (g *Game) Score() int {
	return g.score.Points()
}

// Turn returns the number of effective moves played
func (g *Game) Turn() int {
	return g.turn
}

// Status returns the turn state machine position
func (g *Game) Status() GameStatus {
	return g.status
}

// Board returns a copy of the current board
func (g *Game) Board() *Board {
	return g.board.Clone()
}

// CanMove reports whether sliding toward dir would change the board
func (g *Game) CanMove(dir Direction) bool {
	if g.status == StatusOver || !dir.Valid() {
		return false
	}
	res, err := g.board.Clone().slide(dir)
	return err == nil && len(res.changes) > 0
}

// GetPossibleMoves returns all directions that would change the board
func (g *Game) GetPossibleMoves() []Direction {
	var possible []Direction
	for _, dir := range Directions {
		if g.CanMove(dir) {
			possible = append(possible, dir)
		}
	}
	return possible
}

// BestTile returns the largest tile value on the board
func (g *Game) BestTile() int {
	best := 0
	for _, row := range g.board.cells {
		for _, cell := range row {
			if cell.IsTile() && cell.Value > best {
				best = cell.Value
			}
		}
	}
	return best
}

// ShareMessage formats the configured share text with the current score
func (g *Game) ShareMessage() string {
	return fmt.Sprintf(g.config.Messages.Share, g.score.Points())
}

// GetConfig returns the game configuration
func (g *Game) GetConfig() *GameConfig {
	return g.config
}

// GetMoveHistory returns the move history since the last reset
func (g *Game) GetMoveHistory() []MoveHistoryEntry {
	return g.history
}

// GetLastMove returns the last move made, or nil if no moves
func (g *Game) GetLastMove() *MoveHistoryEntry {
	if len(g.history) == 0 {
		return nil
	}
	return &g.history[len(g.history)-1]
}

// GetState returns a snapshot of the current game
func (g *Game) GetState() *GameState {
	state := &GameState{
		Grid:        g.board.view(),
		Size:        g.board.Size(),
		Score:       g.score.Points(),
		Turn:        g.turn,
		Status:      g.status,
		GameOver:    g.IsOver(),
		BestTile:    g.BestTile(),
		EmptyCells:  len(g.board.EmptyPositions()),
		Message:     g.message,
		ConfigName:  g.config.Name,
		LastChanges: append([]ChangeRecord(nil), g.lastChanges...),
	}
	if g.status == StatusReady {
		state.PossibleMoves = g.GetPossibleMoves()
	}
	return state
}

// evaluate recomputes ready/over after the board was replaced wholesale
func (g *Game) evaluate() {
	g.status = StatusReady
	g.lastChanges = nil
	if g.board.Stuck() {
		g.finish()
	}
}

func (g *Game) finish() {
	g.status = StatusOver
	g.message = fmt.Sprintf(g.config.Messages.GameOver, g.score.Points())
}

func (g *Game) newID() TileID {
	g.nextID++
	return g.nextID
}

func (g *Game) addHistory(dir Direction, res slideResult) {
	g.history = append(g.history, MoveHistoryEntry{
		MoveNumber: len(g.history) + 1,
		Direction:  dir,
		Moved:      len(res.changes) > 0,
		Merges:     res.merges,
		ScoreDelta: res.gained,
		Score:      g.score.Points(),
		Timestamp:  g.now().Unix(),
	})
}

func samePositions(a, b []Position) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
