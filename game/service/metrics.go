package service

import (
	"sync/atomic"

	"github.com/wricardo/walls2048/game/engine"
)

// Metrics counts gameplay activity across all sessions
type Metrics struct {
	SessionsCreated int64
	TurnsPlayed     int64 // moves that changed the board
	NoOpMoves       int64
	Merges          int64
	PointsScored    int64
	TilesSpawned    int64
	GamesOver       int64
	RestoresFailed  int64
}

func (m *Metrics) IncSessions()       { atomic.AddInt64(&m.SessionsCreated, 1) }
func (m *Metrics) IncGamesOver()      { atomic.AddInt64(&m.GamesOver, 1) }
func (m *Metrics) IncRestoresFailed() { atomic.AddInt64(&m.RestoresFailed, 1) }

// RecordTurn adds one turn outcome to the counters
func (m *Metrics) RecordTurn(r engine.TurnResult) {
	if !r.Moved {
		atomic.AddInt64(&m.NoOpMoves, 1)
	} else {
		atomic.AddInt64(&m.TurnsPlayed, 1)
		atomic.AddInt64(&m.Merges, int64(r.Merges))
		atomic.AddInt64(&m.PointsScored, int64(r.ScoreDelta))
		atomic.AddInt64(&m.TilesSpawned, int64(len(r.Spawned)))
	}
}

// Snapshot returns a read-only copy for HTTP output
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"sessions_created": atomic.LoadInt64(&m.SessionsCreated),
		"turns_played":     atomic.LoadInt64(&m.TurnsPlayed),
		"noop_moves":       atomic.LoadInt64(&m.NoOpMoves),
		"merges":           atomic.LoadInt64(&m.Merges),
		"points_scored":    atomic.LoadInt64(&m.PointsScored),
		"tiles_spawned":    atomic.LoadInt64(&m.TilesSpawned),
		"games_over":       atomic.LoadInt64(&m.GamesOver),
		"restores_failed":  atomic.LoadInt64(&m.RestoresFailed),
	}
}
