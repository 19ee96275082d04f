package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/walls2048/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	log      *zap.SugaredLogger
	metrics  *Metrics
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance. A nil logger discards output.
func NewGameService(sessions SessionManager, configs ConfigManager, log *zap.SugaredLogger) GameService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      log,
		metrics:  &Metrics{},
	}
}

// getConfigID returns the config_id for a session, used for consistent API responses
func (s *gameServiceImpl) getConfigID(sess *Session) string {
	if sess.ConfigID != "" {
		return sess.ConfigID
	}
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == sess.Config.Name {
				return cfg.ConfigID
			}
		}
	}
	if sess.Config.Name == "" {
		return "default"
	}
	return sess.Config.Name
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// getSession looks up a session and refreshes its access time
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		s.log.Warnw("update last accessed failed", "session", sessionID, "error", err)
	}
	return sess, nil
}

// persist saves a session, logging instead of failing the request
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warnw("failed to persist session", "session", sessionID, "after", after, "error", err)
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s': %w. Available configs: %v", configName, err, configIDs)
				}
				return nil, fmt.Errorf("config '%s': %w. Use /api/configs to list available configurations", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if configName != "" {
		sess.ConfigID = configName
		s.persist(sess.ID, "create")
	}

	s.metrics.IncSessions()
	s.log.Infow("session created", "session", sess.ID, "config", s.getConfigID(sess))

	return s.sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.log.Infow("session deleted", "session", sessionID)
	return nil
}

// Move plays one full turn (slide, then spawn) for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, GameEvent{
			Type:      "reset",
			Message:   "Game reset to initial state",
			Timestamp: time.Now(),
		})
	}

	turn := s.playTurn(sess, dir)
	events = append(events, turnEvents(turn, sess.Engine.GetState().Message)...)
	state := sess.Engine.GetState()

	s.log.Debugw("move", "session", sessionID, "dir", dir, "moved", turn.Moved,
		"merges", turn.Merges, "score", state.Score, "over", state.GameOver)
	s.persist(sessionID, "move")

	return &MoveResult{
		Success:   turn.Moved,
		GameState: state,
		Message:   state.Message,
		Events:    events,
		Turn:      &turn,
	}, nil
}

// playTurn runs a turn and records it in the metrics
func (s *gameServiceImpl) playTurn(sess *Session, dir engine.Direction) engine.TurnResult {
	wasOver := sess.Engine.IsOver()
	turn := sess.Engine.Play(dir)
	s.metrics.RecordTurn(turn)
	if turn.GameOver && !wasOver {
		s.metrics.IncGamesOver()
		s.log.Infow("game over", "session", sess.ID, "score", sess.Engine.Score(), "turns", sess.Engine.Turn())
	}
	return turn
}

// BulkMove plays several turns in sequence, stopping at an invalid direction
// or when the game ends
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, GameEvent{
			Type:      "reset",
			Message:   "Game reset to initial state",
			Timestamp: time.Now(),
		})
	}
	result.StartScore = sess.Engine.Score()

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if ctx.Err() != nil {
			result.Success = false
			result.StoppedReason = ctx.Err().Error()
			result.StopReasonCode = "cancelled"
			result.StoppedOnMove = i + 1
			break
		}
		if sess.Engine.IsOver() {
			result.StoppedReason = "game over"
			result.StopReasonCode = "game_over"
			result.StoppedOnMove = i + 1
			break
		}

		dir, err := engine.ParseDirection(move)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d: %v", i+1, err)
			result.StopReasonCode = "invalid_direction"
			result.StoppedOnMove = i + 1
			break
		}

		before := sess.Engine.Score()
		turn := s.playTurn(sess, dir)
		result.MovesExecuted++
		if turn.Moved {
			result.EffectiveMoves++
		}
		result.Merges += turn.Merges
		result.Events = append(result.Events, turnEvents(turn, sess.Engine.GetState().Message)...)
		result.Steps = append(result.Steps, StepInfo{
			Idx:         i + 1,
			Dir:         dir,
			Moved:       turn.Moved,
			Merges:      turn.Merges,
			ScoreBefore: before,
			ScoreAfter:  sess.Engine.Score(),
			Spawned:     len(turn.Spawned),
			BestTile:    sess.Engine.BestTile(),
			GameOver:    turn.GameOver,
		})
	}

	endState := sess.Engine.GetState()
	result.GameState = endState
	result.EndScore = endState.Score
	result.ScoreDelta = endState.Score - result.StartScore
	result.GameOver = endState.GameOver
	result.Message = endState.Message
	result.PossibleMoves = endState.PossibleMoves
	if result.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = "game_over"
	}

	s.log.Debugw("bulk move", "session", sessionID, "executed", result.MovesExecuted,
		"requested", result.RequestedMoves, "stop", result.StopReasonCode, "score_delta", result.ScoreDelta)
	s.persist(sessionID, "bulk move")

	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.persist(sessionID, "reset")
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ExportSave returns the serialized game of a session
func (s *gameServiceImpl) ExportSave(ctx context.Context, sessionID string) (*SaveData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return &SaveData{
		SessionID:  sess.ID,
		ConfigName: s.getConfigID(sess),
		Data:       sess.Engine.Serialize(),
	}, nil
}

// ImportSave replaces a session's game with serialized data. Malformed data
// leaves the session untouched and returns an error wrapping ErrInvalidSave.
func (s *gameServiceImpl) ImportSave(ctx context.Context, sessionID, data string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.Engine.RestoreState(data); err != nil {
		s.metrics.IncRestoresFailed()
		s.log.Warnw("restore rejected", "session", sessionID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}

	s.persist(sessionID, "restore")
	return sess.Engine.GetState(), nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// Metrics returns the service counters
func (s *gameServiceImpl) Metrics() *Metrics {
	return s.metrics
}

// turnEvents generates events from a played turn
func turnEvents(turn engine.TurnResult, message string) []GameEvent {
	now := time.Now()

	if !turn.Moved {
		events := []GameEvent{{
			Type:      "no_move",
			Message:   message,
			Timestamp: now,
		}}
		if turn.GameOver {
			events = append(events, GameEvent{Type: "game_over", Message: message, Timestamp: now})
		}
		return events
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Moved %s", turn.Direction),
		Timestamp: now,
	}}
	for _, c := range turn.Changes {
		if c.Kind != engine.Merged {
			continue
		}
		to := c.To
		events = append(events, GameEvent{
			Type:      "merge",
			Message:   fmt.Sprintf("Merged into %d at %s", c.Value, to),
			Timestamp: now,
			Position:  &to,
			Value:     c.Value,
		})
	}
	for _, c := range turn.Spawned {
		to := c.To
		events = append(events, GameEvent{
			Type:      "spawn",
			Message:   fmt.Sprintf("New %d at %s", c.Value, to),
			Timestamp: now,
			Position:  &to,
			Value:     c.Value,
		})
	}
	if turn.GameOver {
		events = append(events, GameEvent{Type: "game_over", Message: message, Timestamp: now})
	}
	return events
}
