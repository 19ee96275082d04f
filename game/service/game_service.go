package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/walls2048/game/engine"
)

var (
	// ErrSessionNotFound is returned when no session matches an id
	ErrSessionNotFound = errors.New("session not found")
	// ErrConfigNotFound is returned when no configuration matches a name
	ErrConfigNotFound = errors.New("configuration not found")
	// ErrInvalidSave is returned when imported save data cannot be restored
	ErrInvalidSave = errors.New("invalid save data")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID, direction string, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Save/Restore
	ExportSave(ctx context.Context, sessionID string) (*SaveData, error)
	ImportSave(ctx context.Context, sessionID, data string) (*engine.GameState, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Metrics returns the service counters
	Metrics() *Metrics
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.Game
	Config         *engine.GameConfig
	ConfigID       string // file name the config was loaded from, without .json
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
