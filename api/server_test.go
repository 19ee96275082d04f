package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	gorillaws "github.com/gorilla/websocket"

	"github.com/wricardo/walls2048/game/config"
	"github.com/wricardo/walls2048/game/engine"
	"github.com/wricardo/walls2048/game/service"
	"github.com/wricardo/walls2048/game/session"
	"github.com/wricardo/walls2048/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	MoveFunc     func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error)
	BulkMoveFunc func(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error)
	ResetFunc    func(ctx context.Context, sessionID string) (*engine.GameState, error)

	GetGameStateFunc   func(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	ExportSaveFunc func(ctx context.Context, sessionID string) (*service.SaveData, error)
	ImportSaveFunc func(ctx context.Context, sessionID, data string) (*engine.GameState, error)

	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.GameConfig) error

	metrics service.Metrics
}

func (m *MockGameService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) Move(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, direction, reset)
	}
	return &service.MoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) BulkMove(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
	if m.BulkMoveFunc != nil {
		return m.BulkMoveFunc(ctx, sessionID, moves, reset)
	}
	return &service.BulkMoveResult{Success: true, GameState: &engine.GameState{}}, nil
}

func (m *MockGameService) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Moves: []engine.MoveHistoryEntry{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockGameService) ExportSave(ctx context.Context, sessionID string) (*service.SaveData, error) {
	if m.ExportSaveFunc != nil {
		return m.ExportSaveFunc(ctx, sessionID)
	}
	return &service.SaveData{SessionID: sessionID, ConfigName: "test", Data: "{}"}, nil
}

func (m *MockGameService) ImportSave(ctx context.Context, sessionID, data string) (*engine.GameState, error) {
	if m.ImportSaveFunc != nil {
		return m.ImportSaveFunc(ctx, sessionID, data)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.GameConfig{Name: configName, Description: "Test config", GridSize: 4}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, config)
	}
	return nil
}

func (m *MockGameService) Metrics() *service.Metrics {
	return &m.metrics
}

// Test helpers
func setupTestServer(t *testing.T, svc service.GameService) *Server {
	t.Helper()
	hub := websocket.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return NewServer(svc, hub, nil)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (%s)", err, w.Body.String())
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	parseResponse(t, w, &resp)
	return resp["error"]
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Create session with default config",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %q", configName)
					}
					return &service.SessionInfo{ID: "a1b2", ConfigName: "classic", CreatedAt: time.Now()}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "a1b2" {
					t.Errorf("Expected session ID a1b2, got %s", resp.ID)
				}
			},
		},
		{
			name:        "config_id wins over config_name",
			requestBody: map[string]string{"config_id": "pillars", "config_name": "cross"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "pillars" {
						t.Errorf("Expected config 'pillars', got %s", configName)
					}
					return &service.SessionInfo{ID: "c3d4", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "Unknown config",
			requestBody: map[string]string{"config_id": "nope"},
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config %s: %w", configName, service.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Handle service error",
			setupMock: func(m *MockGameService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				if msg := errorMessage(t, w); msg != "service error" {
					t.Errorf("Expected error message 'service error', got %s", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "old", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-time.Minute), GameState: &engine.GameState{Score: 40}},
			{ID: "mid", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-time.Hour), GameState: &engine.GameState{Score: 400}},
			{ID: "new", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now, GameState: &engine.GameState{Score: 4}},
		}
	}

	tests := []struct {
		name     string
		query    string
		expected []string
		total    int
	}{
		{"default sorts by last access, newest first", "", []string{"new", "old", "mid"}, 3},
		{"created ascending", "?sort=created&order=asc", []string{"old", "mid", "new"}, 3},
		{"score descending", "?sort=score", []string{"mid", "old", "new"}, 3},
		{"limit", "?sort=created&limit=2", []string{"new", "mid"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != tt.total || resp.Count != len(tt.expected) {
				t.Errorf("Expected count %d total %d, got %d/%d", len(tt.expected), tt.total, resp.Count, resp.Total)
			}
			for i, id := range tt.expected {
				if i >= len(resp.Sessions) || resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %+v", i, id, resp.Sessions)
					break
				}
			}
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"session not found", fmt.Errorf("session x: %w", service.ErrSessionNotFound), http.StatusNotFound},
		{"session not found through the session package", session.ErrSessionNotFound, http.StatusNotFound},
		{"config not found", config.ErrConfigNotFound, http.StatusNotFound},
		{"invalid direction", fmt.Errorf("move: %w", engine.ErrInvalidDirection), http.StatusBadRequest},
		{"invalid save", fmt.Errorf("%w: bad", service.ErrInvalidSave), http.StatusBadRequest},
		{"invalid config", fmt.Errorf("%w: grid", config.ErrInvalidConfig), http.StatusBadRequest},
		{"anything else", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{
				GetGameStateFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					return nil, tt.err
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/x/state", nil))

			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}
			if msg := errorMessage(t, w); msg != tt.err.Error() {
				t.Errorf("Expected error %q, got %q", tt.err.Error(), msg)
			}
		})
	}
}

func TestGetAndDeleteSession(t *testing.T) {
	mockService := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID != "a1b2" {
				return nil, service.ErrSessionNotFound
			}
			return &service.SessionInfo{ID: sessionID, ConfigName: "classic"}, nil
		},
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "a1b2" {
				return service.ErrSessionNotFound
			}
			return nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/a1b2", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET existing: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/zzzz", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET missing: expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/a1b2", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "a1b2 deleted") {
		t.Errorf("DELETE existing: got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("DELETE", "/api/sessions/zzzz", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("DELETE missing: expected 404, got %d", w.Code)
	}
}

func TestMove(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Valid move left",
			requestBody: map[string]interface{}{"direction": "left"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					if direction != "left" || reset {
						t.Errorf("Unexpected arguments %q reset=%v", direction, reset)
					}
					return &service.MoveResult{
						Success:   true,
						GameState: &engine.GameState{Score: 8, Turn: 3},
						Turn:      &engine.TurnResult{Direction: engine.Left, Moved: true, Merges: 1, ScoreDelta: 8},
					}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if !resp.Success || resp.GameState.Score != 8 || resp.Turn.Merges != 1 {
					t.Errorf("Unexpected response: %+v", resp)
				}
			},
		},
		{
			name:        "Move with reset",
			requestBody: map[string]interface{}{"direction": "up", "reset": true},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					if !reset {
						t.Error("Expected reset to be true")
					}
					return &service.MoveResult{GameState: &engine.GameState{}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "Invalid direction",
			requestBody: map[string]interface{}{"direction": "diagonal"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%w: %q", engine.ErrInvalidDirection, direction)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Session not found",
			requestBody: map[string]interface{}{"direction": "up"},
			setupMock: func(m *MockGameService) {
				m.MoveFunc = func(ctx context.Context, sessionID, direction string, reset bool) (*service.MoveResult, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := makeRequest("POST", "/api/sessions/a1b2/move", tt.requestBody)
			req = mux.SetURLVars(req, map[string]string{"id": "a1b2"})

			server.handleMove(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (%s)", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestBulkMove(t *testing.T) {
	var gotMoves []string
	mockService := &MockGameService{
		BulkMoveFunc: func(ctx context.Context, sessionID string, moves []string, reset bool) (*service.BulkMoveResult, error) {
			gotMoves = moves
			return &service.BulkMoveResult{
				MovesExecuted:  2,
				RequestedMoves: len(moves),
				StopReasonCode: "invalid_direction",
				StoppedOnMove:  3,
				GameState:      &engine.GameState{Score: 12},
			}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/a1b2/bulk-move", map[string]interface{}{
		"moves": []string{"left", "up", "sideways"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(gotMoves) != 3 {
		t.Errorf("Expected 3 moves passed through, got %v", gotMoves)
	}

	var resp service.BulkMoveResult
	parseResponse(t, w, &resp)
	if resp.StopReasonCode != "invalid_direction" || resp.StoppedOnMove != 3 || resp.MovesExecuted != 2 {
		t.Errorf("Unexpected bulk result: %+v", resp)
	}
}

func TestReset(t *testing.T) {
	mockService := &MockGameService{
		ResetFunc: func(ctx context.Context, sessionID string) (*engine.GameState, error) {
			return &engine.GameState{Status: engine.StatusReady, EmptyCells: 14}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/sessions/a1b2/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	parseResponse(t, w, &resp)
	if resp.State == nil || resp.State.EmptyCells != 14 {
		t.Errorf("Unexpected reset response: %+v", resp)
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected service.HistoryOptions
	}{
		{"defaults", "", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
		{"explicit", "?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"garbage falls back", "?page=-1&limit=x&order=sideways", service.HistoryOptions{Page: 1, Limit: 20, Order: "desc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.HistoryOptions
			mockService := &MockGameService{
				GetMoveHistoryFunc: func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					got = opts
					return &service.HistoryResponse{}, nil
				},
			}
			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", "/api/sessions/a1b2/history"+tt.query, nil))

			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", w.Code)
			}
			if got != tt.expected {
				t.Errorf("Expected options %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestSaveEndpoints(t *testing.T) {
	var imported string
	mockService := &MockGameService{
		ImportSaveFunc: func(ctx context.Context, sessionID, data string) (*engine.GameState, error) {
			if data == "garbage" {
				return nil, fmt.Errorf("%w: %v", service.ErrInvalidSave, engine.ErrDeserialize)
			}
			imported = data
			return &engine.GameState{Score: 64}, nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/sessions/a1b2/save", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET save: expected 200, got %d", w.Code)
	}
	var save service.SaveData
	parseResponse(t, w, &save)
	if save.SessionID != "a1b2" || save.Data == "" {
		t.Errorf("Unexpected save: %+v", save)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("PUT", "/api/sessions/a1b2/save", map[string]string{"data": save.Data}))
	if w.Code != http.StatusOK || imported != save.Data {
		t.Errorf("PUT save: got %d, imported %q", w.Code, imported)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("PUT", "/api/sessions/a1b2/save", map[string]string{"data": "garbage"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT garbage: expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("PUT", "/api/sessions/a1b2/save", map[string]string{}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT without data: expected 400, got %d", w.Code)
	}
}

func TestConfigs(t *testing.T) {
	var savedID string
	mockService := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "classic", Name: "Classic", GridSize: 4}}, nil
		},
		LoadConfigFunc: func(ctx context.Context, configName string) (*engine.GameConfig, error) {
			if configName != "classic" {
				return nil, service.ErrConfigNotFound
			}
			return engine.DefaultConfig(), nil
		},
		SaveConfigFunc: func(ctx context.Context, configName string, cfg *engine.GameConfig) error {
			if err := engine.ValidateGameConfig(cfg); err != nil {
				return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
			}
			savedID = configName
			return nil
		},
	}
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
	var list []*service.ConfigInfo
	parseResponse(t, w, &list)
	if len(list) != 1 || list[0].ConfigID != "classic" {
		t.Errorf("Unexpected config list: %+v", list)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/classic.json", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET classic.json: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/configs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("GET missing: expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{
		"name":      "Tiny Walls",
		"grid_size": 3,
		"layout":    []string{"...", ".#.", "..."},
	}))
	if w.Code != http.StatusCreated || savedID != "tiny_walls" {
		t.Errorf("POST config: got %d, saved as %q", w.Code, savedID)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"name": "Bad", "grid_size": 1}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST invalid config: expected 400, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]interface{}{"grid_size": 4}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST nameless config: expected 400, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	mockService := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
			return []*service.SessionInfo{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	mockService.metrics.RecordTurn(engine.TurnResult{Moved: true, Merges: 2, ScoreDelta: 12})
	server := setupTestServer(t, mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("healthz: got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/metrics", nil))
	var snapshot map[string]float64
	parseResponse(t, w, &snapshot)
	if snapshot["turns_played"] != 1 || snapshot["merges"] != 2 || snapshot["active_sessions"] != 2 {
		t.Errorf("Unexpected metrics: %v", snapshot)
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockGameService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Unknown session",
			queryParams: "?session=zzzz",
			setupMock: func(m *MockGameService) {
				m.GetGameStateFunc = func(ctx context.Context, sessionID string) (*engine.GameState, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.handleWebSocket(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// newLiveServer wires the real service, session manager and config directory
func newLiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	configs, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("config.NewManager: %v", err)
	}
	svc := service.NewGameService(session.NewManager(nil), configs, nil)
	ts := httptest.NewServer(setupTestServer(t, svc))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body, target interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func readWS(t *testing.T, conn *gorillaws.Conn) websocket.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket: %v", err)
	}
	return msg
}

func TestLiveSessionOverHTTP(t *testing.T) {
	ts := newLiveServer(t)

	var created service.SessionInfo
	if code := doJSON(t, "POST", ts.URL+"/api/sessions", map[string]string{"config_id": "pillars"}, &created); code != http.StatusCreated {
		t.Fatalf("create session: status %d", code)
	}
	if created.ConfigName != "pillars" || created.GameState.Size != 5 {
		t.Fatalf("Unexpected session: %+v", created)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + created.ID
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	initial := readWS(t, conn)
	if initial.Event != websocket.EventStateUpdate || initial.GameState == nil {
		t.Fatalf("Expected initial state, got %+v", initial)
	}
	if len(initial.GameState.PossibleMoves) == 0 {
		t.Fatal("Expected a playable opening board")
	}

	dir := initial.GameState.PossibleMoves[0]
	var moved service.MoveResult
	if code := doJSON(t, "POST", ts.URL+"/api/sessions/"+created.ID+"/move", map[string]string{"direction": string(dir)}, &moved); code != http.StatusOK {
		t.Fatalf("move: status %d", code)
	}
	if !moved.Success || moved.GameState.Turn != 1 || len(moved.Turn.Spawned) != 1 {
		t.Errorf("Unexpected move result: %+v", moved)
	}

	turn := readWS(t, conn)
	if turn.Event != websocket.EventTurn || turn.Turn == nil || turn.Turn.Direction != dir {
		t.Errorf("Expected turn broadcast for %s, got %+v", dir, turn)
	}

	var save service.SaveData
	if code := doJSON(t, "GET", ts.URL+"/api/sessions/"+created.ID+"/save", nil, &save); code != http.StatusOK {
		t.Fatalf("export: status %d", code)
	}

	if code := doJSON(t, "POST", ts.URL+"/api/sessions/"+created.ID+"/bulk-move", map[string]interface{}{
		"moves": []string{"up", "down", "left", "right"},
	}, nil); code != http.StatusOK {
		t.Fatalf("bulk move: status %d", code)
	}
	readWS(t, conn)

	var restored struct {
		State *engine.GameState `json:"state"`
	}
	if code := doJSON(t, "PUT", ts.URL+"/api/sessions/"+created.ID+"/save", map[string]string{"data": save.Data}, &restored); code != http.StatusOK {
		t.Fatalf("import: status %d", code)
	}
	if restored.State.Turn != 1 {
		t.Errorf("Expected turn 1 after restoring the export, got %d", restored.State.Turn)
	}
	if update := readWS(t, conn); update.Event != websocket.EventStateUpdate || update.GameState.Turn != 1 {
		t.Errorf("Expected restored state broadcast, got %+v", update)
	}

	if code := doJSON(t, "PUT", ts.URL+"/api/sessions/"+created.ID+"/save", map[string]string{"data": `{"v":99}`}, nil); code != http.StatusBadRequest {
		t.Errorf("import garbage: expected 400, got %d", code)
	}
	if code := doJSON(t, "POST", ts.URL+"/api/sessions/"+created.ID+"/move", map[string]string{"direction": "sideways"}, nil); code != http.StatusBadRequest {
		t.Errorf("bad direction: expected 400, got %d", code)
	}
	if code := doJSON(t, "GET", ts.URL+"/api/sessions/ffff/state", nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown session: expected 404, got %d", code)
	}
	if code := doJSON(t, "POST", ts.URL+"/api/sessions", map[string]string{"config_id": "nope"}, nil); code != http.StatusNotFound {
		t.Errorf("unknown config: expected 404, got %d", code)
	}
}

func TestDeleteSessionNotifiesSubscribers(t *testing.T) {
	ts := newLiveServer(t)

	var created service.SessionInfo
	if code := doJSON(t, "POST", ts.URL+"/api/sessions", nil, &created); code != http.StatusCreated {
		t.Fatalf("create session: status %d", code)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=" + created.ID
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	readWS(t, conn)

	if code := doJSON(t, "DELETE", ts.URL+"/api/sessions/"+created.ID, nil, nil); code != http.StatusOK {
		t.Fatalf("delete: status %d", code)
	}

	msg := readWS(t, conn)
	if msg.Event != websocket.EventDeleted || msg.SessionID != created.ID {
		t.Fatalf("Expected deletion event, got %+v", msg)
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok || data["session_id"] != created.ID {
		t.Errorf("Unexpected deletion payload: %#v", msg.Data)
	}
}
