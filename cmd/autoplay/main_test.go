package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wricardo/walls2048/api"
	"github.com/wricardo/walls2048/game/config"
	"github.com/wricardo/walls2048/game/service"
	"github.com/wricardo/walls2048/game/session"
	"github.com/wricardo/walls2048/internal/logging"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	configs, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("config.NewManager: %v", err)
	}
	svc := service.NewGameService(session.NewManager(nil), configs, nil)
	ts := httptest.NewServer(api.NewServer(svc, nil, nil))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	client := NewClient(ts.URL + "/")

	state, err := client.CreateSession(ctx, "pillars")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if client.SessionID() == "" || state.Size != 5 {
		t.Fatalf("Unexpected session %q with state %+v", client.SessionID(), state)
	}

	dir, err := NewLookaheadStrategy(1, 1).NextMove(state)
	if err != nil || dir == "" {
		t.Fatalf("NextMove: %q %v", dir, err)
	}
	result, err := client.Move(ctx, dir)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !result.Success || result.GameState.Turn != 1 {
		t.Errorf("Expected a board-changing move, got %+v", result)
	}

	fetched, err := client.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if fetched.Turn != 1 || fetched.Score != result.GameState.Score {
		t.Errorf("Expected state after move, got turn %d score %d", fetched.Turn, fetched.Score)
	}

	reset, err := client.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reset.Turn != 0 || reset.Score != 0 {
		t.Errorf("Expected fresh game after reset, got %+v", reset)
	}
}

func TestClient_Errors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	client := NewClient(ts.URL)

	if _, err := client.CreateSession(ctx, "no-such-layout"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected not found error, got %v", err)
	}

	client.Resume("missing")
	if _, err := client.GetState(ctx); err == nil {
		t.Error("Expected error for unknown session")
	}

	if _, err := client.CreateSession(ctx, ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := client.Move(ctx, "sideways"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("Expected bad request for invalid direction, got %v", err)
	}
}

func TestRun(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient(ts.URL)
	opts := playOptions{Config: "pillars", MaxMoves: 15, Attempts: 2}

	attempts, err := run(context.Background(), client, NewLookaheadStrategy(2, 3), opts, logging.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("Expected 2 attempts, got %d", len(attempts))
	}
	for i, a := range attempts {
		if a.Moves == 0 || a.Moves > opts.MaxMoves {
			t.Errorf("attempt %d: unexpected move count %d", i+1, a.Moves)
		}
		if a.BestTile < 2 {
			t.Errorf("attempt %d: expected tiles on the board, got best %d", i+1, a.BestTile)
		}
	}

	state, err := client.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.Turn != attempts[1].Moves {
		t.Errorf("Expected the second game on the same session, got turn %d", state.Turn)
	}
}

func TestRun_ResumeFallsBackToNewSession(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient(ts.URL)
	opts := playOptions{Continue: "gone", MaxMoves: 3, Attempts: 1}

	attempts, err := run(context.Background(), client, NewLookaheadStrategy(1, 1), opts, logging.Nop())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if client.SessionID() == "gone" {
		t.Error("Expected a fresh session after a failed resume")
	}
	if len(attempts) != 1 || attempts[0].Moves != 3 {
		t.Errorf("Unexpected attempts %+v", attempts)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := run(ctx, NewClient(ts.URL), NewLookaheadStrategy(1, 1), playOptions{}, logging.Nop()); err == nil {
		t.Error("Expected error with a cancelled context")
	}
}

func TestBestAttempt(t *testing.T) {
	best := bestAttempt([]Attempt{{Score: 10}, {Score: 40, BestTile: 32}, {Score: 20}})
	if best.Score != 40 || best.BestTile != 32 {
		t.Errorf("Unexpected best attempt %+v", best)
	}
}
