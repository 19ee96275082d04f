package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/walls2048/internal/logging"
	"github.com/wricardo/walls2048/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Walls 2048 Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func runWithCapture(t *testing.T, args []string) options {
	t.Helper()
	cmd := newCommand()

	var got options
	capture := func(ctx context.Context, c *cli.Command) error {
		got = optionsFromCommand(c)
		return nil
	}
	cmd.Action = capture
	for _, sub := range cmd.Commands {
		sub.Action = capture
	}

	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatalf("Run(%v): %v", args, err)
	}
	return got
}

func TestFlagDefaults(t *testing.T) {
	opts := runWithCapture(t, []string{"walls2048"})

	if opts.Port != 8080 || opts.Host != "localhost" {
		t.Errorf("Unexpected listen address %s", opts.addr())
	}
	if opts.ConfigDir != "configs" || opts.SessionsDir != "sessions" {
		t.Errorf("Unexpected directories %q %q", opts.ConfigDir, opts.SessionsDir)
	}
	if opts.Store != storeFile {
		t.Errorf("Expected file store by default, got %q", opts.Store)
	}
	if opts.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %v", opts.SessionTTL)
	}
	if opts.Debug || opts.NgrokEnabled {
		t.Error("Debug and ngrok must be off by default")
	}
}

func TestFlagsAndEnvironment(t *testing.T) {
	t.Setenv("CONFIG_DIR", "/etc/walls2048")
	t.Setenv("STORE", "sqlite")
	t.Setenv("NGROK_AUTH_TOKEN", "secret")

	opts := runWithCapture(t, []string{"walls2048", "--port", "9191", "--debug", "serve"})

	if opts.Port != 9191 || !opts.Debug {
		t.Errorf("Expected command line flags applied, got %+v", opts)
	}
	if opts.ConfigDir != "/etc/walls2048" || opts.Store != storeSQLite {
		t.Errorf("Expected environment applied, got %+v", opts)
	}
	if opts.NgrokAuth != "secret" {
		t.Errorf("Expected ngrok token from NGROK_AUTH_TOKEN, got %q", opts.NgrokAuth)
	}
}

func testOptions(t *testing.T, store string) options {
	t.Helper()
	dir := t.TempDir()
	return options{
		Host:        "127.0.0.1",
		Port:        0,
		ConfigDir:   "configs",
		SessionsDir: filepath.Join(dir, "sessions"),
		Store:       store,
		DBPath:      filepath.Join(dir, "db", "sessions.db"),
		SessionTTL:  time.Hour,
	}
}

func TestInitializeServices_Stores(t *testing.T) {
	for _, store := range []string{storeFile, storeSQLite, storeMemory} {
		t.Run(store, func(t *testing.T) {
			opts := testOptions(t, store)

			svc, err := initializeServices(opts, logging.Nop())
			if err != nil {
				t.Fatalf("initializeServices: %v", err)
			}
			created, err := svc.game.CreateSession(context.Background(), "pillars")
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			if _, err := svc.game.Move(context.Background(), created.ID, "left", false); err != nil {
				t.Fatalf("Move: %v", err)
			}
			svc.Close()

			reopened, err := initializeServices(opts, logging.Nop())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer reopened.Close()

			_, err = reopened.game.GetSession(context.Background(), created.ID)
			if store == storeMemory {
				if err == nil {
					t.Error("memory store must not survive a restart")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected session %s to survive a restart: %v", created.ID, err)
			}
		})
	}
}

func TestInitializeServices_Errors(t *testing.T) {
	opts := testOptions(t, storeMemory)
	opts.ConfigDir = "/non/existent/path"
	if _, err := initializeServices(opts, logging.Nop()); err == nil {
		t.Error("Expected error for non-existent config directory")
	}

	opts = testOptions(t, "redis")
	if _, err := initializeServices(opts, logging.Nop()); err == nil || !strings.Contains(err.Error(), "unknown session store") {
		t.Errorf("Expected unknown store error, got %v", err)
	}
}

func TestPruneOrphans(t *testing.T) {
	opts := testOptions(t, storeFile)
	svc, err := initializeServices(opts, logging.Nop())
	if err != nil {
		t.Fatalf("initializeServices: %v", err)
	}

	kept, _ := svc.game.CreateSession(context.Background(), "classic")
	gone, _ := svc.game.CreateSession(context.Background(), "classic")
	if err := svc.sessions.SaveAllSessions(); err != nil {
		t.Fatalf("SaveAllSessions: %v", err)
	}

	if err := os.Remove(filepath.Join(opts.SessionsDir, gone.ID+".json")); err != nil {
		t.Fatalf("remove session file: %v", err)
	}

	if pruned := pruneOrphans(svc.sessions, svc.store, logging.Nop()); pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	if _, err := svc.sessions.Get(kept.ID); err != nil {
		t.Errorf("Expected %s to stay: %v", kept.ID, err)
	}
	if svc.sessions.Count() != 1 {
		t.Errorf("Expected 1 session in memory, got %d", svc.sessions.Count())
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:1", nil))

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Walls 2048") {
		t.Errorf("Expected server info in initialize response, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET, got %d", w.Code)
	}
}

func TestRunHTTPServer_StopsOnCancel(t *testing.T) {
	opts := testOptions(t, storeMemory)
	svc, err := initializeServices(opts, logging.Nop())
	if err != nil {
		t.Fatalf("initializeServices: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runHTTPServer(ctx, opts, svc, logging.Nop())
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
