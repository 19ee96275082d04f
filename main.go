// Command walls2048 starts the Walls 2048 game server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (each with an environment variable fallback, .env files are honored)
// control host/port, config and session storage, logging, and optional ngrok
// tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/walls2048/api"
	"github.com/wricardo/walls2048/game/config"
	"github.com/wricardo/walls2048/game/service"
	"github.com/wricardo/walls2048/game/session"
	"github.com/wricardo/walls2048/internal/logging"
	"github.com/wricardo/walls2048/transport/mcp"
	"github.com/wricardo/walls2048/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Walls 2048 Server"
)

// Session stores selectable with --store
const (
	storeFile   = "file"
	storeSQLite = "sqlite"
	storeMemory = "memory"
)

// options is the resolved process configuration
type options struct {
	Host         string
	Port         int
	ConfigDir    string
	SessionsDir  string
	Store        string
	DBPath       string
	LogFile      string
	Debug        bool
	SessionTTL   time.Duration
	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// main loads .env, then runs the command tree.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "walls2048",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing board layouts", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for file session storage", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.StringFlag{Name: "store", Value: storeFile, Usage: "Session store: file, sqlite or memory", Sources: cli.EnvVars("STORE")},
			&cli.StringFlag{Name: "db-path", Value: "data/sessions.db", Usage: "SQLite database for --store sqlite", Sources: cli.EnvVars("DB_PATH")},
			&cli.StringFlag{Name: "log-file", Usage: "Rotating log file (stderr when empty)", Sources: cli.EnvVars("LOG_FILE")},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Drop sessions idle for longer than this", Sources: cli.EnvVars("SESSION_TTL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint",
				Action:  serveAction,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, reusing a running API or starting an internal one",
				Action:  stdioAction,
			},
		},
	}
}

func optionsFromCommand(cmd *cli.Command) options {
	return options{
		Host:         cmd.String("host"),
		Port:         int(cmd.Int("port")),
		ConfigDir:    cmd.String("config-dir"),
		SessionsDir:  cmd.String("sessions-dir"),
		Store:        cmd.String("store"),
		DBPath:       cmd.String("db-path"),
		LogFile:      cmd.String("log-file"),
		Debug:        cmd.Bool("debug"),
		SessionTTL:   cmd.Duration("session-ttl"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFromCommand(cmd)
	log := logging.New(logging.Options{File: opts.LogFile, Debug: opts.Debug})
	defer logging.Sync(log)

	log.Infow("starting", "app", AppName, "version", Version, "mode", "serve")

	svc, err := initializeServices(opts, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runHTTPServer(ctx, opts, svc, log)
}

func stdioAction(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFromCommand(cmd)
	// stdout carries the MCP protocol, so logs never go there
	log := logging.New(logging.Options{File: opts.LogFile, Debug: opts.Debug})
	defer logging.Sync(log)

	log.Infow("starting", "app", AppName, "version", Version, "mode", "stdio-mcp")

	svc, err := initializeServices(opts, log)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runStdioMCPWithInternalServer(ctx, opts, svc, log)
}

// services bundles the long-lived components and their storage
type services struct {
	game     service.GameService
	sessions *session.Manager
	store    session.SessionPersistence
	closeDB  func() error
	log      *zap.SugaredLogger
}

// Close flushes every session to storage and releases the database, if any
func (s *services) Close() {
	if err := s.sessions.SaveAllSessions(); err != nil {
		s.log.Warnw("failed to save sessions on shutdown", "error", err)
	}
	if s.closeDB != nil {
		if err := s.closeDB(); err != nil {
			s.log.Warnw("failed to close session database", "error", err)
		}
	}
}

// openStore builds the session persistence selected by opts.Store
func openStore(opts options, configs *config.Manager) (session.SessionPersistence, func() error, error) {
	switch opts.Store {
	case storeFile, "":
		p, err := session.NewFilePersistence(opts.SessionsDir, configs)
		return p, nil, err
	case storeSQLite:
		p, err := session.NewSQLitePersistence(opts.DBPath, configs)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case storeMemory:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q (use %s, %s or %s)", opts.Store, storeFile, storeSQLite, storeMemory)
	}
}

// initializeServices wires session/config managers and the game service.
// Persisted sessions are loaded before it returns.
func initializeServices(opts options, log *zap.SugaredLogger) (*services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	store, closeDB, err := openStore(opts, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	var sessionManager *session.Manager
	if store != nil {
		sessionManager = session.NewManagerWithPersistence(store, log)
		if err := sessionManager.LoadPersistedSessions(); err != nil {
			log.Warnw("failed to load persisted sessions", "error", err)
		}
	} else {
		sessionManager = session.NewManager(log)
	}

	log.Infow("services ready", "store", opts.Store, "configs", configManager.Count(), "sessions", sessionManager.Count())

	return &services{
		game:     service.NewGameService(sessionManager, configManager, log),
		sessions: sessionManager,
		store:    store,
		closeDB:  closeDB,
		log:      log,
	}, nil
}

// startBackground runs the periodic cleanup and storage sync loops until ctx ends
func startBackground(ctx context.Context, wg *sync.WaitGroup, opts options, svc *services) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(ctx, svc.sessions, time.Hour, opts.SessionTTL, svc.log)
	}()

	if svc.store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			storageSyncRoutine(ctx, svc.sessions, svc.store, 5*time.Second, svc.log)
		}()
	}
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the provided retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, ttl time.Duration, log *zap.SugaredLogger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Infow("cleaned up expired sessions", "removed", removed)
			}
		}
	}
}

// storageSyncRoutine drops in-memory sessions whose stored copy was deleted
// behind the server's back (a removed file or row).
func storageSyncRoutine(ctx context.Context, manager *session.Manager, store session.SessionPersistence, every time.Duration, log *zap.SugaredLogger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneOrphans(manager, store, log); pruned > 0 {
				log.Infow("storage sync pruned orphaned sessions", "pruned", pruned)
			}
		}
	}
}

func pruneOrphans(manager *session.Manager, store session.SessionPersistence, log *zap.SugaredLogger) int {
	pruned := 0
	for _, s := range manager.List() {
		if store.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.Debugw("pruned session from memory", "session", s.ID)
		}
	}
	return pruned
}

// mcpHandler serves single JSON-RPC MCP messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// newRouter mounts the REST API at root and the MCP proxy at /mcp
func newRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns once ctx is cancelled
// and the server has shut down.
func runHTTPServer(ctx context.Context, opts options, svc *services, log *zap.SugaredLogger) error {
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	apiServer := api.NewServer(svc.game, hub, log)
	addr := opts.addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr), log)
	mainRouter := newRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	startBackground(ctx, &wg, opts, svc)

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("HTTP server listening", "addr", addr,
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if opts.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTunnel(ctx, opts, mainRouter, log)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Infow("shutting down")
	case err := <-serveErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnw("HTTP server shutdown error", "error", err)
	}

	// background loops and the tunnel stop with ctx
	if runErr != nil {
		return runErr
	}
	wg.Wait()
	log.Infow("server stopped")
	return nil
}

// runTunnel exposes handler through ngrok until ctx is cancelled
func runTunnel(ctx context.Context, opts options, handler http.Handler, log *zap.SugaredLogger) {
	if opts.NgrokAuth == "" {
		log.Warnw("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Infow("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.Infow("using custom ngrok domain", "domain", opts.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.Errorw("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warnw("failed to close ngrok tunnel", "error", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Infow("ngrok tunnel established", "url", ngrokURL,
		"api", ngrokURL+"/api",
		"ws", ngrokURL+"/ws?session=<session_id>",
		"mcp", ngrokURL+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warnw("ngrok server error", "error", err)
	}
	log.Infow("ngrok tunnel closed")
}

// apiAvailable reports whether a Walls 2048 API answers at baseURL
func apiAvailable(baseURL string) bool {
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured host and port; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, opts options, svc *services, log *zap.SugaredLogger) error {
	externalURL := fmt.Sprintf("http://%s", opts.addr())
	baseURL := externalURL

	log.Infow("checking for external API server", "url", externalURL)

	if apiAvailable(externalURL) {
		log.Infow("external API server found, using it for MCP", "url", externalURL)
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Infow("starting internal HTTP server for MCP stdio", "addr", internalAddr)

		bgCtx, cancelBg := context.WithCancel(ctx)
		var wg sync.WaitGroup
		defer wg.Wait()
		defer cancelBg()

		hub := websocket.NewHub(log)
		go hub.Run(bgCtx)
		startBackground(bgCtx, &wg, opts, svc)

		httpServer := &http.Server{Handler: api.NewServer(svc.game, hub, log)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL, log)
	log.Infow("MCP stdio server ready", "api", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
