// Package service provides the business logic layer for Walls 2048.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Turn processing (slide, merge and spawn) with event extraction
//   - Save export and import per session
//   - Move history paging and gameplay metrics
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine, providing session isolation, configuration management, and
// business logic orchestration. Each session owns its own engine.Game; the
// service serialises access to them.
//
// Usage:
//
//	sessionMgr := session.NewManager(log)
//	configMgr, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	gameService := service.NewGameService(sessionMgr, configMgr, log)
//
//	// Create a new session
//	sessionInfo, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Play a turn
//	result, err := gameService.Move(ctx, sessionInfo.ID, "left", false)
//
// Turns:
//
// Move and BulkMove run a full turn per direction: the slide, then the spawn
// when the slide changed the board. A direction that changes nothing is still
// recorded in the history but spawns no tile. BulkMove stops at the first
// unknown direction or when the game is over.
package service
