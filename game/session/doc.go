// Package session provides session management for Walls 2048.
//
// Manager keeps one engine.Game per session in memory, keyed by a
// case-insensitive ID. Sessions created without an ID get a random
// 4-character hex ID.
//
// Persistence:
//
// A SessionPersistence stores each session as its config ID plus the
// engine's serialized save. FilePersistence writes one JSON file per session;
// SQLitePersistence keeps a single sessions table. Loading a session reloads
// its config and restores the save into a fresh game, so a save whose board
// no longer matches the config's walls fails to load.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence, logger)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", config)
package session
