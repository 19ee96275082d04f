// Package websocket pushes game updates to browsers watching a session.
//
// A Hub owns every connection and runs a single event loop (Run) that
// registers clients, unregisters them and fans out broadcasts. Clients
// subscribe to one session via ServeWS; session IDs compare without case.
//
// Every outgoing frame is one JSON Message. Event "turn" carries the
// TurnResult with its change records so a client can animate slides, merges
// and spawns before drawing GameState. Event "state_update" carries only
// GameState and is sent on connect, after a reset and after an import.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	hub.BroadcastTurn(sessionID, result.Turn, result.GameState)
//
// Broadcasting never blocks the caller. When the queue is full the message
// is dropped and logged; a client whose send buffer is full is disconnected.
package websocket
