// Package mcp exposes Walls 2048 to AI agents over the Model Context Protocol.
//
// Client is a thin proxy: every tool call becomes a REST request against the
// api package, so an MCP agent and a browser watching the websocket see the
// same sessions. Tool results are plain text with the board rendered one row
// per line, "#" for walls and "." for empty cells.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, move, bulk_move, reset_game, move_history
//   - list_configs, game_instructions, share_score
//   - export_save, import_save
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", log)
//	server.ServeStdio(client.GetMCPServer())
package mcp
