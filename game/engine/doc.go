// Package engine provides the core game logic for Walls 2048.
//
// The engine package implements the turn-resolution rules of a 2048 variant
// with immovable wall cells:
//   - Square board of empty, wall and tile cells
//   - Directional slide-and-merge, segmented at walls
//   - New tile spawning with a configurable value policy
//   - Scoring and game over detection
//   - Versioned save/restore of a whole game
//   - Configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by Game. Board owns the cells, GameConfig defines the board
// size, wall layout and spawn rules loaded from JSON files.
//
// Usage:
//
//	config, err := engine.LoadGameConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	game, err := engine.NewGame(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	changes := game.ApplyMove(engine.Left) // animate moved/merged tiles
//	spawned := game.SpawnNext()            // then show the new tiles
//
// Turn Protocol:
//
// A turn has two phases so a renderer can animate between them. ApplyMove
// slides and merges and returns the change records; an empty list means the
// move changed nothing and no tile must be spawned. SpawnNext then places the
// new tile(s). Tiles are referenced by TileID so records from both phases can
// be mapped back to the same visual tile. The game is over when no empty cell
// remains and no two orthogonally adjacent tiles hold equal values.
//
// Walls split every row and column into segments. Tiles never slide or merge
// across a wall.
package engine
