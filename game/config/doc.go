// Package config provides configuration management for Walls 2048.
//
// Configurations are JSON files in a directory, one board per file. The file
// name without .json is the config ID used to create sessions. A layout row
// uses '#' for a wall and '.' for an open cell; a config without a layout is a
// wall-free board.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("pillars")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Loaded configs are validated with engine.ValidateGameConfig and cached.
// GetDefault returns classic.json, falling back to the first valid file and
// then to engine.DefaultConfig.
package config
