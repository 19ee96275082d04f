// Command validate provides a small CLI that validates board layout JSON
// files in a configs directory (default ../configs). It checks:
//   - JSON structure, grid size and layout characters (. and #)
//   - Spawn settings (start value, weights, initial tile count)
//   - Message templates: game_over and share take exactly one %d
//   - Sealed cells: open cells boxed in by walls where a tile could never move
//   - Duplicate layout names across files
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/walls2048/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Name   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single layout file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var raw engine.GameConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}
	result.Name = raw.Name

	config, err := engine.ParseGameConfig(data)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	board, err := engine.NewBoard(config.GridSize, config.Walls())
	if err != nil {
		result.fail("Cannot build board: %v", err)
		return result
	}

	sealed := engine.SealedCells(board)
	if len(sealed) > 0 {
		result.fail("Layout seals %d open cells behind walls", len(sealed))
		for _, p := range sealed {
			result.Errors = append(result.Errors, fmt.Sprintf("Sealed: %s", p))
		}
	}

	if result.Valid {
		result.info("Name: %s", config.Name)
		result.info("Grid: %dx%d", config.GridSize, config.GridSize)
		result.info("Walls: %d, open cells: %d", len(config.Walls()), config.OpenCells())
		result.info("Tiles: %d initial, %d per turn", config.InitialTiles, config.SpawnPerTurn)
		if len(config.SpawnWeights) > 0 {
			result.info("Spawn weights: %d values", len(config.SpawnWeights))
		} else {
			result.info("Spawn value: %d", config.StartValue)
		}
		rows, cols := engine.BlockedLines(board, engine.Left), engine.BlockedLines(board, engine.Up)
		if rows > 0 || cols > 0 {
			result.info("Blocked lines: %d rows, %d columns never slide", rows, cols)
		}
	}

	return result
}

// validateAll validates each file and flags layouts that reuse a name
func validateAll(files []string) []ValidationResult {
	results := make([]ValidationResult, 0, len(files))
	seen := make(map[string]string)

	for _, file := range files {
		result := validateConfig(file)
		if result.Name != "" {
			key := strings.ToLower(result.Name)
			if first, ok := seen[key]; ok {
				result.fail("Duplicate name %q, already used by %s", result.Name, first)
			} else {
				seen[key] = result.File
			}
		}
		results = append(results, result)
	}
	return results
}

// main scans the configs directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, result := range validateAll(files) {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
