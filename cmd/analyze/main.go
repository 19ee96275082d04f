// Command analyze prints quick, human-readable facts about the board layouts
// in a configs directory (default "configs"). It summarizes dimensions, walls,
// spawn settings, how walls cut rows and columns into segments, and highlights
// open cells that walls seal off completely: a tile spawned there can never
// slide or merge.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/walls2048/game/engine"
)

// LayoutReport holds the analysis of one board layout
type LayoutReport struct {
	Name         string
	Description  string
	GridSize     int
	Walls        int
	OpenCells    int
	InitialTiles int
	SpawnPerTurn int
	// RowSegments and ColSegments count wall-free runs across all rows/columns
	RowSegments int
	ColSegments int
	// BlockedRows and BlockedCols count lines where no tile can ever slide
	BlockedRows int
	BlockedCols int
	Sealed      []engine.Position
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No configs found in %s\n", dir)
		os.Exit(1)
	}
	sort.Strings(files)

	for _, path := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(path))
		config, err := engine.LoadGameConfig(path)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			continue
		}
		report, err := analyzeConfig(config)
		if err != nil {
			fmt.Printf("Error analyzing config: %v\n", err)
			continue
		}
		printReport(os.Stdout, report)
	}
}

func analyzeConfig(config *engine.GameConfig) (*LayoutReport, error) {
	board, err := engine.NewBoard(config.GridSize, config.Walls())
	if err != nil {
		return nil, err
	}

	report := &LayoutReport{
		Name:         config.Name,
		Description:  config.Description,
		GridSize:     config.GridSize,
		Walls:        len(config.Walls()),
		OpenCells:    config.OpenCells(),
		InitialTiles: config.InitialTiles,
		SpawnPerTurn: config.SpawnPerTurn,
		BlockedRows:  engine.BlockedLines(board, engine.Left),
		BlockedCols:  engine.BlockedLines(board, engine.Up),
	}

	for i := 0; i < config.GridSize; i++ {
		rows, err := engine.Segments(board, engine.Left, i)
		if err != nil {
			return nil, err
		}
		cols, err := engine.Segments(board, engine.Up, i)
		if err != nil {
			return nil, err
		}
		report.RowSegments += len(rows)
		report.ColSegments += len(cols)
	}

	report.Sealed = engine.SealedCells(board)

	return report, nil
}

func printReport(w io.Writer, r *LayoutReport) {
	fmt.Fprintf(w, "Name: %s\n", r.Name)
	if r.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", r.Description)
	}
	fmt.Fprintf(w, "Grid Size: %d x %d\n", r.GridSize, r.GridSize)
	fmt.Fprintf(w, "Walls: %d, Open Cells: %d\n", r.Walls, r.OpenCells)
	fmt.Fprintf(w, "Initial Tiles: %d, Spawn Per Turn: %d\n", r.InitialTiles, r.SpawnPerTurn)
	fmt.Fprintf(w, "Row Segments: %d, Column Segments: %d\n", r.RowSegments, r.ColSegments)

	if r.BlockedRows > 0 || r.BlockedCols > 0 {
		fmt.Fprintf(w, "⚠️  %d rows and %d columns can never slide\n", r.BlockedRows, r.BlockedCols)
	} else {
		fmt.Fprintf(w, "✅ Every row and column has room to slide\n")
	}

	if len(r.Sealed) > 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: %d open cells are sealed by walls; a tile spawned there is stuck forever\n", len(r.Sealed))
		for i, p := range r.Sealed {
			if i < 5 {
				fmt.Fprintf(w, "   Sealed: %s\n", p)
			}
		}
		if len(r.Sealed) > 5 {
			fmt.Fprintf(w, "   ... and %d more\n", len(r.Sealed)-5)
		}
	} else {
		fmt.Fprintf(w, "✅ Every open cell touches another open cell\n")
	}
}
