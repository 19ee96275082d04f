package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	layoutEmpty = '.'
	layoutWall  = '#'

	defaultInitialTiles = 2
	defaultSpawnPerTurn = 1
)

// GameConfig represents the game configuration from JSON
type GameConfig struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	GridSize     int           `json:"grid_size"`
	Layout       []string      `json:"layout,omitempty"`
	StartValue   int           `json:"start_value,omitempty"`
	InitialTiles int           `json:"initial_tiles,omitempty"`
	SpawnPerTurn int           `json:"spawn_per_turn,omitempty"`
	SpawnWeights []SpawnWeight `json:"spawn_weights,omitempty"`
	Seed         int64         `json:"seed,omitempty"`
	Messages     struct {
		Welcome  string `json:"welcome"`
		NoMove   string `json:"no_move"`
		GameOver string `json:"game_over"`
		Share    string `json:"share"`
	} `json:"messages"`
}

// DefaultConfig returns the classic 4×4 board without walls
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:        "classic",
		Description: "Classic 4x4 board without walls",
		GridSize:    DefaultGridSize,
	}
	config.applyDefaults()
	return config
}

// applyDefaults fills zero values with their documented defaults
func (c *GameConfig) applyDefaults() {
	if c.StartValue == 0 {
		c.StartValue = DefaultStartValue
	}
	if c.InitialTiles == 0 {
		c.InitialTiles = defaultInitialTiles
	}
	if c.SpawnPerTurn == 0 {
		c.SpawnPerTurn = defaultSpawnPerTurn
	}
	if c.Messages.Welcome == "" {
		c.Messages.Welcome = "Slide tiles with up, down, left or right. Walls never move."
	}
	if c.Messages.NoMove == "" {
		c.Messages.NoMove = "Nothing moves that way"
	}
	if c.Messages.GameOver == "" {
		c.Messages.GameOver = "No moves left! Final score: %d"
	}
	if c.Messages.Share == "" {
		c.Messages.Share = "I scored %d points in Walls 2048!"
	}
}

// Walls returns wall positions described by the layout
func (c *GameConfig) Walls() []Position {
	var walls []Position
	for r, row := range c.Layout {
		for col, ch := range row {
			if ch == layoutWall {
				walls = append(walls, Position{Row: r, Col: col})
			}
		}
	}
	return walls
}

// OpenCells counts the non-wall cells of the configured board
func (c *GameConfig) OpenCells() int {
	return c.GridSize*c.GridSize - len(c.Walls())
}

// spawnPolicy builds the configured spawn value policy
func (c *GameConfig) spawnPolicy() (SpawnPolicy, error) {
	if len(c.SpawnWeights) == 0 {
		start := c.StartValue
		if start == 0 {
			start = DefaultStartValue
		}
		return FixedPolicy{Value: start}, nil
	}
	return NewWeightedPolicy(c.SpawnWeights)
}

// ValidateGameConfig validates a game configuration for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("config validation: grid_size must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.GridSize)
	}

	if len(config.Layout) > 0 {
		if len(config.Layout) != config.GridSize {
			return fmt.Errorf("config validation: layout must have %d rows to match grid_size, got %d",
				config.GridSize, len(config.Layout))
		}
		for i, row := range config.Layout {
			if len(row) != config.GridSize {
				return fmt.Errorf("config validation: row %d must have %d characters to match grid_size, got %d",
					i+1, config.GridSize, len(row))
			}
			for j, ch := range row {
				if ch != layoutEmpty && ch != layoutWall {
					return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", ch, i+1, j+1)
				}
			}
		}
	}

	open := config.OpenCells()
	if open < 2 {
		return fmt.Errorf("config validation: layout must leave at least 2 open cells, got %d", open)
	}

	if config.StartValue != 0 && !isTileValue(config.StartValue) {
		return fmt.Errorf("config validation: start_value must be a power of two >= 2, got %d", config.StartValue)
	}
	if config.InitialTiles < 0 || config.InitialTiles > open {
		return fmt.Errorf("config validation: initial_tiles must be between 0 and %d open cells, got %d", open, config.InitialTiles)
	}
	if config.SpawnPerTurn < 0 || config.SpawnPerTurn > open {
		return fmt.Errorf("config validation: spawn_per_turn must be between 0 and %d open cells, got %d", open, config.SpawnPerTurn)
	}
	if len(config.SpawnWeights) > 0 {
		if _, err := NewWeightedPolicy(config.SpawnWeights); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}

	if config.Messages.GameOver != "" && !ScoreTemplate(config.Messages.GameOver) {
		return fmt.Errorf("config validation: messages.game_over must contain exactly one %%d for score, got %q", config.Messages.GameOver)
	}
	if config.Messages.Share != "" && !ScoreTemplate(config.Messages.Share) {
		return fmt.Errorf("config validation: messages.share must contain exactly one %%d for score, got %q", config.Messages.Share)
	}

	return nil
}

// ScoreTemplate reports whether tmpl formats a single int: one %d and no
// other verbs, with %% allowed as a literal
func ScoreTemplate(tmpl string) bool {
	plain := strings.ReplaceAll(tmpl, "%%", "")
	return strings.Count(plain, "%") == 1 && strings.Contains(plain, "%d")
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return ParseGameConfig(data)
}

// ParseGameConfig decodes and validates a JSON configuration
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()
	return &config, nil
}

// LoadConfigByName loads configs/<name>.json, adding the extension if missing
func LoadConfigByName(configName string) (*GameConfig, error) {
	if !strings.HasSuffix(configName, ".json") {
		configName = configName + ".json"
	}

	configPath := filepath.Join("configs", configName)
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		configPath = filepath.Join(configDir, configName)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file '%s' not found", configName)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configName, err)
	}

	config, err := ParseGameConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
	}
	return config, nil
}
