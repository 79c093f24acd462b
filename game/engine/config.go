package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/drone-coverage-planner/game/airspace"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

var ErrInvalidConfig = errors.New("config validation")

// ValidateMissionConfig validates a mission configuration for correctness and flyability
func ValidateMissionConfig(config *MissionConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if config.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidConfig)
	}

	// Validate grid size
	if config.GridSize < MinGridSize || config.GridSize > MaxGridSize {
		return fmt.Errorf("%w: grid_size must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.GridSize)
	}

	// Validate battery settings
	if config.BatteryCapacity < MinBattery || config.BatteryCapacity > MaxBattery {
		return fmt.Errorf("%w: battery_capacity must be between %d and %d, got %d", ErrInvalidConfig, MinBattery, MaxBattery, config.BatteryCapacity)
	}
	if config.MovingCost < 0 {
		return fmt.Errorf("%w: moving_cost must be non-negative (0 selects 1), got %d", ErrInvalidConfig, config.MovingCost)
	}
	if config.Reserve != nil && (*config.Reserve < 0 || *config.Reserve >= float64(config.BatteryCapacity)) {
		return fmt.Errorf("%w: reserve must be in [0, %d), got %g", ErrInvalidConfig, config.BatteryCapacity, *config.Reserve)
	}
	if config.LookAhead < 0 {
		return fmt.Errorf("%w: look_ahead must be non-negative, got %d", ErrInvalidConfig, config.LookAhead)
	}
	if config.MaxSearchExpansions < 0 {
		return fmt.Errorf("%w: max_search_expansions must be non-negative, got %d", ErrInvalidConfig, config.MaxSearchExpansions)
	}
	if config.Strategy != "" && !config.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, config.Strategy)
	}

	if len(config.Layout) > 0 && config.Generator != nil {
		return fmt.Errorf("%w: layout and generator are mutually exclusive", ErrInvalidConfig)
	}

	var grid *world.Grid
	if len(config.Layout) > 0 {
		// Validate layout
		if len(config.Layout) != config.GridSize {
			return fmt.Errorf("%w: layout must have %d rows to match grid_size, got %d",
				ErrInvalidConfig, config.GridSize, len(config.Layout))
		}
		g, err := world.ParseLayout(config.Layout)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		grid = g

		homes, ends := countMarker(config.Layout, world.CharHome), countMarker(config.Layout, world.CharEnd)
		if homes > 1 {
			return fmt.Errorf("%w: layout must contain at most one home (H) cell, got %d", ErrInvalidConfig, homes)
		}
		if homes == 1 && config.Home != nil {
			return fmt.Errorf("%w: home is set both in the layout and explicitly", ErrInvalidConfig)
		}
		if ends > 1 {
			return fmt.Errorf("%w: layout must contain at most one end point (E) cell, got %d", ErrInvalidConfig, ends)
		}
		if len(g.FreeCells()) == 0 {
			return fmt.Errorf("%w: layout has no free cells", ErrInvalidConfig)
		}
	}

	if gen := config.Generator; gen != nil {
		if gen.ObstacleProb < 0 || gen.NoFlyProb < 0 || gen.ObstacleProb+gen.NoFlyProb > 1 {
			return fmt.Errorf("%w: generator probabilities must be non-negative and sum to at most 1", ErrInvalidConfig)
		}
	}

	for _, named := range []struct {
		name string
		cell *world.Cell
	}{{"home", config.Home}, {"end_point", config.EndPoint}} {
		name, c := named.name, named.cell
		if c == nil {
			continue
		}
		if c.Row < 0 || c.Row >= config.GridSize || c.Col < 0 || c.Col >= config.GridSize {
			return fmt.Errorf("%w: %s %v is out of bounds", ErrInvalidConfig, name, *c)
		}
		if grid != nil && !grid.IsValid(*c) {
			return fmt.Errorf("%w: %s %v is not a free cell", ErrInvalidConfig, name, *c)
		}
	}

	if _, err := airspace.FromRings(config.NoFlyZones); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Validate messages
	if config.Messages.Welcome == "" {
		return fmt.Errorf("%w: messages.welcome is required", ErrInvalidConfig)
	}
	if config.Messages.Complete == "" {
		return fmt.Errorf("%w: messages.complete is required", ErrInvalidConfig)
	}

	return nil
}

func countMarker(layout []string, marker byte) int {
	n := 0
	for _, row := range layout {
		n += strings.Count(row, string(marker))
	}
	return n
}

// DecodeMissionConfig parses a config as YAML when ext is .yaml or .yml, JSON otherwise
func DecodeMissionConfig(data []byte, ext string) (*MissionConfig, error) {
	var config MissionConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}
	return &config, nil
}

// LoadMissionConfig loads a mission configuration from a JSON or YAML file
func LoadMissionConfig(filename string) (*MissionConfig, error) {
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

	config, err := DecodeMissionConfig(data, filepath.Ext(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}

	// Validate the loaded configuration
	if err := ValidateMissionConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultMissionConfig returns the built-in seeded scenario
func DefaultMissionConfig() *MissionConfig {
	return &MissionConfig{
		Name:            "default",
		Description:     "Seeded 20x20 survey area with scattered obstacles and no-fly cells",
		GridSize:        DefaultGridSize,
		Generator:       &GeneratorConfig{ObstacleProb: 0.12, NoFlyProb: 0.06, Seed: 42},
		Home:            &world.Cell{Row: 0, Col: 0},
		BatteryCapacity: DefaultBattery,
		MovingCost:      1,
		Strategy:        StrategyAdaptive,
		LookAhead:       5,
		Messages: MissionMessages{
			Welcome:      "Drone ready at home. Plan a mission to start covering the area.",
			Planned:      "Mission planned.",
			Complete:     "Mission complete!",
			Depleted:     "Battery depleted! Mission over.",
			Replanned:    "Obstacle detected on the route. Detour planned.",
			ReplanFailed: "Obstacle detected on the route and no detour exists.",
			Returning:    "Emergency return to home.",
			ReturnedHome: "Drone returned home.",
			Stranded:     "No path home! Drone stranded.",
		},
	}
}

// InitMissionStateFromConfig creates a new mission state using the provided configuration
func InitMissionStateFromConfig(config *MissionConfig) (*MissionState, error) {
	if config == nil {
		config = DefaultMissionConfig()
	}

	grid, err := buildGrid(config)
	if err != nil {
		return nil, err
	}

	home, err := resolveHome(config, grid)
	if err != nil {
		return nil, err
	}
	grid.SetCell(home, world.Free)

	endPoint := config.EndPoint
	if endPoint == nil {
		if c, ok := world.FindMarker(config.Layout, world.CharEnd); ok {
			endPoint = &c
		}
	}
	if endPoint != nil {
		e := *endPoint
		endPoint = &e
		grid.SetCell(e, world.Free)
	}

	zones, err := airspace.FromRings(config.NoFlyZones)
	if err != nil {
		return nil, err
	}
	keep := []world.Cell{home}
	if endPoint != nil {
		keep = append(keep, *endPoint)
	}
	airspace.Rasterize(grid, airspace.NewIndex(zones), keep...)

	movingCost := config.MovingCost
	if movingCost < 1 {
		movingCost = 1
	}
	drone, err := world.NewDrone(home, config.BatteryCapacity, movingCost)
	if err != nil {
		return nil, err
	}

	strategy := config.Strategy
	if strategy == "" {
		strategy = StrategyAdaptive
	}

	return &MissionState{
		Grid:              grid,
		Drone:             drone,
		Strategy:          strategy,
		EndPoint:          endPoint,
		Phase:             PhaseIdle,
		Message:           config.Messages.Welcome,
		ConfigName:        config.Name,
		StepHistory:       []StepEntry{},
		TotalSteps:        0,
		CurrentSteps:      []StepEntry{},
		CurrentStepsCount: 0,
	}, nil
}

func buildGrid(config *MissionConfig) (*world.Grid, error) {
	switch {
	case len(config.Layout) > 0:
		return world.ParseLayout(config.Layout)
	case config.Generator != nil:
		gen := config.Generator
		return world.NewRandomGrid(config.GridSize, gen.ObstacleProb, gen.NoFlyProb, rand.New(rand.NewSource(gen.Seed)))
	default:
		return world.NewGrid(config.GridSize)
	}
}

// resolveHome picks the explicit home, then the H marker, then (0,0) on a
// generated grid, then the first free cell.
func resolveHome(config *MissionConfig, grid *world.Grid) (world.Cell, error) {
	if config.Home != nil {
		return *config.Home, nil
	}
	if c, ok := world.FindMarker(config.Layout, world.CharHome); ok {
		return c, nil
	}
	if config.Generator != nil {
		return world.Cell{Row: 0, Col: 0}, nil
	}
	free := grid.FreeCells()
	if len(free) == 0 {
		return world.Cell{}, fmt.Errorf("%w: no free cell for home", ErrInvalidConfig)
	}
	return free[0], nil
}
