package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

func TestValidateMissionConfig_ValidConfig(t *testing.T) {
	if err := ValidateMissionConfig(createTestConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
	if err := ValidateMissionConfig(DefaultMissionConfig()); err != nil {
		t.Errorf("Expected default config to pass validation, got error: %v", err)
	}
}

func TestValidateMissionConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *MissionConfig)
		want   string
	}{
		{"missing name", func(c *MissionConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *MissionConfig) { c.Description = "" }, "description is required"},
		{"grid too small", func(c *MissionConfig) { c.GridSize = 2 }, "grid_size must be between"},
		{"grid too large", func(c *MissionConfig) { c.GridSize = MaxGridSize + 1 }, "grid_size must be between"},
		{"zero battery", func(c *MissionConfig) { c.BatteryCapacity = 0 }, "battery_capacity must be between"},
		{"negative moving cost", func(c *MissionConfig) { c.MovingCost = -1 }, "moving_cost must be non-negative (0 selects 1)"},
		{"reserve at capacity", func(c *MissionConfig) { c.Reserve = floatPtr(50) }, "reserve must be in"},
		{"negative reserve", func(c *MissionConfig) { c.Reserve = floatPtr(-1) }, "reserve must be in"},
		{"negative look ahead", func(c *MissionConfig) { c.LookAhead = -1 }, "look_ahead"},
		{"negative search budget", func(c *MissionConfig) { c.MaxSearchExpansions = -5 }, "max_search_expansions"},
		{"unknown strategy", func(c *MissionConfig) { c.Strategy = "spiral" }, "unknown strategy"},
		{"layout and generator", func(c *MissionConfig) { c.Generator = &GeneratorConfig{Seed: 1} }, "mutually exclusive"},
		{"layout row count", func(c *MissionConfig) { c.Layout = c.Layout[:4] }, "layout must have 5 rows"},
		{"layout row width", func(c *MissionConfig) { c.Layout[2] = "...." }, ""},
		{"layout characters", func(c *MissionConfig) { c.Layout[2] = "..Z.." }, ""},
		{"two homes", func(c *MissionConfig) { c.Layout[4] = "....H" }, "at most one home"},
		{"home twice", func(c *MissionConfig) { c.Home = &world.Cell{Row: 2, Col: 2} }, "both in the layout and explicitly"},
		{"two end points", func(c *MissionConfig) { c.Layout[2] = "E...E" }, "at most one end point"},
		{"end point out of bounds", func(c *MissionConfig) { c.EndPoint = &world.Cell{Row: 5, Col: 0} }, "out of bounds"},
		{"end point on obstacle", func(c *MissionConfig) { c.EndPoint = &world.Cell{Row: 1, Col: 1} }, "not a free cell"},
		{"degenerate zone", func(c *MissionConfig) { c.NoFlyZones = [][][2]float64{{{0, 0}, {1, 1}}} }, ""},
		{"missing welcome", func(c *MissionConfig) { c.Messages.Welcome = "" }, "messages.welcome"},
		{"missing complete", func(c *MissionConfig) { c.Messages.Complete = "" }, "messages.complete"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config := createTestConfig()
			test.mutate(config)

			err := ValidateMissionConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got: %v", err)
			}
			if test.want != "" && !strings.Contains(err.Error(), test.want) {
				t.Errorf("Expected error containing %q, got: %v", test.want, err)
			}
		})
	}
}

func TestValidateMissionConfig_NoFreeCells(t *testing.T) {
	config := createTestConfig()
	config.GridSize = 3
	config.Layout = []string{"OOO", "ONO", "OOO"}

	err := ValidateMissionConfig(config)
	if err == nil || !strings.Contains(err.Error(), "no free cells") {
		t.Errorf("Expected 'no free cells' error, got: %v", err)
	}
}

func TestValidateMissionConfig_Generator(t *testing.T) {
	config := createTestConfig()
	config.Layout = nil
	config.Generator = &GeneratorConfig{ObstacleProb: 0.2, NoFlyProb: 0.1, Seed: 3}
	config.Home = &world.Cell{Row: 4, Col: 4}

	if err := ValidateMissionConfig(config); err != nil {
		t.Fatalf("Expected generator config to be valid, got: %v", err)
	}

	config.Generator.ObstacleProb = 0.95
	if err := ValidateMissionConfig(config); err == nil {
		t.Error("Expected error when probabilities sum above 1")
	}
}

func TestValidateMissionConfig_NilConfig(t *testing.T) {
	if err := ValidateMissionConfig(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for nil config, got: %v", err)
	}
}

func TestLoadMissionConfig(t *testing.T) {
	tests := []struct {
		file     string
		name     string
		size     int
		strategy Strategy
	}{
		{"classic.json", "classic", 10, StrategyAdaptive},
		{"easy.json", "easy", 5, StrategyZigzag},
		{"maze.json", "maze", 9, StrategyGreedy},
		{"airfield.yaml", "airfield", 15, StrategyAdaptive},
	}

	for _, test := range tests {
		t.Run(test.file, func(t *testing.T) {
			config, err := LoadMissionConfig(filepath.Join("..", "..", "configs", test.file))
			if err != nil {
				t.Fatalf("Failed to load %s: %v", test.file, err)
			}
			if config.Name != test.name {
				t.Errorf("Expected config name %q, got %q", test.name, config.Name)
			}
			if config.GridSize != test.size {
				t.Errorf("Expected grid size %d, got %d", test.size, config.GridSize)
			}
			if config.Strategy != test.strategy {
				t.Errorf("Expected strategy %s, got %s", test.strategy, config.Strategy)
			}
		})
	}

	if _, err := LoadMissionConfig("nonexistent.json"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadMissionConfig_ConfigDir(t *testing.T) {
	t.Setenv("CONFIG_DIR", filepath.Join("..", "..", "configs"))

	config, err := LoadMissionConfig("configs/easy.json")
	if err != nil {
		t.Fatalf("Failed to load config through CONFIG_DIR: %v", err)
	}
	if config.Name != "easy" {
		t.Errorf("Expected config name 'easy', got %q", config.Name)
	}
}

func TestLoadMissionConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"name": `), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	_, err := LoadMissionConfig(broken)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Expected parse error, got: %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	content := "name: bad\ndescription: grid too small\ngrid_size: 1\nbattery_capacity: 10\n"
	if err := os.WriteFile(invalid, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	if _, err := LoadMissionConfig(invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got: %v", err)
	}
}

func TestDecodeMissionConfig_YAML(t *testing.T) {
	data := []byte(`
name: yaml mission
description: decoded from yaml
grid_size: 6
home: {row: 1, col: 2}
battery_capacity: 30
reserve: 4.5
no_fly_zones:
  - [[0, 0], [2, 0], [2, 2], [0, 2]]
messages:
  welcome: hi
  complete: done
`)

	config, err := DecodeMissionConfig(data, ".YML")
	if err != nil {
		t.Fatalf("Failed to decode yaml: %v", err)
	}
	if config.Home == nil || *config.Home != (world.Cell{Row: 1, Col: 2}) {
		t.Errorf("Expected home (1,2), got %v", config.Home)
	}
	if config.Reserve == nil || *config.Reserve != 4.5 {
		t.Errorf("Expected reserve 4.5, got %v", config.Reserve)
	}
	if len(config.NoFlyZones) != 1 || len(config.NoFlyZones[0]) != 4 {
		t.Fatalf("Expected one 4-point zone, got %v", config.NoFlyZones)
	}
	if config.NoFlyZones[0][1] != [2]float64{2, 0} {
		t.Errorf("Expected second vertex (2,0), got %v", config.NoFlyZones[0][1])
	}
	if err := ValidateMissionConfig(config); err != nil {
		t.Errorf("Expected decoded config to be valid, got: %v", err)
	}
}

func TestInitMissionStateFromConfig(t *testing.T) {
	config := createTestConfig()
	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("Failed to init state: %v", err)
	}

	if state.Drone.Battery() != config.BatteryCapacity {
		t.Errorf("Expected battery %d, got %d", config.BatteryCapacity, state.Drone.Battery())
	}
	if state.Drone.Home() != (world.Cell{Row: 0, Col: 0}) {
		t.Errorf("Expected home at the H marker, got %v", state.Drone.Home())
	}
	if !state.Drone.HasVisited(state.Drone.Home()) {
		t.Error("Expected home to count as visited")
	}
	if state.Grid.Classify(world.Cell{Row: 1, Col: 1}) != world.Obstacle {
		t.Error("Expected obstacle at (1,1)")
	}
	if state.Grid.Classify(world.Cell{Row: 3, Col: 3}) != world.NoFly {
		t.Error("Expected no-fly cell at (3,3)")
	}
	if state.EndPoint != nil {
		t.Errorf("Expected no end point, got %v", state.EndPoint)
	}
	if state.Plan != nil {
		t.Error("Expected no plan initially")
	}
	if state.StepHistory == nil || state.CurrentSteps == nil {
		t.Error("Expected history slices to be initialized")
	}

	// Nil config uses defaults
	defaultState, err := InitMissionStateFromConfig(nil)
	if err != nil {
		t.Fatalf("Failed to init default state: %v", err)
	}
	if defaultState.Drone.Capacity() != DefaultBattery {
		t.Errorf("Expected default battery %d, got %d", DefaultBattery, defaultState.Drone.Capacity())
	}
}

func TestInitMissionStateFromConfig_HomeResolution(t *testing.T) {
	config := createTestConfig()
	config.Layout[0] = "O...."
	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("Failed to init state: %v", err)
	}
	if state.Drone.Home() != (world.Cell{Row: 0, Col: 1}) {
		t.Errorf("Expected the first free cell as home, got %v", state.Drone.Home())
	}

	config = createTestConfig()
	config.Layout[0] = "....."
	config.Home = &world.Cell{Row: 2, Col: 2}
	state, err = InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("Failed to init state: %v", err)
	}
	if state.Drone.Position() != (world.Cell{Row: 2, Col: 2}) {
		t.Errorf("Expected explicit home (2,2), got %v", state.Drone.Position())
	}
}

func TestInitMissionStateFromConfig_EndMarker(t *testing.T) {
	config, err := LoadMissionConfig(filepath.Join("..", "..", "configs", "classic.json"))
	if err != nil {
		t.Fatalf("Failed to load classic config: %v", err)
	}
	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("Failed to init state: %v", err)
	}
	if state.EndPoint == nil || *state.EndPoint != (world.Cell{Row: 9, Col: 9}) {
		t.Errorf("Expected end point (9,9), got %v", state.EndPoint)
	}
	if !state.Grid.IsValid(*state.EndPoint) {
		t.Error("Expected end point to be free")
	}
}

func TestInitMissionStateFromConfig_Generator(t *testing.T) {
	config := DefaultMissionConfig()

	first, err := InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("Failed to init state: %v", err)
	}
	second, err := InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("Failed to init state: %v", err)
	}

	a, b := first.Grid.Layout(), second.Grid.Layout()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expected seeded grids to match, row %d differs: %q vs %q", i, a[i], b[i])
		}
	}
	if !first.Grid.IsValid(world.Cell{Row: 0, Col: 0}) {
		t.Error("Expected home to be forced free")
	}
}

func TestInitMissionStateFromConfig_NoFlyZones(t *testing.T) {
	config, err := LoadMissionConfig(filepath.Join("..", "..", "configs", "airfield.yaml"))
	if err != nil {
		t.Fatalf("Failed to load airfield config: %v", err)
	}
	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("Failed to init state: %v", err)
	}

	// Cell centres inside x 9..13, y 2..6 are rows 2-5, cols 9-12
	for _, c := range []world.Cell{{Row: 2, Col: 9}, {Row: 3, Col: 10}, {Row: 5, Col: 12}} {
		if state.Grid.Classify(c) != world.NoFly {
			t.Errorf("Expected %v inside the zone to be no_fly, got %s", c, state.Grid.Classify(c))
		}
	}
	if state.Grid.Stats().NoFly < 16 {
		t.Errorf("Expected at least 16 no-fly cells, got %d", state.Grid.Stats().NoFly)
	}
	if state.EndPoint == nil || !state.Grid.IsValid(*state.EndPoint) {
		t.Errorf("Expected a free end point, got %v", state.EndPoint)
	}
}

func TestValidateMissionConfig_ZeroMovingCost(t *testing.T) {
	config := createTestConfig()
	config.MovingCost = 0

	if err := ValidateMissionConfig(config); err != nil {
		t.Fatalf("Expected moving_cost 0 to be accepted, got %v", err)
	}

	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		t.Fatalf("InitMissionStateFromConfig failed: %v", err)
	}
	if state.Drone.MovingCost() != 1 {
		t.Errorf("Expected moving_cost 0 to select 1, got %d", state.Drone.MovingCost())
	}
}
