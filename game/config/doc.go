// Package config provides scenario configuration management for the drone
// coverage planner.
//
// The config package handles:
//   - Loading mission scenarios from JSON or YAML files
//   - Scenario validation through the engine
//   - Default scenario selection
//   - Scenario discovery and listing
//
// Configuration Format:
//
// Scenarios are stored as .json, .yaml or .yml files in the configs directory.
// Each scenario defines:
//   - The survey grid, either as a text layout (H=home, E=end point,
//     F or .=free, O or X=obstacle, N=no-fly) or a seeded generator
//   - Optional no-fly polygons rasterized onto the grid
//   - Battery capacity, moving cost and the planning strategy
//   - Messages shown as the mission progresses
//
// Available Configurations:
//
//   - classic: 10x10 field with scattered obstacles
//   - easy: small open field
//   - maze: corridors that force long detours
//   - airfield: generated grid with no-fly polygons (YAML)
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific configuration
//	missionConfig, err := manager.LoadConfig("easy")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Get default configuration
//	defaultConfig := manager.GetDefault()
//
//	// List available configurations
//	configs, err := manager.ListConfigs()
//
// The default is classic when present, otherwise the first valid scenario in
// the directory, otherwise the built-in seeded scenario.
package config
