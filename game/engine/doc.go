// Package engine provides the mission loop for the drone coverage planner.
//
// The engine package implements the mission mechanics including:
//   - Scenario configuration loading and validation (JSON or YAML)
//   - Committing a coverage plan from one of the planner strategies
//   - Step-by-step execution of the plan against the live drone
//   - Reconciling obstacle and no-fly changes with the plan in flight
//   - Emergency return, step history and persistence hooks
//
// Core Types:
//
// The Engine interface defines the main contract for mission operations,
// implemented by MissionEngine. MissionState holds the grid, drone and plan,
// while MissionConfig defines the scenario loaded from a file.
//
// Usage:
//
//	config, err := engine.LoadMissionConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	missionEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if _, err := missionEngine.PlanMission(engine.StrategyAdaptive); err != nil {
//		log.Fatal(err)
//	}
//	result := missionEngine.Run(engine.MaxBulkSteps)
//	state := missionEngine.GetState()
//
// Mission Rules:
//
// Every step costs the drone its moving cost in battery. A plan is only ever
// flown one adjacent cell at a time. When a cell on the unflown part of the
// plan becomes impassable the engine splices in a detour; if none exists the
// mission is blocked until the grid changes, a new plan is made or the drone
// is sent home. The mission ends when the battery is depleted, the drone is
// stranded or an emergency return reaches home.
package engine
