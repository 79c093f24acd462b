package engine

import (
	"github.com/wricardo/drone-coverage-planner/game/planner"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

// CoverageOf returns the percentage of currently free cells the drone has visited
func CoverageOf(grid *world.Grid, drone *world.Drone) float64 {
	free := grid.Stats().Free
	if free == 0 {
		return 0
	}
	visited := 0
	for _, c := range drone.VisitedCells() {
		if grid.IsValid(c) {
			visited++
		}
	}
	return float64(visited) / float64(free) * 100
}

// ReturnCost returns the battery needed to fly home along the shortest path
func ReturnCost(state *MissionState, finder *planner.PathFinder) (int, bool) {
	path, ok := finder.FindPath(state.Grid, state.Drone.Position(), state.Drone.Home())
	if !ok {
		return 0, false
	}
	return (len(path) - 1) * state.Drone.MovingCost(), true
}

// AnalyzeBatteryRisk assesses battery danger level based on current battery and the cost of flying home
func AnalyzeBatteryRisk(state *MissionState, finder *planner.PathFinder) string {
	battery := state.Drone.Battery()
	if battery < state.Drone.MovingCost() {
		return "CRITICAL: Battery empty!"
	}

	cost, ok := ReturnCost(state, finder)
	if !ok {
		return "WARNING: No path home!"
	}

	if battery < cost {
		return "DANGER: Insufficient battery to return home!"
	} else if battery <= cost+2*state.Drone.MovingCost() {
		return "CAUTION: Low battery, return home now"
	} else if battery <= state.Drone.Capacity()/3 {
		return "LOW: Consider returning soon"
	}

	return "SAFE: Battery sufficient"
}

// CountCellKind counts the cells of a specific kind in the grid
func CountCellKind(grid *world.Grid, kind world.CellKind) int {
	switch kind {
	case world.Free:
		return grid.Stats().Free
	case world.Obstacle:
		return grid.Stats().Obstacles
	case world.NoFly:
		return grid.Stats().NoFly
	}
	return 0
}
