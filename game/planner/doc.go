// Package planner holds the search and coverage algorithms that decide where
// the drone flies.
//
// The planner package implements:
//   - A* shortest paths on the 4-connected grid (PathFinder)
//   - Bounded nearest-unvisited target selection
//   - Zigzag, battery-aware adaptive and greedy look-ahead coverage (Coverage)
//   - Detour splicing and emergency return for a plan in flight (Replanner)
//
// Everything here is synchronous and single-threaded. Searches never mutate
// the grid. The adaptive and greedy strategies do mutate the Mover they are
// given, one committed segment at a time; pass a clone of the drone to plan
// without flying.
//
// Usage:
//
//	cp := planner.NewCoverage(planner.NewPathFinder(0))
//	res := cp.PlanAdaptive(grid, drone.Clone(), planner.AdaptiveOptions{Reserve: -1})
//	plan := planner.NewPlan(res.Path)
//
//	rp := &planner.Replanner{Finder: cp.Finder, Grid: grid, Drone: drone, Plan: plan}
//	if _, err := rp.HandleObstacle(blocked); errors.Is(err, planner.ErrReplanFailed) {
//		err = rp.EmergencyReturn()
//	}
package planner
