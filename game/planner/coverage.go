package planner

import (
	"math"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

const (
	// DefaultReserveFraction of capacity is held back when AdaptiveOptions.Reserve is negative
	DefaultReserveFraction = 0.2
	// ReturnMarginFactor scales the Manhattan distance to the end point
	ReturnMarginFactor = 1.5
	// ReturnSlack moves' worth of battery is added to the reserve before a forced return to the end point
	ReturnSlack = 10
	// GreedyCandidates caps how many cells each greedy iteration scores
	GreedyCandidates = 20
	// DefaultLookAhead is the greedy search radius used when none is given
	DefaultLookAhead = 5
)

// StopReason says why a coverage loop ended
type StopReason string

const (
	StopComplete            StopReason = "complete"
	StopInsufficientBattery StopReason = "insufficient_battery"
	StopNoReachableTarget   StopReason = "no_reachable_target"
	StopEndPointReturn      StopReason = "end_point_return"
	StopBatteryDepleted     StopReason = "battery_depleted"
)

// Mover is the live drone a coverage loop executes its committed segments on
type Mover interface {
	Position() world.Cell
	Battery() int
	Capacity() int
	MovingCost() int
	CanMove() bool
	Move(next world.Cell) bool
	HasVisited(c world.Cell) bool
}

// Result is the path a strategy committed, excluding the starting cell
type Result struct {
	Path []world.Cell `json:"path"`
	Stop StopReason   `json:"stop_reason"`
}

// AdaptiveOptions tunes PlanAdaptive.
// A negative Reserve selects DefaultReserveFraction of the mover's capacity.
type AdaptiveOptions struct {
	Reserve  float64
	EndPoint *world.Cell
}

// Coverage runs the coverage strategies
type Coverage struct {
	Finder *PathFinder
}

// NewCoverage creates a Coverage backed by finder, or an unbounded PathFinder when nil
func NewCoverage(finder *PathFinder) *Coverage {
	if finder == nil {
		finder = NewPathFinder(0)
	}
	return &Coverage{Finder: finder}
}

// PlanZigzag lists every free cell in boustrophedon order: even rows left to
// right, odd rows right to left. Consecutive waypoints need not be adjacent.
func (cp *Coverage) PlanZigzag(grid Grid) []world.Cell {
	n := grid.Size()
	var waypoints []world.Cell
	for row := 0; row < n; row++ {
		for i := 0; i < n; i++ {
			col := i
			if row%2 == 1 {
				col = n - 1 - i
			}
			c := world.Cell{Row: row, Col: col}
			if grid.IsValid(c) {
				waypoints = append(waypoints, c)
			}
		}
	}
	return waypoints
}

// ExpandWaypoints joins waypoints into a path of adjacent steps starting after from.
// Unreachable waypoints and waypoints already passed through are skipped.
func (cp *Coverage) ExpandWaypoints(grid Grid, from world.Cell, waypoints []world.Cell) []world.Cell {
	covered := NewCellSet(from)
	current := from
	var path []world.Cell

	for _, w := range waypoints {
		if covered.Contains(w) {
			continue
		}
		leg, ok := cp.Finder.FindPath(grid, current, w)
		if !ok {
			continue
		}
		for _, c := range leg[1:] {
			covered.Add(c)
		}
		path = append(path, leg[1:]...)
		current = w
	}
	return path
}

// PlanAdaptive repeatedly flies to the nearest unvisited cell while the battery
// can pay for the trip and still hold the reserve. With an end point set, the
// reserve also covers the way back, and a low battery forces a direct return.
// Every committed segment is executed on mover before the next iteration.
func (cp *Coverage) PlanAdaptive(grid Grid, mover Mover, opts AdaptiveOptions) Result {
	reserve := opts.Reserve
	if reserve < 0 {
		reserve = float64(mover.Capacity()) * DefaultReserveFraction
	}

	unvisited := unvisitedCells(grid, mover)
	res := Result{}

	for len(unvisited) > 0 && float64(mover.Battery()) > reserve {
		pos := mover.Position()
		battery := float64(mover.Battery())

		if opts.EndPoint != nil {
			slack := float64(ReturnSlack * mover.MovingCost())
			if battery < reserve+cp.returnCost(grid, mover, pos, *opts.EndPoint)+slack {
				home, ok := cp.Finder.FindPath(grid, pos, *opts.EndPoint)
				if !ok {
					res.Stop = StopNoReachableTarget
					return res
				}
				if !execute(mover, home[1:], &res) {
					return res
				}
				res.Stop = StopEndPointReturn
				return res
			}
		}

		target, path, ok := cp.Finder.NearestUnvisited(grid, pos, unvisited)
		if !ok {
			res.Stop = StopNoReachableTarget
			return res
		}

		// the way back is priced from where the segment ends
		margin := 0.0
		if opts.EndPoint != nil {
			margin = cp.returnCost(grid, mover, target, *opts.EndPoint)
		}

		cost := float64((len(path) - 1) * mover.MovingCost())
		if battery < cost+reserve+margin {
			res.Stop = StopInsufficientBattery
			return res
		}

		for _, c := range path {
			unvisited.Remove(c)
		}
		if !execute(mover, path[1:], &res) {
			return res
		}
	}

	if len(unvisited) == 0 {
		res.Stop = StopComplete
	} else {
		res.Stop = StopInsufficientBattery
	}
	return res
}

// returnCost is the battery needed to fly from c to end: the Manhattan
// estimate scaled by ReturnMarginFactor, or the shortest path when that is longer.
func (cp *Coverage) returnCost(grid Grid, mover Mover, c, end world.Cell) float64 {
	cost := float64(world.Manhattan(c, end)*mover.MovingCost()) * ReturnMarginFactor
	if path, ok := cp.Finder.FindPath(grid, c, end); ok {
		cost = math.Max(cost, float64((len(path)-1)*mover.MovingCost()))
	}
	return cost
}

// PlanGreedy scores unvisited cells within lookAhead of the drone by how many
// unvisited neighbours they have, minus a tenth of the path length, and flies
// to the best one. Candidates are taken row-major and capped at GreedyCandidates.
func (cp *Coverage) PlanGreedy(grid Grid, mover Mover, lookAhead int) Result {
	if lookAhead <= 0 {
		lookAhead = DefaultLookAhead
	}

	unvisited := unvisitedCells(grid, mover)
	res := Result{}

	for len(unvisited) > 0 && mover.CanMove() {
		pos := mover.Position()

		var candidates []world.Cell
		for _, c := range unvisited.Sorted() {
			if world.Manhattan(pos, c) <= lookAhead {
				candidates = append(candidates, c)
				if len(candidates) == GreedyCandidates {
					break
				}
			}
		}

		bestScore := math.Inf(-1)
		var bestPath []world.Cell
		for _, c := range candidates {
			path, ok := cp.Finder.FindPath(grid, pos, c)
			if !ok {
				continue
			}
			open := 0
			for _, n := range grid.Neighbors(c) {
				if unvisited.Contains(n) {
					open++
				}
			}
			score := float64(open) - 0.1*float64(len(path))
			if score > bestScore {
				bestScore = score
				bestPath = path
			}
		}

		if bestPath == nil {
			res.Stop = StopNoReachableTarget
			return res
		}

		for _, c := range bestPath {
			unvisited.Remove(c)
		}
		if !execute(mover, bestPath[1:], &res) {
			return res
		}
	}

	if len(unvisited) == 0 {
		res.Stop = StopComplete
	} else {
		res.Stop = StopBatteryDepleted
	}
	return res
}

// EstimateCoveragePercent is the share of free cells that appear in path
func (cp *Coverage) EstimateCoveragePercent(grid Grid, path []world.Cell) float64 {
	free := 0
	n := grid.Size()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if grid.IsValid(world.Cell{Row: r, Col: c}) {
				free++
			}
		}
	}
	if free == 0 {
		return 0
	}
	return float64(len(NewCellSet(path...))) / float64(free) * 100
}

// execute moves mover along segment, appending each accepted step to res.Path.
// On a refused move it records StopBatteryDepleted and returns false.
func execute(mover Mover, segment []world.Cell, res *Result) bool {
	for _, c := range segment {
		if !mover.Move(c) {
			res.Stop = StopBatteryDepleted
			return false
		}
		res.Path = append(res.Path, c)
	}
	return true
}

func unvisitedCells(grid Grid, mover Mover) CellSet {
	s := make(CellSet)
	n := grid.Size()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cell := world.Cell{Row: r, Col: c}
			if grid.IsValid(cell) && !mover.HasVisited(cell) {
				s.Add(cell)
			}
		}
	}
	return s
}
