package metrics

import (
	"errors"
	"math/rand"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

// Energy costs per move
const (
	BaseMoveCost = 1
	TurnPenalty  = 2
)

var ErrNilRand = errors.New("metrics: random source is required")

// EnergyBreakdown splits a path's moves into straight and turning moves
type EnergyBreakdown struct {
	StraightMoves   int     `json:"straight_moves"`
	TurnMoves       int     `json:"turn_moves"`
	StraightEnergy  int     `json:"straight_energy"`
	TurnEnergy      int     `json:"turn_energy"`
	TotalEnergy     int     `json:"total_energy"`
	TurnPenaltyCost int     `json:"turn_penalty_cost"`
	Efficiency      float64 `json:"efficiency"`
}

// Baseline is the outcome of a random walk from home
type Baseline struct {
	PathLength  int          `json:"path_length"`
	Coverage    int          `json:"coverage"`
	Turns       int          `json:"turns"`
	BatteryUsed int          `json:"battery_used"`
	Path        []world.Cell `json:"-"`
}

// Report compares a path with a baseline. Improvement percentages are relative
// to the baseline; a negative PathLengthChange means the path is shorter.
type Report struct {
	PathLength          int             `json:"path_length"`
	Coverage            int             `json:"coverage"`
	CoveragePercent     float64         `json:"coverage_percent"`
	Turns               int             `json:"turns"`
	Energy              EnergyBreakdown `json:"energy"`
	SafetyScore         int             `json:"safety_score"`
	BufferViolations    int             `json:"buffer_violations"`
	Baseline            Baseline        `json:"baseline"`
	CoverageImprovement float64         `json:"coverage_improvement"`
	TurnReduction       float64         `json:"turn_reduction"`
	PathLengthChange    float64         `json:"path_length_change"`
}

type direction struct{ dr, dc int }

func heading(from, to world.Cell) direction {
	return direction{to.Row - from.Row, to.Col - from.Col}
}

// Turns counts the direction changes along path
func Turns(path []world.Cell) int {
	turns := 0
	for i := 1; i < len(path)-1; i++ {
		if heading(path[i-1], path[i]) != heading(path[i], path[i+1]) {
			turns++
		}
	}
	return turns
}

// SafetyScore is the share of path cells that are free, from 0 to 100.
// An empty path scores 100.
func SafetyScore(grid *world.Grid, path []world.Cell) int {
	if len(path) == 0 {
		return 100
	}
	violations := 0
	for _, c := range path {
		if !grid.IsValid(c) {
			violations++
		}
	}
	return (len(path) - violations) * 100 / len(path)
}

// BufferViolations counts free path cells with an obstacle or no-fly cell in
// their 8-neighbourhood. Each path cell counts at most once.
func BufferViolations(grid *world.Grid, path []world.Cell) int {
	violations := 0
	for _, c := range path {
		if !grid.IsValid(c) {
			continue
		}
		if nearBlocked(grid, c) {
			violations++
		}
	}
	return violations
}

func nearBlocked(grid *world.Grid, c world.Cell) bool {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			switch grid.Classify(world.Cell{Row: c.Row + dr, Col: c.Col + dc}) {
			case world.Obstacle, world.NoFly:
				return true
			}
		}
	}
	return false
}

// Energy classifies every move of path. The first move counts as straight;
// later moves are straight when they keep the previous heading.
func Energy(path []world.Cell) EnergyBreakdown {
	var e EnergyBreakdown
	if len(path) < 2 {
		return e
	}

	e.StraightMoves = 1
	for i := 2; i < len(path); i++ {
		if heading(path[i-2], path[i-1]) == heading(path[i-1], path[i]) {
			e.StraightMoves++
		} else {
			e.TurnMoves++
		}
	}

	e.StraightEnergy = e.StraightMoves * BaseMoveCost
	e.TurnEnergy = e.TurnMoves * (BaseMoveCost + TurnPenalty)
	e.TurnPenaltyCost = e.TurnMoves * TurnPenalty
	e.TotalEnergy = e.StraightEnergy + e.TurnEnergy
	e.Efficiency = float64(e.StraightMoves) / float64(e.StraightMoves+e.TurnMoves) * 100
	return e
}

// RandomBaseline flies a random walk from home until the battery runs out, the
// drone is boxed in or capacity attempts have been made.
func RandomBaseline(grid *world.Grid, home world.Cell, capacity int, rng *rand.Rand) (Baseline, error) {
	if rng == nil {
		return Baseline{}, ErrNilRand
	}
	drone, err := world.NewDrone(home, capacity, 1)
	if err != nil {
		return Baseline{}, err
	}

	path := []world.Cell{home}
	for attempts := 0; drone.CanMove() && attempts < capacity; attempts++ {
		neighbors := grid.Neighbors(drone.Position())
		if len(neighbors) == 0 {
			break
		}
		next := neighbors[rng.Intn(len(neighbors))]
		if drone.Move(next) {
			path = append(path, next)
		}
	}

	return Baseline{
		PathLength:  len(path) - 1,
		Coverage:    drone.VisitedCount(),
		Turns:       Turns(path),
		BatteryUsed: capacity - drone.Battery(),
		Path:        path,
	}, nil
}

// Compare scores path, flown by drone, against baseline
func Compare(grid *world.Grid, drone *world.Drone, path []world.Cell, baseline Baseline) Report {
	r := Report{
		PathLength:       max(len(path)-1, 0),
		Coverage:         drone.VisitedCount(),
		Turns:            Turns(path),
		Energy:           Energy(path),
		SafetyScore:      SafetyScore(grid, path),
		BufferViolations: BufferViolations(grid, path),
		Baseline:         baseline,
	}
	if free := grid.Stats().Free; free > 0 {
		r.CoveragePercent = float64(r.Coverage) / float64(free) * 100
	}
	if baseline.Coverage > 0 {
		r.CoverageImprovement = float64(r.Coverage-baseline.Coverage) / float64(baseline.Coverage) * 100
	}
	if baseline.Turns > 0 {
		r.TurnReduction = float64(baseline.Turns-r.Turns) / float64(baseline.Turns) * 100
	}
	if baseline.PathLength > 0 {
		r.PathLengthChange = float64(r.PathLength-baseline.PathLength) / float64(baseline.PathLength) * 100
	}
	return r
}
