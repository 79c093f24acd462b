package planner

import (
	"errors"
	"fmt"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

var (
	ErrReplanFailed   = errors.New("replan failed")
	ErrNoReentryPoint = fmt.Errorf("%w: no valid cell after the blockage", ErrReplanFailed)
	ErrNoDetour       = fmt.Errorf("%w: no detour to the reentry point", ErrReplanFailed)
	ErrStranded       = fmt.Errorf("%w: no path home", ErrReplanFailed)
)

// Plan is the committed move sequence. Cells[:Next] have been flown.
type Plan struct {
	Cells []world.Cell `json:"cells"`
	Next  int          `json:"next"`
}

// NewPlan wraps cells as an unstarted plan
func NewPlan(cells []world.Cell) *Plan {
	return &Plan{Cells: cells}
}

// Clone returns a copy that shares no cells with p
func (p *Plan) Clone() *Plan {
	return &Plan{Cells: append([]world.Cell(nil), p.Cells...), Next: p.Next}
}

// Executed returns the flown prefix
func (p *Plan) Executed() []world.Cell {
	return p.Cells[:p.Next]
}

// Remaining returns the unflown suffix
func (p *Plan) Remaining() []world.Cell {
	return p.Cells[p.Next:]
}

// Done reports whether every cell has been flown
func (p *Plan) Done() bool {
	return p.Next >= len(p.Cells)
}

// Peek returns the next cell to fly
func (p *Plan) Peek() (world.Cell, bool) {
	if p.Done() {
		return world.Cell{}, false
	}
	return p.Cells[p.Next], true
}

// Advance marks the next cell flown
func (p *Plan) Advance() {
	if !p.Done() {
		p.Next++
	}
}

// Locator is the part of the drone the replanner reads
type Locator interface {
	Position() world.Cell
	Home() world.Cell
}

// Replanner rewrites the unflown part of Plan when the grid changes under it
type Replanner struct {
	Finder *PathFinder
	Grid   Grid
	Drone  Locator
	Plan   *Plan
}

// HandleObstacle detours around blocked if it lies on the unflown part of the plan.
// It returns false with no error when blocked is not on the remaining plan.
func (rp *Replanner) HandleObstacle(blocked world.Cell) (bool, error) {
	at := -1
	for i := rp.Plan.Next; i < len(rp.Plan.Cells); i++ {
		if rp.Plan.Cells[i] == blocked {
			at = i
			break
		}
	}
	if at < 0 {
		return false, nil
	}

	reentry := -1
	for i := at + 1; i < len(rp.Plan.Cells); i++ {
		if rp.Grid.IsValid(rp.Plan.Cells[i]) {
			reentry = i
			break
		}
	}
	if reentry < 0 {
		return false, ErrNoReentryPoint
	}

	detour, ok := rp.Finder.FindPath(rp.Grid, rp.Drone.Position(), rp.Plan.Cells[reentry])
	if !ok {
		return false, ErrNoDetour
	}

	rp.splice(detour[1:], rp.Plan.Cells[reentry+1:])
	return true, nil
}

// EmergencyReturn replaces the unflown part of the plan with the shortest path home
func (rp *Replanner) EmergencyReturn() error {
	home, ok := rp.Finder.FindPath(rp.Grid, rp.Drone.Position(), rp.Drone.Home())
	if !ok {
		return ErrStranded
	}
	rp.splice(home[1:], nil)
	return nil
}

func (rp *Replanner) splice(detour, tail []world.Cell) {
	cells := make([]world.Cell, 0, rp.Plan.Next+len(detour)+len(tail))
	cells = append(cells, rp.Plan.Cells[:rp.Plan.Next]...)
	cells = append(cells, detour...)
	cells = append(cells, tail...)
	rp.Plan.Cells = cells
}
