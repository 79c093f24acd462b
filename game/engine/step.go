package engine

import (
	"fmt"
	"time"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

// Step flies the next plan cell. A cell that has become impassable is
// detoured around first; a refused move ends the mission as depleted.
func (e *MissionEngine) Step() (*StepResult, error) {
	s := e.state
	if s.Phase.Over() {
		return nil, ErrMissionOver
	}
	if s.Plan == nil {
		return nil, ErrNoPlan
	}
	defer e.refresh()

	from := s.Drone.Position()
	next, ok := s.Plan.Peek()
	if !ok {
		e.finish()
		return e.result(false, from, from, false), nil
	}

	replanned := false
	if !s.Grid.IsValid(next) {
		if _, err := e.replanner().HandleObstacle(next); err != nil {
			e.markBlocked(err)
			return nil, fmt.Errorf("step: %w", err)
		}
		replanned = true
		s.Replans++
		s.LastError = ""

		next, ok = s.Plan.Peek()
		if !ok {
			e.finish()
			return e.result(false, from, from, true), nil
		}
	}

	if !world.Adjacent(from, next) {
		return nil, fmt.Errorf("%w: %v -> %v", ErrDiscontinuousPlan, from, next)
	}

	action := "fly"
	if s.Phase == PhaseReturning {
		action = "return"
	}

	if !s.Drone.Move(next) {
		s.AddStepToHistory(action, from, from, false)
		s.Phase = PhaseDepleted
		s.Message = e.config.Messages.Depleted
		return e.result(false, from, next, replanned), nil
	}

	s.Plan.Advance()
	s.AddStepToHistory(action, from, next, true)

	switch {
	case s.Plan.Done():
		e.finish()
	case !s.Drone.CanMove():
		s.Phase = PhaseDepleted
		s.Message = e.config.Messages.Depleted
	default:
		if s.Phase != PhaseReturning {
			s.Phase = PhaseFlying
		}
		s.Message = fmt.Sprintf("Battery: %d/%d, %d steps left", s.Drone.Battery(), s.Drone.Capacity(), len(s.Plan.Remaining()))
		if replanned {
			s.Message = e.config.Messages.Replanned + " " + s.Message
		}
	}

	return e.result(true, from, next, replanned), nil
}

// Run steps until the plan ends, the mission stops or maxSteps is reached.
// maxSteps is capped at MaxBulkSteps.
func (e *MissionEngine) Run(maxSteps int) *RunResult {
	if maxSteps <= 0 || maxSteps > MaxBulkSteps {
		maxSteps = MaxBulkSteps
	}

	result := &RunResult{Steps: make([]StepResult, 0, maxSteps)}
	for i := 0; i < maxSteps; i++ {
		res, err := e.Step()
		if err != nil {
			result.StopErr = err.Error()
			break
		}
		result.Steps = append(result.Steps, *res)
		if res.Success {
			result.Executed++
		}
		if !res.Success || res.Phase == PhaseCompleted || res.Phase.Over() {
			break
		}
	}
	result.Phase = e.state.Phase
	return result
}

// finish closes out a plan that has been flown to the end
func (e *MissionEngine) finish() {
	s := e.state
	if s.Phase == PhaseReturning || s.Phase == PhaseReturned {
		s.Phase = PhaseReturned
		s.Message = e.config.Messages.ReturnedHome
		return
	}
	s.Phase = PhaseCompleted
	s.Message = fmt.Sprintf("%s Coverage: %.1f%%", e.config.Messages.Complete, CoverageOf(s.Grid, s.Drone))
}

func (e *MissionEngine) result(success bool, from, to world.Cell, replanned bool) *StepResult {
	return &StepResult{
		Success:   success,
		From:      from,
		To:        to,
		Battery:   e.state.Drone.Battery(),
		Replanned: replanned,
		Phase:     e.state.Phase,
		Message:   e.state.Message,
	}
}

// GenerateLocalView lists the 8 cells around the drone, clockwise from north.
// Out-of-bounds neighbours are reported as such.
func (ms *MissionState) GenerateLocalView() []SurroundingCell {
	pos := ms.Drone.Position()

	directions := []struct{ dr, dc int }{
		{-1, 0},  // North
		{-1, 1},  // North-East
		{0, 1},   // East
		{1, 1},   // South-East
		{1, 0},   // South
		{1, -1},  // South-West
		{0, -1},  // West
		{-1, -1}, // North-West
	}

	surroundings := make([]SurroundingCell, len(directions))
	for i, dir := range directions {
		c := world.Cell{Row: pos.Row + dir.dr, Col: pos.Col + dir.dc}
		surroundings[i] = SurroundingCell{
			Row:  c.Row,
			Col:  c.Col,
			Kind: ms.Grid.Classify(c),
		}
	}

	return surroundings
}

// AddStepToHistory adds a step to the mission's step history
func (ms *MissionState) AddStepToHistory(action string, from, to world.Cell, success bool) {
	entry := StepEntry{
		Action:     action,
		From:       from,
		To:         to,
		Battery:    ms.Drone.Battery(),
		Timestamp:  time.Now().Unix(),
		Success:    success,
		StepNumber: ms.TotalSteps + 1,
	}
	// Append to cumulative history (never cleared by reset) and increment total
	ms.StepHistory = append(ms.StepHistory, entry)
	ms.TotalSteps++

	// Append to current segment history and increment its counter
	ms.CurrentSteps = append(ms.CurrentSteps, entry)
	ms.CurrentStepsCount++
}
