package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/wricardo/drone-coverage-planner/game/planner"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

var (
	ErrNoPlan            = errors.New("no mission plan; plan a mission first")
	ErrMissionOver       = errors.New("mission is over")
	ErrUnknownStrategy   = errors.New("unknown strategy")
	ErrOccupiedCell      = errors.New("cell is occupied by the drone")
	ErrOutOfBounds       = errors.New("cell is out of bounds")
	ErrDiscontinuousPlan = errors.New("next plan cell is not adjacent to the drone")
)

// Engine provides the main interface for mission operations
type Engine interface {
	// Mission state management
	GetState() *MissionState
	Snapshot() *MissionState
	SetState(state *MissionState) error
	Reset() *MissionState
	IsMissionOver() bool
	GetBattery() int
	GetPosition() world.Cell
	Coverage() float64

	// Planning and flight
	PlanMission(strategy Strategy) (*PlanSummary, error)
	Step() (*StepResult, error)
	Run(maxSteps int) *RunResult
	RemainingPlan() []world.Cell

	// Environment changes
	ToggleObstacle(c world.Cell) (*CellChange, error)
	SetCell(c world.Cell, kind world.CellKind) (*CellChange, error)
	EmergencyReturn() error

	// Configuration
	GetConfig() *MissionConfig
	SetConfig(config *MissionConfig) error

	// History
	GetStepHistory() []StepEntry
	GetLastStep() *StepEntry

	// Local view
	GetLocalView() []SurroundingCell
}

// MissionEngine implements the Engine interface
type MissionEngine struct {
	state    *MissionState
	config   *MissionConfig
	finder   *planner.PathFinder
	coverage *planner.Coverage
}

// NewEngine creates a new mission engine with the provided configuration
func NewEngine(config *MissionConfig) (*MissionEngine, error) {
	if err := ValidateMissionConfig(config); err != nil {
		return nil, err
	}

	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		return nil, err
	}

	e := &MissionEngine{config: config, state: state}
	e.initPlanner()
	e.refresh()
	return e, nil
}

// NewEngineWithDefaults creates a new mission engine with the built-in configuration
func NewEngineWithDefaults() *MissionEngine {
	e, err := NewEngine(DefaultMissionConfig())
	if err != nil {
		// the built-in config is always valid
		panic(err)
	}
	return e
}

func (e *MissionEngine) initPlanner() {
	e.finder = planner.NewPathFinder(e.config.MaxSearchExpansions)
	e.coverage = planner.NewCoverage(e.finder)
}

// GetState returns the current mission state
func (e *MissionEngine) GetState() *MissionState {
	return e.state
}

// Snapshot returns a deep copy of the current mission state
func (e *MissionEngine) Snapshot() *MissionState {
	return e.state.Clone()
}

// SetState sets the mission state (used for persistence loading)
func (e *MissionEngine) SetState(state *MissionState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid == nil || state.Drone == nil {
		return fmt.Errorf("state must include grid and drone")
	}
	if state.Plan != nil && (state.Plan.Next < 0 || state.Plan.Next > len(state.Plan.Cells)) {
		return fmt.Errorf("plan cursor %d outside [0,%d]", state.Plan.Next, len(state.Plan.Cells))
	}
	e.state = state
	e.refresh()
	return nil
}

// Reset resets the mission to its initial state
func (e *MissionEngine) Reset() *MissionState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.StepHistory
	prevTotal := e.state.TotalSteps

	state, err := InitMissionStateFromConfig(e.config)
	if err != nil {
		log.Printf("Failed to reset mission %s: %v", e.config.Name, err)
		return e.state
	}
	e.state = state

	// Restore cumulative history and totals; clear only the current segment
	e.state.StepHistory = prevHistory
	e.state.TotalSteps = prevTotal
	e.state.CurrentSteps = []StepEntry{}
	e.state.CurrentStepsCount = 0

	e.refresh()
	return e.state
}

// IsMissionOver returns whether the drone can no longer act
func (e *MissionEngine) IsMissionOver() bool {
	return e.state.Phase.Over()
}

// GetBattery returns the current battery level
func (e *MissionEngine) GetBattery() int {
	return e.state.Drone.Battery()
}

// GetPosition returns the drone's current cell
func (e *MissionEngine) GetPosition() world.Cell {
	return e.state.Drone.Position()
}

// Coverage returns the percentage of free cells visited so far
func (e *MissionEngine) Coverage() float64 {
	return CoverageOf(e.state.Grid, e.state.Drone)
}

// RemainingPlan returns the cells still to fly
func (e *MissionEngine) RemainingPlan() []world.Cell {
	if e.state.Plan == nil {
		return nil
	}
	return append([]world.Cell(nil), e.state.Plan.Remaining()...)
}

// PlanMission runs strategy on a copy of the drone and commits the result as the plan.
// An empty strategy uses the mission's configured one.
func (e *MissionEngine) PlanMission(strategy Strategy) (*PlanSummary, error) {
	s := e.state
	if s.Phase.Over() {
		return nil, ErrMissionOver
	}
	if strategy == "" {
		strategy = s.Strategy
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	summary := &PlanSummary{Strategy: strategy}
	var path []world.Cell

	switch strategy {
	case StrategyAdaptive:
		res := e.coverage.PlanAdaptive(s.Grid, s.Drone.Clone(), planner.AdaptiveOptions{
			Reserve:  e.reserve(),
			EndPoint: s.EndPoint,
		})
		path, summary.Stop = res.Path, res.Stop
	case StrategyGreedy:
		res := e.coverage.PlanGreedy(s.Grid, s.Drone.Clone(), e.config.LookAhead)
		path, summary.Stop = res.Path, res.Stop
	case StrategyZigzag:
		waypoints := e.coverage.PlanZigzag(s.Grid)
		path = e.coverage.ExpandWaypoints(s.Grid, s.Drone.Position(), waypoints)
		summary.Waypoints = len(waypoints)
		summary.Stop = planner.StopComplete
	}

	summary.Length = len(path)
	summary.ProjectedBattery = s.Drone.Battery() - len(path)*s.Drone.MovingCost()
	summary.EstimatedCoverage = e.coverage.EstimateCoveragePercent(s.Grid, append(s.Drone.VisitedCells(), path...))

	s.Plan = planner.NewPlan(path)
	s.Strategy = strategy
	s.PlanStop = summary.Stop
	s.Phase = PhasePlanned
	s.LastError = ""
	s.Message = fmt.Sprintf("%s %d steps with %s (%s), estimated coverage %.1f%%",
		e.config.Messages.Planned, summary.Length, strategy, summary.Stop, summary.EstimatedCoverage)

	e.refresh()
	return summary, nil
}

// reserve maps an unset config reserve to the planner's default fraction
func (e *MissionEngine) reserve() float64 {
	if e.config.Reserve == nil {
		return -1
	}
	return *e.config.Reserve
}

func (e *MissionEngine) replanner() *planner.Replanner {
	return &planner.Replanner{
		Finder: e.finder,
		Grid:   e.state.Grid,
		Drone:  e.state.Drone,
		Plan:   e.state.Plan,
	}
}

// ToggleObstacle flips c between free and obstacle and repairs the plan if c was on it
func (e *MissionEngine) ToggleObstacle(c world.Cell) (*CellChange, error) {
	if err := e.checkMutable(c); err != nil {
		return nil, err
	}

	if !e.state.Grid.ToggleObstacle(c) {
		return &CellChange{
			Cell:    c,
			Kind:    e.state.Grid.Classify(c),
			Message: fmt.Sprintf("Cell %v is a no-fly cell and cannot be toggled", c),
		}, nil
	}
	return e.reconcile(c)
}

// SetCell overwrites the kind of c and repairs the plan if c became impassable on it
func (e *MissionEngine) SetCell(c world.Cell, kind world.CellKind) (*CellChange, error) {
	if err := e.checkMutable(c); err != nil {
		return nil, err
	}
	if _, err := world.ParseCellKind(string(kind)); err != nil {
		return nil, err
	}

	if !e.state.Grid.SetCell(c, kind) {
		return &CellChange{
			Cell:    c,
			Kind:    kind,
			Message: fmt.Sprintf("Cell %v is already %s", c, kind),
		}, nil
	}
	return e.reconcile(c)
}

func (e *MissionEngine) checkMutable(c world.Cell) error {
	if !e.state.Grid.InBounds(c) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, c)
	}
	if c == e.state.Drone.Position() {
		return fmt.Errorf("%w: %v", ErrOccupiedCell, c)
	}
	return nil
}

// reconcile brings the plan back in line with the grid after c changed
func (e *MissionEngine) reconcile(c world.Cell) (*CellChange, error) {
	s := e.state
	kind := s.Grid.Classify(c)
	change := &CellChange{Cell: c, Kind: kind, Changed: true}
	defer e.refresh()

	if kind.Passable() || s.Plan == nil {
		change.Message = fmt.Sprintf("Cell %v is now %s", c, kind)
		return change, nil
	}

	for _, p := range s.Plan.Remaining() {
		if p == c {
			change.OnPlan = true
			break
		}
	}
	if !change.OnPlan {
		change.Message = fmt.Sprintf("Cell %v is now %s; the route is unaffected", c, kind)
		return change, nil
	}

	replanned, err := e.replanner().HandleObstacle(c)
	if err != nil {
		e.markBlocked(err)
		change.Message = s.Message
		return change, fmt.Errorf("replan around %v: %w", c, err)
	}

	change.Replanned = replanned
	s.Replans++
	s.LastError = ""
	if s.Phase == PhaseBlocked {
		s.Phase = PhaseFlying
	}
	s.Message = e.config.Messages.Replanned
	change.Message = s.Message
	return change, nil
}

func (e *MissionEngine) markBlocked(err error) {
	e.state.Phase = PhaseBlocked
	e.state.LastError = err.Error()
	e.state.Message = fmt.Sprintf("%s (%v)", e.config.Messages.ReplanFailed, err)
}

// EmergencyReturn replaces the rest of the plan with the shortest path home
func (e *MissionEngine) EmergencyReturn() error {
	s := e.state
	if s.Phase.Over() {
		return ErrMissionOver
	}
	if s.Plan == nil {
		s.Plan = planner.NewPlan(nil)
	}
	defer e.refresh()

	if err := e.replanner().EmergencyReturn(); err != nil {
		s.Phase = PhaseStranded
		s.LastError = err.Error()
		s.Message = e.config.Messages.Stranded
		return err
	}

	s.LastError = ""
	if s.Plan.Done() {
		s.Phase = PhaseReturned
		s.Message = e.config.Messages.ReturnedHome
		return nil
	}
	s.Phase = PhaseReturning
	s.Message = fmt.Sprintf("%s %d steps to go.", e.config.Messages.Returning, len(s.Plan.Remaining()))
	return nil
}

// GetConfig returns the current mission configuration
func (e *MissionEngine) GetConfig() *MissionConfig {
	return e.config
}

// SetConfig sets a new mission configuration and resets the mission
func (e *MissionEngine) SetConfig(config *MissionConfig) error {
	if err := ValidateMissionConfig(config); err != nil {
		return err
	}

	state, err := InitMissionStateFromConfig(config)
	if err != nil {
		return err
	}
	e.config = config
	e.state = state
	e.initPlanner()
	e.refresh()
	return nil
}

// GetStepHistory returns the complete step history
func (e *MissionEngine) GetStepHistory() []StepEntry {
	return e.state.StepHistory
}

// GetLastStep returns the last step taken, or nil if no steps
func (e *MissionEngine) GetLastStep() *StepEntry {
	if len(e.state.StepHistory) == 0 {
		return nil
	}
	return &e.state.StepHistory[len(e.state.StepHistory)-1]
}

// GetLocalView returns the 8 cells around the drone
func (e *MissionEngine) GetLocalView() []SurroundingCell {
	return e.state.GenerateLocalView()
}

// refresh recomputes the derived views on the state
func (e *MissionEngine) refresh() {
	s := e.state
	s.Status = s.Drone.Status()
	s.FreeCells = s.Grid.Stats().Free
	s.CoveragePercent = CoverageOf(s.Grid, s.Drone)
	s.LocalView = s.GenerateLocalView()
	s.BatteryRisk = AnalyzeBatteryRisk(s, e.finder)
}
