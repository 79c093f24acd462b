package engine

import (
	"github.com/wricardo/drone-coverage-planner/game/planner"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

// Strategy selects the coverage planner
type Strategy string

const (
	StrategyAdaptive Strategy = "adaptive"
	StrategyGreedy   Strategy = "greedy"
	StrategyZigzag   Strategy = "zigzag"

	// Validation constants
	MinGridSize         = 3
	MaxGridSize         = 100
	MinBattery          = 1
	MaxBattery          = 100000
	MaxBulkSteps        = 500
	DefaultBattery      = 200
	DefaultGridSize     = 20
	WebSocketBufferSize = 256
)

// Valid reports whether s names a known strategy
func (s Strategy) Valid() bool {
	switch s {
	case StrategyAdaptive, StrategyGreedy, StrategyZigzag:
		return true
	}
	return false
}

// Phase is where a mission is in its lifecycle
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePlanned   Phase = "planned"
	PhaseFlying    Phase = "flying"
	PhaseReturning Phase = "returning"
	PhaseBlocked   Phase = "blocked"
	PhaseCompleted Phase = "completed"
	PhaseReturned  Phase = "returned"
	PhaseDepleted  Phase = "depleted"
	PhaseStranded  Phase = "stranded"
)

// Over reports whether the drone can no longer act
func (p Phase) Over() bool {
	return p == PhaseDepleted || p == PhaseStranded || p == PhaseReturned
}

// GeneratorConfig describes a seeded random grid
type GeneratorConfig struct {
	ObstacleProb float64 `json:"obstacle_prob" yaml:"obstacle_prob"`
	NoFlyProb    float64 `json:"no_fly_prob" yaml:"no_fly_prob"`
	Seed         int64   `json:"seed" yaml:"seed"`
}

// MissionMessages are the texts shown as the mission progresses
type MissionMessages struct {
	Welcome      string `json:"welcome" yaml:"welcome"`
	Planned      string `json:"planned" yaml:"planned"`
	Complete     string `json:"complete" yaml:"complete"`
	Depleted     string `json:"depleted" yaml:"depleted"`
	Replanned    string `json:"replanned" yaml:"replanned"`
	ReplanFailed string `json:"replan_failed" yaml:"replan_failed"`
	Returning    string `json:"returning" yaml:"returning"`
	ReturnedHome string `json:"returned_home" yaml:"returned_home"`
	Stranded     string `json:"stranded" yaml:"stranded"`
}

// MissionConfig represents a mission scenario loaded from JSON or YAML
type MissionConfig struct {
	Name                string           `json:"name" yaml:"name"`
	Description         string           `json:"description" yaml:"description"`
	GridSize            int              `json:"grid_size" yaml:"grid_size"`
	Layout              []string         `json:"layout,omitempty" yaml:"layout,omitempty"`
	Generator           *GeneratorConfig `json:"generator,omitempty" yaml:"generator,omitempty"`
	Home                *world.Cell      `json:"home,omitempty" yaml:"home,omitempty"`
	EndPoint            *world.Cell      `json:"end_point,omitempty" yaml:"end_point,omitempty"`
	BatteryCapacity     int              `json:"battery_capacity" yaml:"battery_capacity"`
	MovingCost          int              `json:"moving_cost,omitempty" yaml:"moving_cost,omitempty"`
	Strategy            Strategy         `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Reserve             *float64         `json:"reserve,omitempty" yaml:"reserve,omitempty"`
	LookAhead           int              `json:"look_ahead,omitempty" yaml:"look_ahead,omitempty"`
	MaxSearchExpansions int              `json:"max_search_expansions,omitempty" yaml:"max_search_expansions,omitempty"`
	NoFlyZones          [][][2]float64   `json:"no_fly_zones,omitempty" yaml:"no_fly_zones,omitempty"`
	Messages            MissionMessages  `json:"messages" yaml:"messages"`
}

// SurroundingCell is one of the 8 cells around the drone
type SurroundingCell struct {
	Row  int            `json:"row"`
	Col  int            `json:"col"`
	Kind world.CellKind `json:"kind"`
}

// MissionState represents the complete mission state
type MissionState struct {
	Grid       *world.Grid        `json:"grid"`
	Drone      *world.Drone       `json:"drone"`
	Plan       *planner.Plan      `json:"plan,omitempty"`
	Strategy   Strategy           `json:"strategy"`
	EndPoint   *world.Cell        `json:"end_point,omitempty"`
	PlanStop   planner.StopReason `json:"plan_stop,omitempty"`
	Phase      Phase              `json:"phase"`
	Message    string             `json:"message"`
	LastError  string             `json:"last_error,omitempty"`
	Replans    int                `json:"replans"`
	ConfigName string             `json:"config_name"`

	StepHistory []StepEntry `json:"step_history"`
	TotalSteps  int         `json:"total_steps"`

	// CurrentSteps tracks only the steps since the last reset. It mirrors StepHistory entries
	// but gets cleared on reset while StepHistory remains cumulative.
	CurrentSteps      []StepEntry `json:"current_steps"`
	CurrentStepsCount int         `json:"current_steps_count"`

	// Computed views, refreshed after every change
	Status          world.Status      `json:"status"`
	CoveragePercent float64           `json:"coverage_percent"`
	FreeCells       int               `json:"free_cells"`
	LocalView       []SurroundingCell `json:"local_view,omitempty"`
	BatteryRisk     string            `json:"battery_risk,omitempty"`
}

// Clone returns a deep copy of the state, safe to read while the original keeps changing
func (ms *MissionState) Clone() *MissionState {
	c := *ms
	c.Grid = ms.Grid.Clone()
	c.Drone = ms.Drone.Clone()
	if ms.Plan != nil {
		c.Plan = ms.Plan.Clone()
	}
	if ms.EndPoint != nil {
		end := *ms.EndPoint
		c.EndPoint = &end
	}
	c.StepHistory = append([]StepEntry(nil), ms.StepHistory...)
	c.CurrentSteps = append([]StepEntry(nil), ms.CurrentSteps...)
	c.LocalView = append([]SurroundingCell(nil), ms.LocalView...)
	return &c
}

// StepEntry represents a single executed or refused step
type StepEntry struct {
	Action     string     `json:"action"`
	From       world.Cell `json:"from"`
	To         world.Cell `json:"to"`
	Battery    int        `json:"battery"`
	Timestamp  int64      `json:"timestamp"`
	Success    bool       `json:"success"`
	StepNumber int        `json:"step_number"`
}

// PlanSummary describes a freshly committed plan
type PlanSummary struct {
	Strategy          Strategy           `json:"strategy"`
	Length            int                `json:"length"`
	Waypoints         int                `json:"waypoints,omitempty"`
	Stop              planner.StopReason `json:"stop_reason"`
	ProjectedBattery  int                `json:"projected_battery"`
	EstimatedCoverage float64            `json:"estimated_coverage"`
}

// StepResult is the outcome of one Step
type StepResult struct {
	Success   bool       `json:"success"`
	From      world.Cell `json:"from"`
	To        world.Cell `json:"to"`
	Battery   int        `json:"battery"`
	Replanned bool       `json:"replanned,omitempty"`
	Phase     Phase      `json:"phase"`
	Message   string     `json:"message"`
}

// RunResult is the outcome of Run
type RunResult struct {
	Steps    []StepResult `json:"steps"`
	Executed int          `json:"executed"`
	Phase    Phase        `json:"phase"`
	StopErr  string       `json:"stop_error,omitempty"`
}

// CellChange is the outcome of ToggleObstacle or SetCell
type CellChange struct {
	Cell      world.Cell     `json:"cell"`
	Kind      world.CellKind `json:"kind"`
	Changed   bool           `json:"changed"`
	OnPlan    bool           `json:"on_plan"`
	Replanned bool           `json:"replanned"`
	Message   string         `json:"message"`
}
