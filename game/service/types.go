package service

import (
	"time"

	"github.com/wricardo/drone-coverage-planner/game/engine"
	"github.com/wricardo/drone-coverage-planner/game/metrics"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

// Event types reported by mission operations
const (
	EventPlan            = "plan"
	EventStep            = "step"
	EventReplan          = "replan"
	EventReplanFailed    = "replan_failed"
	EventCellChanged     = "cell_changed"
	EventComplete        = "complete"
	EventDepleted        = "depleted"
	EventEmergencyReturn = "emergency_return"
	EventReturned        = "returned"
	EventStranded        = "stranded"
	EventReset           = "reset"
)

// SessionInfo provides information about a mission session
type SessionInfo struct {
	ID             string                `json:"id"`
	ConfigName     string                `json:"config_name"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	MissionState   *engine.MissionState  `json:"mission_state"`
	MissionConfig  *engine.MissionConfig `json:"mission_config"`
}

// MissionEvent represents something that happened during a mission
type MissionEvent struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Position  *world.Cell `json:"position,omitempty"`
}

// PlanResult contains the result of committing a plan
type PlanResult struct {
	Summary      *engine.PlanSummary  `json:"summary"`
	Plan         []world.Cell         `json:"plan"`
	MissionState *engine.MissionState `json:"mission_state"`
	Events       []MissionEvent       `json:"events"`
}

// StepOutcome contains the result of a single step
type StepOutcome struct {
	Success      bool                 `json:"success"`
	Step         *engine.StepResult   `json:"step,omitempty"`
	MissionState *engine.MissionState `json:"mission_state"`
	Message      string               `json:"message"`
	Error        string               `json:"error,omitempty"`
	Events       []MissionEvent       `json:"events,omitempty"`
	LocalView3x3 []string             `json:"local_view_3x3,omitempty"`
	BatteryRisk  string               `json:"battery_risk,omitempty"`
}

// RunOutcome contains the result of a bulk run
type RunOutcome struct {
	// Summary
	StepsExecuted  int                  `json:"steps_executed"`
	RequestedSteps int                  `json:"requested_steps"`
	Success        bool                 `json:"success"`
	MissionState   *engine.MissionState `json:"mission_state"`
	Events         []MissionEvent       `json:"events"`
	StopReasonCode string               `json:"stop_reason_code,omitempty"` // complete|depleted|returned|stranded|blocked|max_steps|error
	StoppedReason  string               `json:"stopped_reason,omitempty"`
	Truncated      bool                 `json:"truncated,omitempty"`
	Limit          int                  `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos      world.Cell `json:"start_pos"`
	EndPos        world.Cell `json:"end_pos"`
	StartBattery  int        `json:"start_battery"`
	EndBattery    int        `json:"end_battery"`
	CoverageDelta float64    `json:"coverage_delta"`
	Replans       int        `json:"replans"`

	// Per-step trace for this call only
	Steps []engine.StepResult `json:"steps,omitempty"`

	// Final status aids
	MissionOver   bool     `json:"mission_over"`
	Message       string   `json:"message,omitempty"`
	RemainingPlan int      `json:"remaining_plan"`
	LocalView3x3  []string `json:"local_view_3x3,omitempty"`
	BatteryRisk   string   `json:"battery_risk,omitempty"`
}

// CellOutcome contains the result of an obstacle toggle or cell overwrite
type CellOutcome struct {
	Success      bool                 `json:"success"`
	Change       *engine.CellChange   `json:"change"`
	MissionState *engine.MissionState `json:"mission_state"`
	Error        string               `json:"error,omitempty"`
	Events       []MissionEvent       `json:"events,omitempty"`
}

// ReturnOutcome contains the result of an emergency return
type ReturnOutcome struct {
	Success      bool                 `json:"success"`
	StepsHome    int                  `json:"steps_home"`
	MissionState *engine.MissionState `json:"mission_state"`
	Error        string               `json:"error,omitempty"`
	Events       []MissionEvent       `json:"events"`
}

// HistoryOptions configures step history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated step history
type HistoryResponse struct {
	Steps       []engine.StepEntry `json:"steps"`
	TotalSteps  int                `json:"total_steps"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
	TotalPages  int                `json:"total_pages"`
	HasNext     bool               `json:"has_next"`
	HasPrevious bool               `json:"has_previous"`
}

// MetricsOptions configures path analytics. A zero Seed picks a time-based one.
type MetricsOptions struct {
	Seed int64 `json:"seed"`
}

// MetricsReport is the analytics of the path flown so far
type MetricsReport struct {
	metrics.Report
	Seed          int64 `json:"seed"`
	PlannedLength int   `json:"planned_length"`
}

// ConfigInfo provides information about a scenario configuration
type ConfigInfo struct {
	Filename        string          `json:"filename"`
	ConfigID        string          `json:"config_id"` // The identifier to use for session creation
	Name            string          `json:"name"`      // Display name
	Description     string          `json:"description"`
	GridSize        int             `json:"grid_size"`
	BatteryCapacity int             `json:"battery_capacity"`
	Strategy        engine.Strategy `json:"strategy,omitempty"`
}
