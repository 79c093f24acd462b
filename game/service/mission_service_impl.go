package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/drone-coverage-planner/game/airspace"
	"github.com/wricardo/drone-coverage-planner/game/engine"
	"github.com/wricardo/drone-coverage-planner/game/metrics"
	"github.com/wricardo/drone-coverage-planner/game/planner"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

// missionServiceImpl implements the MissionService interface
type missionServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewMissionService creates a new mission service instance
func NewMissionService(sessions SessionManager, configs ConfigManager) MissionService {
	return &missionServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *missionServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

func (s *missionServiceImpl) info(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		MissionState:   sess.Engine.Snapshot(),
		MissionConfig:  sess.Config,
	}
}

// session looks up a session and marks it accessed
func (s *missionServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func (s *missionServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after %s: %v", sessionID, after, err)
	}
}

// CreateSession creates a new mission session
func (s *missionServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.MissionConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if strings.Contains(err.Error(), "configuration not found") {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v", configName, configIDs)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations", configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.info(sess, configName), nil
}

// GetSession retrieves session information
func (s *missionServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// session() touches the access time, so readers take the write lock too
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess, ""), nil
}

// ListSessions returns all active sessions
func (s *missionServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, ""))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *missionServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Plan commits a coverage plan for a session, optionally resetting the mission first
func (s *missionServiceImpl) Plan(ctx context.Context, sessionID string, strategy engine.Strategy, reset bool) (*PlanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	events := []MissionEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, newEvent(EventReset, "Mission reset to initial state", nil))
	}

	summary, err := sess.Engine.PlanMission(strategy)
	if err != nil {
		return nil, err
	}

	pos := sess.Engine.GetPosition()
	events = append(events, newEvent(EventPlan,
		fmt.Sprintf("Planned %d steps with %s (%s), estimated coverage %.1f%%",
			summary.Length, summary.Strategy, summary.Stop, summary.EstimatedCoverage),
		&pos))

	s.persist(sessionID, "plan")

	return &PlanResult{
		Summary:      summary,
		Plan:         sess.Engine.RemainingPlan(),
		MissionState: sess.Engine.Snapshot(),
		Events:       events,
	}, nil
}

// Step flies the next cell of the session's plan
func (s *missionServiceImpl) Step(ctx context.Context, sessionID string) (*StepOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Engine.Step()
	state := sess.Engine.Snapshot()
	if err != nil {
		if !errors.Is(err, planner.ErrReplanFailed) {
			return nil, err
		}
		// The plan is blocked; the grid and state are still valid to report
		pos := state.Drone.Position()
		s.persist(sessionID, "step")
		return &StepOutcome{
			MissionState: state,
			Message:      state.Message,
			Error:        err.Error(),
			Events:       []MissionEvent{newEvent(EventReplanFailed, err.Error(), &pos)},
			LocalView3x3: buildLocal3x3(state),
			BatteryRisk:  riskCode(state.BatteryRisk),
		}, nil
	}

	s.persist(sessionID, "step")

	return &StepOutcome{
		Success:      res.Success,
		Step:         res,
		MissionState: state,
		Message:      res.Message,
		Events:       stepEvents(res),
		LocalView3x3: buildLocal3x3(state),
		BatteryRisk:  riskCode(state.BatteryRisk),
	}, nil
}

// Run flies up to maxSteps cells of the session's plan
func (s *missionServiceImpl) Run(ctx context.Context, sessionID string, maxSteps int) (*RunOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	result := &RunOutcome{
		RequestedSteps: maxSteps,
		Events:         make([]MissionEvent, 0),
		StartPos:       state.Drone.Position(),
		StartBattery:   state.Drone.Battery(),
	}
	startCoverage := state.CoveragePercent
	startReplans := state.Replans

	// Limit steps to prevent abuse
	limit := maxSteps
	if limit <= 0 || limit > engine.MaxBulkSteps {
		if limit > engine.MaxBulkSteps {
			result.Truncated = true
			result.Limit = engine.MaxBulkSteps
		}
		limit = engine.MaxBulkSteps
	}

	run := sess.Engine.Run(limit)
	result.Steps = run.Steps
	result.StepsExecuted = run.Executed
	for i := range run.Steps {
		result.Events = append(result.Events, stepEvents(&run.Steps[i])...)
	}

	state = sess.Engine.Snapshot()
	result.Success = run.StopErr == ""
	switch {
	case run.StopErr != "" && run.Phase == engine.PhaseBlocked:
		result.StopReasonCode = "blocked"
		result.StoppedReason = run.StopErr
		pos := state.Drone.Position()
		result.Events = append(result.Events, newEvent(EventReplanFailed, run.StopErr, &pos))
	case run.StopErr != "":
		result.StopReasonCode = "error"
		result.StoppedReason = run.StopErr
	case run.Phase == engine.PhaseCompleted:
		result.StopReasonCode = "complete"
	case run.Phase == engine.PhaseDepleted:
		result.StopReasonCode = "depleted"
	case run.Phase == engine.PhaseReturned:
		result.StopReasonCode = "returned"
	case run.Phase == engine.PhaseStranded:
		result.StopReasonCode = "stranded"
	case len(run.Steps) == limit:
		result.StopReasonCode = "max_steps"
	}

	// Finalize snapshots
	result.MissionState = state
	result.EndPos = state.Drone.Position()
	result.EndBattery = state.Drone.Battery()
	result.CoverageDelta = state.CoveragePercent - startCoverage
	result.Replans = state.Replans - startReplans
	result.MissionOver = state.Phase.Over()
	result.Message = state.Message
	result.RemainingPlan = len(sess.Engine.RemainingPlan())
	result.LocalView3x3 = buildLocal3x3(state)
	result.BatteryRisk = riskCode(state.BatteryRisk)

	s.persist(sessionID, "run")

	return result, nil
}

// ToggleObstacle flips a cell between free and obstacle
func (s *missionServiceImpl) ToggleObstacle(ctx context.Context, sessionID string, cell world.Cell) (*CellOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	change, err := sess.Engine.ToggleObstacle(cell)
	return s.cellOutcome(sess, change, err)
}

// SetCell overwrites the kind of a cell
func (s *missionServiceImpl) SetCell(ctx context.Context, sessionID string, cell world.Cell, kind world.CellKind) (*CellOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	change, err := sess.Engine.SetCell(cell, kind)
	return s.cellOutcome(sess, change, err)
}

// cellOutcome reports a grid change. A failed replan is part of the outcome
// since the grid change itself went through.
func (s *missionServiceImpl) cellOutcome(sess *Session, change *engine.CellChange, err error) (*CellOutcome, error) {
	if change == nil {
		return nil, err
	}

	out := &CellOutcome{
		Success:      err == nil && change.Changed,
		Change:       change,
		MissionState: sess.Engine.Snapshot(),
		Events:       []MissionEvent{},
	}
	c := change.Cell
	if change.Changed {
		out.Events = append(out.Events, newEvent(EventCellChanged, change.Message, &c))
	}
	if change.Replanned {
		out.Events = append(out.Events, newEvent(EventReplan, fmt.Sprintf("Route repaired around %v", c), &c))
	}
	if err != nil {
		out.Error = err.Error()
		out.Events = append(out.Events, newEvent(EventReplanFailed, err.Error(), &c))
	}

	s.persist(sess.ID, "cell change")
	return out, nil
}

// EmergencyReturn replaces the rest of the plan with the shortest path home
func (s *missionServiceImpl) EmergencyReturn(ctx context.Context, sessionID string) (*ReturnOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	err = sess.Engine.EmergencyReturn()
	if errors.Is(err, engine.ErrMissionOver) {
		return nil, err
	}

	state := sess.Engine.Snapshot()
	pos := state.Drone.Position()
	out := &ReturnOutcome{MissionState: state, Events: []MissionEvent{}}
	switch {
	case err != nil:
		out.Error = err.Error()
		out.Events = append(out.Events, newEvent(EventStranded, state.Message, &pos))
	case state.Phase == engine.PhaseReturned:
		out.Success = true
		out.Events = append(out.Events, newEvent(EventReturned, state.Message, &pos))
	default:
		out.Success = true
		out.StepsHome = len(sess.Engine.RemainingPlan())
		out.Events = append(out.Events, newEvent(EventEmergencyReturn, state.Message, &pos))
	}

	s.persist(sessionID, "emergency return")
	return out, nil
}

// Reset resets a mission session to its initial state
func (s *missionServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.MissionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.Engine.Reset()
	s.persist(sessionID, "reset")
	return sess.Engine.Snapshot(), nil
}

// GetMissionState retrieves the current mission state
func (s *missionServiceImpl) GetMissionState(ctx context.Context, sessionID string) (*engine.MissionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Snapshot(), nil
}

// GetStepHistory returns paginated step history
func (s *missionServiceImpl) GetStepHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetStepHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var steps []engine.StepEntry
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			steps = append(steps, history[i])
		}
	} else if start < total {
		steps = history[start:end]
	}

	// Ensure steps is not nil
	if steps == nil {
		steps = []engine.StepEntry{}
	}

	return &HistoryResponse{
		Steps:       steps,
		TotalSteps:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// GetMetrics scores the path flown so far against a random-walk baseline
func (s *missionServiceImpl) GetMetrics(ctx context.Context, sessionID string, opts MetricsOptions) (*MetricsReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	state := sess.Engine.GetState()
	baseline, err := metrics.RandomBaseline(state.Grid, state.Drone.Home(), state.Drone.Capacity(), rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}

	return &MetricsReport{
		Report:        metrics.Compare(state.Grid, state.Drone, state.Drone.PathHistory(), baseline),
		Seed:          seed,
		PlannedLength: len(sess.Engine.RemainingPlan()),
	}, nil
}

// GetGeoJSON exports the grid's blocked cells and the flown path as GeoJSON
func (s *missionServiceImpl) GetGeoJSON(ctx context.Context, sessionID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.GetState()
	return airspace.MissionGeoJSON(state.Grid, state.Drone.PathHistory(), state.Drone.Home())
}

// ListConfigs returns available scenario configurations
func (s *missionServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific scenario configuration
func (s *missionServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.MissionConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a scenario configuration to disk
func (s *missionServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.MissionConfig) error {
	return s.configs.SaveConfig(configName, config)
}

func newEvent(kind, message string, pos *world.Cell) MissionEvent {
	return MissionEvent{
		Type:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Position:  pos,
	}
}

// stepEvents generates events from a step
func stepEvents(res *engine.StepResult) []MissionEvent {
	events := []MissionEvent{}
	to := res.To

	if res.Replanned {
		events = append(events, newEvent(EventReplan, "Detour spliced into the plan", &to))
	}
	if res.Success {
		events = append(events, newEvent(EventStep,
			fmt.Sprintf("Flew %v -> %v, battery %d", res.From, res.To, res.Battery), &to))
	}

	switch res.Phase {
	case engine.PhaseCompleted:
		events = append(events, newEvent(EventComplete, res.Message, &to))
	case engine.PhaseDepleted:
		events = append(events, newEvent(EventDepleted, res.Message, &to))
	case engine.PhaseReturned:
		events = append(events, newEvent(EventReturned, res.Message, &to))
	}
	return events
}

// buildLocal3x3 renders the drone's neighbourhood with D for the drone and # off the grid
func buildLocal3x3(state *engine.MissionState) []string {
	if state == nil {
		return nil
	}
	pos := state.Drone.Position()
	lines := make([]string, 0, 3)
	for dr := -1; dr <= 1; dr++ {
		var row strings.Builder
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				row.WriteByte('D')
				continue
			}
			kind := state.Grid.Classify(world.Cell{Row: pos.Row + dr, Col: pos.Col + dc})
			if kind == world.OutOfBounds {
				row.WriteByte('#')
				continue
			}
			row.WriteByte(kind.Char())
		}
		lines = append(lines, row.String())
	}
	return lines
}

func riskCode(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "critical"):
		return "CRITICAL"
	case strings.Contains(t, "danger"):
		return "DANGER"
	case strings.Contains(t, "caution"):
		return "CAUTION"
	case strings.Contains(t, "low"):
		return "LOW"
	case strings.Contains(t, "warning"):
		return "WARNING"
	case strings.Contains(t, "safe"):
		return "SAFE"
	default:
		return "UNKNOWN"
	}
}
