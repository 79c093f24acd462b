package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/wricardo/drone-coverage-planner/game/planner"
	"github.com/wricardo/drone-coverage-planner/game/world"
)

func TestStrategyValid(t *testing.T) {
	tests := []struct {
		strategy Strategy
		expected bool
	}{
		{StrategyAdaptive, true},
		{StrategyGreedy, true},
		{StrategyZigzag, true},
		{"", false},
		{"spiral", false},
	}

	for _, test := range tests {
		if test.strategy.Valid() != test.expected {
			t.Errorf("Strategy %q: expected Valid() %v", test.strategy, test.expected)
		}
	}
}

func TestPhaseOver(t *testing.T) {
	over := map[Phase]bool{
		PhaseIdle:      false,
		PhasePlanned:   false,
		PhaseFlying:    false,
		PhaseReturning: false,
		PhaseBlocked:   false,
		PhaseCompleted: false,
		PhaseReturned:  true,
		PhaseDepleted:  true,
		PhaseStranded:  true,
	}

	for phase, expected := range over {
		if phase.Over() != expected {
			t.Errorf("Phase %s: expected Over() %v", phase, expected)
		}
	}
}

func TestValidationConstants(t *testing.T) {
	tests := []struct {
		name     string
		actual   int
		expected int
	}{
		{"MinGridSize", MinGridSize, 3},
		{"MaxGridSize", MaxGridSize, 100},
		{"MinBattery", MinBattery, 1},
		{"MaxBattery", MaxBattery, 100000},
		{"MaxBulkSteps", MaxBulkSteps, 500},
		{"DefaultBattery", DefaultBattery, 200},
		{"DefaultGridSize", DefaultGridSize, 20},
		{"WebSocketBufferSize", WebSocketBufferSize, 256},
	}

	for _, test := range tests {
		if test.actual != test.expected {
			t.Errorf("%s: expected %d, got %d", test.name, test.expected, test.actual)
		}
	}
}

func TestStepEntryJSONMarshaling(t *testing.T) {
	entry := StepEntry{
		Action:     "fly",
		From:       world.Cell{Row: 5, Col: 7},
		To:         world.Cell{Row: 5, Col: 8},
		Battery:    18,
		Timestamp:  time.Now().Unix(),
		Success:    true,
		StepNumber: 1,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Failed to marshal step entry: %v", err)
	}

	var unmarshaled StepEntry
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal step entry: %v", err)
	}
	if unmarshaled != entry {
		t.Errorf("Expected %+v, got %+v", entry, unmarshaled)
	}
}

func TestMissionStateJSONMarshaling(t *testing.T) {
	engine := newTestEngine(t, createTestConfig())
	if _, err := engine.PlanMission(StrategyZigzag); err != nil {
		t.Fatalf("Failed to plan mission: %v", err)
	}
	engine.Run(4)
	state := engine.GetState()

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Failed to marshal mission state: %v", err)
	}

	var unmarshaled MissionState
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal mission state: %v", err)
	}

	if unmarshaled.Drone.Position() != state.Drone.Position() {
		t.Errorf("Position: expected %v, got %v", state.Drone.Position(), unmarshaled.Drone.Position())
	}
	if unmarshaled.Drone.Battery() != state.Drone.Battery() {
		t.Errorf("Battery: expected %d, got %d", state.Drone.Battery(), unmarshaled.Drone.Battery())
	}
	if unmarshaled.Drone.VisitedCount() != state.Drone.VisitedCount() {
		t.Errorf("Visited: expected %d, got %d", state.Drone.VisitedCount(), unmarshaled.Drone.VisitedCount())
	}
	if unmarshaled.Plan == nil || unmarshaled.Plan.Next != state.Plan.Next || len(unmarshaled.Plan.Cells) != len(state.Plan.Cells) {
		t.Errorf("Plan: expected %+v, got %+v", state.Plan, unmarshaled.Plan)
	}
	if unmarshaled.Phase != PhaseFlying {
		t.Errorf("Phase: expected flying, got %s", unmarshaled.Phase)
	}
	if unmarshaled.PlanStop != planner.StopComplete {
		t.Errorf("PlanStop: expected complete, got %s", unmarshaled.PlanStop)
	}
	if len(unmarshaled.StepHistory) != 4 || unmarshaled.TotalSteps != 4 {
		t.Errorf("History: expected 4 steps, got %d/%d", len(unmarshaled.StepHistory), unmarshaled.TotalSteps)
	}

	layout, restored := state.Grid.Layout(), unmarshaled.Grid.Layout()
	for i := range layout {
		if layout[i] != restored[i] {
			t.Errorf("Grid row %d: expected %q, got %q", i, layout[i], restored[i])
		}
	}
}
