package metrics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

func cells(pairs ...int) []world.Cell {
	out := make([]world.Cell, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, world.Cell{Row: pairs[i], Col: pairs[i+1]})
	}
	return out
}

func mustGrid(t *testing.T, rows ...string) *world.Grid {
	t.Helper()
	g, err := world.ParseLayout(rows)
	require.NoError(t, err)
	return g
}

// lShape goes right twice then down twice
var lShape = cells(0, 0, 0, 1, 0, 2, 1, 2, 2, 2)

func TestTurns(t *testing.T) {
	tests := []struct {
		name string
		path []world.Cell
		want int
	}{
		{"empty", nil, 0},
		{"single move", cells(0, 0, 0, 1), 0},
		{"straight line", cells(0, 0, 0, 1, 0, 2, 0, 3), 0},
		{"l shape", lShape, 1},
		{"staircase", cells(0, 0, 0, 1, 1, 1, 1, 2, 2, 2), 3},
		{"u turn", cells(0, 0, 0, 1, 0, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Turns(tt.path))
		})
	}
}

func TestEnergy(t *testing.T) {
	e := Energy(lShape)

	assert.Equal(t, 3, e.StraightMoves)
	assert.Equal(t, 1, e.TurnMoves)
	assert.Equal(t, 3, e.StraightEnergy)
	assert.Equal(t, 3, e.TurnEnergy)
	assert.Equal(t, 2, e.TurnPenaltyCost)
	assert.Equal(t, 6, e.TotalEnergy)
	assert.InDelta(t, 75.0, e.Efficiency, 1e-9)
	assert.Equal(t, len(lShape)-1, e.StraightMoves+e.TurnMoves)
}

func TestEnergy_ShortPaths(t *testing.T) {
	assert.Equal(t, EnergyBreakdown{}, Energy(nil))
	assert.Equal(t, EnergyBreakdown{}, Energy(cells(2, 2)))

	e := Energy(cells(0, 0, 1, 0))
	assert.Equal(t, 1, e.StraightMoves)
	assert.Equal(t, 0, e.TurnMoves)
	assert.Equal(t, 1, e.TotalEnergy)
	assert.InDelta(t, 100.0, e.Efficiency, 1e-9)
}

func TestSafetyScore(t *testing.T) {
	g := mustGrid(t,
		"FFF",
		"FOF",
		"FFN",
	)

	assert.Equal(t, 100, SafetyScore(g, nil))
	assert.Equal(t, 100, SafetyScore(g, cells(0, 0, 0, 1, 0, 2)))
	assert.Equal(t, 75, SafetyScore(g, cells(0, 0, 0, 1, 1, 1, 2, 1)))
	assert.Equal(t, 66, SafetyScore(g, cells(0, 1, 0, 2, 2, 2)))
	assert.Equal(t, 0, SafetyScore(g, cells(-1, 0, 1, 1)))
}

func TestBufferViolations(t *testing.T) {
	g := mustGrid(t,
		"FFFFF",
		"FOFFF",
		"FFFFF",
		"FFFFF",
		"FFFFN",
	)

	// Every cell touching (1,1) counts once; (1,1) itself is a collision, not a near miss
	assert.Equal(t, 3, BufferViolations(g, cells(0, 0, 0, 1, 0, 2)))
	assert.Equal(t, 2, BufferViolations(g, cells(0, 2, 1, 1, 2, 2)))
	assert.Equal(t, 0, BufferViolations(g, cells(0, 3, 0, 4, 1, 4, 2, 4)))
	assert.Equal(t, 1, BufferViolations(g, cells(3, 2, 3, 3)))
}

func TestRandomBaseline(t *testing.T) {
	g := mustGrid(t,
		"FFFFF",
		"FOFFF",
		"FFFNF",
		"FFFFF",
		"FFFFF",
	)
	home := world.Cell{Row: 0, Col: 0}

	_, err := RandomBaseline(g, home, 20, nil)
	assert.ErrorIs(t, err, ErrNilRand)

	a, err := RandomBaseline(g, home, 20, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	b, err := RandomBaseline(g, home, 20, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	assert.Equal(t, a, b, "same seed, same walk")
	assert.Equal(t, 20, a.PathLength)
	assert.Equal(t, 20, a.BatteryUsed)
	assert.Len(t, a.Path, 21)
	assert.LessOrEqual(t, a.Coverage, 21)
	assert.GreaterOrEqual(t, a.Coverage, 2)
	assert.Equal(t, Turns(a.Path), a.Turns)
	for i := 1; i < len(a.Path); i++ {
		assert.True(t, world.Adjacent(a.Path[i-1], a.Path[i]))
		assert.True(t, g.IsValid(a.Path[i]))
	}
}

func TestRandomBaseline_BoxedIn(t *testing.T) {
	g := mustGrid(t,
		"FOF",
		"OFF",
		"FFF",
	)

	b, err := RandomBaseline(g, world.Cell{Row: 0, Col: 0}, 10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, b.PathLength)
	assert.Equal(t, 1, b.Coverage)
	assert.Equal(t, 0, b.BatteryUsed)
}

func TestCompare(t *testing.T) {
	g := mustGrid(t,
		"FFF",
		"FOF",
		"FFF",
	)
	drone, err := world.NewDrone(world.Cell{Row: 0, Col: 0}, 10, 1)
	require.NoError(t, err)
	for _, c := range lShape[1:] {
		require.True(t, drone.Move(c))
	}

	baseline := Baseline{PathLength: 8, Coverage: 4, Turns: 4, BatteryUsed: 8}
	r := Compare(g, drone, drone.PathHistory(), baseline)

	assert.Equal(t, 4, r.PathLength)
	assert.Equal(t, 5, r.Coverage)
	assert.InDelta(t, 62.5, r.CoveragePercent, 1e-9)
	assert.Equal(t, 1, r.Turns)
	assert.Equal(t, 100, r.SafetyScore)
	assert.Equal(t, 5, r.BufferViolations)
	assert.InDelta(t, 25.0, r.CoverageImprovement, 1e-9)
	assert.InDelta(t, 75.0, r.TurnReduction, 1e-9)
	assert.InDelta(t, -50.0, r.PathLengthChange, 1e-9)
	assert.Equal(t, baseline, r.Baseline)
}

func TestCompare_EmptyBaseline(t *testing.T) {
	g := mustGrid(t, "FFF", "FFF", "FFF")
	drone, err := world.NewDrone(world.Cell{Row: 1, Col: 1}, 5, 1)
	require.NoError(t, err)

	r := Compare(g, drone, drone.PathHistory(), Baseline{})
	assert.Equal(t, 0, r.PathLength)
	assert.Zero(t, r.CoverageImprovement)
	assert.Zero(t, r.TurnReduction)
	assert.Zero(t, r.PathLengthChange)
}
