package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDrone(t *testing.T) {
	d, err := NewDrone(Cell{1, 2}, 50, 1)
	require.NoError(t, err)

	assert.Equal(t, Cell{1, 2}, d.Home())
	assert.Equal(t, Cell{1, 2}, d.Position())
	assert.Equal(t, 50, d.Battery())
	assert.Equal(t, []Cell{{1, 2}}, d.PathHistory())
	assert.True(t, d.HasVisited(Cell{1, 2}))
	assert.Equal(t, 1, d.VisitedCount())
	assert.Equal(t, 0, d.Steps())

	_, err = NewDrone(Cell{}, -1, 1)
	assert.ErrorIs(t, err, ErrInvalidDrone)
	_, err = NewDrone(Cell{}, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidDrone)
}

func TestDroneMove(t *testing.T) {
	d, err := NewDrone(Cell{0, 0}, 3, 1)
	require.NoError(t, err)

	path := []Cell{{0, 1}, {0, 2}, {1, 2}}
	for _, c := range path {
		require.True(t, d.Move(c))
	}
	assert.Equal(t, 0, d.Battery())
	assert.False(t, d.CanMove())
	assert.False(t, d.Move(Cell{2, 2}), "battery exhausted")
	assert.Equal(t, Cell{1, 2}, d.Position())

	assert.Equal(t, 3, d.Steps())
	assert.Equal(t, d.Capacity()-d.Battery(), d.Steps())
	assert.Equal(t, []Cell{{0, 0}, {0, 1}, {0, 2}, {1, 2}}, d.PathHistory())
	assert.Equal(t, 4, d.VisitedCount())
}

func TestDroneMovingCost(t *testing.T) {
	d, err := NewDrone(Cell{0, 0}, 5, 2)
	require.NoError(t, err)

	assert.True(t, d.Move(Cell{0, 1}))
	assert.True(t, d.Move(Cell{0, 0}))
	assert.Equal(t, 1, d.Battery())
	assert.False(t, d.Move(Cell{1, 0}))
	assert.Equal(t, (d.Capacity()-d.Battery())/d.MovingCost(), d.Steps())
	assert.Equal(t, 2, d.VisitedCount(), "revisits do not grow the visited set")
}

func TestDroneReset(t *testing.T) {
	d, err := NewDrone(Cell{0, 0}, 10, 1)
	require.NoError(t, err)
	d.Move(Cell{0, 1})
	d.Move(Cell{1, 1})

	d.Reset()
	assert.Equal(t, Cell{0, 0}, d.Position())
	assert.Equal(t, 10, d.Battery())
	assert.Equal(t, []Cell{{0, 0}}, d.PathHistory())
	assert.False(t, d.HasVisited(Cell{0, 1}))
}

func TestDroneStatus(t *testing.T) {
	d, err := NewDrone(Cell{0, 0}, 4, 1)
	require.NoError(t, err)
	d.Move(Cell{1, 0})

	assert.Equal(t, Status{
		Position:       Cell{1, 0},
		Battery:        3,
		BatteryPercent: 75,
		Coverage:       2,
		PathLength:     1,
	}, d.Status())

	empty, err := NewDrone(Cell{0, 0}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(0), empty.BatteryPercent())
	assert.False(t, empty.CanMove())
}

func TestDroneCloneIsIndependent(t *testing.T) {
	d, err := NewDrone(Cell{0, 0}, 10, 1)
	require.NoError(t, err)
	c := d.Clone()
	c.Move(Cell{0, 1})

	assert.Equal(t, Cell{0, 0}, d.Position())
	assert.Equal(t, 10, d.Battery())
	assert.False(t, d.HasVisited(Cell{0, 1}))
	assert.Len(t, d.PathHistory(), 1)
	assert.Equal(t, 9, c.Battery())
}

func TestDroneJSON(t *testing.T) {
	d, err := NewDrone(Cell{0, 0}, 10, 1)
	require.NoError(t, err)
	d.Move(Cell{0, 1})
	d.Move(Cell{1, 1})
	d.Move(Cell{1, 0})

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var back Drone
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d.Position(), back.Position())
	assert.Equal(t, d.Battery(), back.Battery())
	assert.Equal(t, d.PathHistory(), back.PathHistory())
	assert.Equal(t, []Cell{{0, 0}, {0, 1}, {1, 0}, {1, 1}}, back.VisitedCells())

	err = json.Unmarshal([]byte(`{"home":{"row":0,"col":0},"battery":20,"capacity":10,"moving_cost":1}`), &back)
	assert.ErrorIs(t, err, ErrInvalidDrone)
}
