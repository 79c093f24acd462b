package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidDrone = errors.New("invalid drone parameters")

// Drone tracks one agent's position, battery and traversal history
type Drone struct {
	home       Cell
	position   Cell
	battery    int
	capacity   int
	movingCost int
	history    []Cell
	visited    map[Cell]bool
}

// NewDrone creates a fully charged drone at home
func NewDrone(home Cell, capacity, movingCost int) (*Drone, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must be non-negative, got %d", ErrInvalidDrone, capacity)
	}
	if movingCost < 1 {
		return nil, fmt.Errorf("%w: moving cost must be at least 1, got %d", ErrInvalidDrone, movingCost)
	}

	d := &Drone{
		home:       home,
		capacity:   capacity,
		movingCost: movingCost,
	}
	d.Reset()
	return d, nil
}

// Move commits a step to next. It fails only when the battery cannot pay the moving cost.
func (d *Drone) Move(next Cell) bool {
	if d.battery < d.movingCost {
		return false
	}

	d.position = next
	d.battery -= d.movingCost
	d.history = append(d.history, next)
	d.visited[next] = true
	return true
}

// CanMove reports whether another step can be paid for
func (d *Drone) CanMove() bool {
	return d.battery >= d.movingCost
}

// Reset returns the drone home with a full battery and clears its history
func (d *Drone) Reset() {
	d.position = d.home
	d.battery = d.capacity
	d.history = []Cell{d.home}
	d.visited = map[Cell]bool{d.home: true}
}

func (d *Drone) Home() Cell { return d.home }
func (d *Drone) Position() Cell { return d.position }
func (d *Drone) Battery() int { return d.battery }
func (d *Drone) Capacity() int { return d.capacity }
func (d *Drone) MovingCost() int { return d.movingCost }
func (d *Drone) VisitedCount() int { return len(d.visited) }

// HasVisited reports whether c is in the visited set
func (d *Drone) HasVisited(c Cell) bool {
	return d.visited[c]
}

// VisitedCells returns the visited set in row-major order
func (d *Drone) VisitedCells() []Cell {
	cells := make([]Cell, 0, len(d.visited))
	for c := range d.visited {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	return cells
}

// PathHistory returns a copy of every position occupied, starting at home
func (d *Drone) PathHistory() []Cell {
	return append([]Cell(nil), d.history...)
}

// Steps returns the number of moves taken
func (d *Drone) Steps() int {
	return len(d.history) - 1
}

// BatteryPercent returns the remaining charge as a percentage of capacity
func (d *Drone) BatteryPercent() float64 {
	if d.capacity == 0 {
		return 0
	}
	return float64(d.battery) / float64(d.capacity) * 100
}

// Status returns a snapshot for reporting
func (d *Drone) Status() Status {
	return Status{
		Position:       d.position,
		Battery:        d.battery,
		BatteryPercent: d.BatteryPercent(),
		Coverage:       len(d.visited),
		PathLength:     d.Steps(),
	}
}

// Clone returns an independent copy, used for dry-run planning
func (d *Drone) Clone() *Drone {
	visited := make(map[Cell]bool, len(d.visited))
	for c := range d.visited {
		visited[c] = true
	}
	return &Drone{
		home:       d.home,
		position:   d.position,
		battery:    d.battery,
		capacity:   d.capacity,
		movingCost: d.movingCost,
		history:    append([]Cell(nil), d.history...),
		visited:    visited,
	}
}

type droneJSON struct {
	Home        Cell   `json:"home"`
	Position    Cell   `json:"position"`
	Battery     int    `json:"battery"`
	Capacity    int    `json:"capacity"`
	MovingCost  int    `json:"moving_cost"`
	PathHistory []Cell `json:"path_history"`
	Visited     []Cell `json:"visited"`
}

// MarshalJSON encodes the drone with its visited set as a sorted list
func (d *Drone) MarshalJSON() ([]byte, error) {
	return json.Marshal(droneJSON{
		Home:        d.home,
		Position:    d.position,
		Battery:     d.battery,
		Capacity:    d.capacity,
		MovingCost:  d.movingCost,
		PathHistory: d.history,
		Visited:     d.VisitedCells(),
	})
}

// UnmarshalJSON restores a drone written by MarshalJSON
func (d *Drone) UnmarshalJSON(data []byte) error {
	var raw droneJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.MovingCost < 1 {
		return fmt.Errorf("%w: moving cost must be at least 1, got %d", ErrInvalidDrone, raw.MovingCost)
	}
	if raw.Battery < 0 || raw.Battery > raw.Capacity {
		return fmt.Errorf("%w: battery %d outside [0,%d]", ErrInvalidDrone, raw.Battery, raw.Capacity)
	}

	history := raw.PathHistory
	if len(history) == 0 {
		history = []Cell{raw.Home}
	}
	visited := map[Cell]bool{raw.Home: true}
	for _, c := range raw.Visited {
		visited[c] = true
	}
	for _, c := range history {
		visited[c] = true
	}

	*d = Drone{
		home:       raw.Home,
		position:   raw.Position,
		battery:    raw.Battery,
		capacity:   raw.Capacity,
		movingCost: raw.MovingCost,
		history:    history,
		visited:    visited,
	}
	return nil
}
