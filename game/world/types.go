package world

import "fmt"

// CellKind classifies a grid cell
type CellKind string

const (
	Free     CellKind = "free"
	Obstacle CellKind = "obstacle"
	NoFly    CellKind = "no_fly"

	// OutOfBounds is returned by Classify for coordinates outside the grid.
	OutOfBounds CellKind = "out_of_bounds"
)

// Layout characters
const (
	CharFree     = 'F'
	CharFreeAlt  = '.'
	CharObstacle = 'O'
	CharBlocked  = 'X'
	CharNoFly    = 'N'
	CharHome     = 'H'
	CharEnd      = 'E'
)

// Passable reports whether the kind can be flown through
func (k CellKind) Passable() bool {
	return k == Free
}

// Char returns the layout character for the kind
func (k CellKind) Char() byte {
	switch k {
	case Obstacle:
		return CharObstacle
	case NoFly:
		return CharNoFly
	case Free:
		return CharFree
	default:
		return '?'
	}
}

// ParseCellKind maps a name to a CellKind
func ParseCellKind(name string) (CellKind, error) {
	switch CellKind(name) {
	case Free, Obstacle, NoFly:
		return CellKind(name), nil
	}
	return "", fmt.Errorf("unknown cell kind %q", name)
}

// Cell is a (row, col) grid coordinate
type Cell struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Less orders cells row-major
func (c Cell) Less(o Cell) bool {
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// Manhattan returns |Δrow| + |Δcol|
func Manhattan(a, b Cell) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

// Adjacent reports whether a and b are 4-connected neighbours
func Adjacent(a, b Cell) bool {
	return Manhattan(a, b) == 1
}

// Stats summarises a grid's contents
type Stats struct {
	Total       int     `json:"total"`
	Free        int     `json:"free"`
	Obstacles   int     `json:"obstacles"`
	NoFly       int     `json:"no_fly"`
	FreePercent float64 `json:"free_percent"`
}

// Status is a fixed-shape snapshot of a drone
type Status struct {
	Position       Cell    `json:"position"`
	Battery        int     `json:"battery"`
	BatteryPercent float64 `json:"battery_percent"`
	Coverage       int     `json:"coverage"`
	PathLength     int     `json:"path_length"`
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
