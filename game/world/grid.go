package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrInvalidSize   = errors.New("grid size must be positive")
	ErrInvalidLayout = errors.New("invalid layout")
)

// neighbourOffsets is the fixed north, south, west, east expansion order.
var neighbourOffsets = [4]Cell{
	{Row: -1, Col: 0},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
	{Row: 0, Col: 1},
}

// Grid is a square occupancy map
type Grid struct {
	size  int
	cells [][]CellKind
}

// NewGrid creates an all-free grid of the given side length
func NewGrid(size int) (*Grid, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	cells := make([][]CellKind, size)
	for r := range cells {
		cells[r] = make([]CellKind, size)
		for c := range cells[r] {
			cells[r][c] = Free
		}
	}

	return &Grid{size: size, cells: cells}, nil
}

// NewRandomGrid fills a grid cell by cell from rng: a draw below obstacleProb
// is an obstacle, a draw below obstacleProb+noFlyProb is a no-fly cell.
func NewRandomGrid(size int, obstacleProb, noFlyProb float64, rng *rand.Rand) (*Grid, error) {
	g, err := NewGrid(size)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random grid: nil random source")
	}

	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			v := rng.Float64()
			if v < obstacleProb {
				g.cells[r][c] = Obstacle
			} else if v < obstacleProb+noFlyProb {
				g.cells[r][c] = NoFly
			}
		}
	}

	return g, nil
}

// ParseLayout builds a grid from square text rows.
// F or . is free, O or X an obstacle, N no-fly; H and E mark free cells.
func ParseLayout(rows []string) (*Grid, error) {
	g, err := NewGrid(len(rows))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	for r, row := range rows {
		if len(row) != g.size {
			return nil, fmt.Errorf("%w: row %d has %d characters, expected %d", ErrInvalidLayout, r+1, len(row), g.size)
		}
		for c := 0; c < len(row); c++ {
			switch row[c] {
			case CharFree, CharFreeAlt, CharHome, CharEnd:
				g.cells[r][c] = Free
			case CharObstacle, CharBlocked:
				g.cells[r][c] = Obstacle
			case CharNoFly:
				g.cells[r][c] = NoFly
			default:
				return nil, fmt.Errorf("%w: invalid character '%c' at row %d, col %d", ErrInvalidLayout, row[c], r+1, c+1)
			}
		}
	}

	return g, nil
}

// FindMarker returns the first cell in row-major order holding marker
func FindMarker(rows []string, marker byte) (Cell, bool) {
	for r, row := range rows {
		for c := 0; c < len(row); c++ {
			if row[c] == marker {
				return Cell{Row: r, Col: c}, true
			}
		}
	}
	return Cell{}, false
}

// Size returns the side length
func (g *Grid) Size() int {
	return g.size
}

// InBounds reports whether c lies inside the grid
func (g *Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.size && c.Col >= 0 && c.Col < g.size
}

// IsValid reports whether c is inside the grid and free
func (g *Grid) IsValid(c Cell) bool {
	if !g.InBounds(c) {
		return false
	}
	return g.cells[c.Row][c.Col] == Free
}

// Neighbors returns the valid axis-adjacent cells of c in north, south, west, east order
func (g *Grid) Neighbors(c Cell) []Cell {
	result := make([]Cell, 0, 4)
	for _, d := range neighbourOffsets {
		n := Cell{Row: c.Row + d.Row, Col: c.Col + d.Col}
		if g.IsValid(n) {
			result = append(result, n)
		}
	}
	return result
}

// Classify returns the kind of c, or OutOfBounds
func (g *Grid) Classify(c Cell) CellKind {
	if !g.InBounds(c) {
		return OutOfBounds
	}
	return g.cells[c.Row][c.Col]
}

// SetCell overwrites the kind of c. Out-of-bounds requests are ignored.
// It reports whether the grid changed.
func (g *Grid) SetCell(c Cell, kind CellKind) bool {
	if !g.InBounds(c) {
		return false
	}
	if kind != Free && kind != Obstacle && kind != NoFly {
		return false
	}
	if g.cells[c.Row][c.Col] == kind {
		return false
	}
	g.cells[c.Row][c.Col] = kind
	return true
}

// ToggleObstacle flips Free and Obstacle. No-fly and out-of-bounds cells are left alone.
// It reports whether the grid changed.
func (g *Grid) ToggleObstacle(c Cell) bool {
	if !g.InBounds(c) {
		return false
	}
	switch g.cells[c.Row][c.Col] {
	case Free:
		g.cells[c.Row][c.Col] = Obstacle
		return true
	case Obstacle:
		g.cells[c.Row][c.Col] = Free
		return true
	}
	return false
}

// Stats counts cells by kind
func (g *Grid) Stats() Stats {
	s := Stats{Total: g.size * g.size}
	for _, row := range g.cells {
		for _, k := range row {
			switch k {
			case Free:
				s.Free++
			case Obstacle:
				s.Obstacles++
			case NoFly:
				s.NoFly++
			}
		}
	}
	if s.Total > 0 {
		s.FreePercent = float64(s.Free) / float64(s.Total) * 100
	}
	return s
}

// FreeCells lists every free cell in row-major order
func (g *Grid) FreeCells() []Cell {
	var result []Cell
	for r := 0; r < g.size; r++ {
		for c := 0; c < g.size; c++ {
			if g.cells[r][c] == Free {
				result = append(result, Cell{Row: r, Col: c})
			}
		}
	}
	return result
}

// Layout renders the grid as F/O/N rows
func (g *Grid) Layout() []string {
	rows := make([]string, g.size)
	buf := make([]byte, g.size)
	for r := 0; r < g.size; r++ {
		for c := 0; c < g.size; c++ {
			buf[c] = g.cells[r][c].Char()
		}
		rows[r] = string(buf)
	}
	return rows
}

// Clone returns a deep copy
func (g *Grid) Clone() *Grid {
	cells := make([][]CellKind, g.size)
	for r := range g.cells {
		cells[r] = append([]CellKind(nil), g.cells[r]...)
	}
	return &Grid{size: g.size, cells: cells}
}

type gridJSON struct {
	Size   int      `json:"size"`
	Layout []string `json:"layout"`
}

// MarshalJSON encodes the grid as its layout rows
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridJSON{Size: g.size, Layout: g.Layout()})
}

// UnmarshalJSON decodes a grid written by MarshalJSON
func (g *Grid) UnmarshalJSON(data []byte) error {
	var raw gridJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLayout(raw.Layout)
	if err != nil {
		return err
	}
	if raw.Size != 0 && raw.Size != parsed.size {
		return fmt.Errorf("%w: size %d does not match %d layout rows", ErrInvalidLayout, raw.Size, parsed.size)
	}
	*g = *parsed
	return nil
}
