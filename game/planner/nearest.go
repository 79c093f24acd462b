package planner

import (
	"sort"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

// NearestCandidates caps how many cells NearestUnvisited searches
const NearestCandidates = 10

// CellSet is an unordered set of cells
type CellSet map[world.Cell]struct{}

// NewCellSet builds a set from cells
func NewCellSet(cells ...world.Cell) CellSet {
	s := make(CellSet, len(cells))
	for _, c := range cells {
		s[c] = struct{}{}
	}
	return s
}

func (s CellSet) Add(c world.Cell) { s[c] = struct{}{} }
func (s CellSet) Remove(c world.Cell) { delete(s, c) }

func (s CellSet) Contains(c world.Cell) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in row-major order
func (s CellSet) Sorted() []world.Cell {
	cells := make([]world.Cell, 0, len(s))
	for c := range s {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
	return cells
}

// NearestUnvisited picks the reachable cell with the shortest path among the
// NearestCandidates cells closest to from by Manhattan distance.
// Equal distances are ranked row-major; equal path lengths keep the earlier rank.
func (pf *PathFinder) NearestUnvisited(grid Grid, from world.Cell, unvisited CellSet) (world.Cell, []world.Cell, bool) {
	if len(unvisited) == 0 {
		return world.Cell{}, nil, false
	}

	ranked := unvisited.Sorted()
	sort.SliceStable(ranked, func(i, j int) bool {
		return world.Manhattan(from, ranked[i]) < world.Manhattan(from, ranked[j])
	})
	if len(ranked) > NearestCandidates {
		ranked = ranked[:NearestCandidates]
	}

	var (
		target   world.Cell
		bestPath []world.Cell
	)
	for _, cell := range ranked {
		path, ok := pf.FindPath(grid, from, cell)
		if !ok {
			continue
		}
		if bestPath == nil || len(path) < len(bestPath) {
			target = cell
			bestPath = path
		}
	}

	if bestPath == nil {
		return world.Cell{}, nil, false
	}
	return target, bestPath, true
}
