package planner

import (
	"container/heap"
	"errors"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

var (
	ErrInvalidEndpoint = errors.New("start or goal is not a free cell")
	ErrUnreachable     = errors.New("goal is unreachable from start")
	ErrSearchBudget    = errors.New("search expansion budget exceeded")
)

// Grid is the read-only view of the map the planner searches
type Grid interface {
	Size() int
	IsValid(c world.Cell) bool
	Neighbors(c world.Cell) []world.Cell
}

// PathFinder runs A* over a 4-connected unit-cost grid.
// MaxExpansions bounds the number of nodes popped per search; zero means unbounded.
type PathFinder struct {
	MaxExpansions int
}

// NewPathFinder creates a PathFinder with the given expansion budget
func NewPathFinder(maxExpansions int) *PathFinder {
	if maxExpansions < 0 {
		maxExpansions = 0
	}
	return &PathFinder{MaxExpansions: maxExpansions}
}

// searchNode is an arena entry; parent indexes the arena, -1 for the root.
type searchNode struct {
	cell   world.Cell
	g      int
	h      int
	f      int
	parent int
	seq    int
}

// frontier is a min-heap of arena indices ordered by f, then insertion order
type frontier struct {
	arena []searchNode
	items []int
}

func (q *frontier) Len() int { return len(q.items) }

func (q *frontier) Less(i, j int) bool {
	a, b := &q.arena[q.items[i]], &q.arena[q.items[j]]
	if a.f != b.f {
		return a.f < b.f
	}
	return a.seq < b.seq
}

func (q *frontier) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *frontier) Push(x interface{}) { q.items = append(q.items, x.(int)) }

func (q *frontier) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// Search returns a minimum step-count path from start to goal, both inclusive.
// Among equal f-scores the earliest enqueued node is expanded first.
func (pf *PathFinder) Search(grid Grid, start, goal world.Cell) ([]world.Cell, error) {
	if !grid.IsValid(start) || !grid.IsValid(goal) {
		return nil, ErrInvalidEndpoint
	}

	q := &frontier{}
	push := func(cell world.Cell, g, parent int) {
		h := world.Manhattan(cell, goal)
		q.arena = append(q.arena, searchNode{
			cell:   cell,
			g:      g,
			h:      h,
			f:      g + h,
			parent: parent,
			seq:    len(q.arena),
		})
		heap.Push(q, len(q.arena)-1)
	}

	best := map[world.Cell]int{start: 0}
	closed := make(map[world.Cell]bool)
	push(start, 0, -1)

	expanded := 0
	for q.Len() > 0 {
		idx := heap.Pop(q).(int)
		current := q.arena[idx]

		if closed[current.cell] {
			continue
		}
		if current.cell == goal {
			return reconstruct(q.arena, idx), nil
		}
		closed[current.cell] = true

		expanded++
		if pf.MaxExpansions > 0 && expanded > pf.MaxExpansions {
			return nil, ErrSearchBudget
		}

		for _, next := range grid.Neighbors(current.cell) {
			if closed[next] {
				continue
			}
			g := current.g + 1
			if prev, seen := best[next]; seen && g >= prev {
				continue
			}
			best[next] = g
			push(next, g, idx)
		}
	}

	return nil, ErrUnreachable
}

// FindPath is Search for callers that treat every failure alike
func (pf *PathFinder) FindPath(grid Grid, start, goal world.Cell) ([]world.Cell, bool) {
	path, err := pf.Search(grid, start, goal)
	if err != nil {
		return nil, false
	}
	return path, true
}

func reconstruct(arena []searchNode, idx int) []world.Cell {
	var path []world.Cell
	for i := idx; i >= 0; i = arena[i].parent {
		path = append(path, arena[i].cell)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}
