package airspace

import (
	"errors"
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

var ErrInvalidZone = errors.New("invalid no-fly zone")

// Zone is a restricted polygon in grid coordinates: x is the column, y the row.
type Zone struct {
	Name    string
	Polygon orb.Polygon
	bbox    rtreego.Rect
}

// Bounds implements rtreego.Spatial
func (z *Zone) Bounds() rtreego.Rect {
	return z.bbox
}

// NewZone validates polygon and computes its bounding box
func NewZone(name string, polygon orb.Polygon) (*Zone, error) {
	if len(polygon) == 0 || len(polygon[0]) < 3 {
		return nil, fmt.Errorf("%w: %q needs an outer ring of at least 3 points", ErrInvalidZone, name)
	}

	if outer := polygon[0]; !outer.Closed() {
		closed := make(orb.Ring, len(outer), len(outer)+1)
		copy(closed, outer)
		polygon = append(orb.Polygon{append(closed, outer[0])}, polygon[1:]...)
	}

	b := polygon.Bound()
	bbox, err := rtreego.NewRect(
		rtreego.Point{b.Min[0], b.Min[1]},
		[]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is degenerate: %v", ErrInvalidZone, name, err)
	}

	return &Zone{Name: name, Polygon: polygon, bbox: bbox}, nil
}

// FromRings builds zones from outer rings given as [x, y] pairs
func FromRings(rings [][][2]float64) ([]*Zone, error) {
	zones := make([]*Zone, 0, len(rings))
	for i, ring := range rings {
		r := make(orb.Ring, 0, len(ring)+1)
		for _, p := range ring {
			r = append(r, orb.Point{p[0], p[1]})
		}
		z, err := NewZone(fmt.Sprintf("zone_%d", i), orb.Polygon{r})
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// ParseGeoJSON reads Polygon and MultiPolygon features from a FeatureCollection.
// Other geometry types are ignored.
func ParseGeoJSON(data []byte) ([]*Zone, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	var zones []*Zone
	for i, f := range fc.Features {
		name := f.Properties.MustString("name", fmt.Sprintf("feature_%d", i))

		var polygons []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, g)
		case orb.MultiPolygon:
			polygons = append(polygons, g...)
		default:
			continue
		}

		for j, p := range polygons {
			zoneName := name
			if len(polygons) > 1 {
				zoneName = fmt.Sprintf("%s_%d", name, j)
			}
			z, err := NewZone(zoneName, p)
			if err != nil {
				return nil, err
			}
			zones = append(zones, z)
		}
	}
	return zones, nil
}

// Index answers point-in-zone queries through an R-tree over zone bounding boxes
type Index struct {
	tree  *rtreego.Rtree
	zones []*Zone
}

// NewIndex indexes zones
func NewIndex(zones []*Zone) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	for _, z := range zones {
		tree.Insert(z)
	}
	return &Index{tree: tree, zones: zones}
}

// Len returns the number of indexed zones
func (ix *Index) Len() int {
	return len(ix.zones)
}

// Contains returns the first zone whose polygon holds p
func (ix *Index) Contains(p orb.Point) (*Zone, bool) {
	query := rtreego.Point{p[0], p[1]}.ToRect(0.01)
	for _, item := range ix.tree.SearchIntersect(query) {
		z := item.(*Zone)
		if planar.PolygonContains(z.Polygon, p) {
			return z, true
		}
	}
	return nil, false
}

// CellCentre maps a cell to its centre point in zone coordinates
func CellCentre(c world.Cell) orb.Point {
	return orb.Point{float64(c.Col) + 0.5, float64(c.Row) + 0.5}
}

// Rasterize marks every free cell whose centre lies in a zone as no-fly and
// returns how many cells changed. Cells in keep are left untouched.
func Rasterize(grid *world.Grid, ix *Index, keep ...world.Cell) int {
	if ix == nil || ix.Len() == 0 {
		return 0
	}

	skip := make(map[world.Cell]bool, len(keep))
	for _, c := range keep {
		skip[c] = true
	}

	marked := 0
	for _, c := range grid.FreeCells() {
		if skip[c] {
			continue
		}
		if _, ok := ix.Contains(CellCentre(c)); ok && grid.SetCell(c, world.NoFly) {
			marked++
		}
	}
	return marked
}
