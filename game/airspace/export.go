package airspace

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/wricardo/drone-coverage-planner/game/world"
)

// MissionGeoJSON renders blocked cells as points and the flown or planned path
// as a line string, for viewing in external map tools.
func MissionGeoJSON(grid *world.Grid, path []world.Cell, home world.Cell) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	n := grid.Size()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			cell := world.Cell{Row: r, Col: c}
			kind := grid.Classify(cell)
			if kind.Passable() {
				continue
			}
			f := geojson.NewFeature(CellCentre(cell))
			f.Properties["kind"] = string(kind)
			f.Properties["row"] = r
			f.Properties["col"] = c
			fc.Append(f)
		}
	}

	h := geojson.NewFeature(CellCentre(home))
	h.Properties["kind"] = "home"
	fc.Append(h)

	if len(path) > 0 {
		line := make(orb.LineString, 0, len(path))
		for _, c := range path {
			line = append(line, CellCentre(c))
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "path"
		f.Properties["steps"] = len(path) - 1
		fc.Append(f)
	}

	return fc.MarshalJSON()
}
