package raster

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/suitability-cli/internal/vector"
)

// Terrain holds the reclassified grids and their polygons.
type Terrain struct {
	Name    string
	Grid    *Grid
	Polygon *vector.Layer
}

// TerrainConstraints reclassifies slope and aspect grids into steep,
// north-west facing and north-east facing areas and polygonizes each.
// aspect may be nil to skip the aspect rules.
func TerrainConstraints(slope, aspect *Grid, threshold float64) ([]Terrain, error) {
	type job struct {
		name string
		src  *Grid
		rule Rule
	}
	jobs := []job{{"slope_reclass", slope, SteepSlope(threshold)}}
	if aspect != nil {
		jobs = append(jobs,
			job{"aspect_reclass_nw", aspect, NorthWestAspect()},
			job{"aspect_reclass_ne", aspect, NorthEastAspect()},
		)
	}

	out := make([]Terrain, 0, len(jobs))
	for _, j := range jobs {
		if j.src == nil {
			return nil, eris.Errorf("raster: %s: no input grid", j.name)
		}
		g := j.src.Reclassify(j.rule)
		poly, err := Polygonize(g, j.name)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: %s", j.name)
		}
		out = append(out, Terrain{Name: j.name, Grid: g, Polygon: poly})
	}
	return out, nil
}

// TerrainMask merges and dissolves the polygons of all terrain constraints
// into one mask tagged with crs. It returns vector.ErrEmptyGeometry when no
// cell matched any rule.
func TerrainMask(terrain []Terrain, crs vector.CRS) (*vector.Layer, error) {
	layers := make([]*vector.Layer, 0, len(terrain))
	for _, t := range terrain {
		if t.Polygon.Len() > 0 {
			layers = append(layers, t.Polygon)
		}
	}
	merged, err := vector.Merge(layers...)
	if err != nil {
		return nil, eris.Wrap(err, "raster: terrain mask")
	}
	mask, err := vector.Dissolve(merged, crs)
	if err != nil {
		return nil, eris.Wrap(err, "raster: terrain mask")
	}
	mask.Name = "steep_north_dissolved"
	return mask, nil
}
