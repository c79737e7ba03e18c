package raster

// Rule maps an input cell value to an output value. Returning false marks
// the cell as nodata.
type Rule func(z float64) (float64, bool)

// DefaultSlopeThreshold is the slope, in degrees, above which terrain is too
// steep.
const DefaultSlopeThreshold = 11.3

// SteepSlope keeps cells with slope strictly above threshold.
func SteepSlope(threshold float64) Rule {
	return func(z float64) (float64, bool) {
		if z <= threshold {
			return 0, false
		}
		return 1, true
	}
}

// NorthWestAspect keeps cells facing strictly more than 315 degrees. A cell at
// exactly 315 is excluded.
func NorthWestAspect() Rule {
	return func(z float64) (float64, bool) {
		if z <= 315 {
			return 0, false
		}
		return 1, true
	}
}

// NorthEastAspect keeps cells facing at least 1 and less than 45 degrees.
// Bearings in [0, 1) are excluded along with everything from 45 up.
func NorthEastAspect() Rule {
	return func(z float64) (float64, bool) {
		if z >= 45 {
			return 0, false
		}
		if z < 1 {
			return 0, false
		}
		return 1, true
	}
}

// Reclassify applies rule to every data cell. Nodata cells, and cells the
// rule rejects, become DefaultNoData in the result.
func (g *Grid) Reclassify(rule Rule) *Grid {
	out := NewGrid(g.Cols, g.Rows, g.GeoTransform, DefaultNoData)
	out.Projection = g.Projection
	for i, z := range g.Data {
		if g.IsNoData(z) {
			continue
		}
		if v, ok := rule(z); ok {
			out.Data[i] = v
		}
	}
	return out
}
