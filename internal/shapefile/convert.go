package shapefile

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/vector"
)

// toGeom converts a go-shp shape to a go-geom geometry. Returns nil for null
// or unsupported shapes.
func toGeom(shape shp.Shape) geom.T {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})

	case *shp.MultiPoint:
		if len(s.Points) == 0 {
			return nil
		}
		flat := make([]float64, 0, len(s.Points)*2)
		for _, p := range s.Points {
			flat = append(flat, p.X, p.Y)
		}
		return geom.NewMultiPointFlat(geom.XY, flat)

	case *shp.PolyLine:
		return polyLineToGeom(s)

	case *shp.Polygon:
		return polygonToGeom(s)

	default:
		return nil
	}
}

// partFlats splits shapefile points into one flat coordinate slice per part.
func partFlats(numParts int32, parts []int32, points []shp.Point) [][]float64 {
	out := make([][]float64, 0, numParts)
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, points[j].X, points[j].Y)
		}
		out = append(out, flat)
	}
	return out
}

func polyLineToGeom(pl *shp.PolyLine) geom.T {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY)
	for i, flat := range partFlats(pl.NumParts, pl.Parts, pl.Points) {
		if len(flat) < 4 {
			zap.L().Debug("shapefile: skipping degenerate linestring part", zap.Int("part", i))
			continue
		}
		if err := mls.Push(geom.NewLineStringFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("shapefile: skipping malformed linestring part", zap.Int("part", i), zap.Error(err))
		}
	}

	switch mls.NumLineStrings() {
	case 0:
		return nil
	case 1:
		return mls.LineString(0)
	default:
		return mls
	}
}

// polygonToGeom assembles shapefile rings into polygons. Clockwise rings are
// shells and counter-clockwise rings are holes, attached to the shell that
// contains their first vertex.
func polygonToGeom(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var shells [][][]float64
	var holes [][]float64
	for i, flat := range partFlats(p.NumParts, p.Parts, p.Points) {
		if len(flat) < 8 {
			zap.L().Debug("shapefile: skipping degenerate polygon ring", zap.Int("part", i))
			continue
		}
		if xy.IsRingCounterClockwise(geom.XY, flat) {
			holes = append(holes, flat)
			continue
		}
		shells = append(shells, [][]float64{flat})
	}
	if len(shells) == 0 {
		// Some writers ignore ring orientation; treat every ring as a shell.
		for _, h := range holes {
			shells = append(shells, [][]float64{h})
		}
		holes = nil
	}

	for _, h := range holes {
		owner := len(shells) - 1
		first := geom.Coord{h[0], h[1]}
		for i, s := range shells {
			if xy.IsPointInRing(geom.XY, first, s[0]) {
				owner = i
				break
			}
		}
		shells[owner] = append(shells[owner], h)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, rings := range shells {
		var flat []float64
		ends := make([]int, 0, len(rings))
		for _, r := range rings {
			flat = append(flat, r...)
			ends = append(ends, len(flat))
		}
		if err := mp.Push(geom.NewPolygonFlat(geom.XY, flat, ends)); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
		}
	}

	switch mp.NumPolygons() {
	case 0:
		return nil
	case 1:
		return mp.Polygon(0)
	default:
		return mp
	}
}

// shapeTypeOf picks the shapefile type able to hold g.
func shapeTypeOf(g geom.T) (shp.ShapeType, error) {
	switch t := g.(type) {
	case *geom.Point:
		return shp.POINT, nil
	case *geom.MultiPoint:
		return shp.MULTIPOINT, nil
	case *geom.LineString, *geom.MultiLineString:
		return shp.POLYLINE, nil
	case *geom.Polygon, *geom.MultiPolygon:
		return shp.POLYGON, nil
	case *geom.GeometryCollection:
		if _, ok := collectionPolygons(t); ok {
			return shp.POLYGON, nil
		}
	}
	return shp.NULL, eris.Wrapf(vector.ErrMalformedGeometry, "shapefile: unsupported geometry %T", g)
}

// fromGeom converts a go-geom geometry into a go-shp shape of type st.
func fromGeom(g geom.T, st shp.ShapeType) (shp.Shape, error) {
	switch st {
	case shp.POINT:
		pt, ok := g.(*geom.Point)
		if !ok {
			break
		}
		return &shp.Point{X: pt.X(), Y: pt.Y()}, nil

	case shp.MULTIPOINT:
		mpt, ok := g.(*geom.MultiPoint)
		if !ok {
			break
		}
		pts := make([]shp.Point, 0, mpt.NumPoints())
		for i := 0; i < mpt.NumPoints(); i++ {
			c := mpt.Point(i).Coords()
			pts = append(pts, shp.Point{X: c[0], Y: c[1]})
		}
		return &shp.MultiPoint{Box: shp.BBoxFromPoints(pts), NumPoints: int32(len(pts)), Points: pts}, nil

	case shp.POLYLINE:
		var parts [][]shp.Point
		switch t := g.(type) {
		case *geom.LineString:
			parts = append(parts, toPoints(t.FlatCoords(), t.Stride()))
		case *geom.MultiLineString:
			for i := 0; i < t.NumLineStrings(); i++ {
				ls := t.LineString(i)
				parts = append(parts, toPoints(ls.FlatCoords(), ls.Stride()))
			}
		default:
			return nil, eris.Wrapf(vector.ErrMalformedGeometry, "shapefile: %T in a polyline layer", g)
		}
		return shp.NewPolyLine(parts), nil

	case shp.POLYGON:
		polys, ok := polygonsOf(g)
		if !ok {
			break
		}
		var parts [][]shp.Point
		for _, p := range polys {
			for r := 0; r < p.NumLinearRings(); r++ {
				ring := p.LinearRing(r)
				flat := ring.FlatCoords()
				// Shells are written clockwise, holes counter-clockwise.
				ccw := xy.IsRingCounterClockwise(ring.Layout(), flat)
				if (r == 0 && ccw) || (r > 0 && !ccw) {
					flat = reverseFlat(flat, ring.Stride())
				}
				parts = append(parts, toPoints(flat, ring.Stride()))
			}
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		return &poly, nil
	}
	return nil, eris.Wrapf(vector.ErrMalformedGeometry, "shapefile: cannot write %T as shape type %d", g, st)
}

func polygonsOf(g geom.T) ([]*geom.Polygon, bool) {
	switch t := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{t}, true
	case *geom.MultiPolygon:
		out := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			out = append(out, t.Polygon(i))
		}
		return out, true
	case *geom.GeometryCollection:
		return collectionPolygons(t)
	}
	return nil, false
}

// collectionPolygons accepts collections that only contain polygonal members,
// as a GEOS union of polygons can produce.
func collectionPolygons(gc *geom.GeometryCollection) ([]*geom.Polygon, bool) {
	var out []*geom.Polygon
	for i := 0; i < gc.NumGeoms(); i++ {
		polys, ok := polygonsOf(gc.Geom(i))
		if !ok {
			return nil, false
		}
		out = append(out, polys...)
	}
	return out, len(out) > 0
}

func toPoints(flat []float64, stride int) []shp.Point {
	pts := make([]shp.Point, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		pts = append(pts, shp.Point{X: flat[i], Y: flat[i+1]})
	}
	return pts
}

func reverseFlat(flat []float64, stride int) []float64 {
	out := make([]float64, len(flat))
	n := len(flat) / stride
	for i := 0; i < n; i++ {
		copy(out[(n-1-i)*stride:(n-i)*stride], flat[i*stride:(i+1)*stride])
	}
	return out
}
