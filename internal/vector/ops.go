package vector

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// DefaultQuadSegs is the number of segments used to approximate a quarter
// circle when buffering.
const DefaultQuadSegs = 8

// Merge concatenates the rows of all layers in argument order. The schema is
// the union of the input schemas in first-seen order. All layers with a known
// CRS must agree; the result carries that CRS.
func Merge(layers ...*Layer) (*Layer, error) {
	out := NewLayer("merged", CRS{})
	for _, l := range layers {
		if l == nil {
			continue
		}
		if out.CRS.IsZero() {
			out.CRS = l.CRS
		} else if !crsMatches("merge", out.CRS, l.CRS) {
			return nil, eris.Wrapf(ErrCRSMismatch, "vector: merge %q (%s) into %s", l.Name, l.CRS, out.CRS)
		}
		for _, f := range l.Fields {
			out.AddField(f)
		}
		for _, f := range l.Features {
			out.Append(f.Geometry, f.Properties)
		}
	}
	return out, nil
}

// Dissolve unions every geometry of layer into a single feature and returns
// it as a one-row layer tagged with crs (or the layer's own CRS when crs is
// unknown).
func Dissolve(layer *Layer, crs CRS) (*Layer, error) {
	if layer.Len() == 0 {
		return nil, eris.Wrap(ErrEmptyGeometry, "vector: dissolve empty layer")
	}
	if crs.IsZero() {
		crs = layer.CRS
	}

	geoms := make([]*geos.Geom, 0, layer.Len())
	for i, f := range layer.Features {
		if f.Geometry == nil || f.Geometry.Empty() {
			continue
		}
		g, err := toGEOS(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "vector: dissolve %q feature %d", layer.Name, i)
		}
		geoms = append(geoms, g)
	}
	if len(geoms) == 0 {
		return nil, eris.Wrapf(ErrEmptyGeometry, "vector: dissolve %q: no geometry to union", layer.Name)
	}

	var union geom.T
	err := guard("union", func() error {
		var cerr error
		union, cerr = fromGEOS(cascadedUnion(geoms))
		return cerr
	})
	if err != nil {
		return nil, eris.Wrapf(err, "vector: dissolve %q", layer.Name)
	}

	out := NewLayer(layer.Name, crs)
	out.Append(union, nil)
	return out, nil
}

// Buffer replaces every geometry with its planar buffer by distance, in CRS
// units. Row count and attributes are preserved; nothing is dissolved.
func Buffer(layer *Layer, distance float64) (*Layer, error) {
	return BufferWithSegments(layer, distance, DefaultQuadSegs)
}

// BufferWithSegments is Buffer with an explicit quarter-circle segment count.
func BufferWithSegments(layer *Layer, distance float64, quadSegs int) (*Layer, error) {
	if distance < 0 {
		return nil, eris.Errorf("vector: buffer distance must not be negative, got %g", distance)
	}
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegs
	}

	out := layer.derive()
	for i, f := range layer.Features {
		if f.Geometry == nil || f.Geometry.Empty() {
			out.Append(f.Geometry, f.Properties)
			continue
		}
		g, err := toGEOS(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "vector: buffer %q feature %d", layer.Name, i)
		}
		var buffered geom.T
		err = guard("buffer", func() error {
			var berr error
			buffered, berr = fromGEOS(g.Buffer(distance, quadSegs))
			return berr
		})
		if err != nil {
			return nil, eris.Wrapf(err, "vector: buffer %q feature %d", layer.Name, i)
		}
		out.Append(buffered, f.Properties)
	}
	return out, nil
}

// Erase removes the mask geometry from the base geometry. Both layers must
// hold exactly one feature (dissolve first); anything else is rejected rather
// than silently truncated. The result is a one-row layer tagged with crs
// carrying the base feature's attributes. A difference that leaves nothing
// returns ErrEmptyGeometry.
func Erase(base, mask *Layer, crs CRS) (*Layer, error) {
	if err := singleFeature("base", base); err != nil {
		return nil, err
	}
	if err := singleFeature("mask", mask); err != nil {
		return nil, err
	}
	if !crsMatches("erase", base.CRS, mask.CRS) {
		return nil, eris.Wrapf(ErrCRSMismatch, "vector: erase %q (%s) with %q (%s)", base.Name, base.CRS, mask.Name, mask.CRS)
	}
	if crs.IsZero() {
		crs = base.CRS
	} else if !crsMatches("erase", crs, base.CRS) {
		return nil, eris.Wrapf(ErrCRSMismatch, "vector: erase output %s differs from input %s", crs, base.CRS)
	}

	a, err := toGEOS(base.Features[0].Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: erase base %q", base.Name)
	}
	b, err := toGEOS(mask.Features[0].Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: erase mask %q", mask.Name)
	}

	var diff *geos.Geom
	if err := guard("difference", func() error {
		diff = a.Difference(b)
		return nil
	}); err != nil {
		return nil, eris.Wrapf(err, "vector: erase %q", base.Name)
	}
	if diff.IsEmpty() {
		return nil, eris.Wrapf(ErrEmptyGeometry, "vector: erase %q with %q left nothing", base.Name, mask.Name)
	}
	g, err := fromGEOS(diff)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: erase %q", base.Name)
	}

	out := base.derive()
	out.CRS = crs
	out.Append(g, base.Features[0].Properties)
	return out, nil
}

// crsMatches is CRS.Matches with a warning when two known systems cannot be
// compared and are assumed equal.
func crsMatches(op string, a, b CRS) bool {
	if !a.IsZero() && !b.IsZero() && !a.Comparable(b) {
		zap.L().Warn("vector: cannot compare coordinate systems, assuming they match",
			zap.String("op", op),
			zap.String("a", a.String()),
			zap.String("b", b.String()),
		)
	}
	return a.Matches(b)
}

func singleFeature(role string, l *Layer) error {
	switch n := l.Len(); {
	case n == 0:
		return eris.Wrapf(ErrEmptyGeometry, "vector: erase %s layer has no features", role)
	case n > 1:
		return eris.Wrapf(ErrMultiFeature, "vector: erase %s layer %q has %d features, dissolve it first", role, l.Name, n)
	}
	if g := l.Features[0].Geometry; g == nil || g.Empty() {
		return eris.Wrapf(ErrEmptyGeometry, "vector: erase %s layer %q has an empty geometry", role, l.Name)
	}
	return nil
}

// Explode splits multi-part geometries into one row per part, copying the
// attributes. Single-part rows come first in their original order, followed
// by the parts of the multi-part rows in original order.
func Explode(layer *Layer) *Layer {
	out := layer.derive()
	var exploded []Feature
	for _, f := range layer.Features {
		parts, multi := splitParts(f.Geometry)
		if !multi {
			out.Append(f.Geometry, f.Properties)
			continue
		}
		for _, p := range parts {
			exploded = append(exploded, Feature{Geometry: p, Properties: copyProps(f.Properties)})
		}
	}
	out.Features = append(out.Features, exploded...)
	return out
}

// splitParts returns the non-empty single parts of a multi-part geometry.
// The boolean is false for single-part (or nil) geometries.
func splitParts(g geom.T) ([]geom.T, bool) {
	var parts []geom.T
	switch t := g.(type) {
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			parts = appendPart(parts, t.Polygon(i))
		}
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			parts = appendPart(parts, t.LineString(i))
		}
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			parts = appendPart(parts, t.Point(i))
		}
	case *geom.GeometryCollection:
		for i := 0; i < t.NumGeoms(); i++ {
			sub, multi := splitParts(t.Geom(i))
			if multi {
				parts = append(parts, sub...)
			} else {
				parts = appendPart(parts, t.Geom(i))
			}
		}
	default:
		return nil, false
	}
	return parts, true
}

func appendPart(parts []geom.T, g geom.T) []geom.T {
	if g == nil || g.Empty() {
		return parts
	}
	return append(parts, g)
}

// ComputeArea returns a copy of layer with AreaField set to each geometry's
// planar area divided by 1e6 (square metres to square kilometres).
func ComputeArea(layer *Layer) *Layer {
	out := layer.derive()
	out.AddField(FloatField(AreaField, 24, 15))
	for _, f := range layer.Features {
		props := copyProps(f.Properties)
		props[AreaField] = Area(f.Geometry) / 1e6
		out.Features = append(out.Features, Feature{Geometry: f.Geometry, Properties: props})
	}
	return out
}

// FilterByArea keeps the rows whose AreaField is strictly greater than
// minKm2, in order. Rows without a readable area are dropped.
func FilterByArea(layer *Layer, minKm2 float64) *Layer {
	out := layer.derive()
	for _, f := range layer.Features {
		if a, ok := AreaOf(f); ok && a > minKm2 {
			out.Append(f.Geometry, f.Properties)
		}
	}
	return out
}

// TotalArea sums AreaField over all rows.
func TotalArea(layer *Layer) float64 {
	var sum float64
	for _, f := range layer.Features {
		if a, ok := AreaOf(f); ok {
			sum += a
		}
	}
	return sum
}

// AreaOf reads AreaField from a feature, accepting the numeric and textual
// forms a shapefile round trip can produce.
func AreaOf(f Feature) (float64, bool) {
	v, ok := f.Properties[AreaField]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return x, err == nil
	default:
		return 0, false
	}
}
