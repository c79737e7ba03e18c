package vector

import (
	"strings"

	"github.com/twpayne/go-geom"
)

// AreaField is the attribute holding a feature's area in square kilometres.
const AreaField = "area_km2"

// FieldKind is the attribute type of a Field.
type FieldKind string

// Supported field kinds. They map onto dBase C, N (no decimals) and F columns.
const (
	FieldString FieldKind = "string"
	FieldInt    FieldKind = "int"
	FieldFloat  FieldKind = "float"
)

// Field describes one attribute column of a layer.
type Field struct {
	Name      string
	Kind      FieldKind
	Size      uint8
	Precision uint8
}

// StringField returns a text field of the given width.
func StringField(name string, size uint8) Field {
	return Field{Name: name, Kind: FieldString, Size: size}
}

// FloatField returns a decimal field with the given width and precision.
func FloatField(name string, size, precision uint8) Field {
	return Field{Name: name, Kind: FieldFloat, Size: size, Precision: precision}
}

// IntField returns an integer field of the given width.
func IntField(name string, size uint8) Field {
	return Field{Name: name, Kind: FieldInt, Size: size}
}

// Feature is one row of a layer: a geometry and its attributes.
type Feature struct {
	Geometry   geom.T
	Properties map[string]any
}

// Layer is an ordered sequence of features sharing one CRS and one schema.
type Layer struct {
	Name     string
	CRS      CRS
	Fields   []Field
	Features []Feature
}

// NewLayer returns an empty layer.
func NewLayer(name string, crs CRS, fields ...Field) *Layer {
	l := &Layer{Name: name, CRS: crs}
	for _, f := range fields {
		l.AddField(f)
	}
	return l
}

// Len returns the number of features.
func (l *Layer) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Features)
}

// AddField appends f to the schema unless a field with the same name
// (case-insensitive, as dBase) already exists.
func (l *Layer) AddField(f Field) {
	if _, ok := l.Field(f.Name); ok {
		return
	}
	l.Fields = append(l.Fields, f)
}

// Field looks a field up by name.
func (l *Layer) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Append adds a feature. props may be nil.
func (l *Layer) Append(g geom.T, props map[string]any) {
	l.Features = append(l.Features, Feature{Geometry: g, Properties: copyProps(props)})
}

// Geometries returns the feature geometries in row order.
func (l *Layer) Geometries() []geom.T {
	out := make([]geom.T, 0, len(l.Features))
	for _, f := range l.Features {
		out = append(out, f.Geometry)
	}
	return out
}

// Bounds returns the extent of all geometries, or nil for an empty layer.
func (l *Layer) Bounds() *geom.Bounds {
	var b *geom.Bounds
	for _, f := range l.Features {
		if f.Geometry == nil || f.Geometry.Empty() {
			continue
		}
		if b == nil {
			b = geom.NewBounds(geom.XY)
		}
		b.Extend(f.Geometry)
	}
	return b
}

// derive returns an empty layer with the same name, CRS and schema.
func (l *Layer) derive() *Layer {
	out := &Layer{Name: l.Name, CRS: l.CRS}
	out.Fields = append(out.Fields, l.Fields...)
	return out
}

func copyProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// Area returns the planar area of a polygonal geometry in squared CRS units.
// Non-polygonal geometries have zero area.
func Area(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.Area()
	case *geom.MultiPolygon:
		return t.Area()
	case *geom.GeometryCollection:
		var sum float64
		for i := 0; i < t.NumGeoms(); i++ {
			sum += Area(t.Geom(i))
		}
		return sum
	default:
		return 0
	}
}
