// Package render draws vector layers onto a PNG map.
package render

import (
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/image/colornames"

	"github.com/sells-group/suitability-cli/internal/vector"
)

const margin = 20

// Style defines how a layer is painted.
type Style struct {
	Fill   color.Color
	Stroke color.Color
	Width  float64
}

// Layer pairs a vector layer with its style. Layers are painted in order.
type Layer struct {
	Data  *vector.Layer
	Style Style
}

// Scheme holds the styles used for a suitability map.
type Scheme struct {
	Background color.Color
	StudyArea  Style
	Exclusion  Style
	Candidate  Style
}

// DefaultScheme returns a reasonable default Scheme.
func DefaultScheme() *Scheme {
	return &Scheme{
		Background: colornames.White,
		StudyArea:  Style{Fill: colornames.Whitesmoke, Stroke: colornames.Dimgray, Width: 2},
		Exclusion:  Style{Fill: color.NRGBA{R: 178, G: 34, B: 34, A: 110}, Stroke: colornames.Firebrick, Width: 1},
		Candidate:  Style{Fill: colornames.Lightgreen, Stroke: colornames.Darkgreen, Width: 1},
	}
}

// Suitability assembles the standard layer stack: study area, exclusion masks, candidates.
func (s *Scheme) Suitability(study *vector.Layer, exclusions []*vector.Layer, candidates *vector.Layer) []Layer {
	layers := []Layer{{Data: study, Style: s.StudyArea}}
	for _, ex := range exclusions {
		layers = append(layers, Layer{Data: ex, Style: s.Exclusion})
	}
	return append(layers, Layer{Data: candidates, Style: s.Candidate})
}

// Map renders layers into a width x height image.
type Map struct {
	Width      int
	Height     int
	Background color.Color

	dc     *gg.Context
	scale  float64
	minX   float64
	maxY   float64
	offset [2]float64
}

// NewMap returns a map of the given pixel size.
func NewMap(width, height int, background color.Color) *Map {
	if background == nil {
		background = colornames.White
	}
	return &Map{Width: width, Height: height, Background: background}
}

// Draw paints all layers fitted to their combined extent.
func (m *Map) Draw(layers []Layer) error {
	if m.Width <= 2*margin || m.Height <= 2*margin {
		return eris.Errorf("render: image %dx%d too small", m.Width, m.Height)
	}

	b := geom.NewBounds(geom.XY)
	for _, l := range layers {
		if l.Data == nil {
			continue
		}
		for _, f := range l.Data.Features {
			if f.Geometry != nil && !f.Geometry.Empty() {
				b.Extend(f.Geometry)
			}
		}
	}
	if b.IsEmpty() {
		return eris.Wrap(vector.ErrEmptyGeometry, "render: nothing to draw")
	}

	m.fit(b)
	m.dc = gg.NewContext(m.Width, m.Height)
	m.dc.SetColor(m.Background)
	m.dc.Clear()

	for _, l := range layers {
		if l.Data == nil {
			continue
		}
		for _, f := range l.Data.Features {
			m.paint(f.Geometry, l.Style)
		}
	}
	return nil
}

// SavePNG writes the last drawn image.
func (m *Map) SavePNG(path string) error {
	if m.dc == nil {
		return eris.New("render: nothing drawn")
	}
	if err := m.dc.SavePNG(path); err != nil {
		return eris.Wrapf(err, "render: save %s", path)
	}
	return nil
}

func (m *Map) fit(b *geom.Bounds) {
	w := b.Max(0) - b.Min(0)
	h := b.Max(1) - b.Min(1)
	availW := float64(m.Width - 2*margin)
	availH := float64(m.Height - 2*margin)

	switch {
	case w == 0 && h == 0:
		m.scale = 1
	case w == 0:
		m.scale = availH / h
	case h == 0:
		m.scale = availW / w
	default:
		m.scale = math.Min(availW/w, availH/h)
	}
	m.minX = b.Min(0)
	m.maxY = b.Max(1)
	m.offset = [2]float64{
		margin + (availW-w*m.scale)/2,
		margin + (availH-h*m.scale)/2,
	}
}

// project maps world coordinates to pixels, flipping y.
func (m *Map) project(x, y float64) (float64, float64) {
	return m.offset[0] + (x-m.minX)*m.scale, m.offset[1] + (m.maxY-y)*m.scale
}

func (m *Map) paint(g geom.T, s Style) {
	switch t := g.(type) {
	case *geom.Polygon:
		m.polygon(t, s)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			m.polygon(t.Polygon(i), s)
		}
	case *geom.LineString:
		m.line(t.FlatCoords(), t.Stride(), s)
	case *geom.MultiLineString:
		for i := 0; i < t.NumLineStrings(); i++ {
			ls := t.LineString(i)
			m.line(ls.FlatCoords(), ls.Stride(), s)
		}
	case *geom.Point:
		m.point(t.X(), t.Y(), s)
	case *geom.MultiPoint:
		for i := 0; i < t.NumPoints(); i++ {
			p := t.Point(i)
			m.point(p.X(), p.Y(), s)
		}
	case *geom.GeometryCollection:
		for _, sub := range t.Geoms() {
			m.paint(sub, s)
		}
	}
}

func (m *Map) polygon(p *geom.Polygon, s Style) {
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		m.path(ring.FlatCoords(), ring.Stride())
		m.dc.ClosePath()
	}
	m.dc.SetFillRuleEvenOdd()
	if s.Fill != nil {
		m.dc.SetColor(s.Fill)
		m.dc.FillPreserve()
	}
	m.stroke(s)
}

func (m *Map) line(flat []float64, stride int, s Style) {
	m.path(flat, stride)
	m.stroke(s)
}

func (m *Map) point(x, y float64, s Style) {
	px, py := m.project(x, y)
	m.dc.DrawCircle(px, py, math.Max(s.Width, 1)*3)
	if s.Fill != nil {
		m.dc.SetColor(s.Fill)
		m.dc.FillPreserve()
	}
	m.stroke(s)
}

func (m *Map) path(flat []float64, stride int) {
	for i := 0; i+1 < len(flat); i += stride {
		x, y := m.project(flat[i], flat[i+1])
		if i == 0 {
			m.dc.MoveTo(x, y)
		} else {
			m.dc.LineTo(x, y)
		}
	}
}

func (m *Map) stroke(s Style) {
	if s.Stroke == nil || s.Width <= 0 {
		m.dc.ClearPath()
		return
	}
	m.dc.SetColor(s.Stroke)
	m.dc.SetLineWidth(s.Width)
	m.dc.Stroke()
}
