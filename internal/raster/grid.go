// Package raster reads single-band grids, reclassifies them into constraint
// masks and converts masks into polygon layers.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// DefaultNoData is written into reclassified grids for excluded cells.
const DefaultNoData = -9999.0

// Grid is a single-band, north-up raster held in memory, row-major from the
// top-left cell.
type Grid struct {
	Cols, Rows int
	// GeoTransform follows the GDAL convention: origin x, pixel width,
	// row rotation, origin y, column rotation, pixel height (negative).
	GeoTransform [6]float64
	NoData       float64
	HasNoData    bool
	// Projection is the WKT of the grid's coordinate system, if known.
	Projection string
	Data       []float64
}

// NewGrid allocates a grid filled with nodata.
func NewGrid(cols, rows int, gt [6]float64, nodata float64) *Grid {
	g := &Grid{
		Cols:         cols,
		Rows:         rows,
		GeoTransform: gt,
		NoData:       nodata,
		HasNoData:    true,
		Data:         make([]float64, cols*rows),
	}
	for i := range g.Data {
		g.Data[i] = nodata
	}
	return g
}

// At returns the value at column c, row r.
func (g *Grid) At(c, r int) float64 {
	return g.Data[r*g.Cols+c]
}

// Set stores v at column c, row r.
func (g *Grid) Set(c, r int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// IsNoData reports whether v is the grid's nodata value or NaN.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.HasNoData && v == g.NoData
}

// CellSize returns the pixel width and (positive) height.
func (g *Grid) CellSize() (float64, float64) {
	return g.GeoTransform[1], math.Abs(g.GeoTransform[5])
}

// validate checks dimensions and rejects rotated grids.
func (g *Grid) validate() error {
	if g.Cols <= 0 || g.Rows <= 0 {
		return eris.Errorf("raster: invalid grid size %dx%d", g.Cols, g.Rows)
	}
	if len(g.Data) != g.Cols*g.Rows {
		return eris.Errorf("raster: grid has %d values, want %d", len(g.Data), g.Cols*g.Rows)
	}
	if g.GeoTransform[2] != 0 || g.GeoTransform[4] != 0 {
		return eris.New("raster: rotated grids are not supported")
	}
	if g.GeoTransform[1] == 0 || g.GeoTransform[5] == 0 {
		return eris.New("raster: zero pixel size")
	}
	return nil
}

// cellY returns the y coordinate of the top edge of row r.
func (g *Grid) cellY(r int) float64 {
	return g.GeoTransform[3] + float64(r)*g.GeoTransform[5]
}
