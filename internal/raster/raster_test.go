package raster

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suitability-cli/internal/vector"
)

const sampleASCII = `ncols 4
nrows 3
xllcorner 1000
yllcorner 2000
cellsize 25
NODATA_value -9999
1 1 -9999 2
1 1 2 2
-9999 -9999 2 2
`

func TestParseASCII(t *testing.T) {
	g, err := ParseASCII(strings.NewReader(sampleASCII))
	require.NoError(t, err)

	assert.Equal(t, 4, g.Cols)
	assert.Equal(t, 3, g.Rows)
	assert.Equal(t, [6]float64{1000, 25, 0, 2075, 0, -25}, g.GeoTransform)
	assert.True(t, g.HasNoData)
	assert.True(t, g.IsNoData(g.At(2, 0)))
	assert.Equal(t, 2.0, g.At(3, 0))
}

func TestParseASCII_CenterOrigin(t *testing.T) {
	in := "ncols 1\nnrows 1\nxllcenter 12.5\nyllcenter 12.5\ncellsize 25\n7\n"
	g, err := ParseASCII(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 0.0, g.GeoTransform[0])
	assert.Equal(t, 25.0, g.GeoTransform[3])
	assert.False(t, g.HasNoData)
}

func TestParseASCII_Truncated(t *testing.T) {
	_, err := ParseASCII(strings.NewReader("ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n"))
	assert.Error(t, err)
}

func TestWriteASCII_RoundTrip(t *testing.T) {
	g, err := ParseASCII(strings.NewReader(sampleASCII))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "grid.asc")
	require.NoError(t, WriteASCII(path, g))

	back, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, g.GeoTransform, back.GeoTransform)
	assert.Equal(t, g.Data, back.Data)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "dem.tif"))
	assert.ErrorIs(t, err, vector.ErrInputNotFound)
}

func TestSteepSlope(t *testing.T) {
	rule := SteepSlope(DefaultSlopeThreshold)

	_, ok := rule(11.3)
	assert.False(t, ok)
	v, ok := rule(11.31)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestAspectBoundaries(t *testing.T) {
	nw := NorthWestAspect()
	ne := NorthEastAspect()

	cases := []struct {
		z      float64
		nw, ne bool
	}{
		{0, false, false},
		{0.5, false, false},
		{1, false, true},
		{44.99, false, true},
		{45, false, false},
		{180, false, false},
		{315, false, false},
		{315.01, true, false},
		{359.9, true, false},
	}
	for _, tc := range cases {
		_, ok := nw(tc.z)
		assert.Equal(t, tc.nw, ok, "north-west at %v", tc.z)
		_, ok = ne(tc.z)
		assert.Equal(t, tc.ne, ok, "north-east at %v", tc.z)
	}
}

func TestReclassify_KeepsNoData(t *testing.T) {
	g := NewGrid(3, 1, [6]float64{0, 1, 0, 1, 0, -1}, -9999)
	g.Data = []float64{-9999, 20, math.NaN()}

	out := g.Reclassify(SteepSlope(11.3))
	assert.Equal(t, []float64{DefaultNoData, 1, DefaultNoData}, out.Data)
}

func featureByValue(t *testing.T, l *vector.Layer, v float64) vector.Feature {
	t.Helper()
	for _, f := range l.Features {
		if f.Properties[ValueField] == v {
			return f
		}
	}
	t.Fatalf("no feature with %s=%g", ValueField, v)
	return vector.Feature{}
}

func TestPolygonize(t *testing.T) {
	g, err := ParseASCII(strings.NewReader(sampleASCII))
	require.NoError(t, err)
	g.Projection = `PROJCS["x",AUTHORITY["EPSG","27700"]]`

	l, err := Polygonize(g, "sample")
	require.NoError(t, err)
	require.Equal(t, 2, l.Len(), "one feature per connected region")
	assert.Equal(t, "EPSG:27700", l.CRS.Code)

	cell := 25.0 * 25.0
	assert.InDelta(t, 4*cell, vector.Area(featureByValue(t, l, 1).Geometry), 1e-6)
	assert.InDelta(t, 5*cell, vector.Area(featureByValue(t, l, 2).Geometry), 1e-6)
}

func TestPolygonize_SeparateRegions(t *testing.T) {
	g := NewGrid(3, 1, [6]float64{0, 10, 0, 10, 0, -10}, DefaultNoData)
	g.Data = []float64{1, DefaultNoData, 1}

	l, err := Polygonize(g, "split")
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
	for _, f := range l.Features {
		assert.Equal(t, 1.0, f.Properties[ValueField])
		assert.InDelta(t, 100.0, vector.Area(f.Geometry), 1e-9)
	}
}

func TestPolygonize_NaNIsNoData(t *testing.T) {
	g := NewGrid(2, 1, [6]float64{0, 10, 0, 10, 0, -10}, DefaultNoData)
	g.Data = []float64{math.NaN(), 1}

	l, err := Polygonize(g, "nan")
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.InDelta(t, 100.0, vector.Area(l.Features[0].Geometry), 1e-9)
}

func TestPolygonize_AllNoData(t *testing.T) {
	g := NewGrid(2, 2, [6]float64{0, 1, 0, 2, 0, -1}, DefaultNoData)

	l, err := Polygonize(g, "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestClipToShape_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := ClipToShape(filepath.Join(dir, "dem.tif"), filepath.Join(dir, "cut.shp"), filepath.Join(dir, "out.tif"))
	assert.ErrorIs(t, err, vector.ErrInputNotFound)

	_, statErr := os.Stat(filepath.Join(dir, "out.tif"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSlopeAspect_MissingDEM(t *testing.T) {
	dir := t.TempDir()
	err := SlopeAspect(filepath.Join(dir, "dem.tif"), filepath.Join(dir, "slope.tif"), filepath.Join(dir, "aspect.tif"))
	assert.ErrorIs(t, err, vector.ErrInputNotFound)
}

func TestTerrainConstraints(t *testing.T) {
	gt := [6]float64{0, 10, 0, 30, 0, -10}
	slope := NewGrid(3, 3, gt, DefaultNoData)
	slope.Data = []float64{
		20, 20, 5,
		5, 5, 5,
		5, 5, DefaultNoData,
	}
	aspect := NewGrid(3, 3, gt, DefaultNoData)
	aspect.Data = []float64{
		180, 180, 180,
		320, 180, 180,
		180, 180, 30,
	}

	terrain, err := TerrainConstraints(slope, aspect, DefaultSlopeThreshold)
	require.NoError(t, err)
	require.Len(t, terrain, 3)
	assert.Equal(t, "slope_reclass", terrain[0].Name)
	assert.InDelta(t, 200.0, vector.Area(terrain[0].Polygon.Features[0].Geometry), 1e-9)
	assert.Equal(t, 1, terrain[1].Polygon.Len())
	assert.Equal(t, 1, terrain[2].Polygon.Len())

	mask, err := TerrainMask(terrain, vector.EPSG(27700))
	require.NoError(t, err)
	require.Equal(t, 1, mask.Len())
	assert.Equal(t, "steep_north_dissolved", mask.Name)
	assert.InDelta(t, 400.0, vector.Area(mask.Features[0].Geometry), 1e-9)
}

func TestTerrainConstraints_SlopeOnly(t *testing.T) {
	slope := NewGrid(2, 1, [6]float64{0, 10, 0, 10, 0, -10}, DefaultNoData)
	slope.Data = []float64{1, 2}

	terrain, err := TerrainConstraints(slope, nil, DefaultSlopeThreshold)
	require.NoError(t, err)
	require.Len(t, terrain, 1)

	_, err = TerrainMask(terrain, vector.EPSG(27700))
	assert.ErrorIs(t, err, vector.ErrEmptyGeometry)
}
