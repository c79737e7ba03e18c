package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/suitability-cli/internal/shapefile"
	"github.com/sells-group/suitability-cli/internal/vector"
)

// execute runs the root command in a temp working directory so no local
// config.yaml is picked up.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.Execute()
}

func TestPointLayer(t *testing.T) {
	l := pointLayer(312130.15, 585253.25, "Stevens Croft", 27700)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "EPSG:27700", l.CRS.Code)
	assert.Equal(t, "Stevens Croft", l.Features[0].Properties["location"])
}

func TestPointCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pwr_stn.shp")
	require.NoError(t, execute(t, "point", out, "--x", "297182.05", "--y", "576278.94", "--location", "Dumfries"))

	l, err := shapefile.Read(out)
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "Dumfries", l.Features[0].Properties["location"])
	p := l.Features[0].Geometry.(*geom.Point)
	assert.InDelta(t, 297182.05, p.X(), 1e-6)
}

func TestExplodeAndAreaCommands(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "gsa_other.shp")
	mp := geom.NewMultiPolygonFlat(geom.XY, []float64{
		0, 0, 0, 2000, 2000, 2000, 2000, 0, 0, 0,
		5000, 0, 5000, 500, 5500, 500, 5500, 0, 5000, 0,
	}, [][]int{{10}, {20}})
	l := vector.NewLayer("gsa_other", vector.EPSG(27700))
	l.Append(mp, nil)
	require.NoError(t, shapefile.Write(in, l))

	exploded := filepath.Join(dir, "gsa_explode.shp")
	require.NoError(t, execute(t, "explode", in, exploded))
	got, err := shapefile.Read(exploded)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	final := filepath.Join(dir, "final_selection.shp")
	require.NoError(t, execute(t, "area", exploded, final, "--min-area", "1"))
	got, err = shapefile.Read(final)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	area, ok := vector.AreaOf(got.Features[0])
	require.True(t, ok)
	assert.InDelta(t, 4.0, area, 1e-9)
}

func TestEraseCommand_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := execute(t, "erase", filepath.Join(dir, "a.shp"), filepath.Join(dir, "b.shp"), filepath.Join(dir, "c.shp"))
	assert.ErrorIs(t, err, vector.ErrInputNotFound)
}

func TestMergeCommand_InputsThenOutput(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "roads.shp")
	b := filepath.Join(dir, "rivers.shp")
	for i, p := range []string{a, b} {
		l := vector.NewLayer("in", vector.EPSG(27700))
		l.Append(geom.NewPointFlat(geom.XY, []float64{float64(i), 0}), nil)
		require.NoError(t, shapefile.Write(p, l))
	}

	out := filepath.Join(dir, "merged.shp")
	require.NoError(t, execute(t, "merge", a, b, out))

	got, err := shapefile.Read(out)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.InDelta(t, 0.0, got.Features[0].Geometry.(*geom.Point).X(), 1e-9)
	assert.InDelta(t, 1.0, got.Features[1].Geometry.(*geom.Point).X(), 1e-9)
}

func TestPointCommand_KeepsNonBuiltinEPSG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "utm_point.shp")
	require.NoError(t, execute(t, "point", out, "--x", "500000", "--y", "6200000", "--epsg", "32630"))

	l, err := shapefile.Read(out)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:32630", l.CRS.Code)
}
