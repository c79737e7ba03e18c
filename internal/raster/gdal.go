package raster

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/vector"
)

var registerOnce sync.Once

func registerDrivers() {
	registerOnce.Do(godal.RegisterAll)
}

// Open reads band 1 of a raster file. ESRI ASCII grids are parsed natively;
// every other format goes through GDAL.
func Open(path string) (*Grid, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(vector.ErrInputNotFound, "raster: %s", path)
		}
		return nil, eris.Wrapf(err, "raster: stat %s", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".asc") {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: open %s", path)
		}
		defer f.Close()
		return ParseASCII(f)
	}
	return openGDAL(path)
}

func openGDAL(path string) (*Grid, error) {
	registerDrivers()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: gdal open %s", path)
	}
	defer func() { _ = ds.Close() }()

	st := ds.Structure()
	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, eris.Errorf("raster: %s has no bands", path)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, eris.Wrapf(err, "raster: geotransform of %s", path)
	}

	g := &Grid{
		Cols:         st.SizeX,
		Rows:         st.SizeY,
		GeoTransform: gt,
		Data:         make([]float64, st.SizeX*st.SizeY),
	}
	if nd, ok := bands[0].NoData(); ok {
		g.NoData, g.HasNoData = nd, true
	}
	if sr := ds.SpatialRef(); sr != nil {
		if wkt, err := sr.WKT(); err == nil {
			g.Projection = wkt
		}
	}

	if err := bands[0].Read(0, 0, g.Data, st.SizeX, st.SizeY); err != nil {
		return nil, eris.Wrapf(err, "raster: read band 1 of %s", path)
	}
	if err := g.validate(); err != nil {
		return nil, eris.Wrapf(err, "raster: %s", path)
	}

	zap.L().Debug("raster: opened grid",
		zap.String("path", path),
		zap.Int("cols", g.Cols),
		zap.Int("rows", g.Rows),
	)
	return g, nil
}

// ClipToShape crops a raster to the extent of a polygon shapefile and masks
// cells outside it, writing a GeoTIFF to out.
func ClipToShape(rasterPath, cutline, out string) error {
	for _, p := range []string{rasterPath, cutline} {
		if _, err := os.Stat(p); err != nil {
			return eris.Wrapf(vector.ErrInputNotFound, "raster: clip input %s", p)
		}
	}
	registerDrivers()

	ds, err := godal.Open(rasterPath)
	if err != nil {
		return eris.Wrapf(err, "raster: gdal open %s", rasterPath)
	}
	defer func() { _ = ds.Close() }()

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return eris.Wrapf(err, "raster: create dir for %s", out)
	}

	clipped, err := ds.Warp(out, []string{"-of", "GTiff", "-cutline", cutline, "-crop_to_cutline", "-dstnodata", "-9999"})
	if err != nil {
		return eris.Wrapf(err, "raster: clip %s to %s", rasterPath, cutline)
	}
	if err := clipped.Close(); err != nil {
		return eris.Wrapf(err, "raster: close %s", out)
	}

	zap.L().Info("raster: clipped",
		zap.String("input", rasterPath),
		zap.String("cutline", cutline),
		zap.String("output", out),
	)
	return nil
}

// SlopeAspect derives slope (degrees) and aspect rasters from a DEM using
// GDAL's DEM processing, computing values on the edges as well.
func SlopeAspect(dem, slopeOut, aspectOut string) error {
	if _, err := os.Stat(dem); err != nil {
		return eris.Wrapf(vector.ErrInputNotFound, "raster: dem %s", dem)
	}
	registerDrivers()

	ds, err := godal.Open(dem)
	if err != nil {
		return eris.Wrapf(err, "raster: gdal open %s", dem)
	}
	defer func() { _ = ds.Close() }()

	for mode, out := range map[string]string{"slope": slopeOut, "aspect": aspectOut} {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrapf(err, "raster: create dir for %s", out)
		}
		res, err := ds.Dem(out, mode, "", []string{"-of", "GTiff", "-compute_edges"})
		if err != nil {
			return eris.Wrapf(err, "raster: %s of %s", mode, dem)
		}
		if err := res.Close(); err != nil {
			return eris.Wrapf(err, "raster: close %s", out)
		}
		zap.L().Info("raster: dem processed", zap.String("mode", mode), zap.String("output", out))
	}
	return nil
}
