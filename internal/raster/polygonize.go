package raster

import (
	"math"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/sells-group/suitability-cli/internal/vector"
)

// ValueField holds the cell value of a polygonized region.
const ValueField = "DN"

// Polygonize converts the data cells of g into a polygon layer with one
// feature per 4-connected region of equal value, in GDAL's output order.
// Nodata cells produce nothing. GDAL compares cell values as integers.
func Polygonize(g *Grid, name string) (*vector.Layer, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	registerDrivers()

	crs := vector.CRS{}
	if g.Projection != "" {
		crs = vector.FromWKT(g.Projection)
	}

	rds, err := memDataset(g)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: polygonize %s", name)
	}
	defer func() { _ = rds.Close() }()

	vds, err := godal.CreateVector(godal.Memory, "")
	if err != nil {
		return nil, eris.Wrapf(err, "raster: polygonize %s: scratch vector", name)
	}
	defer func() { _ = vds.Close() }()

	lyr, err := vds.CreateLayer(name, nil, godal.GTPolygon, godal.NewFieldDefinition(ValueField, godal.FTReal))
	if err != nil {
		return nil, eris.Wrapf(err, "raster: polygonize %s: scratch layer", name)
	}
	if err := rds.Bands()[0].Polygonize(lyr, godal.PixelValueFieldIndex(0)); err != nil {
		return nil, eris.Wrapf(err, "raster: polygonize %s", name)
	}

	out := vector.NewLayer(name, crs, vector.FloatField(ValueField, 24, 6))
	for {
		f := lyr.NextFeature()
		if f == nil {
			break
		}
		poly, err := featureGeom(f)
		value := f.Fields()[ValueField].Float()
		f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "raster: polygonize %s", name)
		}
		out.Append(poly, map[string]any{ValueField: value})
	}
	return out, nil
}

func featureGeom(f *godal.Feature) (geom.T, error) {
	fg := f.Geometry()
	defer fg.Close()
	b, err := fg.WKB()
	if err != nil {
		return nil, eris.Wrap(err, "feature wkb")
	}
	t, err := wkb.Unmarshal(b)
	if err != nil {
		return nil, eris.Wrap(vector.ErrMalformedGeometry, err.Error())
	}
	return t, nil
}

// memDataset copies g into a single-band in-memory GDAL dataset. NaN cells
// are written as nodata so GDAL's nodata mask excludes them.
func memDataset(g *Grid) (*godal.Dataset, error) {
	ds, err := godal.Create(godal.Memory, "", 1, godal.Float64, g.Cols, g.Rows)
	if err != nil {
		return nil, eris.Wrap(err, "create mem dataset")
	}
	if err := ds.SetGeoTransform(g.GeoTransform); err != nil {
		_ = ds.Close()
		return nil, eris.Wrap(err, "set geotransform")
	}

	band := ds.Bands()[0]
	buf := g.Data
	if g.HasNoData {
		if err := band.SetNoData(g.NoData); err != nil {
			_ = ds.Close()
			return nil, eris.Wrap(err, "set nodata")
		}
		buf = make([]float64, len(g.Data))
		for i, v := range g.Data {
			if math.IsNaN(v) {
				v = g.NoData
			}
			buf[i] = v
		}
	}
	if err := band.Write(0, 0, buf, g.Cols, g.Rows); err != nil {
		_ = ds.Close()
		return nil, eris.Wrap(err, "write band")
	}
	return ds, nil
}
