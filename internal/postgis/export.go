// Package postgis exports candidate polygons into a PostGIS table.
package postgis

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/db"
	"github.com/sells-group/suitability-cli/internal/vector"
)

const defaultBatchSize = 5000

// Columns written for every candidate row.
var Columns = []string{"run_id", "part", "area_km2", "geom"}

// Target names the destination table.
type Target struct {
	Schema    string
	Table     string
	BatchSize int
}

func (t Target) identifier() pgx.Identifier {
	schema := t.Schema
	if schema == "" {
		schema = "public"
	}
	return pgx.Identifier{schema, t.Table}
}

// EnsureTable creates the destination table when it does not exist yet.
func EnsureTable(ctx context.Context, pool db.Pool, target Target, srid int) error {
	if target.Table == "" {
		return eris.New("postgis: table name is required")
	}
	sql := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id       BIGSERIAL PRIMARY KEY,
	run_id   TEXT NOT NULL,
	part     INTEGER NOT NULL,
	area_km2 DOUBLE PRECISION NOT NULL,
	geom     geometry(Geometry, %d) NOT NULL
)`, target.identifier().Sanitize(), srid)
	if _, err := pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "postgis: create %s", target.Table)
	}
	return nil
}

// ExportCandidates copies the layer's features into target tagged with runID.
// The layer must carry area_km2 (see vector.ComputeArea) and an EPSG CRS.
func ExportCandidates(ctx context.Context, pool db.Pool, target Target, runID string, layer *vector.Layer) (int64, error) {
	srid := layer.CRS.SRID()
	if srid == 0 {
		return 0, eris.Wrapf(vector.ErrCRSMismatch, "postgis: layer %s has no EPSG code (%s)", layer.Name, layer.CRS)
	}
	if err := EnsureTable(ctx, pool, target, srid); err != nil {
		return 0, err
	}

	rows, err := Rows(runID, layer, srid)
	if err != nil {
		return 0, err
	}

	batch := target.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	log := zap.L().With(
		zap.String("component", "postgis"),
		zap.String("table", target.Schema+"."+target.Table),
		zap.Int("rows", len(rows)),
	)

	n, err := db.CopyFrom(ctx, pool, target.identifier(), Columns, rows, batch)
	if err != nil {
		return n, err
	}
	log.Info("candidates exported", zap.Int64("copied", n))
	return n, nil
}

// Rows converts layer features into COPY rows with EWKB geometry.
func Rows(runID string, layer *vector.Layer, srid int) ([][]any, error) {
	rows := make([][]any, 0, layer.Len())
	for i, f := range layer.Features {
		area, ok := vector.AreaOf(f)
		if !ok {
			area = vector.Area(f.Geometry) / 1e6
		}
		data, err := EncodeEWKB(f.Geometry, srid)
		if err != nil {
			return nil, eris.Wrapf(err, "postgis: feature %d", i)
		}
		rows = append(rows, []any{runID, i, area, data})
	}
	return rows, nil
}

// EncodeEWKB marshals g as little-endian EWKB carrying srid.
func EncodeEWKB(g geom.T, srid int) ([]byte, error) {
	var tagged geom.T
	switch t := g.(type) {
	case *geom.Point:
		tagged = geom.NewPointFlat(t.Layout(), t.FlatCoords()).SetSRID(srid)
	case *geom.LineString:
		tagged = geom.NewLineStringFlat(t.Layout(), t.FlatCoords()).SetSRID(srid)
	case *geom.Polygon:
		tagged = geom.NewPolygonFlat(t.Layout(), t.FlatCoords(), t.Ends()).SetSRID(srid)
	case *geom.MultiPoint:
		tagged = geom.NewMultiPointFlat(t.Layout(), t.FlatCoords()).SetSRID(srid)
	case *geom.MultiLineString:
		tagged = geom.NewMultiLineStringFlat(t.Layout(), t.FlatCoords(), t.Ends()).SetSRID(srid)
	case *geom.MultiPolygon:
		tagged = geom.NewMultiPolygonFlat(t.Layout(), t.FlatCoords(), t.Endss()).SetSRID(srid)
	case nil:
		return nil, eris.Wrap(vector.ErrEmptyGeometry, "postgis: nil geometry")
	default:
		return nil, eris.Wrapf(vector.ErrMalformedGeometry, "postgis: unsupported geometry %T", g)
	}
	data, err := ewkb.Marshal(tagged, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: encode EWKB")
	}
	return data, nil
}
