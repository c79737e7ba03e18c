package postgis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/suitability-cli/internal/vector"
)

func candidates(n int) *vector.Layer {
	l := vector.NewLayer("final_selection", vector.EPSG(27700), vector.FloatField(vector.AreaField, 24, 15))
	for i := 0; i < n; i++ {
		x := float64(i) * 3000
		p := geom.NewPolygonFlat(geom.XY, []float64{x, 0, x, 2000, x + 2000, 2000, x + 2000, 0, x, 0}, []int{10})
		l.Append(p, map[string]any{vector.AreaField: 4.0})
	}
	return l
}

func TestEncodeEWKB_CarriesSRID(t *testing.T) {
	p := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 0, 1, 1, 1, 0, 0}, []int{8})
	data, err := EncodeEWKB(p, 27700)
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 27700, g.SRID())
	assert.IsType(t, &geom.Polygon{}, g)
}

func TestEncodeEWKB_Nil(t *testing.T) {
	_, err := EncodeEWKB(nil, 27700)
	assert.True(t, errors.Is(err, vector.ErrEmptyGeometry))
}

func TestRows(t *testing.T) {
	rows, err := Rows("run-1", candidates(2), 27700)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "run-1", rows[0][0])
	assert.Equal(t, 1, rows[1][1])
	assert.Equal(t, 4.0, rows[1][2])
	assert.IsType(t, []byte{}, rows[0][3])
}

func TestExportCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS \"public\".\"suitable_land\"").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"public", "suitable_land"}, Columns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"public", "suitable_land"}, Columns).WillReturnResult(1)

	target := Target{Schema: "public", Table: "suitable_land", BatchSize: 2}
	n, err := ExportCandidates(context.Background(), mock, target, "run-1", candidates(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportCandidates_CreateFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(fmt.Errorf("permission denied"))

	_, err = ExportCandidates(context.Background(), mock, Target{Table: "suitable_land"}, "run-1", candidates(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgis: create suitable_land")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportCandidates_RequiresEPSG(t *testing.T) {
	l := candidates(1)
	l.CRS = vector.CRS{}
	_, err := ExportCandidates(context.Background(), nil, Target{Table: "t"}, "run-1", l)
	assert.True(t, errors.Is(err, vector.ErrCRSMismatch))
}
