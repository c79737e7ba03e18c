package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/suitability-cli/internal/model"
	"github.com/sells-group/suitability-cli/internal/vector"
)

func testLayer() *vector.Layer {
	l := vector.NewLayer("final_selection", vector.EPSG(27700),
		vector.StringField("location", 40),
		vector.FloatField(vector.AreaField, 24, 15),
	)
	l.Append(geom.NewPolygonFlat(geom.XY, []float64{0, 0, 0, 2000, 2000, 2000, 2000, 0, 0, 0}, []int{10}),
		map[string]any{vector.AreaField: 4.0, "location": "north"})
	l.Append(geom.NewPolygonFlat(geom.XY, []float64{5000, 0, 5000, 1000, 7000, 1000, 7000, 0, 5000, 0}, []int{10}),
		map[string]any{vector.AreaField: 2.0})
	return l
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	in := Summary{
		RunID:          "abc",
		GeneratedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		StudyArea:      "big_poly.shp",
		CRS:            "EPSG:27700",
		BufferDistance: 25,
		MinAreaKm2:     1,
		Candidates:     2,
		TotalKm2:       6,
		Stages: StagesFrom([]model.StageResult{
			{Name: "explode", Features: 2, Duration: 1500 * time.Millisecond},
		}),
	}
	require.NoError(t, WriteYAML(path, in))

	out, err := ReadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, in, *out)
	assert.Equal(t, "1.5s", out.Stages[0].Duration)
}

func TestReadYAML_Missing(t *testing.T) {
	_, err := ReadYAML(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.xlsx")
	stages := []model.StageResult{{Name: "filter", Features: 2, Duration: time.Second}}
	require.NoError(t, WriteXLSX(path, testLayer(), stages))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	rows := f.Sheet["candidates"].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0].Cells[0].String())
	assert.Equal(t, "location", rows[0].Cells[4].String())
	assert.Equal(t, "4", rows[1].Cells[1].String())
	assert.Equal(t, "1000", rows[1].Cells[2].String())
	assert.Equal(t, "north", rows[1].Cells[4].String())

	stageRows := f.Sheet["stages"].Rows
	require.Len(t, stageRows, 2)
	assert.Equal(t, "filter", stageRows[1].Cells[0].String())
	assert.Equal(t, "1000", stageRows[1].Cells[3].String())
}
