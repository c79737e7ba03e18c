package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suitability-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testParams() model.RunParams {
	return model.RunParams{
		StudyArea:      "data_files/vector/big_poly.shp",
		Constraints:    map[string][]string{"protected": {"ramsar.shp", "sssi.shp"}},
		BufferDistance: 25,
		MinAreaKm2:     1,
		CRS:            "EPSG:27700",
		OutputDir:      "out",
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testParams())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, testParams(), got.Params)
	assert.Nil(t, got.Result)
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testParams())
	require.NoError(t, err)

	result := &model.RunResult{Candidates: 3, TotalKm2: 12.34, Output: "final_selection.shp"}
	require.NoError(t, st.CompleteRun(ctx, run.ID, result))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, *result, *got.Result)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testParams())
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, "crs mismatch"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "crs mismatch", got.Error)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.CompleteRun(ctx, "nonexistent", &model.RunResult{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	err = st.FailRun(ctx, "nonexistent", "x")
	assert.Error(t, err)

	_, err = st.GetRun(ctx, "nonexistent")
	assert.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, testParams())
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, testParams())
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, a.ID, "boom"))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_Stages(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testParams())
	require.NoError(t, err)

	_, err = st.RecordStage(ctx, run.ID, model.StageResult{Name: "infrastructure", Features: 1, Output: "inf_buf.shp", Duration: 1500 * time.Millisecond})
	require.NoError(t, err)
	_, err = st.RecordStage(ctx, run.ID, model.StageResult{Name: "explode", Features: 7})
	require.NoError(t, err)

	stages, err := st.ListStages(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "infrastructure", stages[0].Name)
	assert.Equal(t, int64(1500), stages[0].DurationMs)
	assert.Equal(t, "inf_buf.shp", stages[0].Output)
	assert.Equal(t, "explode", stages[1].Name)
	assert.Equal(t, 7, stages[1].Features)
	assert.Empty(t, stages[1].Output)
}

func TestSQLite_StageRequiresRun(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.RecordStage(context.Background(), "missing", model.StageResult{Name: "explode"})
	assert.Error(t, err)
}
