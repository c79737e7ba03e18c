package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	require.NoError(t, err)

	c.ObserveStage("explode", 7, 250*time.Millisecond)
	c.ObserveStage("explode", 5, 100*time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.StageFeatures.WithLabelValues("explode")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.StageDuration, "suitability_stage_duration_seconds"))
}

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	require.NoError(t, err)

	c.ObserveRun("complete", 12.5)
	c.ObserveRun("failed", 99)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("failed")))
	assert.Equal(t, 12.5, testutil.ToFloat64(c.SuitableArea))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *RunCollector
	c.ObserveStage("merge", 1, time.Second)
	c.ObserveRun("complete", 1)
	assert.NoError(t, c.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestNewRunCollector_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewRunCollector(reg)
	require.NoError(t, err)
	b, err := NewRunCollector(reg)
	require.NoError(t, err)

	a.ObserveRun("complete", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Runs.WithLabelValues("complete")))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	require.NoError(t, err)
	c.ObserveStage("area", 3, time.Second)

	path := filepath.Join(t.TempDir(), "suitability.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `suitability_stage_features{stage="area"} 3`)
}
