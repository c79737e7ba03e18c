package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/suitability-cli/internal/config"
)

func newRunFlagsCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func baseAnalysis() config.AnalysisConfig {
	return config.AnalysisConfig{
		CRS:                 "EPSG:27700",
		StudyArea:           "data_files/vector/big_poly.shp",
		BufferDistance:      25,
		BufferSegments:      8,
		MinAreaKm2:          1,
		OutputDir:           "data_files/vector",
		PersistIntermediate: true,
	}
}

func TestApplyRunFlags_Defaults(t *testing.T) {
	a := baseAnalysis()
	require.NoError(t, applyRunFlags(newRunFlagsCmd(t), &a))
	assert.Equal(t, baseAnalysis(), a)
}

func TestApplyRunFlags_Overrides(t *testing.T) {
	a := baseAnalysis()
	cmd := newRunFlagsCmd(t,
		"--study-area", "study.shp",
		"--infrastructure", "roads.shp,rivers.shp",
		"--protected", "sssi.shp",
		"--buffer", "50",
		"--min-area", "0",
		"--out-dir", "out",
		"--no-intermediate",
	)
	require.NoError(t, applyRunFlags(cmd, &a))

	assert.Equal(t, "study.shp", a.StudyArea)
	assert.Equal(t, []string{"roads.shp", "rivers.shp"}, a.Constraints.Infrastructure)
	assert.Equal(t, []string{"sssi.shp"}, a.Constraints.Protected)
	assert.InDelta(t, 50.0, a.BufferDistance, 1e-9)
	assert.Zero(t, a.MinAreaKm2)
	assert.Equal(t, "out", a.OutputDir)
	assert.False(t, a.PersistIntermediate)
}

func TestApplyRunFlags_Invalid(t *testing.T) {
	a := baseAnalysis()
	err := applyRunFlags(newRunFlagsCmd(t, "--buffer", "-1"), &a)
	assert.Error(t, err)
}
