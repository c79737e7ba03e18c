// Package report writes run summaries (YAML) and candidate sheets (XLSX).
package report

import (
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/xy"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/suitability-cli/internal/model"
	"github.com/sells-group/suitability-cli/internal/vector"
)

// Stage is the YAML form of a model.StageResult.
type Stage struct {
	Name     string `yaml:"name"`
	Features int    `yaml:"features"`
	Output   string `yaml:"output,omitempty"`
	Duration string `yaml:"duration"`
}

// Summary describes one pipeline run.
type Summary struct {
	RunID          string    `yaml:"run_id,omitempty"`
	GeneratedAt    time.Time `yaml:"generated_at"`
	StudyArea      string    `yaml:"study_area"`
	CRS            string    `yaml:"crs"`
	BufferDistance float64   `yaml:"buffer_distance"`
	MinAreaKm2     float64   `yaml:"min_area_km2"`
	Candidates     int       `yaml:"candidates"`
	TotalKm2       float64   `yaml:"total_km2"`
	Output         string    `yaml:"output,omitempty"`
	Stages         []Stage   `yaml:"stages"`
}

// StagesFrom converts stage results into their report form.
func StagesFrom(results []model.StageResult) []Stage {
	out := make([]Stage, 0, len(results))
	for _, r := range results {
		out = append(out, Stage{
			Name:     r.Name,
			Features: r.Features,
			Output:   r.Output,
			Duration: r.Duration.Round(time.Millisecond).String(),
		})
	}
	return out
}

// WriteYAML writes the summary to path.
func WriteYAML(path string, s Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "report: marshal summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// ReadYAML loads a summary previously written by WriteYAML.
func ReadYAML(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrapf(err, "report: parse %s", path)
	}
	return &s, nil
}

// WriteXLSX writes one row per candidate polygon plus a stages sheet.
func WriteXLSX(path string, layer *vector.Layer, stages []model.StageResult) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("candidates")
	if err != nil {
		return eris.Wrap(err, "report: add candidates sheet")
	}

	extra := extraColumns(layer)
	header := sheet.AddRow()
	for _, name := range append([]string{"id", vector.AreaField, "centroid_x", "centroid_y"}, extra...) {
		header.AddCell().SetString(name)
	}

	for i, feat := range layer.Features {
		row := sheet.AddRow()
		row.AddCell().SetInt(i + 1)

		area, ok := vector.AreaOf(feat)
		if !ok {
			area = vector.Area(feat.Geometry) / 1e6
		}
		row.AddCell().SetFloat(area)

		if c, err := xy.Centroid(feat.Geometry); err == nil && len(c) >= 2 {
			row.AddCell().SetFloat(c[0])
			row.AddCell().SetFloat(c[1])
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
		}

		for _, name := range extra {
			row.AddCell().SetString(cellText(feat.Properties[name]))
		}
	}

	stageSheet, err := f.AddSheet("stages")
	if err != nil {
		return eris.Wrap(err, "report: add stages sheet")
	}
	header = stageSheet.AddRow()
	for _, name := range []string{"stage", "features", "output", "duration_ms"} {
		header.AddCell().SetString(name)
	}
	for _, s := range stages {
		row := stageSheet.AddRow()
		row.AddCell().SetString(s.Name)
		row.AddCell().SetInt(s.Features)
		row.AddCell().SetString(s.Output)
		row.AddCell().SetInt64(s.Duration.Milliseconds())
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// extraColumns lists the schema fields other than the area, sorted.
func extraColumns(layer *vector.Layer) []string {
	var names []string
	for _, f := range layer.Fields {
		if f.Name == vector.AreaField {
			continue
		}
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
