package model

import "time"

// RunStatus represents the current state of a suitability run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams captures the inputs a run was started with.
type RunParams struct {
	StudyArea      string              `json:"study_area"`
	Constraints    map[string][]string `json:"constraints,omitempty"`
	BufferDistance float64             `json:"buffer_distance"`
	MinAreaKm2     float64             `json:"min_area_km2"`
	CRS            string              `json:"crs"`
	OutputDir      string              `json:"output_dir"`
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	Candidates int     `json:"candidates"`
	TotalKm2   float64 `json:"total_km2"`
	Output     string  `json:"output"`
}

// Run is one execution of the suitability pipeline.
type Run struct {
	ID        string     `json:"id"`
	Params    RunParams  `json:"params"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// StageResult records what one pipeline stage produced.
type StageResult struct {
	Name     string        `json:"name"`
	Features int           `json:"features"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunStage is a persisted StageResult.
type RunStage struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Name       string    `json:"name"`
	Features   int       `json:"features"`
	Output     string    `json:"output,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	RecordedAt time.Time `json:"recorded_at"`
}
