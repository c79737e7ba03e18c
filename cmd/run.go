package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/config"
	"github.com/sells-group/suitability-cli/internal/db"
	"github.com/sells-group/suitability-cli/internal/observability"
	"github.com/sells-group/suitability-cli/internal/pipeline"
	"github.com/sells-group/suitability-cli/internal/postgis"
	"github.com/sells-group/suitability-cli/internal/render"
	"github.com/sells-group/suitability-cli/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the suitability analysis",
	Long: `Merges and dissolves each constraint category (infrastructure is buffered
first), erases the masks from the study area, explodes the remainder into
single-part polygons, computes area_km2 and keeps polygons above --min-area.

Paths and thresholds default to the analysis section of config.yaml.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "run"))

		analysis := cfg.Analysis
		if err := applyRunFlags(cmd, &analysis); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reg := prometheus.NewRegistry()
		metrics, err := observability.NewRunCollector(reg)
		if err != nil {
			return eris.Wrap(err, "run: metrics")
		}

		p, err := pipeline.New(analysis, st, metrics)
		if err != nil {
			return err
		}

		res, err := p.Run(ctx)
		if writeErr := metrics.WriteTextfile(cfg.Metrics.Textfile); writeErr != nil {
			log.Warn("run: metrics textfile", zap.Error(writeErr))
		}
		if err != nil {
			return err
		}

		fmt.Println(res.Summary())

		return writeOutputs(ctx, cmd, analysis, res)
	},
}

// applyRunFlags overrides analysis settings with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, a *config.AnalysisConfig) error {
	flags := cmd.Flags()
	if flags.Changed("study-area") {
		a.StudyArea, _ = flags.GetString("study-area")
	}
	if flags.Changed("infrastructure") {
		a.Constraints.Infrastructure, _ = flags.GetStringSlice("infrastructure")
	}
	if flags.Changed("protected") {
		a.Constraints.Protected, _ = flags.GetStringSlice("protected")
	}
	if flags.Changed("terrain") {
		a.Constraints.Terrain, _ = flags.GetStringSlice("terrain")
	}
	if flags.Changed("buffer") {
		a.BufferDistance, _ = flags.GetFloat64("buffer")
	}
	if flags.Changed("min-area") {
		a.MinAreaKm2, _ = flags.GetFloat64("min-area")
	}
	if flags.Changed("out-dir") {
		a.OutputDir, _ = flags.GetString("out-dir")
	}
	if flags.Changed("crs") {
		a.CRS, _ = flags.GetString("crs")
	}
	if flags.Changed("no-intermediate") {
		skip, _ := flags.GetBool("no-intermediate")
		a.PersistIntermediate = !skip
	}
	return a.Validate()
}

func writeOutputs(ctx context.Context, cmd *cobra.Command, a config.AnalysisConfig, res *pipeline.Result) error {
	log := zap.L().With(zap.String("command", "run"), zap.String("run_id", res.RunID))

	if path, _ := cmd.Flags().GetString("render"); path != "" {
		scheme := render.DefaultScheme()
		m := render.NewMap(cfg.Render.Width, cfg.Render.Height, scheme.Background)
		if err := m.Draw(scheme.Suitability(res.StudyArea, res.Masks, res.Candidates)); err != nil {
			return err
		}
		if err := m.SavePNG(path); err != nil {
			return err
		}
		log.Info("map rendered", zap.String("path", path))
	}

	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		if err := report.WriteXLSX(path, res.Candidates, res.Stages); err != nil {
			return err
		}
		log.Info("candidate sheet written", zap.String("path", path))
	}

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		summary := report.Summary{
			RunID:          res.RunID,
			GeneratedAt:    time.Now().UTC(),
			StudyArea:      a.StudyArea,
			CRS:            a.CRS,
			BufferDistance: a.BufferDistance,
			MinAreaKm2:     a.MinAreaKm2,
			Candidates:     res.Candidates.Len(),
			TotalKm2:       res.TotalKm2,
			Output:         res.Output,
			Stages:         report.StagesFrom(res.Stages),
		}
		if err := report.WriteYAML(path, summary); err != nil {
			return err
		}
		log.Info("summary written", zap.String("path", path))
	}

	url, _ := cmd.Flags().GetString("postgis-url")
	if url == "" {
		url = cfg.PostGIS.URL
	}
	if url != "" {
		retry := db.NewRetryPolicy(cfg.PostGIS.RetryAttempts, cfg.PostGIS.RetryBackoffMs)
		pool, err := db.RetryVal(ctx, retry, "connect", func(ctx context.Context) (*pgxpool.Pool, error) {
			return db.Connect(ctx, url)
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		target := postgis.Target{
			Schema:    cfg.PostGIS.Schema,
			Table:     cfg.PostGIS.Table,
			BatchSize: cfg.PostGIS.BatchSize,
		}
		// Not retried: a failed batch would duplicate the batches already copied.
		n, err := postgis.ExportCandidates(ctx, pool, target, res.RunID, res.Candidates)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d candidates to %s.%s\n", n, target.Schema, target.Table)
	}
	return nil
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("study-area", "", "study area polygon shapefile")
	cmd.Flags().StringSlice("infrastructure", nil, "infrastructure shapefiles, buffered before dissolve")
	cmd.Flags().StringSlice("protected", nil, "protected area shapefiles")
	cmd.Flags().StringSlice("terrain", nil, "terrain constraint shapefiles (see reclass)")
	cmd.Flags().Float64("buffer", 0, "infrastructure buffer distance in CRS units")
	cmd.Flags().Float64("min-area", 0, "minimum candidate area in km2 (exclusive)")
	cmd.Flags().String("out-dir", "", "directory for output shapefiles")
	cmd.Flags().String("crs", "", "analysis CRS, e.g. EPSG:27700")
	cmd.Flags().Bool("no-intermediate", false, "only write final_selection.shp")
	cmd.Flags().String("render", "", "write a PNG map of the result")
	cmd.Flags().String("xlsx", "", "write a candidate spreadsheet")
	cmd.Flags().String("report", "", "write a YAML run summary")
	cmd.Flags().String("postgis-url", "", "export candidates to PostGIS")
}
