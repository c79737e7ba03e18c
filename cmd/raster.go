package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/raster"
	"github.com/sells-group/suitability-cli/internal/shapefile"
	"github.com/sells-group/suitability-cli/internal/vector"
)

var clipCmd = &cobra.Command{
	Use:   "clip",
	Short: "Clip the DEM to a polygon shapefile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dem := stringFlagOr(cmd, "dem", cfg.Raster.DEM)
		shape := stringFlagOr(cmd, "shape", cfg.Raster.ClipShape)
		out, _ := cmd.Flags().GetString("out")
		return raster.ClipToShape(dem, shape, out)
	},
}

var slopeAspectCmd = &cobra.Command{
	Use:   "slope-aspect",
	Short: "Derive slope and aspect rasters from a DEM",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dem, _ := cmd.Flags().GetString("dem")
		slope, _ := cmd.Flags().GetString("slope")
		aspect, _ := cmd.Flags().GetString("aspect")
		return raster.SlopeAspect(dem, slope, aspect)
	},
}

var reclassCmd = &cobra.Command{
	Use:   "reclass",
	Short: "Turn slope and aspect rasters into a terrain constraint shapefile",
	Long: `Keeps slopes above --threshold degrees, aspects above 315 degrees and aspects
in [1, 45) degrees, polygonizes each, and dissolves them into
steep_north_dissolved.shp for use as a terrain constraint.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := zap.L().With(zap.String("command", "reclass"))

		slopePath, _ := cmd.Flags().GetString("slope")
		aspectPath, _ := cmd.Flags().GetString("aspect")
		outDir := stringFlagOr(cmd, "out-dir", cfg.Analysis.OutputDir)
		threshold := cfg.Raster.SlopeThreshold
		if cmd.Flags().Changed("threshold") {
			threshold, _ = cmd.Flags().GetFloat64("threshold")
		}

		slope, err := raster.Open(slopePath)
		if err != nil {
			return err
		}
		var aspect *raster.Grid
		if aspectPath != "" {
			if aspect, err = raster.Open(aspectPath); err != nil {
				return err
			}
		}

		terrain, err := raster.TerrainConstraints(slope, aspect, threshold)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "reclass: create %s", outDir)
		}
		for _, t := range terrain {
			if err := raster.WriteASCII(filepath.Join(outDir, t.Name+".asc"), t.Grid); err != nil {
				return err
			}
			if err := shapefile.Write(filepath.Join(outDir, t.Name+".shp"), t.Polygon); err != nil {
				return err
			}
			log.Info("terrain constraint written", zap.String("name", t.Name), zap.Int("values", t.Polygon.Len()))
		}

		crs, err := vector.ParseCRS(cfg.Analysis.CRS)
		if err != nil {
			return eris.Wrap(err, "reclass: crs")
		}
		mask, err := raster.TerrainMask(terrain, crs)
		if err != nil {
			return err
		}
		return writeStage(cmd, "reclass", filepath.Join(outDir, mask.Name+".shp"), mask)
	},
}

func init() {
	clipCmd.Flags().String("dem", "", "DEM raster (default raster.dem)")
	clipCmd.Flags().String("shape", "", "cutline shapefile (default raster.clip_shape)")
	clipCmd.Flags().String("out", "data_files/raster/dem_clip.tif", "clipped GeoTIFF")

	slopeAspectCmd.Flags().String("dem", "data_files/raster/dem_clip.tif", "DEM raster")
	slopeAspectCmd.Flags().String("slope", "data_files/raster/slope.tif", "slope output")
	slopeAspectCmd.Flags().String("aspect", "data_files/raster/aspect.tif", "aspect output")

	reclassCmd.Flags().String("slope", "data_files/raster/slope.tif", "slope raster")
	reclassCmd.Flags().String("aspect", "data_files/raster/aspect.tif", "aspect raster (empty to skip)")
	reclassCmd.Flags().Float64("threshold", raster.DefaultSlopeThreshold, "slope threshold in degrees")
	reclassCmd.Flags().String("out-dir", "", "output directory (default analysis.output_dir)")

	rootCmd.AddCommand(clipCmd)
	rootCmd.AddCommand(slopeAspectCmd)
	rootCmd.AddCommand(reclassCmd)
}

func stringFlagOr(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}
