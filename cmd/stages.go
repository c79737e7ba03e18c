package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/pipeline"
	"github.com/sells-group/suitability-cli/internal/shapefile"
	"github.com/sells-group/suitability-cli/internal/vector"
)

// Single-stage commands operate on shapefiles so each step of the analysis
// can be rerun or inspected on its own.

var mergeCmd = &cobra.Command{
	Use:   "merge <in.shp>... <out.shp>",
	Short: "Concatenate shapefiles into one layer",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := args[len(args)-1]
		layers, err := readLayers(args[:len(args)-1])
		if err != nil {
			return err
		}
		merged, err := vector.Merge(layers...)
		if err != nil {
			return err
		}
		return writeStage(cmd, "merge", out, merged)
	},
}

var bufferCmd = &cobra.Command{
	Use:   "buffer <in.shp> <out.shp>",
	Short: "Buffer every feature by a fixed distance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := shapefile.Read(args[0])
		if err != nil {
			return err
		}
		distance := cfg.Analysis.BufferDistance
		if cmd.Flags().Changed("distance") {
			distance, _ = cmd.Flags().GetFloat64("distance")
		}
		segments := cfg.Analysis.BufferSegments
		if cmd.Flags().Changed("segments") {
			segments, _ = cmd.Flags().GetInt("segments")
		}
		out, err := vector.BufferWithSegments(in, distance, segments)
		if err != nil {
			return err
		}
		return writeStage(cmd, "buffer", args[1], out)
	},
}

var dissolveCmd = &cobra.Command{
	Use:   "dissolve <in.shp> <out.shp>",
	Short: "Union all features into a single feature",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := shapefile.Read(args[0])
		if err != nil {
			return err
		}
		crs, err := crsFlag(cmd)
		if err != nil {
			return err
		}
		out, err := vector.Dissolve(in, crs)
		if err != nil {
			return err
		}
		return writeStage(cmd, "dissolve", args[1], out)
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase <base.shp> <mask.shp> <out.shp>",
	Short: "Remove the mask polygon from the base polygon",
	Long:  "Both inputs must hold exactly one feature; dissolve them first.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		layers, err := readLayers(args[:2])
		if err != nil {
			return err
		}
		crs, err := crsFlag(cmd)
		if err != nil {
			return err
		}
		out, err := vector.Erase(layers[0], layers[1], crs)
		if err != nil {
			return err
		}
		return writeStage(cmd, "erase", args[2], out)
	},
}

var explodeCmd = &cobra.Command{
	Use:   "explode <in.shp> <out.shp>",
	Short: "Split multi-part features into single parts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := shapefile.Read(args[0])
		if err != nil {
			return err
		}
		return writeStage(cmd, "explode", args[1], vector.Explode(in))
	},
}

var areaCmd = &cobra.Command{
	Use:   "area <in.shp> <out.shp>",
	Short: "Add the area_km2 attribute",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := shapefile.Read(args[0])
		if err != nil {
			return err
		}
		out := vector.ComputeArea(in)
		if cmd.Flags().Changed("min-area") {
			minArea, _ := cmd.Flags().GetFloat64("min-area")
			out = vector.FilterByArea(out, minArea)
		}
		if err := writeStage(cmd, "area", args[1], out); err != nil {
			return err
		}
		fmt.Println(pipeline.FormatSummary(vector.TotalArea(out)))
		return nil
	},
}

func init() {
	bufferCmd.Flags().Float64("distance", 0, "buffer distance in CRS units (default analysis.buffer_distance)")
	bufferCmd.Flags().Int("segments", vector.DefaultQuadSegs, "segments per quarter circle")
	dissolveCmd.Flags().String("crs", "", "CRS of the output (default: input CRS)")
	eraseCmd.Flags().String("crs", "", "CRS of the output (default: base CRS)")
	areaCmd.Flags().Float64("min-area", 0, "drop features not larger than this many km2")

	for _, c := range []*cobra.Command{mergeCmd, bufferCmd, dissolveCmd, eraseCmd, explodeCmd, areaCmd} {
		rootCmd.AddCommand(c)
	}
}

func readLayers(paths []string) ([]*vector.Layer, error) {
	layers := make([]*vector.Layer, 0, len(paths))
	for _, p := range paths {
		l, err := shapefile.Read(p)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, nil
}

func crsFlag(cmd *cobra.Command) (vector.CRS, error) {
	s, _ := cmd.Flags().GetString("crs")
	crs, err := vector.ParseCRS(s)
	if err != nil {
		return vector.CRS{}, eris.Wrap(err, "--crs")
	}
	return crs, nil
}

func writeStage(cmd *cobra.Command, stage, path string, layer *vector.Layer) error {
	if err := shapefile.Write(path, layer); err != nil {
		return err
	}
	zap.L().Info("stage written",
		zap.String("command", cmd.Name()),
		zap.String("stage", stage),
		zap.String("path", path),
		zap.Int("features", layer.Len()),
	)
	return nil
}
