package main

import (
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/suitability-cli/internal/shapefile"
	"github.com/sells-group/suitability-cli/internal/vector"
)

var pointCmd = &cobra.Command{
	Use:   "point <out.shp>",
	Short: "Create a named point shapefile",
	Long:  "Writes a single point with a location attribute, e.g. a power station used as a map reference.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, _ := cmd.Flags().GetFloat64("x")
		y, _ := cmd.Flags().GetFloat64("y")
		location, _ := cmd.Flags().GetString("location")
		epsg, _ := cmd.Flags().GetInt("epsg")

		return writeStage(cmd, "point", args[0], pointLayer(x, y, location, epsg))
	},
}

// pointLayer builds a one-feature point layer with a location attribute.
func pointLayer(x, y float64, location string, epsg int) *vector.Layer {
	l := vector.NewLayer("point", vector.EPSG(epsg), vector.StringField("location", 80))
	l.Append(geom.NewPointFlat(geom.XY, []float64{x, y}), map[string]any{"location": location})
	return l
}

func init() {
	pointCmd.Flags().Float64("x", 0, "easting / longitude")
	pointCmd.Flags().Float64("y", 0, "northing / latitude")
	pointCmd.Flags().String("location", "", "value of the location attribute")
	pointCmd.Flags().Int("epsg", 27700, "EPSG code of the coordinates")
	_ = pointCmd.MarkFlagRequired("x")
	_ = pointCmd.MarkFlagRequired("y")
	rootCmd.AddCommand(pointCmd)
}
