package shapefile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"

	"github.com/sells-group/suitability-cli/internal/vector"
)

// prjPath returns the .prj sidecar path for a .shp path, whatever the case of
// its extension.
func prjPath(shpPath string) string {
	return strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
}

func readPrj(shpPath string) (vector.CRS, error) {
	data, err := os.ReadFile(prjPath(shpPath))
	if errors.Is(err, fs.ErrNotExist) {
		return vector.CRS{}, nil
	}
	if err != nil {
		return vector.CRS{}, eris.Wrapf(err, "shapefile: read prj for %s", shpPath)
	}
	return vector.FromWKT(string(data)), nil
}

// writePrj writes the CRS definition. Layers with only an authority code use
// the built-in definition, then PROJ's definition of the EPSG code. A code
// that resolves to neither is an error; an unknown CRS gets no sidecar.
func writePrj(shpPath string, crs vector.CRS) (bool, error) {
	if crs.IsZero() {
		return false, nil
	}
	wkt := crs.WKT
	if wkt == "" {
		var err error
		if wkt, err = wktForCode(crs); err != nil {
			return false, eris.Wrapf(err, "shapefile: prj for %s", shpPath)
		}
	}
	if err := os.WriteFile(prjPath(shpPath), []byte(wkt), 0o644); err != nil {
		return false, eris.Wrapf(err, "shapefile: write prj for %s", shpPath)
	}
	return true, nil
}

func wktForCode(crs vector.CRS) (string, error) {
	code := crs.SRID()
	if code == 0 {
		return "", eris.Wrapf(vector.ErrCRSMismatch, "no definition for %s", crs.Code)
	}
	if c := vector.EPSG(code); c.WKT != "" {
		return c.WKT, nil
	}
	sr, err := godal.NewSpatialRefFromEPSG(code)
	if err != nil {
		return "", eris.Wrapf(vector.ErrCRSMismatch, "unknown %s: %v", crs.Code, err)
	}
	defer sr.Close()
	wkt, err := sr.WKT()
	if err != nil {
		return "", eris.Wrapf(err, "wkt of %s", crs.Code)
	}
	return wkt, nil
}
