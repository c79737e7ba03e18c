package shapefile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/vector"
)

// Read loads a shapefile (and its .prj sidecar, if any) into a layer.
// A missing .shp yields vector.ErrInputNotFound.
func Read(path string) (*vector.Layer, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(vector.ErrInputNotFound, "shapefile: %s", path)
		}
		return nil, eris.Wrapf(err, "shapefile: stat %s", path)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	crs, err := readPrj(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	layer := vector.NewLayer(name, crs)

	dbfFields := reader.Fields()
	fields := make([]vector.Field, len(dbfFields))
	for i, f := range dbfFields {
		fields[i] = fromDBFField(f)
		layer.AddField(fields[i])
	}

	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		g := toGeom(shape)
		if g == nil {
			skipped++
			continue
		}

		props := make(map[string]any, len(fields))
		for i, f := range fields {
			if v, ok := parseAttribute(reader.Attribute(i), f); ok {
				props[f.Name] = v
			}
		}
		layer.Append(g, props)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapefile: read %s", path)
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return layer, nil
}

func fromDBFField(f shp.Field) vector.Field {
	name := strings.TrimRight(f.String(), "\x00")
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			return vector.IntField(name, f.Size)
		}
		return vector.FloatField(name, f.Size, f.Precision)
	case 'F':
		return vector.FloatField(name, f.Size, f.Precision)
	default:
		return vector.StringField(name, f.Size)
	}
}

// parseAttribute converts a raw dBase value. Blank values report false.
func parseAttribute(raw string, f vector.Field) (any, bool) {
	val := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if val == "" {
		return nil, false
	}
	switch f.Kind {
	case vector.FieldInt:
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n, true
		}
		if x, err := strconv.ParseFloat(val, 64); err == nil {
			return x, true
		}
	case vector.FieldFloat:
		if x, err := strconv.ParseFloat(val, 64); err == nil {
			return x, true
		}
	}
	return val, true
}
