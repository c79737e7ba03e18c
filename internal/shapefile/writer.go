package shapefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suitability-cli/internal/vector"
)

// sidecars are the files a written shapefile consists of.
var sidecars = []string{".shp", ".shx", ".dbf", ".prj"}

// maxFieldName is the dBase III limit on field name length.
const maxFieldName = 10

// Write stores layer at path (a .shp path). All files are produced in a
// temporary directory next to path and renamed into place once complete, so
// a failed write never leaves a half-written shapefile behind.
func Write(path string, layer *vector.Layer) error {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		return eris.Errorf("shapefile: output %s must have a .shp extension", path)
	}

	st, err := layerShapeType(layer)
	if err != nil {
		return eris.Wrapf(err, "shapefile: write %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "shapefile: create dir %s", dir)
	}
	tmpDir, err := os.MkdirTemp(dir, ".shp-*")
	if err != nil {
		return eris.Wrapf(err, "shapefile: create temp dir in %s", dir)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmpPath := filepath.Join(tmpDir, base+".shp")

	if err := writeFiles(tmpPath, st, layer); err != nil {
		return eris.Wrapf(err, "shapefile: write %s", path)
	}
	hasPrj, err := writePrj(tmpPath, layer.CRS)
	if err != nil {
		return err
	}

	final := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range sidecars {
		if ext == ".prj" && !hasPrj {
			// A stale .prj from an earlier run would mislabel the new data.
			_ = os.Remove(final + ext)
			continue
		}
		if err := os.Rename(filepath.Join(tmpDir, base+ext), final+ext); err != nil {
			return eris.Wrapf(err, "shapefile: move %s into place", final+ext)
		}
	}

	zap.L().Debug("shapefile: wrote layer",
		zap.String("path", path),
		zap.Int("features", layer.Len()),
		zap.String("crs", layer.CRS.String()),
	)
	return nil
}

func writeFiles(path string, st shp.ShapeType, layer *vector.Layer) error {
	w, err := shp.Create(path, st)
	if err != nil {
		return eris.Wrap(err, "create")
	}
	defer w.Close()

	fields := make([]shp.Field, 0, len(layer.Fields))
	for _, f := range layer.Fields {
		fields = append(fields, toDBFField(f))
	}
	if len(fields) == 0 {
		// dBase files need at least one column.
		fields = append(fields, shp.NumberField("FID", 10))
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "set fields")
	}

	for i, f := range layer.Features {
		if f.Geometry == nil || f.Geometry.Empty() {
			return eris.Wrapf(vector.ErrEmptyGeometry, "feature %d", i)
		}
		shape, err := fromGeom(f.Geometry, st)
		if err != nil {
			return eris.Wrapf(err, "feature %d", i)
		}
		row := int(w.Write(shape))

		if len(layer.Fields) == 0 {
			if err := w.WriteAttribute(row, 0, i); err != nil {
				return eris.Wrapf(err, "feature %d: FID", i)
			}
			continue
		}
		for j, field := range layer.Fields {
			v, ok := attributeValue(f.Properties[field.Name], field)
			if !ok {
				continue
			}
			if err := w.WriteAttribute(row, j, v); err != nil {
				return eris.Wrapf(err, "feature %d: attribute %s", i, field.Name)
			}
		}
	}
	return nil
}

// layerShapeType derives one shape type for the whole layer. Empty layers
// default to polygons.
func layerShapeType(layer *vector.Layer) (shp.ShapeType, error) {
	st := shp.NULL
	for i, f := range layer.Features {
		if f.Geometry == nil {
			continue
		}
		t, err := shapeTypeOf(f.Geometry)
		if err != nil {
			return shp.NULL, eris.Wrapf(err, "feature %d", i)
		}
		if st == shp.NULL {
			st = t
			continue
		}
		if t != st {
			return shp.NULL, eris.Wrapf(vector.ErrMalformedGeometry, "feature %d: mixed shape types %d and %d", i, st, t)
		}
	}
	if st == shp.NULL {
		st = shp.POLYGON
	}
	return st, nil
}

func toDBFField(f vector.Field) shp.Field {
	name := f.Name
	if len(name) > maxFieldName {
		name = name[:maxFieldName]
	}
	switch f.Kind {
	case vector.FieldInt:
		return shp.NumberField(name, sizeOr(f.Size, 18))
	case vector.FieldFloat:
		return shp.FloatField(name, sizeOr(f.Size, 24), f.Precision)
	default:
		return shp.StringField(name, sizeOr(f.Size, 80))
	}
}

func sizeOr(size, def uint8) uint8 {
	if size == 0 {
		return def
	}
	return size
}

// attributeValue normalizes a property to the types go-shp can write.
func attributeValue(v any, f vector.Field) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch n := v.(type) {
	case int:
		if f.Kind == vector.FieldFloat {
			return float64(n), true
		}
		return n, true
	case int32:
		return attributeValue(int(n), f)
	case int64:
		return attributeValue(int(n), f)
	case float32:
		return attributeValue(float64(n), f)
	case float64:
		if f.Kind == vector.FieldInt {
			return int(n), true
		}
		if f.Kind == vector.FieldString {
			return fmt.Sprint(n), true
		}
		return n, true
	case string:
		return n, true
	case bool:
		if n {
			return "T", true
		}
		return "F", true
	default:
		return fmt.Sprint(v), true
	}
}
