package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ParseASCII reads an ESRI ASCII grid (.asc).
func ParseASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for len(header) < 6 && sc.Scan() {
		key := strings.ToLower(sc.Text())
		switch key {
		case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		default:
			first = sc.Text()
		}
		if first != "" {
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("raster: ascii header %s has no value", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: ascii header %s", key)
		}
		header[key] = v
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("raster: ascii header missing %s", k)
		}
	}

	cols, rows := int(header["ncols"]), int(header["nrows"])
	size := header["cellsize"]

	var x0, y0 float64
	if v, ok := header["xllcorner"]; ok {
		x0 = v
	} else {
		x0 = header["xllcenter"] - size/2
	}
	if v, ok := header["yllcorner"]; ok {
		y0 = v
	} else {
		y0 = header["yllcenter"] - size/2
	}

	g := &Grid{
		Cols:         cols,
		Rows:         rows,
		GeoTransform: [6]float64{x0, size, 0, y0 + float64(rows)*size, 0, -size},
		Data:         make([]float64, 0, cols*rows),
	}
	if nd, ok := header["nodata_value"]; ok {
		g.NoData, g.HasNoData = nd, true
	}

	next := func() (string, bool) {
		if first != "" {
			s := first
			first = ""
			return s, true
		}
		if sc.Scan() {
			return sc.Text(), true
		}
		return "", false
	}
	for len(g.Data) < cols*rows {
		tok, ok := next()
		if !ok {
			break
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: ascii value %d", len(g.Data))
		}
		g.Data = append(g.Data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan ascii grid")
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// WriteASCII writes g as an ESRI ASCII grid.
func WriteASCII(path string, g *Grid) error {
	if err := g.validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}

	w := bufio.NewWriter(f)
	cw, ch := g.CellSize()
	if cw != ch {
		_ = f.Close()
		return eris.Errorf("raster: ascii grids need square cells, got %gx%g", cw, ch)
	}
	fmt.Fprintf(w, "ncols %d\nnrows %d\n", g.Cols, g.Rows)
	fmt.Fprintf(w, "xllcorner %s\nyllcorner %s\n", formatFloat(g.GeoTransform[0]), formatFloat(g.cellY(g.Rows)))
	fmt.Fprintf(w, "cellsize %s\nNODATA_value %s\n", formatFloat(cw), formatFloat(g.NoData))
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if c > 0 {
				_ = w.WriteByte(' ')
			}
			v := g.At(c, r)
			if g.IsNoData(v) {
				v = g.NoData
			}
			_, _ = w.WriteString(formatFloat(v))
		}
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "raster: write %s", path)
	}
	return eris.Wrapf(f.Close(), "raster: close %s", path)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
