package vector

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// toGEOS converts a go-geom geometry into a GEOS geometry through WKB and
// rejects topologically invalid input.
func toGEOS(g geom.T) (*geos.Geom, error) {
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedGeometry, "vector: encode wkb: %v", err)
	}

	var out *geos.Geom
	err = guard("parse wkb", func() error {
		gg, perr := geos.NewGeomFromWKB(data)
		if perr != nil {
			return eris.Wrapf(ErrMalformedGeometry, "vector: parse wkb: %v", perr)
		}
		if !gg.IsValid() {
			return eris.Wrapf(ErrMalformedGeometry, "vector: invalid geometry: %s", gg.IsValidReason())
		}
		out = gg
		return nil
	})
	return out, err
}

// fromGEOS converts a GEOS geometry back into go-geom.
func fromGEOS(g *geos.Geom) (geom.T, error) {
	var data []byte
	if err := guard("write wkb", func() error {
		data = g.ToWKB()
		return nil
	}); err != nil {
		return nil, err
	}
	t, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedGeometry, "vector: decode wkb: %v", err)
	}
	return t, nil
}

// guard runs fn and turns a GEOS panic into ErrMalformedGeometry.
func guard(op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Wrapf(ErrMalformedGeometry, "vector: %s: %s", op, fmt.Sprint(r))
		}
	}()
	return fn()
}

// cascadedUnion unions geometries pairwise, halving the input each level.
func cascadedUnion(geoms []*geos.Geom) *geos.Geom {
	if len(geoms) == 1 {
		return geoms[0]
	}
	mid := len(geoms) / 2
	left := cascadedUnion(geoms[:mid])
	right := cascadedUnion(geoms[mid:])
	return left.Union(right)
}
