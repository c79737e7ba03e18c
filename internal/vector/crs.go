package vector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// CRS identifies the coordinate reference system of a layer. The zero value
// means an unknown coordinate system.
type CRS struct {
	// Code is an authority code such as "EPSG:27700".
	Code string
	// WKT is the well-known-text definition, as stored in a .prj sidecar.
	WKT string
}

var (
	authorityRe = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]\s*\]\s*$`)
	// ESRI .prj files carry no AUTHORITY node; UTM zones are named instead.
	esriUTMRe = regexp.MustCompile(`^PROJCS\[\s*"WGS_1984_UTM_Zone_(\d{1,2})([NS])"`)
)

// EPSG returns a CRS for the given EPSG code, filling the WKT from the
// built-in table when the code is known.
func EPSG(code int) CRS {
	c := CRS{Code: fmt.Sprintf("EPSG:%d", code)}
	c.WKT = knownWKT[code]
	return c
}

// ParseCRS accepts "EPSG:27700", a bare "27700", or a WKT definition.
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CRS{}, nil
	}
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "EPSG:") {
		n, err := strconv.Atoi(strings.TrimSpace(s[5:]))
		if err != nil {
			return CRS{}, eris.Wrapf(err, "vector: parse crs %q", s)
		}
		return EPSG(n), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return EPSG(n), nil
	}
	return FromWKT(s), nil
}

// FromWKT builds a CRS from a WKT string, recovering the EPSG code from a
// trailing AUTHORITY clause when present.
func FromWKT(wkt string) CRS {
	wkt = strings.TrimSpace(wkt)
	c := CRS{WKT: wkt}
	if m := authorityRe.FindStringSubmatch(wkt); m != nil {
		c.Code = "EPSG:" + m[1]
		return c
	}
	if m := esriUTMRe.FindStringSubmatch(wkt); m != nil {
		zone, _ := strconv.Atoi(m[1])
		if zone >= 1 && zone <= 60 {
			base := 32600
			if m[2] == "S" {
				base = 32700
			}
			c.Code = fmt.Sprintf("EPSG:%d", base+zone)
			return c
		}
	}
	for code, known := range knownWKT {
		if normalizeWKT(known) == normalizeWKT(wkt) {
			c.Code = fmt.Sprintf("EPSG:%d", code)
			break
		}
	}
	return c
}

// IsZero reports whether the CRS is unknown.
func (c CRS) IsZero() bool {
	return c.Code == "" && c.WKT == ""
}

// Matches reports whether layers in c and other can be combined. Codes are
// compared when both are known, otherwise the normalized WKT when both sides
// use the same WKT dialect. Descriptions that cannot be compared (an unknown
// CRS, a code against a WKT without one, ESRI against OGC WKT) match; see
// Comparable.
func (c CRS) Matches(other CRS) bool {
	if !c.Comparable(other) {
		return true
	}
	if c.Code != "" && other.Code != "" {
		return strings.EqualFold(c.Code, other.Code)
	}
	return normalizeWKT(c.WKT) == normalizeWKT(other.WKT)
}

// Comparable reports whether Matches can tell c and other apart.
func (c CRS) Comparable(other CRS) bool {
	if c.IsZero() || other.IsZero() {
		return false
	}
	if c.Code != "" && other.Code != "" {
		return true
	}
	if c.WKT == "" || other.WKT == "" {
		return false
	}
	return isESRI(c.WKT) == isESRI(other.WKT)
}

// isESRI reports whether wkt uses the ESRI .prj dialect, recognisable by its
// GCS_ and D_ name prefixes.
func isESRI(wkt string) bool {
	n := normalizeWKT(wkt)
	return strings.Contains(n, `GEOGCS["GCS_`) || strings.Contains(n, `DATUM["D_`)
}

// SRID returns the numeric EPSG code, or 0 when the code is unknown.
func (c CRS) SRID() int {
	if !strings.HasPrefix(strings.ToUpper(c.Code), "EPSG:") {
		return 0
	}
	n, err := strconv.Atoi(c.Code[5:])
	if err != nil {
		return 0
	}
	return n
}

func (c CRS) String() string {
	switch {
	case c.Code != "":
		return c.Code
	case c.WKT != "":
		return c.WKT
	default:
		return "unknown"
	}
}

func normalizeWKT(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// knownWKT holds ESRI-flavoured .prj definitions for the systems the analysis
// is normally run in.
var knownWKT = map[int]string{
	27700: `PROJCS["British_National_Grid",GEOGCS["GCS_OSGB_1936",DATUM["D_OSGB_1936",SPHEROID["Airy_1830",6377563.396,299.3249646]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",400000.0],PARAMETER["False_Northing",-100000.0],PARAMETER["Central_Meridian",-2.0],PARAMETER["Scale_Factor",0.9996012717],PARAMETER["Latitude_Of_Origin",49.0],UNIT["Meter",1.0]]`,
	4326:  `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`,
	3857:  `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",0.0],PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`,
}
