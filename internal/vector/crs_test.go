package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCRS(t *testing.T) {
	c, err := ParseCRS("EPSG:27700")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:27700", c.Code)
	assert.Contains(t, c.WKT, "British_National_Grid")

	c, err = ParseCRS("4326")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:4326", c.Code)

	c, err = ParseCRS("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())

	_, err = ParseCRS("epsg:abc")
	assert.Error(t, err)
}

func TestFromWKT_Authority(t *testing.T) {
	c := FromWKT(`PROJCS["OSGB 1936 / British National Grid",GEOGCS["OSGB 1936"],AUTHORITY["EPSG","27700"]]`)
	assert.Equal(t, "EPSG:27700", c.Code)
}

func TestFromWKT_KnownDefinition(t *testing.T) {
	c := FromWKT(" " + knownWKT[27700] + "\n")
	assert.Equal(t, "EPSG:27700", c.Code)
}

func TestCRSMatches(t *testing.T) {
	assert.True(t, EPSG(27700).Matches(EPSG(27700)))
	assert.False(t, EPSG(27700).Matches(EPSG(4326)))
	assert.True(t, CRS{}.Matches(EPSG(4326)))
	assert.True(t, CRS{WKT: `LOCAL_CS["x"]`}.Matches(CRS{WKT: `local_cs[ "x" ]`}))
	assert.True(t, CRS{Code: "EPSG:1"}.Matches(CRS{WKT: `LOCAL_CS["x"]`}))
}

const (
	esriUTM30N = `PROJCS["WGS_1984_UTM_Zone_30N",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],PARAMETER["False_Easting",500000.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",-3.0],PARAMETER["Scale_Factor",0.9996],PARAMETER["Latitude_Of_Origin",0.0],UNIT["Meter",1.0]]`
	ogcUTM30N  = `PROJCS["WGS 84 / UTM zone 30N",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],AUTHORITY["EPSG","4326"]],PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",-3],PARAMETER["scale_factor",0.9996],PARAMETER["false_easting",500000],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]],AXIS["Easting",EAST],AXIS["Northing",NORTH],AUTHORITY["EPSG","32630"]]`
	esriLambert = `PROJCS["Custom_Lambert",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Lambert_Conformal_Conic"],UNIT["Meter",1.0]]`
)

func TestFromWKT_ESRIUTM(t *testing.T) {
	assert.Equal(t, "EPSG:32630", FromWKT(esriUTM30N).Code)
	assert.Equal(t, "EPSG:32630", FromWKT(ogcUTM30N).Code)

	south := FromWKT(`PROJCS["WGS_1984_UTM_Zone_33S",GEOGCS["GCS_WGS_1984"]]`)
	assert.Equal(t, "EPSG:32733", south.Code)
}

func TestCRSMatches_CodeAgainstESRIPrj(t *testing.T) {
	c, err := ParseCRS("EPSG:32630")
	require.NoError(t, err)
	assert.True(t, c.Matches(FromWKT(esriUTM30N)))

	// A code against an ESRI definition without a recognisable name cannot be
	// compared and is accepted.
	custom := FromWKT(esriLambert)
	assert.Empty(t, custom.Code)
	assert.False(t, c.Comparable(custom))
	assert.True(t, c.Matches(custom))
}

func TestCRSMatches_OGCAgainstESRI(t *testing.T) {
	assert.True(t, FromWKT(ogcUTM30N).Matches(FromWKT(esriUTM30N)))

	// Different dialects without codes on one side are not comparable.
	assert.True(t, CRS{WKT: ogcUTM30N}.Matches(CRS{WKT: esriLambert}))
}

func TestCRSMatches_SameDialectDiffers(t *testing.T) {
	a := CRS{WKT: esriLambert}
	b := CRS{WKT: knownWKT[27700]}
	assert.True(t, a.Comparable(b))
	assert.False(t, a.Matches(b))
	assert.False(t, EPSG(32630).Matches(CRS{Code: "EPSG:32631"}))
}

func TestCRS_SRID(t *testing.T) {
	assert.Equal(t, 27700, EPSG(27700).SRID())
	assert.Equal(t, 0, CRS{}.SRID())
	assert.Equal(t, 0, CRS{Code: "ESRI:102100"}.SRID())
	assert.Equal(t, 32630, FromWKT(esriUTM30N).SRID())
}
