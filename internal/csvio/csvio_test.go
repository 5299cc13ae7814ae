package csvio

import (
	"bytes"
	"strings"
	"testing"

	"city-distance/internal/models"
	"city-distance/internal/points"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cities = `city,city_ascii,lat,lng,country
Delhi,Delhi,28.6600,77.2300,India
Mumbai,Mumbai,18.9667,72.8333,India
,,,,
"Bangalore, KA",Bengaluru,12.9699,77.5980,India
`

func TestReadPoints(t *testing.T) {
	got, err := ReadPoints(strings.NewReader(cities), "india_city.csv", points.DefaultColumns)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, models.Point{Name: "Delhi", Loc: models.Coordinate{Lat: 28.66, Lon: 77.23}, Row: 2}, got[0])
	assert.Equal(t, "Mumbai", got[1].Name)
	assert.Equal(t, "Bengaluru", got[2].Name)
	assert.Equal(t, 5, got[2].Row)
}

func TestReadPointsCustomColumns(t *testing.T) {
	in := "id,name,latitude,longitude\n1,Paris,48.8566,2.3522\n2,Lyon,45.764,4.8357\n"
	cols := points.Columns{Name: "name", Latitude: "latitude", Longitude: "longitude"}

	got, err := ReadPoints(strings.NewReader(in), "fr.csv", cols)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lyon", got[1].Name)
	assert.InDelta(t, 4.8357, got[1].Loc.Lon, 1e-12)
}

func TestReadPointsErrors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		row    int
		column string
	}{
		{"Empty", "", 0, ""},
		{"MissingColumn", "city_ascii,lat\nDelhi,28.6\n", 1, "lng"},
		{"NotNumeric", "city_ascii,lat,lng\nDelhi,28.6,77.2\nMumbai,north,72.8\n", 3, "lat"},
		{"BlankCoordinate", "city_ascii,lat,lng\nDelhi,28.6,\n", 2, "lng"},
		{"FieldCount", "city_ascii,lat,lng\nDelhi,28.6\n", 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPoints(strings.NewReader(tt.in), "in.csv", points.DefaultColumns)
			var perr *models.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.row, perr.Row)
			assert.Equal(t, tt.column, perr.Column)
			assert.Equal(t, "in.csv", perr.Source)
		})
	}
}

func TestReadPointsOutOfRange(t *testing.T) {
	_, err := ReadPoints(strings.NewReader("city_ascii,lat,lng\nA,1,1\nB,-90.5,1\n"), "in.csv", points.DefaultColumns)
	var gerr *models.GeometryError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 3, gerr.Row)
	assert.Equal(t, 1, gerr.Index)
}

func TestResultWriter(t *testing.T) {
	rec := models.DistanceRecord{
		FromName: "X", FromLat: 0, FromLon: 0,
		ToName: "Y, the second", ToLat: 0, ToLon: 0.05,
		Distance: 5565.974539663679,
	}

	var buf bytes.Buffer
	w, err := NewResultWriter(&buf, false)
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	assert.Equal(t, 1, w.Rows())

	assert.Equal(t,
		"from_city,from_lat,from_lon,to_city,to_lat,to_lon,distance\n"+
			"X,0,0,\"Y, the second\",0,0.05,5565.974539663679\n",
		buf.String())
}

func TestResultWriterLegacy(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewResultWriter(&buf, true)
	require.NoError(t, err)
	require.NoError(t, w.Write(models.DistanceRecord{FromName: "A", ToName: "B", FromLat: 1.5, Distance: 12}))
	require.NoError(t, w.Write(models.DistanceRecord{
		FromName: "X", FromLat: 0.00001, FromLon: 0,
		ToName: "Y, the second", ToLat: 0, ToLon: 0.05,
		Distance: 5565.974539663679,
	}))
	require.NoError(t, w.Close())

	// byte-for-byte what csv.writer emits for the same Python floats
	assert.Equal(t,
		"from_city,to_city,distance\r\n"+
			"A,1.5,0.0,B,0.0,0.0,12.0\r\n"+
			"X,1e-05,0.0,\"Y, the second\",0.0,0.05,5565.974539663679\r\n",
		buf.String())
}

func TestReprNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{-0.5, "-0.5"},
		{28.66, "28.66"},
		{100000, "100000.0"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1.5e-07, "1.5e-07"},
		{1e16, "1e+16"},
		{123456789012345.6, "123456789012345.6"},
	}
	for _, tt := range tests {
		got, err := reprNumber(tt.in).MarshalText()
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "%v", tt.in)
	}
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, points.DefaultColumns))
	assert.Equal(t, "city_ascii,lat,lng\n", buf.String())
}

func TestReadResults(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		var buf bytes.Buffer
		w, err := NewResultWriter(&buf, legacy)
		require.NoError(t, err)
		want := models.DistanceRecord{
			FromName: "X", FromLat: 0.00001, FromLon: 0,
			ToName: "Y, the second", ToLat: 0, ToLon: 0.05,
			Distance: 5565.974539663679,
		}
		require.NoError(t, w.Write(want))
		require.NoError(t, w.Close())

		got, err := ReadResults(&buf, "out.csv")
		require.NoError(t, err, "legacy=%v", legacy)
		assert.Equal(t, []models.DistanceRecord{want}, got, "legacy=%v", legacy)
	}
}

func TestReadResultsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		row   int
	}{
		{"Empty", "", 0},
		{"NotATable", "city_ascii,lat,lng\nX,0,0\n", 1},
		{"BadNumber", "from_city,to_city,distance\nX,0,0,Y,0,abc,1\n", 2},
		{"ShortRow", "from_city,to_city,distance\nX,Y,1\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadResults(strings.NewReader(tt.input), "out.csv")
			var perr *models.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.row, perr.Row)
		})
	}
}
