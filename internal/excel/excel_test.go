package excel

import (
	"bytes"
	"strconv"
	"testing"

	"city-distance/internal/models"
	"city-distance/internal/points"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, sheet string, rows [][]interface{}) *excelize.File {
	t.Helper()

	f := excelize.NewFile()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := OpenReader(buf)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func TestReadPoints(t *testing.T) {
	f := workbook(t, "Sheet1", [][]interface{}{
		{"id", "city_ascii", "lat", "lng"},
		{1, "Delhi", 28.66, 77.23},
		{3, "Agra", "27,18", "78.01"},
	})

	got, err := ReadPoints(f, "", "cities.xlsx", points.DefaultColumns)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Delhi", got[0].Name)
	assert.InDelta(t, 28.66, got[0].Loc.Lat, 1e-9)
	assert.Equal(t, 2, got[0].Row)
	assert.Equal(t, "Agra", got[1].Name)
	assert.InDelta(t, 27.18, got[1].Loc.Lat, 1e-9)
	assert.Equal(t, 3, got[1].Row)
}

func TestReadPointsNamedSheet(t *testing.T) {
	f := workbook(t, "Cities", [][]interface{}{
		{"name", "y", "x"},
		{"Paris", 48.85, 2.35},
	})

	_, err := ReadPoints(f, "Missing", "fr.xlsx", points.DefaultColumns)
	var perr *models.ParseError
	require.ErrorAs(t, err, &perr)

	got, err := ReadPoints(f, "Cities", "fr.xlsx", points.Columns{Name: "name", Latitude: "y", Longitude: "x"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 2.35, got[0].Loc.Lon, 1e-9)
}

func TestReadPointsErrors(t *testing.T) {
	f := workbook(t, "Sheet1", [][]interface{}{
		{"city_ascii", "lat"},
		{"Delhi", 28.66},
	})
	_, err := ReadPoints(f, "", "in.xlsx", points.DefaultColumns)
	var perr *models.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "lng", perr.Column)

	f = workbook(t, "Sheet1", [][]interface{}{
		{"city_ascii", "lat", "lng"},
		{"Delhi", 28.66, 77.23},
		{"Mumbai", 18.97},
	})
	_, err = ReadPoints(f, "", "in.xlsx", points.DefaultColumns)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Row)
	assert.Equal(t, "lng", perr.Column)
}

func TestResultWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewResultWriter(&buf, "Distances", false)
	require.NoError(t, err)

	require.NoError(t, w.Write(models.DistanceRecord{
		FromName: "X", FromLat: 0, FromLon: 0,
		ToName: "Y", ToLat: 0, ToLon: 0.05,
		Distance: 5565.974539663679,
	}))
	require.NoError(t, w.Close())
	assert.Equal(t, 1, w.Rows())

	f, err := OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Distances"}, f.GetSheetList())

	rows, err := f.GetRows("Distances", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.FullHeader, rows[0])
	assert.Equal(t, "X", rows[1][0])
	assert.Equal(t, "Y", rows[1][3])

	d, err := strconv.ParseFloat(rows[1][6], 64)
	require.NoError(t, err)
	assert.InDelta(t, 5565.974539663679, d, 1e-9)
}

func TestResultWriterLegacyHeader(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewResultWriter(&buf, "Sheet1", true)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.LegacyHeader, rows[0])
}
