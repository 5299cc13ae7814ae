// Package points holds the column mapping and row conversion shared by the
// CSV and XLSX point loaders.
package points

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"city-distance/internal/models"
)

// Columns names the header cells carrying a point's name, latitude and longitude.
type Columns struct {
	Name      string `yaml:"name"`
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
}

var DefaultColumns = Columns{Name: "city_ascii", Latitude: "lat", Longitude: "lng"}

// Header returns the columns in name, latitude, longitude order.
func (c Columns) Header() []string {
	return []string{c.Name, c.Latitude, c.Longitude}
}

// Index maps each configured column to its position in a header row.
type Index struct {
	Name, Lat, Lon int
}

func normalizeHeader(cell string) string {
	return strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
}

// Locate finds the configured columns in header. The first occurrence wins.
func (c Columns) Locate(source string, header []string) (Index, error) {
	idx := Index{Name: -1, Lat: -1, Lon: -1}
	for i, cell := range header {
		switch normalizeHeader(cell) {
		case c.Name:
			if idx.Name < 0 {
				idx.Name = i
			}
		case c.Latitude:
			if idx.Lat < 0 {
				idx.Lat = i
			}
		case c.Longitude:
			if idx.Lon < 0 {
				idx.Lon = i
			}
		}
	}

	var missing []string
	if idx.Name < 0 {
		missing = append(missing, c.Name)
	}
	if idx.Lat < 0 {
		missing = append(missing, c.Latitude)
	}
	if idx.Lon < 0 {
		missing = append(missing, c.Longitude)
	}
	if len(missing) > 0 {
		return idx, &models.ParseError{
			Source: source,
			Row:    1,
			Column: strings.Join(missing, ","),
			Err:    errors.New("required column missing from header"),
		}
	}
	return idx, nil
}

// ParseCoord accepts a decimal number, tolerating surrounding blanks and a
// decimal comma when no dot is present.
func ParseCoord(val string) (float64, error) {
	val = strings.TrimSpace(val)
	if !strings.Contains(val, ".") {
		val = strings.ReplaceAll(val, ",", ".")
	}
	if val == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(val, 64)
}

// Build turns the raw cells of one data row into a validated point.
// index is the point's position in the resulting set.
func (c Columns) Build(source string, row, index int, name, lat, lon string) (models.Point, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Point{}, &models.ParseError{Source: source, Row: row, Column: c.Name, Err: errors.New("empty name")}
	}

	latV, err := ParseCoord(lat)
	if err != nil {
		return models.Point{}, &models.ParseError{Source: source, Row: row, Column: c.Latitude, Err: fmt.Errorf("not a number %q: %w", lat, err)}
	}
	lonV, err := ParseCoord(lon)
	if err != nil {
		return models.Point{}, &models.ParseError{Source: source, Row: row, Column: c.Longitude, Err: fmt.Errorf("not a number %q: %w", lon, err)}
	}

	p := models.Point{Name: name, Loc: models.Coordinate{Lat: latV, Lon: lonV}, Row: row}
	if err := p.Validate(index); err != nil {
		return models.Point{}, err
	}
	return p, nil
}

// Blank reports whether every cell in a row is empty.
func Blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
