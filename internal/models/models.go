package models

import (
	"math"
	"slices"
	"strings"
)

type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinate lies inside the WGS-84 lat/lon ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Point is a named location. Names need not be unique.
type Point struct {
	Name string
	Loc  Coordinate
	// Row is the 1-based source row the point was read from, 0 when built in code.
	Row int
}

// Validate returns a *GeometryError when the point's coordinate is out of range.
func (p Point) Validate(index int) error {
	if p.Loc.Valid() {
		return nil
	}
	return &GeometryError{
		Index: index,
		Row:   p.Row,
		Name:  p.Name,
		Lat:   p.Loc.Lat,
		Lon:   p.Loc.Lon,
	}
}

type DistanceRecord struct {
	FromName string
	FromLat  float64
	FromLon  float64
	ToName   string
	ToLat    float64
	ToLon    float64
	Distance float64 // meters
}

// NewDistanceRecord builds the output row for the ordered pair (from, to).
func NewDistanceRecord(from, to Point, meters float64) DistanceRecord {
	return DistanceRecord{
		FromName: from.Name,
		FromLat:  from.Loc.Lat,
		FromLon:  from.Loc.Lon,
		ToName:   to.Name,
		ToLat:    to.Loc.Lat,
		ToLon:    to.Loc.Lon,
		Distance: meters,
	}
}

var (
	// FullHeader labels every emitted column.
	FullHeader = []string{"from_city", "from_lat", "from_lon", "to_city", "to_lat", "to_lon", "distance"}
	// LegacyHeader is the three-label header older consumers expect, although
	// rows still carry seven values.
	LegacyHeader = []string{"from_city", "to_city", "distance"}
)

// IsResultHeader reports whether header is one a distance table is written with.
func IsResultHeader(header []string) bool {
	if len(header) > 0 {
		header = append([]string{strings.TrimPrefix(header[0], "\ufeff")}, header[1:]...)
	}
	return slices.Equal(header, FullHeader) || slices.Equal(header, LegacyHeader)
}

func ResultHeader(legacy bool) []string {
	if legacy {
		return LegacyHeader
	}
	return FullHeader
}
