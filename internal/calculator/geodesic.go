package calculator

import (
	"city-distance/internal/models"

	"github.com/tidwall/geodesic"
)

// Distance returns the geodesic distance in meters between a and b on the
// WGS-84 ellipsoid (Karney's inverse solution).
func Distance(a, b models.Coordinate) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat, a.Lon, b.Lat, b.Lon, &s12, nil, nil)
	return s12
}
