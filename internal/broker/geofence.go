// ABOUTME: Haversine distance check for geofenced attendance commands.
// ABOUTME: Events recorded outside the company radius are rejected, not broadcast.

package broker

import (
	"math"

	"github.com/shiftline/presence/internal/config"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// distanceMeters computes the great-circle distance between two points.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// withinGeofence reports whether a position is allowed under the company
// config. An unconfigured geofence allows everything.
func withinGeofence(company config.CompanyConfig, lat, lon float64) bool {
	if !company.GeofenceEnabled() {
		return true
	}
	return distanceMeters(company.Latitude, company.Longitude, lat, lon) <= company.GeofenceRadius
}
