// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geo

import (
	"math"

	"github.com/chefzaid/travelmapster/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b models.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Within returns the markers whose position lies within radiusKm of center,
// in input order.
func Within(markers []models.Marker, center models.Coordinate, radiusKm float64) []models.Marker {
	var near []models.Marker
	for i := range markers {
		if HaversineKm(markers[i].Coordinate(), center) <= radiusKm {
			near = append(near, markers[i])
		}
	}
	return near
}
