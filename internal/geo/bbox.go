// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wroge/wgs84"

	"github.com/chefzaid/travelmapster/internal/models"
)

// ErrInvalidBBox is returned by ParseBBox for malformed input.
var ErrInvalidBBox = errors.New("invalid bounding box")

// maxMercatorLat is the latitude limit of the Web-Mercator projection.
const maxMercatorLat = 85.05112878

// BBox is a WGS84 bounding box in degrees.
type BBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

var (
	toMercator   = wgs84.EPSG().Transform(4326, 3857)
	fromMercator = wgs84.EPSG().Transform(3857, 4326)
)

// mercatorMaxX is the Web-Mercator x coordinate of the antimeridian.
const mercatorMaxX = 20037508.342789244

// AroundKm returns the boxes covering roughly radiusKm on each side of
// center. The first box always contains center. A box that would cross the
// antimeridian is split at ±180 into two boxes.
//
// The box is built in Web-Mercator (EPSG:3857) metres. Mercator distances are
// stretched by 1/cos(lat), so the half-size is scaled accordingly.
func AroundKm(center models.Coordinate, radiusKm float64) []BBox {
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, center.Lat))
	x, y, _ := toMercator(center.Lng, lat, 0)

	half := radiusKm * 1000 / math.Cos(lat*math.Pi/180)

	// Latitude depends on y alone; x=0 keeps the inverse away from the seam.
	_, south, _ := fromMercator(0, y-half, 0)
	_, north, _ := fromMercator(0, y+half, 0)
	south, north = math.Max(-90, south), math.Min(90, north)

	// Mercator x is linear in longitude.
	lng := func(mx float64) float64 { return mx / mercatorMaxX * 180 }

	west, east := x-half, x+half
	switch {
	case half >= mercatorMaxX:
		return []BBox{{South: south, West: -180, North: north, East: 180}}
	case east > mercatorMaxX:
		return []BBox{
			{South: south, West: lng(west), North: north, East: 180},
			{South: south, West: -180, North: north, East: lng(east - 2*mercatorMaxX)},
		}
	case west < -mercatorMaxX:
		return []BBox{
			{South: south, West: -180, North: north, East: lng(east)},
			{South: south, West: lng(west + 2*mercatorMaxX), North: north, East: 180},
		}
	default:
		return []BBox{{South: south, West: lng(west), North: north, East: lng(east)}}
	}
}

// Contains reports whether c lies inside the box (edges inclusive).
func (b BBox) Contains(c models.Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lng >= b.West && c.Lng <= b.East
}

// Valid reports whether the box has ordered, in-range edges.
func (b BBox) Valid() bool {
	return b.South >= -90 && b.North <= 90 && b.West >= -180 && b.East <= 180 &&
		b.South < b.North && b.West < b.East
}

// String formats the box as "south,west,north,east", the form ParseBBox accepts.
func (b BBox) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(b.South, 'f', -1, 64),
		strconv.FormatFloat(b.West, 'f', -1, 64),
		strconv.FormatFloat(b.North, 'f', -1, 64),
		strconv.FormatFloat(b.East, 'f', -1, 64),
	}, ",")
}

// ParseBBox parses "south,west,north,east" in degrees.
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("%w: want south,west,north,east, got %q", ErrInvalidBBox, s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return BBox{}, fmt.Errorf("%w: bad number %q", ErrInvalidBBox, p)
		}
		vals[i] = v
	}
	b := BBox{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}
	if !b.Valid() {
		return BBox{}, fmt.Errorf("%w: edges out of order or range: %s", ErrInvalidBBox, s)
	}
	return b, nil
}
