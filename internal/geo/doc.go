// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package geo holds the geometric primitives behind place resolution.

  - HaversineKm: great-circle distance on a 6371 km sphere
  - AroundKm: bounding boxes sized in Web-Mercator metres (wroge/wgs84),
    split in two where they cross the antimeridian
  - CountryIndex: point-in-polygon and name lookup over the country
    dataset (peterstace/simplefeatures)
  - Loader: reads the dataset from disk, downloading it once if missing

Distance checks are linear scans; no spatial index is kept.
*/
package geo
