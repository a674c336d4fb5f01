package utils

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// GeoRef is a named point used for proximity suggestions (e.g. picking
// the closest branch team on emergency intake).
type GeoRef struct {
	Key string
	Lat float64
	Lng float64
}

// DistanceMeters returns the great-circle distance between two
// coordinates in meters.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return geo.Distance(orb.Point{lng1, lat1}, orb.Point{lng2, lat2})
}

// Nearest returns the GeoRef closest to (lat, lng), or nil when the
// slice is empty.
func Nearest(refs []GeoRef, lat, lng float64) *GeoRef {
	var best *GeoRef
	bestDist := 0.0
	for i := range refs {
		d := DistanceMeters(lat, lng, refs[i].Lat, refs[i].Lng)
		if best == nil || d < bestDist {
			best = &refs[i]
			bestDist = d
		}
	}
	return best
}
