package geo

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two coordinates.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat1, lng1))
	p2 := s2.PointFromLatLng(s2.LatLngFromDegrees(lat2, lng2))

	angle := s1.Angle(s2.ChordAngleBetweenPoints(p1, p2).Angle())

	return angle.Radians() * earthRadiusMeters
}

// MoveToward returns the coordinate reached by traveling distanceMeters from the
// start point along the great circle toward the end point. If the requested
// distance exceeds the separation of the two points, the end point is returned.
func MoveToward(startLat, startLng, endLat, endLng, distanceMeters float64) (float64, float64) {
	startPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(startLat, startLng))
	endPoint := s2.PointFromLatLng(s2.LatLngFromDegrees(endLat, endLng))

	totalAngle := s1.Angle(s2.ChordAngleBetweenPoints(startPoint, endPoint).Angle())
	totalMeters := totalAngle.Radians() * earthRadiusMeters

	if distanceMeters >= totalMeters {
		return endLat, endLng
	}

	fraction := distanceMeters / totalMeters
	newLatLng := s2.LatLngFromPoint(s2.Interpolate(fraction, startPoint, endPoint))

	return newLatLng.Lat.Degrees(), newLatLng.Lng.Degrees()
}
