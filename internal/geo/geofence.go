// Package geo evaluates geofences: geodesic distance between coordinates and
// the inclusive radius check used for attendance.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// DefaultRadiusMeters is the default geofence radius.
const DefaultRadiusMeters = 100.0

// WGS-84 ellipsoid.
const (
	wgs84A = 6378137.0
	wgs84F = 1 / 298.257223563
	wgs84B = wgs84A * (1 - wgs84F)

	// meanEarthRadius is used by the spherical fallback.
	meanEarthRadius = 6371008.8

	vincentyMaxIterations = 200
	vincentyEpsilon       = 1e-12
)

// ErrNotFinite is returned when a coordinate component is NaN or infinite.
var ErrNotFinite = errors.New("coordinate is not finite")

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that both components are finite numbers. No range check is
// applied: manual entries are accepted as typed.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) {
		return fmt.Errorf("%w: latitude %v", ErrNotFinite, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("%w: longitude %v", ErrNotFinite, c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Latitude, c.Longitude)
}

// DistanceMeters returns the geodesic distance between a and b on the WGS-84
// ellipsoid (Vincenty inverse formula). For nearly antipodal points where the
// iteration does not converge the spherical great-circle distance is returned.
//
// The result is symmetric and exactly zero for identical points.
func DistanceMeters(a, b Coordinate) float64 {
	if a == b {
		return 0
	}
	// Evaluate in a canonical order so that d(a,b) == d(b,a) bit for bit.
	if less(b, a) {
		a, b = b, a
	}
	if d, ok := vincenty(a, b); ok {
		return d
	}
	return haversine(a, b)
}

// WithinRadius reports whether distance lies inside the geofence. The
// boundary is inclusive.
func WithinRadius(distance, radiusMeters float64) bool {
	return distance <= radiusMeters
}

func less(a, b Coordinate) bool {
	if a.Latitude != b.Latitude {
		return a.Latitude < b.Latitude
	}
	return a.Longitude < b.Longitude
}

func vincenty(p, q Coordinate) (float64, bool) {
	l := toRadians(q.Longitude - p.Longitude)
	u1 := math.Atan((1 - wgs84F) * math.Tan(toRadians(p.Latitude)))
	u2 := math.Atan((1 - wgs84F) * math.Tan(toRadians(q.Latitude)))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	for range vincentyMaxIterations {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Sqrt((cosU2*sinLambda)*(cosU2*sinLambda) +
			(cosU1*sinU2-sinU1*cosU2*cosLambda)*(cosU1*sinU2-sinU1*cosU2*cosLambda))
		if sinSigma == 0 {
			return 0, true // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		} else {
			cos2SigmaM = 0 // equatorial line
		}
		c := wgs84F / 16 * cosSqAlpha * (4 + wgs84F*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*wgs84F*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < vincentyEpsilon {
			uSq := cosSqAlpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
			a := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
			b := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
			deltaSigma := b * sinSigma * (cos2SigmaM + b/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
				b/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))
			return wgs84B * a * (sigma - deltaSigma), true
		}
	}
	return 0, false
}

func haversine(p, q Coordinate) float64 {
	phi1 := toRadians(p.Latitude)
	phi2 := toRadians(q.Latitude)
	dPhi := phi2 - phi1
	dLambda := toRadians(q.Longitude - p.Longitude)
	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * meanEarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
