package geofence

import "math"

// EarthRadiusMeters is the mean Earth radius used for distances.
const EarthRadiusMeters = 6371008.8

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Valid reports whether p is within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// Distance returns the great-circle distance between a and b in meters
// using the haversine formula.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// InPolygon reports whether p lies inside the polygon using ray casting.
// The polygon is implicitly closed. Coordinates are treated as planar,
// which is accurate for fence-sized polygons away from the antimeridian.
func InPolygon(p Point, vertices []Point) bool {
	if len(vertices) < 3 {
		return false
	}

	inside := false
	j := len(vertices) - 1
	for i := range vertices {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			crossLng := vi.Lng + (p.Lat-vi.Lat)*(vj.Lng-vi.Lng)/(vj.Lat-vi.Lat)
			if p.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
