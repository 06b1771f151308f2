package geofence

import "math"

// earthRadiusMeters is the mean spherical earth radius.
const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// contains evaluates one fence's geometry against a point.
func (g Geometry) contains(p Point) bool {
	switch {
	case g.Circle != nil:
		return HaversineMeters(g.Circle.Center, p) <= g.Circle.RadiusMeters
	case g.Polygon != nil:
		return pointInRing(p, g.Polygon.Ring)
	default:
		return false
	}
}

// pointInRing is a standard ray-casting test over (lng, lat) treated as a
// plane. A vertex-crossing ray can double-count; the alternating j=i form
// below handles that the usual way. Points exactly on an edge may land on
// either side, which is acceptable at fence scale.
func pointInRing(p Point, ring []Point) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > p.Lat) != (vj.Lat > p.Lat) {
			crossLng := (vj.Lng-vi.Lng)*(p.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if p.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// ringArea is twice the signed shoelace area in degrees². Only the zero /
// non-zero distinction matters: a zero area means a collinear-degenerate ring.
func ringArea(ring []Point) float64 {
	var sum float64
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		sum += (ring[j].Lng + ring[i].Lng) * (ring[j].Lat - ring[i].Lat)
		j = i
	}
	return sum
}
