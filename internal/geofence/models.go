// Package geofence holds zone definitions and answers point-containment
// queries for the safety engine.
//
// Circles are evaluated with great-circle (haversine) distance because radii
// span tens of kilometres across varying latitudes. Polygon containment is a
// planar ray-casting test over (lon, lat); for sub-100 km rings the planar
// approximation is a known, accepted limitation rather than something this
// package tries to correct.
package geofence

import (
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
)

// RiskLevel grades a zone. Ordering matters: callers pick the highest
// matching level when fences overlap.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank returns the comparable severity of the level (higher is worse).
func (r RiskLevel) Rank() int { return riskRank[r] }

// IsValid reports whether the level is one of the supported values.
func (r RiskLevel) IsValid() bool { return riskRank[r] != 0 }

// ParseRiskLevel constructs a RiskLevel from external input.
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported risk level %q", s)
	}
	return r, nil
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is a representable WGS84 coordinate.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Circle is a centre plus radius in metres.
type Circle struct {
	Center       Point   `json:"center"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Polygon is an ordered ring of vertices. The ring is implicitly closed: the
// last vertex connects back to the first.
type Polygon struct {
	Ring []Point `json:"ring"`
}

// Geometry is a tagged union: exactly one of Circle or Polygon is set.
type Geometry struct {
	Circle  *Circle  `json:"circle,omitempty"`
	Polygon *Polygon `json:"polygon,omitempty"`
}

// Validate rejects malformed shapes at creation/update time; malformed
// geometry is never silently accepted.
// Errors: CodeInvalidGeometry.
func (g Geometry) Validate() error {
	switch {
	case g.Circle != nil && g.Polygon != nil:
		return dErrors.New(dErrors.CodeInvalidGeometry, "geometry must be a circle or a polygon, not both")
	case g.Circle != nil:
		if !g.Circle.Center.Valid() {
			return dErrors.New(dErrors.CodeInvalidGeometry, "circle center is out of range")
		}
		if g.Circle.RadiusMeters <= 0 {
			return dErrors.New(dErrors.CodeInvalidGeometry, "circle radius must be positive")
		}
		return nil
	case g.Polygon != nil:
		ring := g.Polygon.Ring
		if len(ring) < 3 {
			return dErrors.New(dErrors.CodeInvalidGeometry, "polygon ring needs at least 3 vertices")
		}
		for _, v := range ring {
			if !v.Valid() {
				return dErrors.New(dErrors.CodeInvalidGeometry, "polygon vertex is out of range")
			}
		}
		if ringArea(ring) == 0 {
			return dErrors.New(dErrors.CodeInvalidGeometry, "polygon ring encloses no area")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeInvalidGeometry, "geometry is required")
	}
}

// GeoFence is one named zone.
type GeoFence struct {
	ID        id.FenceID `json:"id"`
	Name      string     `json:"name"`
	RiskLevel RiskLevel  `json:"risk_level"`
	Category  string     `json:"category"`
	IsActive  bool       `json:"is_active"`
	Geometry  Geometry   `json:"geometry"`
}

// Validate enforces the fence invariants beyond geometry.
func (f GeoFence) Validate() error {
	if f.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "fence name is required")
	}
	if !f.RiskLevel.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unsupported risk level %q", string(f.RiskLevel))
	}
	return f.Geometry.Validate()
}

// Patch carries the mutable fields of an Update; nil fields are untouched.
type Patch struct {
	Name      *string
	RiskLevel *RiskLevel
	Category  *string
	IsActive  *bool
	Geometry  *Geometry
}
