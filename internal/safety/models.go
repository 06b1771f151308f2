// Package safety tracks each tourist's mutable safety state: last known
// location and the coarse normal/alert/danger status driven by geofence
// breaches and distress signals.
package safety

import (
	"time"

	"yatra/internal/geofence"
	id "yatra/pkg/domain"
)

// Status is the coarse tourist state. It is separate from, but driven by, the
// finer-grained alert lifecycle.
type Status string

const (
	StatusNormal Status = "normal"
	StatusAlert  Status = "alert"
	// StatusDanger is sticky: only the alert lifecycle clears it, when the
	// tourist's last open alert resolves.
	StatusDanger Status = "danger"
)

// Record is one tourist's safety state.
//
// Invariants:
//   - LastLocation is nil until the first location report
//   - LastUpdated is monotonically non-decreasing
//   - Created alongside the identity; never deleted while the identity is valid
type Record struct {
	Token        id.TouristToken `json:"token"`
	LastLocation *geofence.Point `json:"last_location,omitempty"`
	SafetyStatus Status          `json:"safety_status"`
	LastUpdated  time.Time       `json:"last_updated"`
}
