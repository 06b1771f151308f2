// Package notify selects which tourists an announcement reaches and fans
// alert changes out to operator channels.
package notify

import (
	"time"

	"yatra/internal/geofence"
	"yatra/internal/safety"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
)

// Recipient is one tourist selected for delivery, with the location that
// matched the target.
type Recipient struct {
	Token        id.TouristToken `json:"token"`
	Location     geofence.Point  `json:"location"`
	SafetyStatus safety.Status   `json:"safety_status"`
}

// TargetCircle is an ad-hoc area: every tourist within RadiusMeters of Center.
type TargetCircle struct {
	Center       geofence.Point `json:"center"`
	RadiusMeters float64        `json:"radius_meters"`
}

// Target names the audience of a broadcast: exactly one of Circle or FenceID.
// Tourists with no reported location are never targeted; absence of data is
// not presence in an area.
type Target struct {
	Circle  *TargetCircle `json:"circle,omitempty"`
	FenceID id.FenceID    `json:"fence_id,omitzero"`
}

func (t Target) validate() error {
	hasCircle := t.Circle != nil
	hasFence := !t.FenceID.IsNil()
	if hasCircle == hasFence {
		return dErrors.New(dErrors.CodeInvalidInput, "target requires exactly one of circle or fence_id")
	}
	if hasCircle {
		if !t.Circle.Center.Valid() {
			return dErrors.New(dErrors.CodeInvalidInput, "target center out of range")
		}
		if t.Circle.RadiusMeters <= 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "target radius must be positive")
		}
	}
	return nil
}

// BroadcastRequest is one announcement to deliver.
type BroadcastRequest struct {
	Target  Target `json:"target"`
	Message string `json:"message"`
}

// BroadcastReceipt summarizes a completed broadcast.
type BroadcastReceipt struct {
	ID         id.BroadcastID `json:"id"`
	Recipients int            `json:"recipients"`
	SentAt     time.Time      `json:"sent_at"`
}
