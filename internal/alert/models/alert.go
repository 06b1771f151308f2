package models

import (
	"time"

	"yatra/internal/geofence"
	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
)

// Alert is the aggregate root for one incident record.
//
// Invariants:
//   - Status transitions: active → acknowledged → resolved, plus
//     active/acknowledged → false_alarm; resolved and false_alarm are terminal
//   - CreatedAt is immutable; AcknowledgedAt and ResolvedAt are set at most once
//   - AcknowledgedAt ≥ CreatedAt; ResolvedAt ≥ AcknowledgedAt (or ≥ CreatedAt
//     when acknowledgement was skipped)
//   - Alerts are never deleted (retained for audit)
//
// The lifecycle service is the sole mutator of Status and the timeline;
// everything else reads.
type Alert struct {
	ID           id.AlertID      `json:"id"`
	TouristToken id.TouristToken `json:"tourist_token"`
	Type         Type            `json:"type"`
	Priority     Priority        `json:"priority"`
	Status       Status          `json:"status"`
	Location     geofence.Point  `json:"location"`
	Message      string          `json:"message,omitempty"`
	// FenceID is set for geofence-breach alerts so repeated pings inside the
	// same zone bind to one alert.
	FenceID id.FenceID `json:"fence_id,omitzero"`

	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`

	AcknowledgedBy string `json:"acknowledged_by,omitempty"`
	ResolvedBy     string `json:"resolved_by,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// IsTerminal reports whether the alert has reached a final state.
func (a *Alert) IsTerminal() bool { return a.Status.IsTerminal() }

// CanAcknowledge checks the acknowledge transition. Legal only from active.
// Use with ApplyAcknowledge in Execute callbacks.
func (a *Alert) CanAcknowledge() error {
	if a.Status != StatusActive {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot acknowledge an alert in state %q", string(a.Status))
	}
	return nil
}

// ApplyAcknowledge transitions the alert to acknowledged.
// Call CanAcknowledge first to validate the transition.
func (a *Alert) ApplyAcknowledge(by string, now time.Time) {
	a.Status = StatusAcknowledged
	a.AcknowledgedAt = &now
	a.AcknowledgedBy = by
	a.UpdatedAt = now
}

// CanResolve checks the resolve transition. Legal from active or acknowledged.
func (a *Alert) CanResolve() error {
	if a.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot resolve an alert in state %q", string(a.Status))
	}
	return nil
}

// ApplyResolve transitions the alert to resolved.
// Call CanResolve first to validate the transition.
func (a *Alert) ApplyResolve(by, notes string, now time.Time) {
	a.Status = StatusResolved
	a.ResolvedAt = &now
	a.ResolvedBy = by
	if notes != "" {
		a.Notes = notes
	}
	a.UpdatedAt = now
}

// CanMarkFalseAlarm has the same legality as CanResolve.
func (a *Alert) CanMarkFalseAlarm() error {
	if a.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot mark an alert in state %q as false alarm", string(a.Status))
	}
	return nil
}

// ApplyFalseAlarm transitions the alert to false_alarm.
// Call CanMarkFalseAlarm first to validate the transition.
func (a *Alert) ApplyFalseAlarm(by, notes string, now time.Time) {
	a.Status = StatusFalseAlarm
	a.ResolvedAt = &now
	a.ResolvedBy = by
	if notes != "" {
		a.Notes = notes
	}
	a.UpdatedAt = now
}

// New constructs an active alert.
// Errors: CodeInvalidInput on a missing token or unsupported enum values.
func New(alertID id.AlertID, token id.TouristToken, alertType Type, priority Priority, location geofence.Point, message string, now time.Time) (*Alert, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tourist token is required")
	}
	if !alertType.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported alert type %q", string(alertType))
	}
	if !priority.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported priority %q", string(priority))
	}
	return &Alert{
		ID:           alertID,
		TouristToken: token,
		Type:         alertType,
		Priority:     priority,
		Status:       StatusActive,
		Location:     location,
		Message:      message,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
