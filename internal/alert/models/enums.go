package models

import dErrors "yatra/pkg/domain-errors"

// Type classifies what kind of incident an alert records.
type Type string

const (
	TypeDistress      Type = "distress"
	TypeEmergency     Type = "emergency"
	TypeSafetyConcern Type = "safety_concern"
	TypeMedical       Type = "medical"
	TypeSecurity      Type = "security"
)

var validTypes = map[Type]bool{
	TypeDistress:      true,
	TypeEmergency:     true,
	TypeSafetyConcern: true,
	TypeMedical:       true,
	TypeSecurity:      true,
}

func (t Type) IsValid() bool { return validTypes[t] }

// ParseType constructs a Type from external input.
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported alert type %q", s)
	}
	return t, nil
}

// Priority grades operator urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

func (p Priority) IsValid() bool { return validPriorities[p] }

// ParsePriority constructs a Priority from external input.
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported priority %q", s)
	}
	return p, nil
}

// Status is the alert lifecycle state.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusFalseAlarm   Status = "false_alarm"
)

var validStatuses = map[Status]bool{
	StatusActive:       true,
	StatusAcknowledged: true,
	StatusResolved:     true,
	StatusFalseAlarm:   true,
}

func (s Status) IsValid() bool { return validStatuses[s] }

// IsTerminal reports whether no further transitions are legal from s.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusFalseAlarm
}

// ParseStatus constructs a Status from external input (dashboard filters).
// Errors: CodeInvalidInput when the value is empty or unsupported.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported alert status %q", s)
	}
	return st, nil
}
