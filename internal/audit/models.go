package audit

import "time"

// Action names one auditable engine action. Values are stable strings so the
// trail stays queryable after code changes.
type Action string

const (
	ActionIdentityIssued    Action = "identity.issued"
	ActionDistressReceived  Action = "distress.received"
	ActionAlertOpened       Action = "alert.opened"
	ActionAlertAcknowledged Action = "alert.acknowledged"
	ActionAlertResolved     Action = "alert.resolved"
	ActionAlertFalseAlarm   Action = "alert.false_alarm"
	ActionFenceCreated      Action = "fence.created"
	ActionFenceUpdated      Action = "fence.updated"
	ActionFenceDeactivated  Action = "fence.deactivated"
	ActionBroadcastSent     Action = "broadcast.sent"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Token is the pseudonymous tourist token, never raw PII.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Token     string    `json:"token,omitempty"`
	Action    Action    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
