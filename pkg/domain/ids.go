// Package domain holds the typed identifiers shared across modules.
//
// IDs are distinct Go types so an AlertID can never be passed where a FenceID
// is expected. Construct them via the Parse* functions at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "yatra/pkg/domain-errors"
)

// AlertID identifies one alert record.
type AlertID uuid.UUID

// FenceID identifies one geofence.
type FenceID uuid.UUID

// BroadcastID identifies one operator broadcast request.
type BroadcastID uuid.UUID

func (id AlertID) String() string     { return uuid.UUID(id).String() }
func (id FenceID) String() string     { return uuid.UUID(id).String() }
func (id BroadcastID) String() string { return uuid.UUID(id).String() }

func (id AlertID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id FenceID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id BroadcastID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// The text marshalers keep the JSON shape a UUID string. Defined types do not
// inherit methods from uuid.UUID, so without these json.Marshal would render
// the raw byte array.

func (id AlertID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id FenceID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id BroadcastID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *AlertID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FenceID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BroadcastID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseAlertID constructs an AlertID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseAlertID(s string) (AlertID, error) {
	u, err := parseUUID(s, "alert id")
	return AlertID(u), err
}

// ParseFenceID constructs a FenceID from external input.
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseFenceID(s string) (FenceID, error) {
	u, err := parseUUID(s, "fence id")
	return FenceID(u), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return u, nil
}

// TouristToken is the pseudonymous digital identity issued by the ledger.
// It is derived from a content hash, not a UUID; the raw KYC payload never
// appears in this engine once the token exists.
type TouristToken string

// tokenPattern matches "TID-" followed by 24 lowercase hex characters, the
// exact shape the ledger mints.
var tokenPattern = regexp.MustCompile(`^TID-[0-9a-f]{24}$`)

func (t TouristToken) String() string { return string(t) }

// ParseTouristToken constructs a TouristToken from external input.
// Errors: CodeInvalidInput when the value is empty or not token-shaped.
func ParseTouristToken(s string) (TouristToken, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tourist token cannot be empty")
	}
	if !tokenPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tourist token is malformed")
	}
	return TouristToken(s), nil
}
