package ledger

import (
	"time"

	id "yatra/pkg/domain"
	dErrors "yatra/pkg/domain-errors"
)

// KYCPayload is the identity-verification data supplied at registration.
// The engine hashes it and throws it away; only the digest is retained.
//
// Fields are fixed and validated up front; unknown or missing fields are
// rejected rather than passed through.
type KYCPayload struct {
	FullName       string `json:"fullName"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
	Nationality    string `json:"nationality"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
}

// Validate enforces the required KYC fields.
// Errors: CodeInvalidInput naming the first missing field.
func (p KYCPayload) Validate() error {
	switch {
	case p.FullName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "kyc.fullName is required")
	case p.DocumentType == "":
		return dErrors.New(dErrors.CodeInvalidInput, "kyc.documentType is required")
	case p.DocumentNumber == "":
		return dErrors.New(dErrors.CodeInvalidInput, "kyc.documentNumber is required")
	case p.Nationality == "":
		return dErrors.New(dErrors.CodeInvalidInput, "kyc.nationality is required")
	}
	return nil
}

// IdentityRecord is the immutable issuance record for one tourist.
//
// Invariants:
//   - Token is globally unique and never reused
//   - KYCHash is the sha256 digest of the canonical KYC serialization;
//     the payload itself is never stored
//   - ValidUntil > IssuedAt
//   - The record is immutable after issuance and never deleted (audit requirement)
type IdentityRecord struct {
	Token             id.TouristToken `json:"token"`
	KYCHash           string          `json:"kyc_hash"`
	Itinerary         []string        `json:"itinerary"`
	EmergencyContacts []string        `json:"emergency_contacts"`
	IssuedAt          time.Time       `json:"issued_at"`
	ValidUntil        time.Time       `json:"valid_until"`
}

// ExpiredAt reports whether the identity is past its validity window at now.
func (r IdentityRecord) ExpiredAt(now time.Time) bool {
	return now.After(r.ValidUntil)
}

// ChainEntry is one link of the hash-chained issuance log. Entries are
// append-only and never mutated; a verifier recomputes EntryHash from the
// fields plus PrevHash to detect any alteration.
type ChainEntry struct {
	Seq      uint64          `json:"seq"`
	Token    id.TouristToken `json:"token"`
	KYCHash  string          `json:"kyc_hash"`
	IssuedAt time.Time       `json:"issued_at"`
	PrevHash string          `json:"prev_hash"`
	Hash     string          `json:"hash"`
}
