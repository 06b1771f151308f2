package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	id "yatra/pkg/domain"
	"yatra/pkg/platform/sentinel"
)

// PostgresStore persists identities and the issuance chain.
//
// Schema:
//
//	CREATE TABLE identities (
//	    token              TEXT PRIMARY KEY,
//	    kyc_hash           TEXT NOT NULL,
//	    itinerary          JSONB NOT NULL,
//	    emergency_contacts JSONB NOT NULL,
//	    issued_at          TIMESTAMPTZ NOT NULL,
//	    valid_until        TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE ledger_chain (
//	    seq       BIGINT PRIMARY KEY,
//	    token     TEXT NOT NULL REFERENCES identities (token),
//	    kyc_hash  TEXT NOT NULL,
//	    issued_at TIMESTAMPTZ NOT NULL,
//	    prev_hash TEXT NOT NULL,
//	    hash      TEXT NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveIdentity(ctx context.Context, record IdentityRecord) error {
	itinerary, err := json.Marshal(record.Itinerary)
	if err != nil {
		return fmt.Errorf("marshal itinerary: %w", err)
	}
	contacts, err := json.Marshal(record.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("marshal emergency contacts: %w", err)
	}

	query := `
		INSERT INTO identities (token, kyc_hash, itinerary, emergency_contacts, issued_at, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		string(record.Token),
		record.KYCHash,
		itinerary,
		contacts,
		record.IssuedAt,
		record.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token id.TouristToken) (IdentityRecord, error) {
	query := `
		SELECT token, kyc_hash, itinerary, emergency_contacts, issued_at, valid_until
		FROM identities
		WHERE token = $1
	`
	var (
		record       IdentityRecord
		rawToken     string
		rawItinerary []byte
		rawContacts  []byte
	)
	err := s.db.QueryRowContext(ctx, query, string(token)).Scan(
		&rawToken,
		&record.KYCHash,
		&rawItinerary,
		&rawContacts,
		&record.IssuedAt,
		&record.ValidUntil,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return IdentityRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return IdentityRecord{}, fmt.Errorf("query identity: %w", err)
	}
	record.Token = id.TouristToken(rawToken)
	if err := json.Unmarshal(rawItinerary, &record.Itinerary); err != nil {
		return IdentityRecord{}, fmt.Errorf("unmarshal itinerary: %w", err)
	}
	if err := json.Unmarshal(rawContacts, &record.EmergencyContacts); err != nil {
		return IdentityRecord{}, fmt.Errorf("unmarshal emergency contacts: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) AppendEntry(ctx context.Context, entry ChainEntry) error {
	query := `
		INSERT INTO ledger_chain (seq, token, kyc_hash, issued_at, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		int64(entry.Seq),
		string(entry.Token),
		entry.KYCHash,
		entry.IssuedAt,
		entry.PrevHash,
		entry.Hash,
	)
	if err != nil {
		return fmt.Errorf("insert chain entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastEntry(ctx context.Context) (ChainEntry, bool, error) {
	query := `
		SELECT seq, token, kyc_hash, issued_at, prev_hash, hash
		FROM ledger_chain
		ORDER BY seq DESC
		LIMIT 1
	`
	entry, err := scanEntry(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return ChainEntry{}, false, nil
	}
	if err != nil {
		return ChainEntry{}, false, err
	}
	return entry, true, nil
}

func (s *PostgresStore) Entries(ctx context.Context) ([]ChainEntry, error) {
	query := `
		SELECT seq, token, kyc_hash, issued_at, prev_hash, hash
		FROM ledger_chain
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query chain: %w", err)
	}
	defer rows.Close()

	var entries []ChainEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chain: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (ChainEntry, error) {
	var (
		entry    ChainEntry
		seq      int64
		rawToken string
	)
	err := row.Scan(&seq, &rawToken, &entry.KYCHash, &entry.IssuedAt, &entry.PrevHash, &entry.Hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ChainEntry{}, err
		}
		return ChainEntry{}, fmt.Errorf("scan chain entry: %w", err)
	}
	entry.Seq = uint64(seq)
	entry.Token = id.TouristToken(rawToken)
	return entry, nil
}
