package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"yatra/internal/alert/models"
	id "yatra/pkg/domain"
	"yatra/pkg/platform/sentinel"
)

// Postgres persists alerts.
//
// Schema:
//
//	CREATE TABLE alerts (
//	    id              UUID PRIMARY KEY,
//	    tourist_token   TEXT NOT NULL,
//	    type            TEXT NOT NULL,
//	    priority        TEXT NOT NULL,
//	    status          TEXT NOT NULL,
//	    lat             DOUBLE PRECISION NOT NULL,
//	    lng             DOUBLE PRECISION NOT NULL,
//	    message         TEXT NOT NULL DEFAULT '',
//	    fence_id        UUID,
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    acknowledged_at TIMESTAMPTZ,
//	    resolved_at     TIMESTAMPTZ,
//	    updated_at      TIMESTAMPTZ NOT NULL,
//	    acknowledged_by TEXT NOT NULL DEFAULT '',
//	    resolved_by     TEXT NOT NULL DEFAULT '',
//	    notes           TEXT NOT NULL DEFAULT ''
//	);
//	-- The Open idempotence invariant, enforced by the database:
//	CREATE UNIQUE INDEX alerts_one_active_per_type
//	    ON alerts (tourist_token, type)
//	    WHERE status IN ('active', 'acknowledged');
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const alertColumns = `
	id, tourist_token, type, priority, status, lat, lng, message, fence_id,
	created_at, acknowledged_at, resolved_at, updated_at,
	acknowledged_by, resolved_by, notes
`

func (s *Postgres) CreateIfNoActive(ctx context.Context, candidate *models.Alert) (*models.Alert, bool, error) {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (tourist_token, type) WHERE status IN ('active', 'acknowledged') DO NOTHING
	`
	var fenceID any
	if !candidate.FenceID.IsNil() {
		fenceID = uuid.UUID(candidate.FenceID)
	}
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(candidate.ID),
		string(candidate.TouristToken),
		string(candidate.Type),
		string(candidate.Priority),
		string(candidate.Status),
		candidate.Location.Lat,
		candidate.Location.Lng,
		candidate.Message,
		fenceID,
		candidate.CreatedAt,
		candidate.AcknowledgedAt,
		candidate.ResolvedAt,
		candidate.UpdatedAt,
		candidate.AcknowledgedBy,
		candidate.ResolvedBy,
		candidate.Notes,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert alert: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return copyAlert(candidate), true, nil
	}

	// Lost to an existing non-terminal alert of this type; return it.
	existing, err := s.findNonTerminal(ctx, candidate.TouristToken, candidate.Type)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Postgres) findNonTerminal(ctx context.Context, token id.TouristToken, alertType models.Type) (*models.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE tourist_token = $1 AND type = $2 AND status IN ('active', 'acknowledged')
	`
	alert, err := scanAlert(s.db.QueryRowContext(ctx, query, string(token), string(alertType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return alert, err
}

func (s *Postgres) FindByID(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	alert, err := scanAlert(s.db.QueryRowContext(ctx, query, uuid.UUID(alertID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return alert, err
}

// Execute locks the row FOR UPDATE for the duration of validate-then-mutate.
func (s *Postgres) Execute(ctx context.Context, alertID id.AlertID, validate func(*models.Alert) error, apply func(*models.Alert)) (*models.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1 FOR UPDATE`
	alert, err := scanAlert(tx.QueryRowContext(ctx, query, uuid.UUID(alertID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := validate(alert); err != nil {
		return nil, err
	}
	apply(alert)

	update := `
		UPDATE alerts
		SET status = $2, acknowledged_at = $3, resolved_at = $4, updated_at = $5,
		    acknowledged_by = $6, resolved_by = $7, notes = $8
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		uuid.UUID(alert.ID),
		string(alert.Status),
		alert.AcknowledgedAt,
		alert.ResolvedAt,
		alert.UpdatedAt,
		alert.AcknowledgedBy,
		alert.ResolvedBy,
		alert.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("update alert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit alert update: %w", err)
	}
	return alert, nil
}

func (s *Postgres) List(ctx context.Context, status *models.Status) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts ORDER BY created_at DESC, id DESC`
	args := []any{}
	if status != nil {
		query = `SELECT ` + alertColumns + ` FROM alerts WHERE status = $1 ORDER BY created_at DESC, id DESC`
		args = append(args, string(*status))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func (s *Postgres) HasOtherNonTerminal(ctx context.Context, token id.TouristToken, excluding id.AlertID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE tourist_token = $1 AND id <> $2 AND status IN ('active', 'acknowledged')
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, string(token), uuid.UUID(excluding)).Scan(&exists); err != nil {
		return false, fmt.Errorf("query sibling alerts: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		alert          models.Alert
		alertID        uuid.UUID
		token          string
		alertType      string
		priority       string
		status         string
		fenceID        *uuid.UUID
		acknowledgedAt sql.NullTime
		resolvedAt     sql.NullTime
	)
	err := row.Scan(
		&alertID,
		&token,
		&alertType,
		&priority,
		&status,
		&alert.Location.Lat,
		&alert.Location.Lng,
		&alert.Message,
		&fenceID,
		&alert.CreatedAt,
		&acknowledgedAt,
		&resolvedAt,
		&alert.UpdatedAt,
		&alert.AcknowledgedBy,
		&alert.ResolvedBy,
		&alert.Notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.ID = id.AlertID(alertID)
	alert.TouristToken = id.TouristToken(token)
	alert.Type = models.Type(alertType)
	alert.Priority = models.Priority(priority)
	alert.Status = models.Status(status)
	if fenceID != nil {
		alert.FenceID = id.FenceID(*fenceID)
	}
	if acknowledgedAt.Valid {
		t := acknowledgedAt.Time
		alert.AcknowledgedAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}
	return &alert, nil
}
