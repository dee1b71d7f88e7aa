// Package reconcile keeps the ledger of sagas that stopped after some of their
// steps committed. A record names the one step still owed; the replay pass in
// the orchestrator re-runs exactly that step.
package reconcile

import (
	"context"
	"database/sql"
	"time"

	"ergasia-workers/internal/common/errors"

	"github.com/google/uuid"
)

type Kind string

const (
	// KindRosterAppend: the invitation or application was accepted but the
	// freelancer is not on the roster. SubjectID is the freelancer.
	KindRosterAppend Kind = "roster_append"
	// KindJobStatus: the debit landed but the job status write did not.
	// SubjectID is the target status.
	KindJobStatus Kind = "job_status"
	// KindPayout: the job is Finished but the escrow was not released.
	KindPayout Kind = "payout"
	// KindDebitUnknown: the debit call failed without a definite answer.
	KindDebitUnknown Kind = "debit_unknown"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
	StatusManual   Status = "manual"
)

type Record struct {
	ID         string
	Kind       Kind
	JobID      string
	SubjectID  string
	Amount     int64
	Status     Status
	Attempts   int
	LastError  string
	Resolution string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Schema creates the ledger table. The partial unique index makes Open
// idempotent per (kind, job, subject) while a record is unresolved.
const Schema = `
CREATE TABLE IF NOT EXISTS saga_reconciliations (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	job_id      TEXT NOT NULL,
	subject_id  TEXT NOT NULL DEFAULT '',
	amount      BIGINT NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	attempts    INT NOT NULL DEFAULT 0,
	last_error  TEXT NOT NULL DEFAULT '',
	resolution  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS saga_reconciliations_unresolved
	ON saga_reconciliations (kind, job_id, subject_id)
	WHERE status <> 'resolved';
CREATE INDEX IF NOT EXISTS saga_reconciliations_status
	ON saga_reconciliations (status, updated_at);
`

const recordColumns = `id, kind, job_id, subject_id, amount, status, attempts, last_error, resolution, created_at, updated_at`

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errors.NewQueryExecutionFailedError("ensure_reconcile_schema", err)
	}
	return nil
}

// Open records an owed step. Opening the same (kind, job, subject) again while
// unresolved returns the existing record with the latest error. A manual
// request upgrades an open record to manual.
func (s *Store) Open(ctx context.Context, rec Record) (*Record, error) {
	if rec.Status == "" {
		rec.Status = StatusOpen
	}
	now := s.now()

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO saga_reconciliations (id, kind, job_id, subject_id, amount, status, attempts, last_error, resolution, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, '', $8, $8)
		ON CONFLICT (kind, job_id, subject_id) WHERE status <> 'resolved'
		DO UPDATE SET
			last_error = EXCLUDED.last_error,
			status = CASE WHEN EXCLUDED.status = 'manual' THEN 'manual' ELSE saga_reconciliations.status END,
			updated_at = EXCLUDED.updated_at
		RETURNING `+recordColumns,
		uuid.NewString(), rec.Kind, rec.JobID, rec.SubjectID, rec.Amount, rec.Status, rec.LastError, now)

	out, err := scanRecord(row)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("open_reconciliation", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM saga_reconciliations WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewResourceNotFoundError("reconcile", "reconciliation "+id+" not found")
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_reconciliation", err)
	}
	return rec, nil
}

// FindOpen returns the unresolved record for (kind, job, subject), or nil.
func (s *Store) FindOpen(ctx context.Context, kind Kind, jobID, subjectID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM saga_reconciliations
		WHERE kind = $1 AND job_id = $2 AND subject_id = $3 AND status <> 'resolved'`,
		kind, jobID, subjectID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("find_reconciliation", err)
	}
	return rec, nil
}

// ListOpen returns up to limit open records, least recently touched first.
// Manual records are left to operators.
func (s *Store) ListOpen(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM saga_reconciliations
		WHERE status = 'open'
		ORDER BY updated_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_reconciliations", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_reconciliations", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_reconciliations", err)
	}
	return out, nil
}

func (s *Store) Resolve(ctx context.Context, id, resolution string) error {
	return s.setStatus(ctx, "resolve_reconciliation", id, StatusResolved, resolution)
}

func (s *Store) MarkManual(ctx context.Context, id, reason string) error {
	return s.setStatus(ctx, "escalate_reconciliation", id, StatusManual, reason)
}

func (s *Store) setStatus(ctx context.Context, queryType, id string, status Status, resolution string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE saga_reconciliations
		SET status = $2, resolution = $3, updated_at = $4
		WHERE id = $1`, id, status, resolution, s.now())
	if err != nil {
		return errors.NewQueryExecutionFailedError(queryType, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewResourceNotFoundError("reconcile", "reconciliation "+id+" not found")
	}
	return nil
}

// RecordAttempt counts one failed replay and returns the new attempt count.
func (s *Store) RecordAttempt(ctx context.Context, id, lastError string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE saga_reconciliations
		SET attempts = attempts + 1, last_error = $2, updated_at = $3
		WHERE id = $1
		RETURNING attempts`, id, lastError, s.now()).Scan(&attempts)
	if err != nil {
		return 0, errors.NewQueryExecutionFailedError("record_reconciliation_attempt", err)
	}
	return attempts, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.Kind, &rec.JobID, &rec.SubjectID, &rec.Amount, &rec.Status,
		&rec.Attempts, &rec.LastError, &rec.Resolution, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
