// internal/applications/store.go
package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xtenda-workers/internal/common/database"
)

var ErrNotFound = errors.New("application not found")

// ErrStatusChanged is returned by UpdateStatus when the stored status no
// longer matches the status the caller read.
var ErrStatusChanged = errors.New("application status changed concurrently")

const selectColumns = `id, application_data, amount, tenure_months, monthly_payment,
	status, reviewed_by, review_notes, submitted_at, updated_at`

// Store persists applications in the loan_applications table. The form is
// kept as JSONB; the columns the back office filters on are denormalised.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB { return s.db }

// HasOpenApplication reports whether the NRC already has an application
// awaiting a decision.
func (s *Store) HasOpenApplication(ctx context.Context, nrc string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM loan_applications
			WHERE nrc = $1 AND status IN ($2, $3)
		)`, NormalizeNRC(nrc), string(StatusNew), string(StatusUnderReview)).Scan(&exists)
	return exists, err
}

func (s *Store) Insert(ctx context.Context, db database.Execer, r *Record) error {
	data, err := json.Marshal(r.Application)
	if err != nil {
		return fmt.Errorf("marshal application: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO loan_applications (
			id, nrc, full_names, email, phone, employer,
			amount, tenure_months, monthly_payment, status,
			application_data, submitted_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		r.ID,
		NormalizeNRC(r.Application.NRC),
		r.Application.FullNames,
		r.Application.Email,
		r.Application.Phone,
		r.Application.Employer,
		r.Summary.Amount,
		r.Summary.TenureMonths,
		r.Summary.MonthlyPayment,
		string(r.Status),
		data,
		r.SubmittedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM loan_applications WHERE id = $1`, id)
	return scanRecord(row)
}

// LatestByNRC returns the most recently submitted application for an NRC.
func (s *Store) LatestByNRC(ctx context.Context, nrc string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+` FROM loan_applications
		WHERE nrc = $1
		ORDER BY submitted_at DESC
		LIMIT 1`, NormalizeNRC(nrc))
	return scanRecord(row)
}

// UpdateStatus moves id from one status to another only if it is still in
// from. ErrStatusChanged is returned otherwise.
func (s *Store) UpdateStatus(ctx context.Context, db database.Execer, id string, from, to Status, reviewedBy, notes string, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE loan_applications
		SET status = $1, reviewed_by = $2, review_notes = $3, updated_at = $4
		WHERE id = $5 AND status = $6`,
		string(to), nullable(reviewedBy), nullable(notes), at, id, string(from),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, db database.Execer, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM loan_applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		r           Record
		data        []byte
		status      string
		reviewedBy  sql.NullString
		reviewNotes sql.NullString
	)
	err := row.Scan(
		&r.ID, &data,
		&r.Summary.Amount, &r.Summary.TenureMonths, &r.Summary.MonthlyPayment,
		&status, &reviewedBy, &reviewNotes, &r.SubmittedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &r.Application); err != nil {
		return nil, fmt.Errorf("decode application %s: %w", r.ID, err)
	}
	r.Status = Status(status)
	r.ReviewedBy = reviewedBy.String
	r.ReviewNotes = reviewNotes.String
	return &r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
