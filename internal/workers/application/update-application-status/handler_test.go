// internal/workers/application/update-application-status/handler_test.go
package updateapplicationstatus

import (
	"context"
	"errors"
	"testing"
	"time"

	"xtenda-workers/internal/applications"
	commonerrors "xtenda-workers/internal/common/errors"
	"xtenda-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var recordColumns = []string{
	"id", "application_data", "amount", "tenure_months", "monthly_payment",
	"status", "reviewed_by", "review_notes", "submitted_at", "updated_at",
}

var (
	submittedAt = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	fixedNow    = time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)
)

type fakeIndexer struct {
	updates map[string]applications.Status
	err     error
}

func (f *fakeIndexer) UpdateStatus(ctx context.Context, id string, status applications.Status, at time.Time) error {
	if f.updates == nil {
		f.updates = map[string]applications.Status{}
	}
	f.updates[id] = status
	return f.err
}

type fakeCache struct {
	forgotten []string
	err       error
}

func (f *fakeCache) Forget(ctx context.Context, id, nrc string) error {
	f.forgotten = append(f.forgotten, id+"|"+nrc)
	return f.err
}

type fixture struct {
	handler *Handler
	mock    sqlmock.Sqlmock
	indexer *fakeIndexer
	cache   *fakeCache
}

func newFixture(t *testing.T) *fixture {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{mock: mock, indexer: &fakeIndexer{}, cache: &fakeCache{}}
	f.handler = NewHandler(LoadConfig(), applications.NewStore(db), f.indexer, f.cache, logger.NewTestLogger(t))
	f.handler.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) expectGet(status string) {
	f.mock.ExpectQuery(`FROM loan_applications WHERE id = \$1`).
		WithArgs("app-7").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
			"app-7",
			[]byte(`{"fullNames":"Mwila Banda","nrc":"123456/78/9","email":"mwila@example.com","phone":"0977123456"}`),
			2500.0, int64(3), 1091.0, status, nil, nil, submittedAt, submittedAt,
		))
}

func approveInput() *Input {
	return &Input{
		ApplicationID: "app-7",
		Status:        "Approved",
		ReviewedBy:    "officer@xtenda.co.zm",
		ReviewNotes:   "Payslip verified",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Approves(t *testing.T) {
	f := newFixture(t)

	f.expectGet("Under Review")
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE loan_applications`).
		WithArgs("Approved", "officer@xtenda.co.zm", "Payslip verified", fixedNow, "app-7", "Under Review").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("application_status_changed", "loan_application", "app-7", sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectCommit()

	out, err := f.handler.Execute(context.Background(), approveInput())
	require.NoError(t, err)

	assert.Equal(t, applications.StatusUnderReview, out.PreviousStatus)
	assert.Equal(t, applications.StatusApproved, out.Status)
	assert.Equal(t, "Loan Approved!", out.StatusTitle)
	assert.Equal(t, "2025-06-03T14:00:00Z", out.UpdatedAt)
	assert.True(t, out.Notify)
	assert.Equal(t, "mwila@example.com", out.Email)
	assert.Equal(t, 1091.0, out.MonthlyPayment)

	assert.Equal(t, applications.StatusApproved, f.indexer.updates["app-7"])
	assert.Equal(t, []string{"app-7|123456/78/9"}, f.cache.forgotten)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Execute_SideEffectFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t)
	f.indexer.err = errors.New("es down")
	f.cache.err = errors.New("redis down")

	f.expectGet("New")
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE loan_applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectCommit()

	input := approveInput()
	input.Status = "Under Review"
	input.ReviewNotes = ""

	out, err := f.handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, applications.StatusUnderReview, out.Status)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_InputErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing id", func(in *Input) { in.ApplicationID = " " }},
		{"missing reviewer", func(in *Input) { in.ReviewedBy = "" }},
		{"unknown status", func(in *Input) { in.Status = "approved" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			input := approveInput()
			tt.mutate(input)

			_, err := f.handler.Execute(context.Background(), input)

			stdErr, ok := commonerrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, commonerrors.ErrCodeApplicationValidationFailed, stdErr.Code)
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_NotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`FROM loan_applications WHERE id = \$1`).
		WithArgs("app-7").
		WillReturnRows(sqlmock.NewRows(recordColumns))

	_, err := f.handler.Execute(context.Background(), approveInput())

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeApplicationNotFound, stdErr.Code)
}

func TestHandler_Execute_DecisionIsFinal(t *testing.T) {
	f := newFixture(t)
	f.expectGet("Rejected")

	_, err := f.handler.Execute(context.Background(), approveInput())

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeInvalidStatusTransition, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Empty(t, f.indexer.updates)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Execute_ConcurrentReview(t *testing.T) {
	f := newFixture(t)

	f.expectGet("New")
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE loan_applications`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()

	_, err := f.handler.Execute(context.Background(), approveInput())

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeInvalidStatusTransition, stdErr.Code)
	assert.Equal(t, "status changed by another reviewer", stdErr.Metadata["reason"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Execute_UpdateFails(t *testing.T) {
	f := newFixture(t)

	f.expectGet("New")
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE loan_applications`).WillReturnError(errors.New("deadlock detected"))
	f.mock.ExpectRollback()

	_, err := f.handler.Execute(context.Background(), approveInput())

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeDatabaseUpdateFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
