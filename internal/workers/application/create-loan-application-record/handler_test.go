// internal/workers/application/create-loan-application-record/handler_test.go
package createloanapplicationrecord

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

type fakeIndexer struct {
	docs []applications.Document
	err  error
}

func (f *fakeIndexer) Index(ctx context.Context, doc applications.Document) error {
	f.docs = append(f.docs, doc)
	return f.err
}

type fakeCache struct {
	views []applications.StatusView
	err   error
}

func (f *fakeCache) Put(ctx context.Context, v applications.StatusView) error {
	f.views = append(f.views, v)
	return f.err
}

var fixedNow = time.Date(2025, 6, 2, 8, 15, 0, 0, time.UTC)

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
	f.handler.newID = func() string { return "3f1c2b7e-0000-4000-8000-000000000001" }
	return f
}

func sampleInput() *Input {
	return &Input{
		Application: applications.LoanApplication{
			FullNames: "Mwila Banda",
			NRC:       "123456789",
			Email:     "mwila.banda@example.com",
			Phone:     "0977123456",
			Employer:  "Ministry of Health",
		},
		LoanDetails: applications.LoanSummary{Amount: 2500, TenureMonths: 3, MonthlyPayment: 1091},
	}
}

func (f *fixture) expectDuplicateCheck(open bool) {
	f.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("123456/78/9", "New", "Under Review").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(open))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_RecordsApplication(t *testing.T) {
	f := newFixture(t)

	f.expectDuplicateCheck(false)
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO loan_applications`).
		WithArgs("3f1c2b7e-0000-4000-8000-000000000001", "123456/78/9", "Mwila Banda",
			"mwila.banda@example.com", "0977123456", "Ministry of Health",
			2500.0, 3, 1091.0, "New", sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("application_submitted", "loan_application", "3f1c2b7e-0000-4000-8000-000000000001", sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectCommit()

	out, err := f.handler.Execute(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "3f1c2b7e-0000-4000-8000-000000000001", out.ApplicationID)
	assert.Equal(t, "123456/78/9", out.NRC)
	assert.Equal(t, applications.StatusNew, out.Status)
	assert.Equal(t, "Application Submitted Successfully", out.StatusTitle)
	assert.Equal(t, "2025-06-02T08:15:00Z", out.SubmittedAt)
	assert.True(t, out.Indexed)

	require.Len(t, f.indexer.docs, 1)
	assert.Equal(t, applications.StatusNew, f.indexer.docs[0].Status)
	assert.Equal(t, 2500.0, f.indexer.docs[0].Amount)

	require.Len(t, f.cache.views, 1)
	assert.Equal(t, "123456/78/9", f.cache.views[0].NRC)
	assert.Equal(t, 1091.0, f.cache.views[0].MonthlyPayment)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Execute_IndexAndCacheFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t)
	f.indexer.err = errors.New("es unavailable")
	f.cache.err = errors.New("redis unavailable")

	f.expectDuplicateCheck(false)
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO loan_applications`).WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectCommit()

	out, err := f.handler.Execute(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.False(t, out.Indexed)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_DuplicateOpenApplication(t *testing.T) {
	f := newFixture(t)
	f.expectDuplicateCheck(true)

	_, err := f.handler.Execute(context.Background(), sampleInput())

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeDuplicateApplication, stdErr.Code)
	assert.Empty(t, f.indexer.docs)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Execute_DuplicatesAllowedWhenDisabled(t *testing.T) {
	f := newFixture(t)
	f.handler.config.RejectDuplicates = false

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO loan_applications`).WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectCommit()

	_, err := f.handler.Execute(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Execute_ShortNRC(t *testing.T) {
	f := newFixture(t)
	input := sampleInput()
	input.Application.NRC = "1234"

	_, err := f.handler.Execute(context.Background(), input)

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeApplicationValidationFailed, stdErr.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestHandler_Execute_DuplicateCheckFails(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("connection reset"))

	_, err := f.handler.Execute(context.Background(), sampleInput())

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeQueryExecutionFailed, stdErr.Code)
}

func TestHandler_Execute_InsertRollsBack(t *testing.T) {
	f := newFixture(t)

	f.expectDuplicateCheck(false)
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`INSERT INTO loan_applications`).WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(errors.New("audit_log missing"))
	f.mock.ExpectRollback()

	_, err := f.handler.Execute(context.Background(), sampleInput())

	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeDatabaseInsertFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Empty(t, f.indexer.docs)
	assert.Empty(t, f.cache.views)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}
