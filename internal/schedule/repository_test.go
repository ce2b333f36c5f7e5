// internal/schedule/repository_test.go
package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/repayment"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testTenures = []int{1, 3}

func createTestTable() repayment.ScheduleTable {
	return repayment.ScheduleTable{
		{DisbursedAmount: 1000, Installments: map[int]float64{1: 1327, 3: 455}},
		{DisbursedAmount: 500, Installments: map[int]float64{1: 664, 3: 243}},
	}
}

type fixture struct {
	repo  *Repository
	mock  sqlmock.Sqlmock
	redis *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	repo := NewRepository(db, redis.NewClient(&redis.Options{Addr: mr.Addr()}), Options{
		CacheTTL: 10 * time.Minute,
		Tenures:  testTenures,
	}, logger.NewTestLogger(t))
	repo.now = func() time.Time { return time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC) }

	return &fixture{repo: repo, mock: mock, redis: mr}
}

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"disbursed_amount", "tenure_months", "installment"}).
		AddRow(500.0, int64(1), 664.0).
		AddRow(500.0, int64(3), 243.0).
		AddRow(1000.0, int64(1), 1327.0).
		AddRow(1000.0, int64(3), 455.0)
}

// ==========================
// Load
// ==========================

func TestLoad_FromDatabaseThenCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mock.ExpectQuery(`SELECT disbursed_amount, tenure_months, installment`).WillReturnRows(scheduleRows())

	table, err := f.repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, 500.0, table[0].DisbursedAmount)
	assert.Equal(t, 455.0, table[1].Installments[3])
	assert.True(t, f.redis.Exists(DefaultCacheKey))
	assert.Equal(t, 10*time.Minute, f.redis.TTL(DefaultCacheKey))

	// Second load is served from Redis; no further query is expected.
	again, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, table, again)
	assert.Equal(t, 455.0, repayment.ComputeInstallment(again, 1000, 3))

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestLoad_ReturnsIndependentCopies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mock.ExpectQuery(`SELECT disbursed_amount`).WillReturnRows(scheduleRows())

	first, err := f.repo.Load(ctx)
	require.NoError(t, err)
	first[0].Installments[1] = 1

	second, err := f.repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 664.0, second[0].Installments[1])
}

func TestLoad_EmptyStoreFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	f.repo.opts.Tenures = nil

	f.mock.ExpectQuery(`SELECT disbursed_amount`).
		WillReturnRows(sqlmock.NewRows([]string{"disbursed_amount", "tenure_months", "installment"}))

	table, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repayment.DefaultSchedule(), table)
}

func TestLoad_DatabaseError(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT disbursed_amount`).WillReturnError(errors.New("connection refused"))

	_, err := f.repo.Load(context.Background())
	assert.ErrorIs(t, err, ErrScheduleUnavailable)
}

func TestLoad_InvalidStoredTable(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(`SELECT disbursed_amount`).WillReturnRows(
		sqlmock.NewRows([]string{"disbursed_amount", "tenure_months", "installment"}).
			AddRow(500.0, int64(1), 664.0),
	)

	table, err := f.repo.Load(context.Background())
	assert.Len(t, table, 1)
	assert.ErrorIs(t, err, ErrScheduleInvalid)

	var tableErr *repayment.TableError
	assert.True(t, errors.As(err, &tableErr))
	assert.False(t, f.redis.Exists(DefaultCacheKey))
}

func TestLoad_CorruptCacheFallsThrough(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.redis.Set(DefaultCacheKey, "not-json"))
	f.mock.ExpectQuery(`SELECT disbursed_amount`).WillReturnRows(scheduleRows())

	table, err := f.repo.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, table, 2)
}

// ==========================
// Save / Invalidate
// ==========================

func TestSave_ReplacesRowsAndRefreshesCache(t *testing.T) {
	f := newFixture(t)
	at := f.repo.now()

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`DELETE FROM repayment_schedule`).WillReturnResult(sqlmock.NewResult(0, 4))
	for _, row := range [][]interface{}{
		{500.0, 1, 664.0}, {500.0, 3, 243.0}, {1000.0, 1, 1327.0}, {1000.0, 3, 455.0},
	} {
		f.mock.ExpectExec(`INSERT INTO repayment_schedule`).
			WithArgs(row[0], row[1], row[2], "admin@xtenda", at).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	f.mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("schedule_updated", "repayment_schedule", "current", sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	f.mock.ExpectCommit()

	savedAt, err := f.repo.Save(context.Background(), createTestTable(), "admin@xtenda")
	require.NoError(t, err)
	assert.Equal(t, at, savedAt)
	assert.True(t, f.redis.Exists(DefaultCacheKey))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSave_RejectsInvalidTable(t *testing.T) {
	f := newFixture(t)
	bad := repayment.ScheduleTable{{DisbursedAmount: -1, Installments: map[int]float64{1: 10}}}

	_, err := f.repo.Save(context.Background(), bad, "admin")
	assert.ErrorIs(t, err, ErrScheduleInvalid)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestSave_RollsBackOnInsertFailure(t *testing.T) {
	f := newFixture(t)

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`DELETE FROM repayment_schedule`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec(`INSERT INTO repayment_schedule`).WillReturnError(errors.New("disk full"))
	f.mock.ExpectRollback()

	_, err := f.repo.Save(context.Background(), createTestTable(), "admin")
	assert.ErrorIs(t, err, ErrScheduleUnavailable)
	assert.False(t, f.redis.Exists(DefaultCacheKey))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.redis.Set(DefaultCacheKey, "[]"))

	require.NoError(t, f.repo.Invalidate(context.Background()))
	assert.False(t, f.redis.Exists(DefaultCacheKey))
}
