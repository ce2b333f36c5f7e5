// internal/schedule/repository.go
package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"xtenda-workers/internal/common/database"
	"xtenda-workers/internal/common/logger"
	"xtenda-workers/internal/common/metrics"
	"xtenda-workers/internal/repayment"

	"github.com/redis/go-redis/v9"
)

var (
	ErrScheduleUnavailable = errors.New("repayment schedule unavailable")
	ErrScheduleInvalid     = errors.New("repayment schedule invalid")
)

const (
	DefaultCacheKey = "xtenda_schedule"
	auditResourceID = "current"
)

type Options struct {
	CacheKey string
	CacheTTL time.Duration
	// Tenures every row must price. Nil means repayment.SupportedTenures.
	Tenures []int
}

// Repository stores the repayment schedule in Postgres with a Redis copy
// of the whole table. Every Load returns a freshly decoded table.
type Repository struct {
	db     *sql.DB
	redis  *redis.Client
	opts   Options
	logger logger.Logger
	now    func() time.Time
}

func NewRepository(db *sql.DB, rdb *redis.Client, opts Options, log logger.Logger) *Repository {
	if opts.CacheKey == "" {
		opts.CacheKey = DefaultCacheKey
	}
	return &Repository{
		db:     db,
		redis:  rdb,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "schedule"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Tenures returns the tenure set rows are validated against.
func (r *Repository) Tenures() []int {
	if r.opts.Tenures == nil {
		return repayment.SupportedTenures
	}
	return r.opts.Tenures
}

// Load returns the current table: cached copy first, then Postgres, then
// the built-in default when nothing has been stored yet.
func (r *Repository) Load(ctx context.Context) (repayment.ScheduleTable, error) {
	if table, ok := r.fromCache(ctx); ok {
		metrics.ScheduleLoads.WithLabelValues("cache").Inc()
		return table, r.check(table)
	}

	table, err := r.fromDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScheduleUnavailable, err)
	}

	origin := "database"
	if len(table) == 0 {
		origin = "default"
		table = repayment.DefaultSchedule()
	}
	metrics.ScheduleLoads.WithLabelValues(origin).Inc()

	if err := r.check(table); err != nil {
		return table, err
	}
	r.cache(ctx, table)
	return table, nil
}

// Save replaces the stored table in one transaction, records an audit
// entry and refreshes the cache.
func (r *Repository) Save(ctx context.Context, table repayment.ScheduleTable, updatedBy string) (time.Time, error) {
	if err := r.check(table); err != nil {
		return time.Time{}, err
	}

	at := r.now()
	details := database.AuditDetails(map[string]interface{}{
		"entries":   len(table),
		"tenures":   table.Tenures(),
		"updatedBy": updatedBy,
	})

	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM repayment_schedule`); err != nil {
			return fmt.Errorf("clear schedule: %w", err)
		}
		for _, e := range table.Sorted() {
			for _, m := range sortedTenures(e.Installments) {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO repayment_schedule (disbursed_amount, tenure_months, installment, updated_by, updated_at)
					VALUES ($1, $2, $3, $4, $5)`,
					e.DisbursedAmount, m, e.Installments[m], updatedBy, at,
				)
				if err != nil {
					return fmt.Errorf("insert row %v/%d: %w", e.DisbursedAmount, m, err)
				}
			}
		}
		return database.InsertAudit(ctx, tx, "schedule_updated", "repayment_schedule", auditResourceID, details, at)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrScheduleUnavailable, err)
	}

	metrics.ScheduleSaves.Inc()
	r.cache(ctx, table)

	r.logger.Info("repayment schedule saved", map[string]interface{}{
		"entries":   len(table),
		"updatedBy": updatedBy,
	})
	return at, nil
}

// Invalidate drops the cached table so the next Load reads Postgres.
func (r *Repository) Invalidate(ctx context.Context) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Del(ctx, r.opts.CacheKey).Err()
}

func (r *Repository) check(table repayment.ScheduleTable) error {
	if err := repayment.ValidateTable(table, r.Tenures()); err != nil {
		return fmt.Errorf("%w: %w", ErrScheduleInvalid, err)
	}
	return nil
}

func (r *Repository) fromCache(ctx context.Context) (repayment.ScheduleTable, bool) {
	if r.redis == nil {
		return nil, false
	}
	var table repayment.ScheduleTable
	err := database.GetJSON(ctx, r.redis, r.opts.CacheKey, &table)
	if err != nil {
		if !errors.Is(err, database.ErrCacheMiss) {
			r.logger.Warn("schedule cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}
	return table, len(table) > 0
}

func (r *Repository) cache(ctx context.Context, table repayment.ScheduleTable) {
	if r.redis == nil {
		return
	}
	if err := database.SetJSON(ctx, r.redis, r.opts.CacheKey, table, r.opts.CacheTTL); err != nil {
		r.logger.Warn("schedule cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

func (r *Repository) fromDatabase(ctx context.Context) (repayment.ScheduleTable, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT disbursed_amount, tenure_months, installment
		FROM repayment_schedule
		ORDER BY disbursed_amount, tenure_months`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var table repayment.ScheduleTable
	for rows.Next() {
		var (
			amount, installment float64
			tenure              int
		)
		if err := rows.Scan(&amount, &tenure, &installment); err != nil {
			return nil, err
		}
		if n := len(table); n == 0 || table[n-1].DisbursedAmount != amount {
			table = append(table, repayment.ScheduleEntry{DisbursedAmount: amount, Installments: map[int]float64{}})
		}
		table[len(table)-1].Installments[tenure] = installment
	}
	return table, rows.Err()
}

func sortedTenures(m map[int]float64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
