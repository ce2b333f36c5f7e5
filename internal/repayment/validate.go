// internal/repayment/validate.go
package repayment

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// TableProblem describes one defect found in a schedule table.
type TableProblem struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TableError collects every problem found by ValidateTable.
type TableError struct {
	Problems []TableProblem `json:"problems"`
}

func (e *TableError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, fmt.Sprintf("row %d %s: %s", p.Index, p.Field, p.Message))
	}
	return fmt.Sprintf("invalid schedule table: %s", strings.Join(msgs, "; "))
}

func (e *TableError) add(index int, field, format string, args ...interface{}) {
	e.Problems = append(e.Problems, TableProblem{
		Index:   index,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// ValidateTable checks a table before it is stored or handed to the
// calculator: amounts must be positive and unique, and every tenure must be
// priced with a positive installment on every row. A nil tenure set falls
// back to SupportedTenures. It returns a *TableError or nil.
func ValidateTable(table ScheduleTable, tenures []int) error {
	if tenures == nil {
		tenures = SupportedTenures
	}

	verr := &TableError{}
	if len(table) == 0 {
		verr.add(-1, "table", "schedule must contain at least one row")
		return verr
	}

	seen := make(map[float64]int, len(table))
	for i, e := range table {
		if !(e.DisbursedAmount > 0) || math.IsInf(e.DisbursedAmount, 0) {
			verr.add(i, "disbursedAmount", "must be a positive number, got %v", e.DisbursedAmount)
		}
		if first, dup := seen[e.DisbursedAmount]; dup {
			verr.add(i, "disbursedAmount", "duplicates row %d (%v)", first, e.DisbursedAmount)
		} else {
			seen[e.DisbursedAmount] = i
		}

		for _, m := range tenures {
			v, ok := e.Installments[m]
			field := fmt.Sprintf("installments[%d]", m)
			switch {
			case !ok:
				verr.add(i, field, "missing installment for %d month tenure", m)
			case !(v > 0) || math.IsInf(v, 0):
				verr.add(i, field, "must be a positive number, got %v", v)
			}
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}
	return nil
}

// MonotonicityViolation marks a row whose installment is lower than the row
// priced just below it.
type MonotonicityViolation struct {
	TenureMonths int     `json:"tenureMonths"`
	LowerAmount  float64 `json:"lowerAmount"`
	UpperAmount  float64 `json:"upperAmount"`
	LowerValue   float64 `json:"lowerValue"`
	UpperValue   float64 `json:"upperValue"`
}

// MonotonicityViolations reports adjacent rows, in amount order, where the
// installment for tenureMonths decreases as the amount grows. Business
// pricing is expected to be non-decreasing but nothing enforces it, so this
// is a data-quality report and not a validation error.
func MonotonicityViolations(table ScheduleTable, tenureMonths int) []MonotonicityViolation {
	sorted := table.Sorted()
	var out []MonotonicityViolation
	for i := 0; i+1 < len(sorted); i++ {
		lo := installment(sorted[i], tenureMonths)
		hi := installment(sorted[i+1], tenureMonths)
		if hi < lo {
			out = append(out, MonotonicityViolation{
				TenureMonths: tenureMonths,
				LowerAmount:  sorted[i].DisbursedAmount,
				UpperAmount:  sorted[i+1].DisbursedAmount,
				LowerValue:   lo,
				UpperValue:   hi,
			})
		}
	}
	return out
}

// Tenures returns the sorted set of tenures priced on any row.
func (t ScheduleTable) Tenures() []int {
	set := map[int]struct{}{}
	for _, e := range t {
		for m := range e.Installments {
			set[m] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}
