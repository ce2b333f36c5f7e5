// internal/repayment/calculator.go

// Package repayment prices salary advances from a sparse schedule table.
//
// Amounts that hit a table row exactly take that row's installment. Amounts
// between two rows are linearly interpolated. Amounts outside the table are
// scaled proportionally from the nearest edge row. Everything here is pure
// and safe for concurrent use; callers pass the table on every call.
package repayment

import "math"

// LoanQuote is the computed repayment for one amount and tenure.
type LoanQuote struct {
	Amount             float64 `json:"amount"`
	TenureMonths       int     `json:"tenureMonths"`
	MonthlyInstallment float64 `json:"monthlyInstallment"`
	TotalRepayment     float64 `json:"totalRepayment"`
	TotalCost          float64 `json:"totalCost"`
}

// Quotable reports whether the quote carries a usable installment. A zero
// quote means the amount or table could not be priced yet.
func (q LoanQuote) Quotable() bool {
	return q.MonthlyInstallment > 0
}

// Finite reports whether every figure in the quote is a finite number. Very
// large amounts overflow the totals to +Inf.
func (q LoanQuote) Finite() bool {
	for _, v := range []float64{q.MonthlyInstallment, q.TotalRepayment, q.TotalCost} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// installment returns the entry's installment for the tenure, or NaN when
// the tenure was never priced for that row.
func installment(e ScheduleEntry, months int) float64 {
	v, ok := e.Installments[months]
	if !ok {
		return math.NaN()
	}
	return v
}

// ComputeInstallment returns the monthly installment for amount over
// tenureMonths.
//
// The tenure must be present in every row's installment map. A missing
// tenure yields NaN instead of an error; validate tables with ValidateTable
// when they are loaded or edited.
func ComputeInstallment(table ScheduleTable, amount float64, tenureMonths int) float64 {
	if amount <= 0 {
		return 0
	}
	if len(table) == 0 {
		return 0
	}

	for _, e := range table {
		if e.DisbursedAmount == amount {
			return installment(e, tenureMonths)
		}
	}

	sorted := table.Sorted()
	lowest := sorted[0]
	highest := sorted[len(sorted)-1]

	if amount < lowest.DisbursedAmount {
		return installment(lowest, tenureMonths) * (amount / lowest.DisbursedAmount)
	}
	if amount > highest.DisbursedAmount {
		return installment(highest, tenureMonths) * (amount / highest.DisbursedAmount)
	}

	for i := 0; i < len(sorted)-1; i++ {
		lower, upper := sorted[i], sorted[i+1]
		if lower.DisbursedAmount < amount && amount < upper.DisbursedAmount {
			ratio := (amount - lower.DisbursedAmount) / (upper.DisbursedAmount - lower.DisbursedAmount)
			lo := installment(lower, tenureMonths)
			hi := installment(upper, tenureMonths)
			return lo + ratio*(hi-lo)
		}
	}

	// NaN amounts and malformed tables end up here.
	return 0
}

// ComputeLoanQuote prices amount over tenureMonths and derives the totals.
func ComputeLoanQuote(table ScheduleTable, amount float64, tenureMonths int) LoanQuote {
	return QuoteFromInstallment(amount, tenureMonths, ComputeInstallment(table, amount, tenureMonths))
}

// QuoteFromInstallment derives the repayment totals from an installment
// that was already computed, e.g. one snapshotted on a submitted
// application.
func QuoteFromInstallment(amount float64, tenureMonths int, monthly float64) LoanQuote {
	total := monthly
	if tenureMonths != 1 {
		total = monthly * float64(tenureMonths)
	}

	cost := 0.0
	if total > 0 {
		cost = total - amount
	}

	return LoanQuote{
		Amount:             amount,
		TenureMonths:       tenureMonths,
		MonthlyInstallment: monthly,
		TotalRepayment:     total,
		TotalCost:          cost,
	}
}
