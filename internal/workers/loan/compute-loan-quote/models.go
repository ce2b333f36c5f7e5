// internal/workers/loan/compute-loan-quote/models.go
package computeloanquote

type Input struct {
	Amount       float64 `json:"amount"`
	TenureMonths int     `json:"tenureMonths"`
}

type Output struct {
	Amount             float64 `json:"amount"`
	TenureMonths       int     `json:"tenureMonths"`
	MonthlyInstallment float64 `json:"monthlyInstallment"`
	TotalRepayment     float64 `json:"totalRepayment"`
	TotalCost          float64 `json:"totalCost"`
	// Quotable is false when no installment could be derived (zero or
	// negative amount, empty table).
	Quotable            bool `json:"quotable"`
	WithinProductLimits bool `json:"withinProductLimits"`
}
