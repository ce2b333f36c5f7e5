// internal/workers/loan/update-repayment-schedule/models.go
package updaterepaymentschedule

import "xtenda-workers/internal/repayment"

type Input struct {
	Schedule            repayment.ScheduleTable `json:"schedule"`
	UpdatedBy           string                  `json:"updatedBy"`
	PreviewTenureMonths int                     `json:"previewTenureMonths,omitempty"`
}

type PreviewRow struct {
	Amount             float64 `json:"amount"`
	MonthlyInstallment float64 `json:"monthlyInstallment"`
	TotalRepayment     float64 `json:"totalRepayment"`
}

type Output struct {
	EntryCount          int                               `json:"entryCount"`
	Tenures             []int                             `json:"tenures"`
	UpdatedAt           string                            `json:"updatedAt"` // RFC 3339
	PreviewTenureMonths int                               `json:"previewTenureMonths"`
	Preview             []PreviewRow                      `json:"preview"`
	Warnings            []repayment.MonotonicityViolation `json:"monotonicityWarnings"`
}
