// internal/workers/application/validate-loan-application/models.go
package validateloanapplication

import (
	"xtenda-workers/internal/applications"
	"xtenda-workers/internal/common/validation"
)

type Input struct {
	Application applications.LoanApplication `json:"application"`
	LoanDetails applications.LoanSummary     `json:"loanDetails"`
}

type Output struct {
	IsValid          bool                         `json:"isValid"`
	Application      applications.LoanApplication `json:"application"`
	LoanDetails      applications.LoanSummary     `json:"loanDetails"`
	TotalRepayment   float64                      `json:"totalRepayment"`
	TotalCost        float64                      `json:"totalCost"`
	ValidationErrors []validation.ValidationError `json:"validationErrors"`
}
