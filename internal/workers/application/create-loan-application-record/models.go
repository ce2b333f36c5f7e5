// internal/workers/application/create-loan-application-record/models.go
package createloanapplicationrecord

import "xtenda-workers/internal/applications"

type Input struct {
	Application applications.LoanApplication `json:"application"`
	LoanDetails applications.LoanSummary     `json:"loanDetails"`
}

type Output struct {
	ApplicationID string              `json:"applicationId"`
	NRC           string              `json:"nrc"`
	Status        applications.Status `json:"status"`
	StatusTitle   string              `json:"statusTitle"`
	SubmittedAt   string              `json:"submittedAt"`
	Indexed       bool                `json:"indexed"`
}
