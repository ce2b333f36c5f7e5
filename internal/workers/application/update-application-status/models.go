// internal/workers/application/update-application-status/models.go
package updateapplicationstatus

import "xtenda-workers/internal/applications"

type Input struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	ReviewedBy    string `json:"reviewedBy"`
	ReviewNotes   string `json:"reviewNotes,omitempty"`
}

// Output carries the applicant contact details so the notification step does
// not need to read the record again.
type Output struct {
	ApplicationID  string              `json:"applicationId"`
	PreviousStatus applications.Status `json:"previousStatus"`
	Status         applications.Status `json:"status"`
	StatusTitle    string              `json:"statusTitle"`
	StatusMessage  string              `json:"statusMessage"`
	UpdatedAt      string              `json:"updatedAt"`
	Notify         bool                `json:"notify"`
	FullNames      string              `json:"fullNames"`
	Email          string              `json:"email"`
	Phone          string              `json:"phone"`
	Amount         float64             `json:"amount"`
	TenureMonths   int                 `json:"tenureMonths"`
	MonthlyPayment float64             `json:"monthlyPayment"`
}
