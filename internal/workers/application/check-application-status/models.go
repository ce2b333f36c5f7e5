// internal/workers/application/check-application-status/models.go
package checkapplicationstatus

import "xtenda-workers/internal/applications"

// Input names the application by NRC or by id. The id wins when both are
// set.
type Input struct {
	NRC           string `json:"nrc,omitempty"`
	ApplicationID string `json:"applicationId,omitempty"`
}

type Output struct {
	Found          bool                `json:"found"`
	Source         string              `json:"source,omitempty"`
	ApplicationID  string              `json:"applicationId,omitempty"`
	Status         applications.Status `json:"status,omitempty"`
	Title          string              `json:"title,omitempty"`
	Message        string              `json:"message,omitempty"`
	FullNames      string              `json:"fullNames,omitempty"`
	Amount         float64             `json:"amount,omitempty"`
	AmountDisplay  string              `json:"amountDisplay,omitempty"`
	TenureMonths   int                 `json:"tenureMonths,omitempty"`
	MonthlyPayment float64             `json:"monthlyPayment,omitempty"`
	MonthlyDisplay string              `json:"monthlyDisplay,omitempty"`
	SubmittedAt    string              `json:"submittedAt,omitempty"`
	UpdatedAt      string              `json:"updatedAt,omitempty"`
}

const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)
