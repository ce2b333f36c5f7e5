// internal/workers/application/delete-loan-application/models.go
package deleteloanapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	DeletedBy     string `json:"deletedBy"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Deleted       bool   `json:"deleted"`
	DeletedAt     string `json:"deletedAt"`
}
