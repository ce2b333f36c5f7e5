// internal/workers/communication/send-status-notification/models.go
package sendstatusnotification

// Input matches the variables published by update-application-status.
type Input struct {
	ApplicationID  string  `json:"applicationId"`
	Status         string  `json:"status"`
	Notify         *bool   `json:"notify,omitempty"`
	FullNames      string  `json:"fullNames"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Amount         float64 `json:"amount"`
	TenureMonths   int     `json:"tenureMonths"`
	MonthlyPayment float64 `json:"monthlyPayment"`
}

type Output struct {
	EmailSent      bool   `json:"emailSent"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	SMSSent        bool   `json:"smsSent"`
	SMSMessageID   string `json:"smsMessageId,omitempty"`
	Skipped        string `json:"skipped,omitempty"`
}
