// internal/workers/communication/send-status-notification/config.go
package sendstatusnotification

import (
	"time"

	"xtenda-workers/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	// SMSStatuses are the statuses that also go out by SMS.
	SMSStatuses        []string
	SMSSenderID        string
	SupportPhone       string
	DefaultCountryCode string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:            15 * time.Second,
		EmailEnabled:       true,
		FromEmail:          "noreply@xtenda.co.zm",
		SMSEnabled:         false,
		SMSStatuses:        []string{"Approved", "Rejected"},
		SupportPhone:       "+260 211 000 000",
		DefaultCountryCode: "260",
	}
}

// ConfigFromApp overlays the notification and AWS settings on the defaults.
func ConfigFromApp(app *config.Config) *Config {
	c := LoadConfig()
	n := app.Notifications
	c.EmailEnabled = n.Email.Enabled && app.Integrations.AWS.SES.Enabled
	if n.Email.FromEmail != "" {
		c.FromEmail = n.Email.FromEmail
	} else if app.Integrations.AWS.SES.FromEmail != "" {
		c.FromEmail = app.Integrations.AWS.SES.FromEmail
	}
	c.SMSEnabled = n.SMS.Enabled && app.Integrations.AWS.SNS.Enabled
	if len(n.SMS.Statuses) > 0 {
		c.SMSStatuses = n.SMS.Statuses
	}
	c.SMSSenderID = app.Integrations.AWS.SNS.DefaultSMSSenderID
	if n.SupportPhone != "" {
		c.SupportPhone = n.SupportPhone
	}
	return c
}

func (c *Config) smsFor(status string) bool {
	if !c.SMSEnabled {
		return false
	}
	for _, s := range c.SMSStatuses {
		if s == status {
			return true
		}
	}
	return false
}
