// internal/workers/loan/update-repayment-schedule/config.go
package updaterepaymentschedule

import "time"

type Config struct {
	Timeout time.Duration
	// PreviewTenure is used when the job does not name one. The calculator
	// opens on three months.
	PreviewTenure int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       15 * time.Second,
		PreviewTenure: 3,
	}
}
