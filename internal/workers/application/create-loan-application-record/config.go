// internal/workers/application/create-loan-application-record/config.go
package createloanapplicationrecord

import "time"

type Config struct {
	Timeout time.Duration
	// RejectDuplicates refuses a submission while the same NRC has an
	// application in New or Under Review.
	RejectDuplicates bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          10 * time.Second,
		RejectDuplicates: true,
	}
}
