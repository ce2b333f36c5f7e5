// internal/workers/application/update-application-status/config.go
package updateapplicationstatus

import "time"

type Config struct {
	Timeout         time.Duration
	NotifyApplicant bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		NotifyApplicant: true,
	}
}
