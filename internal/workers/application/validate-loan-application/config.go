// internal/workers/application/validate-loan-application/config.go
package validateloanapplication

import (
	"time"

	"xtenda-workers/internal/repayment"
)

type Config struct {
	Timeout          time.Duration
	MinAmount        float64
	MaxAmount        float64
	SupportedTenures []int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          5 * time.Second,
		MinAmount:        repayment.MinLoanAmount,
		MaxAmount:        repayment.MaxLoanAmount,
		SupportedTenures: repayment.SupportedTenures,
	}
}
