// internal/workers/loan/compute-loan-quote/config.go
package computeloanquote

import (
	"time"

	"xtenda-workers/internal/repayment"
)

type Config struct {
	Timeout          time.Duration
	SupportedTenures []int
	MinAmount        float64
	MaxAmount        float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          5 * time.Second,
		SupportedTenures: repayment.SupportedTenures,
		MinAmount:        repayment.MinLoanAmount,
		MaxAmount:        repayment.MaxLoanAmount,
	}
}
