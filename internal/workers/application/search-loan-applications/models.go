// internal/workers/application/search-loan-applications/models.go
package searchloanapplications

import "xtenda-workers/internal/applications"

type Input struct {
	Query  string `json:"query,omitempty"`
	Status string `json:"status,omitempty"`
	From   int    `json:"from,omitempty"`
	Size   int    `json:"size,omitempty"`
}

type Output struct {
	Total        int64                   `json:"total"`
	Applications []applications.Document `json:"applications"`
	TookMs       int                     `json:"tookMs"`
	From         int                     `json:"from"`
	Size         int                     `json:"size"`
}
