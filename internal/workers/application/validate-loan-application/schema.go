// internal/workers/application/validate-loan-application/schema.go
package validateloanapplication

// documentSchema covers the shape of the submission. Field-level rules that
// need digit counting live in execute.
func documentSchema(cfg *Config) map[string]interface{} {
	tenures := make([]interface{}, len(cfg.SupportedTenures))
	for i, m := range cfg.SupportedTenures {
		tenures[i] = m
	}

	return map[string]interface{}{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": []interface{}{"application", "loanDetails"},
		"properties": map[string]interface{}{
			"application": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"employmentTerms": map[string]interface{}{
						"enum": []interface{}{"Permanent", "Contract"},
					},
					"declarationAgreed": map[string]interface{}{
						"const": true,
					},
					"dateOfApplication": map[string]interface{}{
						"type":    "string",
						"pattern": `^\d{4}-\d{2}-\d{2}`,
					},
				},
			},
			"loanDetails": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"amount": map[string]interface{}{
						"type":    "number",
						"minimum": cfg.MinAmount,
						"maximum": cfg.MaxAmount,
					},
					"tenureMonths": map[string]interface{}{
						"type": "integer",
						"enum": tenures,
					},
					"monthlyPayment": map[string]interface{}{
						"type":             "number",
						"exclusiveMinimum": 0,
					},
				},
			},
		},
	}
}
