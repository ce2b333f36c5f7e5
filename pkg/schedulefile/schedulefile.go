// pkg/schedulefile/schedulefile.go

// Package schedulefile reads and writes repayment schedules as JSON files so
// they can be reviewed and versioned outside the database.
package schedulefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"xtenda-workers/internal/common/validation"
	"xtenda-workers/internal/repayment"
)

const FormatVersion = "1"

type File struct {
	Version    string                  `json:"version"`
	ExportedAt string                  `json:"exportedAt,omitempty"`
	Tenures    []int                   `json:"tenures"`
	Entries    repayment.ScheduleTable `json:"entries"`
}

var fileSchema = map[string]interface{}{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []interface{}{"version", "entries"},
	"properties": map[string]interface{}{
		"version": map[string]interface{}{"type": "string"},
		"tenures": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "integer", "minimum": 1},
		},
		"entries": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"disbursedAmount", "installments"},
				"properties": map[string]interface{}{
					"disbursedAmount": map[string]interface{}{"type": "number", "exclusiveMinimum": 0},
					"installments": map[string]interface{}{
						"type": "object",
						"patternProperties": map[string]interface{}{
							"^[1-9][0-9]*$": map[string]interface{}{"type": "number"},
						},
						"additionalProperties": false,
					},
				},
			},
		},
	},
}

// New wraps table for export. Rows are written in amount order.
func New(table repayment.ScheduleTable, tenures []int, at time.Time) *File {
	if len(tenures) == 0 {
		tenures = repayment.SupportedTenures
	}
	return &File{
		Version:    FormatVersion,
		ExportedAt: at.UTC().Format(time.RFC3339),
		Tenures:    tenures,
		Entries:    table.Sorted(),
	}
}

// Decode checks the document shape before decoding, so a misspelt key is
// reported instead of silently dropped.
func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	res, err := validation.ValidateDocument(fileSchema, doc)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, fmt.Errorf("schedule file malformed: %s", validation.Join(res.Errors))
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported schedule file version %q", f.Version)
	}
	return &f, nil
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

func (f *File) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}

// Write replaces path atomically.
func Write(path string, f *File) error {
	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".schedule-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// EffectiveTenures is the file's tenure list, or the product default when
// the file does not name one.
func (f *File) EffectiveTenures() []int {
	if len(f.Tenures) == 0 {
		return repayment.SupportedTenures
	}
	return f.Tenures
}

func (f *File) Validate() error {
	return repayment.ValidateTable(f.Entries, f.EffectiveTenures())
}

// Warnings lists decreasing installments across rows, per tenure.
func (f *File) Warnings() []repayment.MonotonicityViolation {
	var out []repayment.MonotonicityViolation
	for _, m := range f.EffectiveTenures() {
		out = append(out, repayment.MonotonicityViolations(f.Entries, m)...)
	}
	return out
}
