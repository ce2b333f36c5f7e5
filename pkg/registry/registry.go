// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	commonerrors "xtenda-workers/internal/common/errors"
)

func LoadRegistry(path string) (*TaskRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TaskRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes reg as indented JSON, creating the parent directory.
func Save(reg *TaskRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *TaskRegistry) Find(taskType string) (*Task, bool) {
	for i := range r.Tasks {
		if r.Tasks[i].TaskType == taskType {
			return &r.Tasks[i], true
		}
	}
	return nil, false
}

// Add appends t, refusing a task type that is already registered.
func (r *TaskRegistry) Add(t Task, at time.Time) error {
	if _, ok := r.Find(t.TaskType); ok {
		return fmt.Errorf("task %s already exists", t.TaskType)
	}
	r.Tasks = append(r.Tasks, t)
	r.LastUpdated = at.UTC().Format(time.RFC3339)
	return nil
}

// Set updates a single scalar field of the named task.
func (r *TaskRegistry) Set(taskType, field, value string, at time.Time) error {
	t, ok := r.Find(taskType)
	if !ok {
		return fmt.Errorf("task %s not found", taskType)
	}

	switch field {
	case "status":
		t.ImplementationStatus = value
	case "displayName":
		t.DisplayName = value
	case "description":
		t.Description = value
	case "category":
		t.Category = value
	case "timeout":
		t.Timeout = value
	case "retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		t.Retries = n
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	r.LastUpdated = at.UTC().Format(time.RFC3339)
	return nil
}

// Validate reports every problem found, not just the first.
func (r *TaskRegistry) Validate() []string {
	var problems []string
	if len(r.Tasks) == 0 {
		return []string{"registry contains no tasks"}
	}

	seen := make(map[string]bool)
	for i, t := range r.Tasks {
		ref := t.TaskType
		if ref == "" {
			ref = fmt.Sprintf("#%d", i)
			problems = append(problems, fmt.Sprintf("task %s missing taskType", ref))
		} else if seen[t.TaskType] {
			problems = append(problems, fmt.Sprintf("duplicate task type: %s", t.TaskType))
		}
		seen[t.TaskType] = true

		if t.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("task %s missing displayName", ref))
		}
		if !slices.Contains(Categories, t.Category) {
			problems = append(problems, fmt.Sprintf("task %s has unknown category %q", ref, t.Category))
		}
		if t.ImplementationStatus != "" && !slices.Contains(Statuses, t.ImplementationStatus) {
			problems = append(problems, fmt.Sprintf("task %s has unknown status %q", ref, t.ImplementationStatus))
		}
		if t.Timeout != "" {
			if d, err := time.ParseDuration(t.Timeout); err != nil || d <= 0 {
				problems = append(problems, fmt.Sprintf("task %s has invalid timeout %q", ref, t.Timeout))
			}
		}
		if t.Retries < 0 {
			problems = append(problems, fmt.Sprintf("task %s has negative retries", ref))
		}
		for _, code := range t.ErrorCodes {
			if commonerrors.GetErrorCategory(commonerrors.ErrorCode(code)) == "OTHER" {
				problems = append(problems, fmt.Sprintf("task %s lists unknown error code %s", ref, code))
			}
		}
	}
	return problems
}

// Unregistered returns the task types in workers that the registry lacks.
func (r *TaskRegistry) Unregistered(workers []string) []string {
	var missing []string
	for _, w := range workers {
		if _, ok := r.Find(w); !ok {
			missing = append(missing, w)
		}
	}
	slices.Sort(missing)
	return missing
}
