// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func validTask(taskType string) Task {
	return Task{
		TaskType:             taskType,
		DisplayName:          "Compute Loan Quote",
		Category:             "loan",
		ImplementationStatus: "completed",
		ErrorCodes:           []string{"INVALID_AMOUNT", "SCHEDULE_UNAVAILABLE"},
		Timeout:              "5s",
		Retries:              3,
	}
}

// ==========================
// Shipped registry
// ==========================

func TestShippedRegistry_IsValid(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "task-registry.json"))
	require.NoError(t, err)

	assert.Empty(t, reg.Validate())
	assert.Len(t, reg.Tasks, 9)
	assert.Empty(t, reg.Unregistered([]string{
		"compute-loan-quote",
		"update-repayment-schedule",
		"validate-loan-application",
		"create-loan-application-record",
		"update-application-status",
		"check-application-status",
		"search-loan-applications",
		"delete-loan-application",
		"send-status-notification",
	}))
}

// ==========================
// Validate
// ==========================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TaskRegistry)
		want   string
	}{
		{name: "empty", mutate: func(r *TaskRegistry) { r.Tasks = nil }, want: "no tasks"},
		{name: "duplicate", mutate: func(r *TaskRegistry) { r.Tasks = append(r.Tasks, validTask("compute-loan-quote")) }, want: "duplicate task type"},
		{name: "missing type", mutate: func(r *TaskRegistry) { r.Tasks[0].TaskType = "" }, want: "task #0 missing taskType"},
		{name: "missing name", mutate: func(r *TaskRegistry) { r.Tasks[0].DisplayName = "" }, want: "missing displayName"},
		{name: "bad category", mutate: func(r *TaskRegistry) { r.Tasks[0].Category = "franchise" }, want: `unknown category "franchise"`},
		{name: "bad status", mutate: func(r *TaskRegistry) { r.Tasks[0].ImplementationStatus = "done" }, want: `unknown status "done"`},
		{name: "bad timeout", mutate: func(r *TaskRegistry) { r.Tasks[0].Timeout = "soon" }, want: "invalid timeout"},
		{name: "negative retries", mutate: func(r *TaskRegistry) { r.Tasks[0].Retries = -1 }, want: "negative retries"},
		{name: "unknown code", mutate: func(r *TaskRegistry) { r.Tasks[0].ErrorCodes = []string{"CAPTCHA_FAILED"} }, want: "unknown error code CAPTCHA_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &TaskRegistry{Tasks: []Task{validTask("compute-loan-quote")}}
			tt.mutate(reg)

			problems := reg.Validate()
			require.Len(t, problems, 1, "%v", problems)
			assert.Contains(t, problems[0], tt.want)
		})
	}
}

// ==========================
// Add / Set / Save
// ==========================

func TestAddSetSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &TaskRegistry{Version: "1.0.0"}

	require.NoError(t, reg.Add(validTask("compute-loan-quote"), fixedTime))
	assert.ErrorContains(t, reg.Add(validTask("compute-loan-quote"), fixedTime), "already exists")

	later := fixedTime.Add(time.Hour)
	require.NoError(t, reg.Set("compute-loan-quote", "retries", "5", later))
	require.NoError(t, reg.Set("compute-loan-quote", "status", "verified", later))
	assert.ErrorContains(t, reg.Set("compute-loan-quote", "retries", "many", later), "invalid retries")
	assert.ErrorContains(t, reg.Set("compute-loan-quote", "owner", "ops", later), "unknown field")
	assert.ErrorContains(t, reg.Set("missing", "status", "planned", later), "not found")

	require.NoError(t, Save(reg, path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02T09:00:00Z", loaded.LastUpdated)
	task, ok := loaded.Find("compute-loan-quote")
	require.True(t, ok)
	assert.Equal(t, 5, task.Retries)
	assert.Equal(t, "verified", task.ImplementationStatus)
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, os.IsNotExist(err))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadRegistry(bad)
	assert.ErrorContains(t, err, "decode registry")
}

func TestUnregistered_Sorted(t *testing.T) {
	reg := &TaskRegistry{Tasks: []Task{validTask("compute-loan-quote")}}
	assert.Equal(t,
		[]string{"delete-loan-application", "send-status-notification"},
		reg.Unregistered([]string{"send-status-notification", "compute-loan-quote", "delete-loan-application"}))
}
