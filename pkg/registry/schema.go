// pkg/registry/schema.go
package registry

// TaskRegistry catalogues the job types this service answers, as modelled
// in the loan BPMN processes.
type TaskRegistry struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Tasks       []Task `json:"tasks"`
}

type Task struct {
	TaskType             string   `json:"taskType"`
	DisplayName          string   `json:"displayName"`
	Description          string   `json:"description"`
	Category             string   `json:"category"`
	ImplementationStatus string   `json:"implementationStatus"`
	InputVariables       []string `json:"inputVariables"`
	OutputVariables      []string `json:"outputVariables"`
	ErrorCodes           []string `json:"errorCodes"`
	Timeout              string   `json:"timeout"`
	Retries              int      `json:"retries"`
	Processes            []string `json:"processes"`
}

// Categories a task may be filed under.
var Categories = []string{"loan", "application", "communication"}

// Statuses a task may be in.
var Statuses = []string{"planned", "in-progress", "completed", "verified"}
