// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"xtenda-workers/internal/common/config"
	"xtenda-workers/pkg/registry"
)

const defaultRegistryPath = "configs/task-registry.json"

var now = time.Now

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		help(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "add":
		err = addCmd(args[1:], stdout)
	case "update":
		err = updateCmd(args[1:], stdout)
	case "validate":
		err = validateCmd(args[1:], stdout)
	case "help", "-h", "--help":
		help(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		help(stderr)
		return 1
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func addCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Zeebe job type (e.g., compute-loan-quote)")
	displayName := fs.String("displayName", "", "Display name (e.g., Compute Loan Quote)")
	description := fs.String("description", "", "Description")
	category := fs.String("category", "", "Category ("+strings.Join(registry.Categories, ", ")+")")
	status := fs.String("status", "planned", "Implementation status ("+strings.Join(registry.Statuses, ", ")+")")
	timeout := fs.String("timeout", "10s", "Handler timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskType == "" || *displayName == "" || *category == "" {
		return fmt.Errorf("-taskType, -displayName and -category are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if errors.Is(err, os.ErrNotExist) {
		reg = &registry.TaskRegistry{Version: "1.0.0"}
	} else if err != nil {
		return err
	}

	task := registry.Task{
		TaskType:             *taskType,
		DisplayName:          *displayName,
		Description:          *description,
		Category:             *category,
		ImplementationStatus: *status,
		InputVariables:       []string{},
		OutputVariables:      []string{},
		ErrorCodes:           []string{},
		Timeout:              *timeout,
		Retries:              3,
		Processes:            []string{},
	}
	if err := reg.Add(task, now()); err != nil {
		return err
	}
	if problems := reg.Validate(); len(problems) > 0 {
		return fmt.Errorf("refusing to save: %s", strings.Join(problems, "; "))
	}
	if err := registry.Save(reg, *path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Added task: %s\n", *taskType)
	return nil
}

func updateCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Task type to update")
	field := fs.String("field", "", "Field to update (status, displayName, description, category, timeout, retries)")
	value := fs.String("value", "", "New value for the field")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskType == "" || *field == "" || *value == "" {
		return fmt.Errorf("-taskType, -field and -value are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Set(*taskType, *field, *value, now()); err != nil {
		return err
	}
	if problems := reg.Validate(); len(problems) > 0 {
		return fmt.Errorf("refusing to save: %s", strings.Join(problems, "; "))
	}
	if err := registry.Save(reg, *path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Updated task %s, field %s to %s\n", *taskType, *field, *value)
	return nil
}

// validateCmd checks the registry on its own and, with -config, that every
// worker configured for the manager has a registry entry.
func validateCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	path := fs.String("path", defaultRegistryPath, "Path to registry file")
	configPath := fs.String("config", "", "Optional config.yaml whose workers must all be registered")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	problems := reg.Validate()
	if *configPath != "" {
		cfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			return err
		}
		workers := make([]string, 0, len(cfg.Workers))
		for name := range cfg.Workers {
			workers = append(workers, name)
		}
		sort.Strings(workers)
		for _, missing := range reg.Unregistered(workers) {
			problems = append(problems, fmt.Sprintf("worker %s is configured but not registered", missing))
		}
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return fmt.Errorf("registry validation failed with %d problem(s)", len(problems))
	}

	fmt.Fprintf(out, "Registry validation passed. Found %d tasks.\n", len(reg.Tasks))
	return nil
}

func help(w io.Writer) {
	fmt.Fprint(w, `Usage: registry-updater <command> [flags]

Commands:
  add       Add a task to the registry
  update    Update one field of a registered task
  validate  Validate the registry, optionally against a worker config
  help      Show this help message

Examples:
  registry-updater add -taskType compute-loan-quote -displayName "Compute Loan Quote" -category loan
  registry-updater update -taskType compute-loan-quote -field status -value verified
  registry-updater validate -path configs/task-registry.json -config configs/config.yaml
`)
}
