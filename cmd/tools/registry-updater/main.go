// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"ergasia-workers/pkg/registry"
)

const defaultPath = "configs/activity-registry.json"

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "update":
		err = runUpdate(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	default:
		help()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "registry-updater %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	path := fs.String("path", defaultPath, "Path to registry file")
	_ = fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("path", defaultPath, "Path to registry file")
	taskType := fs.String("taskType", "", "Task type to update")
	field := fs.String("field", "", "Field to update (displayName, description, timeout, retries)")
	value := fs.String("value", "", "New value")
	_ = fs.Parse(args)

	if *taskType == "" || *field == "" {
		fs.Usage()
		return fmt.Errorf("taskType and field are required")
	}

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	a, ok := reg.Find(*taskType)
	if !ok {
		return fmt.Errorf("activity %s not found", *taskType)
	}
	if err := setField(a, *field, *value); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if err := reg.Save(*path); err != nil {
		return err
	}
	fmt.Printf("Updated %s.%s\n", *taskType, *field)
	return nil
}

func setField(a *registry.Activity, field, value string) error {
	switch field {
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		if a.NonIdempotent && retries > 0 {
			return fmt.Errorf("%s is non-idempotent and cannot be retried", a.TaskType)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	path := fs.String("path", defaultPath, "Path to registry file")
	_ = fs.Parse(args)

	reg, err := registry.LoadRegistry(*path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	fmt.Printf("Registry %s (%s)\n", reg.Version, reg.LastUpdated)
	for _, a := range reg.Activities {
		flags := ""
		if a.NonIdempotent {
			flags = " [no retry]"
		}
		fmt.Printf("  %-20s %-12s timeout=%-6s retries=%d%s\n", a.TaskType, a.Category, a.Timeout, a.Retries, flags)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

The registry itself is generated by the worker manager:
  worker-manager -export-registry configs/activity-registry.json

Commands:
  validate  Validate the registry file
  update    Update an activity field
  show      List the activities
  help      Show this help message

Examples:
  registry-updater validate -path configs/activity-registry.json
  registry-updater update -taskType finish-job -field timeout -value 90s
  registry-updater show`)
}
