package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ergasia-workers/internal/common/validation"
)

// New builds a registry from activities, sorted by task type.
func New(version string, activities ...Activity) *ActivityRegistry {
	sorted := append([]Activity(nil), activities...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TaskType < sorted[j].TaskType })
	return &ActivityRegistry{
		Version:     version,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Activities:  sorted,
	}
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Save writes the registry as indented JSON, creating parent directories.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Find returns the activity serving taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks required fields, task type naming, duplicate ids and that
// every input schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	types := make(map[string]bool)
	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		ids[a.ID] = true

		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		}
		if a.Category == "" {
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if err := validation.ValidateActivityNaming(a.TaskType); err != nil {
			return fmt.Errorf("activity %s: %w", a.ID, err)
		}
		if types[a.TaskType] {
			return fmt.Errorf("task type %s served twice", a.TaskType)
		}
		types[a.TaskType] = true

		if a.InputSchema != nil {
			raw, err := json.Marshal(a.InputSchema)
			if err != nil {
				return fmt.Errorf("activity %s: %w", a.ID, err)
			}
			if _, err := validation.Compile(string(raw)); err != nil {
				return fmt.Errorf("activity %s input schema: %w", a.ID, err)
			}
		}
	}
	return nil
}

// SchemaMap decodes a JSON schema document for embedding in an Activity.
func SchemaMap(schemaJSON string) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(schemaJSON), &m); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return m, nil
}
