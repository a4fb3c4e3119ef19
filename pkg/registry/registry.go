// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dealer-workers/internal/models"
	"dealer-workers/internal/template"
)

// DefaultPath is where the default templates ship.
const DefaultPath = "configs/notification-templates.json"

// LoadRegistry reads and validates a registry file.
func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates raw registry JSON against the registry schema and decodes it.
func Parse(data []byte) (*TemplateRegistry, error) {
	result, err := registrySchema.ValidateJSON(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, fmt.Errorf("registry does not match schema: %s", result.Error())
	}

	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return &reg, nil
}

// Validate checks the rules the schema cannot express: unique IDs, a known
// kind, and placeholders limited to the supported variables.
func (r *TemplateRegistry) Validate() error {
	if len(r.Templates) == 0 {
		return fmt.Errorf("registry contains no templates")
	}

	ids := make(map[string]bool)
	for _, t := range r.Templates {
		if ids[t.ID] {
			return fmt.Errorf("duplicate template ID: %s", t.ID)
		}
		ids[t.ID] = true

		if !knownKind(t.Kind) {
			return fmt.Errorf("template %s has unknown kind %q", t.ID, t.Kind)
		}
		if unknown := template.UnknownPlaceholders(t.Title + t.Body); len(unknown) > 0 {
			return fmt.Errorf("template %s references unknown variables: %s", t.ID, strings.Join(unknown, ", "))
		}
	}
	return nil
}

func knownKind(kind string) bool {
	for _, k := range models.ExpirationKinds() {
		if string(k) == kind {
			return true
		}
	}
	return false
}

// Find returns the entry with the given ID.
func (r *TemplateRegistry) Find(id string) (*TemplateEntry, bool) {
	for i := range r.Templates {
		if r.Templates[i].ID == id {
			return &r.Templates[i], true
		}
	}
	return nil, false
}

// Add appends a new entry. IDs must be unique.
func (r *TemplateRegistry) Add(entry TemplateEntry) error {
	if _, ok := r.Find(entry.ID); ok {
		return fmt.Errorf("template with ID %s already exists", entry.ID)
	}
	r.Templates = append(r.Templates, entry)
	r.touch()
	return nil
}

// Update sets one field of an existing entry from its string form.
func (r *TemplateRegistry) Update(id, field, value string) error {
	t, ok := r.Find(id)
	if !ok {
		return fmt.Errorf("template with ID %s not found", id)
	}

	switch field {
	case "kind":
		t.Kind = value
	case "title":
		t.Title = value
	case "body":
		t.Body = value
	case "description":
		t.Description = value
	case "daysOffset":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid daysOffset value: %w", err)
		}
		t.DaysOffset = n
	case "active":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid active value: %w", err)
		}
		t.Active = b
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	r.touch()
	return nil
}

func (r *TemplateRegistry) touch() {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)
}

// Models converts the entries to the stored template model.
func (r *TemplateRegistry) Models() []models.NotificationTemplate {
	out := make([]models.NotificationTemplate, 0, len(r.Templates))
	for _, t := range r.Templates {
		out = append(out, models.NotificationTemplate{
			ID:         t.ID,
			Kind:       models.TemplateKind(t.Kind),
			DaysOffset: t.DaysOffset,
			Title:      t.Title,
			Body:       t.Body,
			Active:     t.Active,
		})
	}
	return out
}

// Save writes the registry as indented JSON, creating the directory if needed.
func Save(reg *TemplateRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
