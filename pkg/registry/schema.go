// pkg/registry/schema.go
package registry

import "dealer-workers/internal/common/validation"

// TemplateRegistry is the versioned file of default notification templates.
type TemplateRegistry struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Templates   []TemplateEntry `json:"templates"`
}

type TemplateEntry struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	DaysOffset  int    `json:"daysOffset"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Active      bool   `json:"active"`
	Description string `json:"description,omitempty"`
}

var registrySchema = validation.MustCompileSchema(`{
  "type": "object",
  "required": ["version", "templates"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "lastUpdated": {"type": "string"},
    "templates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "kind", "daysOffset", "title", "body", "active"],
        "properties": {
          "id": {"type": "string", "pattern": "^[a-z0-9][a-z0-9_-]*$"},
          "kind": {"type": "string", "minLength": 1},
          "daysOffset": {"type": "integer", "minimum": -365, "maximum": 365},
          "title": {"type": "string", "minLength": 1, "maxLength": 200},
          "body": {"type": "string", "minLength": 1},
          "active": {"type": "boolean"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`)
