package store

import (
	"context"
	"database/sql"
	"fmt"

	"dealer-workers/internal/models"

	"github.com/lib/pq"
)

type TemplateRepository struct {
	db *sql.DB
}

// ListActiveByKinds returns active templates whose kind is one of kinds,
// ordered by kind then offset.
func (r *TemplateRepository) ListActiveByKinds(ctx context.Context, kinds []models.TemplateKind) ([]models.NotificationTemplate, error) {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, days_offset, title, body, active, created_at, updated_at
		FROM notification_templates
		WHERE active = TRUE AND kind = ANY($1)
		ORDER BY kind, days_offset, id`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []models.NotificationTemplate
	for rows.Next() {
		var t models.NotificationTemplate
		var kind string
		if err := rows.Scan(&t.ID, &kind, &t.DaysOffset, &t.Title, &t.Body, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Kind = models.TemplateKind(kind)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

// Upsert inserts a template or updates the existing row with the same ID.
// It reports whether a new row was created.
func (r *TemplateRepository) Upsert(ctx context.Context, t models.NotificationTemplate) (bool, error) {
	var inserted bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO notification_templates (id, kind, days_offset, title, body, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			days_offset = EXCLUDED.days_offset,
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING (xmax = 0)`,
		t.ID, string(t.Kind), t.DaysOffset, t.Title, t.Body, t.Active,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert template %s: %w", t.ID, err)
	}
	return inserted, nil
}
