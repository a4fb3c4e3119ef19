package store

import (
	"context"
	"database/sql"
	"fmt"

	"dealer-workers/internal/clock"
	"dealer-workers/internal/models"
)

type UsageLogRepository struct {
	db *sql.DB
}

// Exists reports whether templateID was already recorded for accountID on day.
func (r *UsageLogRepository) Exists(ctx context.Context, templateID, accountID string, day clock.Date) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM template_usage_logs
			WHERE template_id = $1 AND account_id = $2 AND trigger_date = $3
		)`, templateID, accountID, day.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check usage log: %w", err)
	}
	return exists, nil
}

// Insert appends a usage-log row. A row for the same trigger triple already
// present yields ErrDuplicateUsage.
func (r *UsageLogRepository) Insert(ctx context.Context, entry models.TemplateUsageLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO template_usage_logs (id, template_id, account_id, trigger_date, sent_at, channel, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.TemplateID, entry.AccountID,
		entry.TriggerDate.Format("2006-01-02"), entry.SentAt, entry.Channel, entry.Success,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsage
		}
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

// CountForDay returns how many rows were recorded with the given trigger date.
func (r *UsageLogRepository) CountForDay(ctx context.Context, day clock.Date) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM template_usage_logs WHERE trigger_date = $1`, day.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count usage logs: %w", err)
	}
	return n, nil
}
