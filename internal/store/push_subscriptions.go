package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PushSubscriptionRepository struct {
	db *sql.DB
}

// EndpointsForAccount returns the SNS endpoint ARNs registered for accountID.
func (r *PushSubscriptionRepository) EndpointsForAccount(ctx context.Context, accountID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT endpoint_arn FROM push_subscriptions
		WHERE account_id = $1
		ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query push subscriptions: %w", err)
	}
	defer rows.Close()

	var arns []string
	for rows.Next() {
		var arn string
		if err := rows.Scan(&arn); err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		arns = append(arns, arn)
	}
	return arns, rows.Err()
}

// Remove deletes an endpoint that the push provider reported as disabled.
func (r *PushSubscriptionRepository) Remove(ctx context.Context, endpointARN string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint_arn = $1`, endpointARN); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}
