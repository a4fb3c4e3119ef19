package store

import (
	"context"
	"database/sql"
	"fmt"

	"dealer-workers/internal/clock"
	"dealer-workers/internal/models"
)

type AccountRepository struct {
	db *sql.DB
}

// The effective expiry expression must agree with models.Account.EffectiveExpiry,
// and the day test with clock.DayOf: an expiry at exactly UTC midnight is a
// date-only value and belongs to its UTC date ($3), so the next date's UTC
// midnight ($4) is excluded even though it lies inside the UTC-3 bounds.
const listByEffectiveExpiryDayQuery = `
	SELECT a.id, a.name, a.status, a.trial_ends_at,
	       s.ends_at, COALESCE(s.status = $5, FALSE), COALESCE(p.name, ''),
	       COALESCE(u.name, ''), COALESCE(u.email, '')
	FROM accounts a
	LEFT JOIN LATERAL (
		SELECT plan_id, status, ends_at
		FROM subscriptions
		WHERE account_id = a.id
		ORDER BY ends_at DESC NULLS LAST
		LIMIT 1
	) s ON TRUE
	LEFT JOIN plans p ON p.id = s.plan_id
	LEFT JOIN LATERAL (
		SELECT name, email
		FROM users
		WHERE account_id = a.id AND role = $6 AND active = TRUE
		ORDER BY created_at
		LIMIT 1
	) u ON TRUE
	CROSS JOIN LATERAL (
		SELECT CASE WHEN s.status = $5 AND s.ends_at IS NOT NULL THEN s.ends_at ELSE a.trial_ends_at END AS expires_at
	) e
	WHERE (e.expires_at >= $1 AND e.expires_at < $2 AND e.expires_at <> $4)
	   OR e.expires_at = $3
	ORDER BY a.id`

// ListByEffectiveExpiryDay returns accounts whose effective expiry falls on day.
func (r *AccountRepository) ListByEffectiveExpiryDay(ctx context.Context, day clock.Date) ([]models.Account, error) {
	from, to := day.Bounds()
	rows, err := r.db.QueryContext(ctx, listByEffectiveExpiryDayQuery,
		from, to, day.UTCMidnight(), day.AddDays(1).UTCMidnight(),
		SubscriptionStatusActive, AccountOwnerRole,
	)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		var (
			a        models.Account
			trialEnd sql.NullTime
			subEnd   sql.NullTime
		)
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Status, &trialEnd,
			&subEnd, &a.SubscriptionActive, &a.PlanName,
			&a.OwnerName, &a.OwnerEmail,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if trialEnd.Valid {
			t := trialEnd.Time
			a.TrialEndsAt = &t
		}
		if subEnd.Valid {
			t := subEnd.Time
			a.SubscriptionEndsAt = &t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}
