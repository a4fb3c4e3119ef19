// Package store holds the PostgreSQL repositories for accounts, notification
// templates, the template usage log and push subscriptions.
package store

import (
	"database/sql"
	_ "embed"
	stderrors "errors"

	"github.com/lib/pq"
)

// Schema is the DDL for every table the repositories read or write.
//
//go:embed schema.sql
var Schema string

// ErrDuplicateUsage is returned when a usage-log row for the same
// (template, account, trigger date) already exists.
var ErrDuplicateUsage = stderrors.New("template usage already recorded")

const uniqueViolation = "23505"

// SubscriptionStatusActive is the subscriptions.status value of a paid, current subscription.
const SubscriptionStatusActive = "ativa"

// AccountOwnerRole is the users.role value of the account owner.
const AccountOwnerRole = "owner"

// Store groups the repositories over one connection pool.
type Store struct {
	Accounts      *AccountRepository
	Templates     *TemplateRepository
	UsageLogs     *UsageLogRepository
	Subscriptions *PushSubscriptionRepository
}

func New(db *sql.DB) *Store {
	return &Store{
		Accounts:      &AccountRepository{db: db},
		Templates:     &TemplateRepository{db: db},
		UsageLogs:     &UsageLogRepository{db: db},
		Subscriptions: &PushSubscriptionRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
