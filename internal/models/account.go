package models

import "time"

// Account statuses as stored by the billing and admin flows.
const (
	AccountStatusActive    = "ativo"
	AccountStatusTrial     = "trial"
	AccountStatusExpired   = "vencido"
	AccountStatusCancelled = "cancelado"
	AccountStatusBlocked   = "bloqueado"
)

// Account is a dealership tenant with its owner and billing standing.
type Account struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	TrialEndsAt        *time.Time `json:"trialEndsAt,omitempty"`
	SubscriptionEndsAt *time.Time `json:"subscriptionEndsAt,omitempty"`
	SubscriptionActive bool       `json:"subscriptionActive"`
	PlanName           string     `json:"planName,omitempty"`
	OwnerName          string     `json:"ownerName"`
	OwnerEmail         string     `json:"ownerEmail"`
}

// EffectiveExpiry returns the date that determines the account's billing standing:
// the active subscription's end, otherwise the trial end.
func (a *Account) EffectiveExpiry() *time.Time {
	if a.SubscriptionActive && a.SubscriptionEndsAt != nil {
		return a.SubscriptionEndsAt
	}
	return a.TrialEndsAt
}
