// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TemplateKind identifies which trigger a notification template belongs to.
type TemplateKind string

const (
	KindSubscriptionExpiring TemplateKind = "subscription_expiring"
	KindSubscriptionExpired  TemplateKind = "subscription_expired"
)

// ExpirationKinds lists the kinds scanned by the expiration trigger job.
func ExpirationKinds() []TemplateKind {
	return []TemplateKind{KindSubscriptionExpiring, KindSubscriptionExpired}
}

// NotificationTemplate is one message variant. DaysOffset is signed:
// negative fires before the expiry date, positive after it.
type NotificationTemplate struct {
	ID         string       `json:"id"`
	Kind       TemplateKind `json:"kind"`
	DaysOffset int          `json:"daysOffset"`
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	Active     bool         `json:"active"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Delivery channels recorded in the usage log.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// TemplateUsageLog is an append-only record of a delivered template.
type TemplateUsageLog struct {
	ID          uuid.UUID `json:"id"`
	TemplateID  string    `json:"templateId"`
	AccountID   string    `json:"accountId"`
	TriggerDate time.Time `json:"triggerDate"` // UTC midnight of the platform calendar day
	SentAt      time.Time `json:"sentAt"`
	Channel     string    `json:"channel"` // comma separated list of channels that delivered
	Success     bool      `json:"success"`
}

// PushSubscription is a device endpoint registered for an account.
type PushSubscription struct {
	AccountID   string `json:"accountId"`
	EndpointARN string `json:"endpointArn"`
}
