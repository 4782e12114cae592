package domain

import (
	"context"
	"time"
)

// NotificationType names a domain event published by the admission gate or reward engine.
type NotificationType string

const (
	NotificationParticipationRequested NotificationType = "PARTICIPATION_REQUEST"
	NotificationParticipationApproved  NotificationType = "PARTICIPATION_APPROVED"
	NotificationParticipationRejected  NotificationType = "PARTICIPATION_REJECTED"
	NotificationRewardEarned           NotificationType = "REWARD_EARNED"
)

// Notification is a notification intent addressed to one user.
type Notification struct {
	Type          NotificationType `json:"type"`
	RecipientID   string           `json:"recipient_id"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	ReferenceID   string           `json:"reference_id"`
	ReferenceType string           `json:"reference_type"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NotificationPublisher accepts notification intents. Publish must not block on
// delivery and never reports delivery failures to the caller.
type NotificationPublisher interface {
	Publish(ctx context.Context, n *Notification)
}

// NotificationSubscriber delivers notifications through one channel (log, email, ...).
type NotificationSubscriber interface {
	Name() string
	Handle(ctx context.Context, n *Notification) error
}
