package domain

import (
	"context"
	"time"
)

// Reward is a business incentive tied to an event, unlocked when an organizer
// brings at least RequiredParticipants approved participants to one outing.
// swagger:model Reward
type Reward struct {
	ID                   string    `json:"id"`
	EventID              string    `json:"event_id"`
	BusinessID           string    `json:"business_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	RequiredParticipants int       `json:"required_participants"`
	CreatedAt            time.Time `json:"created_at"`
}

// RewardRepository looks up reward definitions.
type RewardRepository interface {
	GetByID(ctx context.Context, id string) (*Reward, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Reward, error)
}

// RewardEngine issues vouchers to organizers whose outings reach reward thresholds.
type RewardEngine interface {
	// Evaluate issues at most one voucher per qualifying reward for (userID, outingID).
	// It is a no-op unless userID organizes an event-linked outing and their tier is reward eligible.
	Evaluate(ctx context.Context, outingID, userID string) error
}
