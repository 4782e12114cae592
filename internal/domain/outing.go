package domain

import (
	"context"
	"slices"
	"time"
)

// Outing is a scheduled group gathering with a fixed participant cap.
// Outings are owned by the outing catalogue; this service only reads them.
// swagger:model Outing
type Outing struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	OrganizerID     string    `json:"organizer_id"`
	MaxParticipants int       `json:"max_participants"`
	EventID         *string   `json:"event_id,omitempty"`
	ParticipantIDs  []string  `json:"participant_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsLinkedToEvent reports whether the outing was organized around an event.
func (o *Outing) IsLinkedToEvent() bool {
	return o.EventID != nil && *o.EventID != ""
}

// HasParticipant reports whether userID is in the approved participant cache.
func (o *Outing) HasParticipant(userID string) bool {
	return slices.Contains(o.ParticipantIDs, userID)
}

// OutingRepository looks up outings.
type OutingRepository interface {
	GetByID(ctx context.Context, id string) (*Outing, error)
}
