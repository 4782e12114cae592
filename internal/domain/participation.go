package domain

import (
	"context"
	"time"
)

// ParticipationStatus is the state of a join request.
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "PENDING"
	ParticipationApproved ParticipationStatus = "APPROVED"
	ParticipationRejected ParticipationStatus = "REJECTED"
)

// Participation is a user's request to join an outing. At most one exists per (user, outing).
// swagger:model Participation
type Participation struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	OutingID  string              `json:"outing_id"`
	Status    ParticipationStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewParticipation returns a PENDING participation. ID is typically set by the repository on create.
func NewParticipation(outingID, userID string, createdAt, updatedAt time.Time) *Participation {
	return &Participation{
		UserID:    userID,
		OutingID:  outingID,
		Status:    ParticipationPending,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// IsPending reports whether the organizer has not yet decided on the request.
func (p *Participation) IsPending() bool { return p.Status == ParticipationPending }

// IsApproved reports whether the participation holds one of the outing's seats.
func (p *Participation) IsApproved() bool { return p.Status == ParticipationApproved }

// ParticipationRepository defines storage operations for participations.
type ParticipationRepository interface {
	GetByID(ctx context.Context, id string) (*Participation, error)
	GetByOutingAndUser(ctx context.Context, outingID, userID string) (*Participation, error)
	ListByOutingID(ctx context.Context, outingID string) ([]*Participation, error)
	ListByUserID(ctx context.Context, userID string) ([]*Participation, error)
	// CountApproved counts APPROVED participations of the outing, never counting its organizer.
	CountApproved(ctx context.Context, outingID string) (int, error)
	// WithOutingLock runs fn as one atomic unit that is serialized against every
	// other unit for the same outing. Units for different outings do not block
	// each other. If fn returns an error nothing it wrote is kept. Lock waits that
	// cannot be resolved surface as ErrTransientConflict.
	WithOutingLock(ctx context.Context, outingID string, fn func(ctx context.Context, tx ParticipationTx) error) error
}

// ParticipationTx is the view of the store available inside an outing unit.
type ParticipationTx interface {
	GetByID(ctx context.Context, id string) (*Participation, error)
	CountApproved(ctx context.Context, outingID string) (int, error)
	// Create inserts p and sets its ID. Returns ErrAlreadyParticipating if (user, outing) exists.
	Create(ctx context.Context, p *Participation) error
	// ResolvePending moves a PENDING participation to status. Returns ErrNotPending if it is no longer PENDING.
	ResolvePending(ctx context.Context, id string, status ParticipationStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
	AddOutingParticipant(ctx context.Context, outingID, userID string) error
	RemoveOutingParticipant(ctx context.Context, outingID, userID string) error
}

// ParticipationService is the admission gate: it runs the join/approve/reject/leave
// state machine and never lets an outing exceed its participant cap.
type ParticipationService interface {
	Join(ctx context.Context, outingID, userID string) (*Participation, error)
	Approve(ctx context.Context, participationID, organizerID string) (*Participation, error)
	Reject(ctx context.Context, participationID, organizerID string) (*Participation, error)
	// Leave deletes the caller's participation and returns its last state.
	Leave(ctx context.Context, participationID, userID string) (*Participation, error)
	ListByOuting(ctx context.Context, outingID string) ([]*Participation, error)
	ListByUser(ctx context.Context, userID string) ([]*Participation, error)
}
