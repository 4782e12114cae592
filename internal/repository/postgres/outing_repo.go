package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"outingrewards/internal/domain"
)

type outingRepository struct {
	DB *sql.DB
}

func NewOutingRepository(db *sql.DB) domain.OutingRepository {
	return &outingRepository{DB: db}
}

func (r *outingRepository) GetByID(ctx context.Context, id string) (*domain.Outing, error) {
	query := `
		SELECT o.id, o.title, o.organizer_id, o.max_participants, o.event_id, o.created_at, o.updated_at,
			COALESCE(array_agg(op.user_id) FILTER (WHERE op.user_id IS NOT NULL), '{}')
		FROM outings o
		LEFT JOIN outing_participants op ON op.outing_id = o.id
		WHERE o.id = $1
		GROUP BY o.id
	`
	o := &domain.Outing{}
	var eventID sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.Title, &o.OrganizerID, &o.MaxParticipants, &eventID, &o.CreatedAt, &o.UpdatedAt,
		pq.Array(&o.ParticipantIDs),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if eventID.Valid {
		o.EventID = &eventID.String
	}
	if o.ParticipantIDs == nil {
		o.ParticipantIDs = []string{}
	}
	return o, nil
}
