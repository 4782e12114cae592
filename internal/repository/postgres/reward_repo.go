package postgres

import (
	"context"
	"database/sql"
	"errors"

	"outingrewards/internal/domain"
)

type rewardRepository struct {
	DB *sql.DB
}

func NewRewardRepository(db *sql.DB) domain.RewardRepository {
	return &rewardRepository{DB: db}
}

func (r *rewardRepository) GetByID(ctx context.Context, id string) (*domain.Reward, error) {
	query := `
		SELECT id, event_id, business_id, title, description, required_participants, created_at
		FROM rewards
		WHERE id = $1
	`
	rw := &domain.Reward{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&rw.ID, &rw.EventID, &rw.BusinessID, &rw.Title, &rw.Description, &rw.RequiredParticipants, &rw.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rw, nil
}

func (r *rewardRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Reward, error) {
	query := `
		SELECT id, event_id, business_id, title, description, required_participants, created_at
		FROM rewards
		WHERE event_id = $1
		ORDER BY required_participants, created_at
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rewards := make([]*domain.Reward, 0)
	for rows.Next() {
		rw := &domain.Reward{}
		if err := rows.Scan(&rw.ID, &rw.EventID, &rw.BusinessID, &rw.Title, &rw.Description, &rw.RequiredParticipants, &rw.CreatedAt); err != nil {
			return nil, err
		}
		rewards = append(rewards, rw)
	}
	return rewards, rows.Err()
}
