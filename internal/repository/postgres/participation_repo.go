package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"outingrewards/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type participationRepository struct {
	DB          *sql.DB
	LockTimeout time.Duration
}

// NewParticipationRepository returns a domain.ParticipationRepository implemented with Postgres.
// Outing units lock the outing row with SELECT ... FOR UPDATE; lockTimeout bounds the wait
// (0 leaves the server default).
func NewParticipationRepository(db *sql.DB, lockTimeout time.Duration) domain.ParticipationRepository {
	return &participationRepository{
		DB:          db,
		LockTimeout: lockTimeout,
	}
}

func (r *participationRepository) GetByID(ctx context.Context, id string) (*domain.Participation, error) {
	return getParticipation(ctx, r.DB, id)
}

func (r *participationRepository) GetByOutingAndUser(ctx context.Context, outingID, userID string) (*domain.Participation, error) {
	query := `
		SELECT id, user_id, outing_id, status, created_at, updated_at
		FROM participations
		WHERE outing_id = $1 AND user_id = $2
	`
	p := &domain.Participation{}
	err := r.DB.QueryRowContext(ctx, query, outingID, userID).
		Scan(&p.ID, &p.UserID, &p.OutingID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *participationRepository) ListByOutingID(ctx context.Context, outingID string) ([]*domain.Participation, error) {
	query := `
		SELECT id, user_id, outing_id, status, created_at, updated_at
		FROM participations
		WHERE outing_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, outingID)
}

func (r *participationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Participation, error) {
	query := `
		SELECT id, user_id, outing_id, status, created_at, updated_at
		FROM participations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *participationRepository) list(ctx context.Context, query string, arg string) ([]*domain.Participation, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Participation, 0)
	for rows.Next() {
		p := &domain.Participation{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.OutingID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *participationRepository) CountApproved(ctx context.Context, outingID string) (int, error) {
	return countApproved(ctx, r.DB, outingID)
}

func (r *participationRepository) WithOutingLock(ctx context.Context, outingID string, fn func(ctx context.Context, tx domain.ParticipationTx) error) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if r.LockTimeout > 0 {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.LockTimeout.Milliseconds())); err != nil {
			return mapError(err)
		}
	}

	// The outing row is the per-outing mutex: every capacity-sensitive unit takes it first.
	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM outings WHERE id = $1 FOR UPDATE`, outingID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return mapError(err)
	}

	if err = fn(ctx, &participationTx{tx: tx}); err != nil {
		return mapError(err)
	}
	if err = tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

type participationTx struct {
	tx *sql.Tx
}

func (t *participationTx) GetByID(ctx context.Context, id string) (*domain.Participation, error) {
	return getParticipation(ctx, t.tx, id)
}

func (t *participationTx) CountApproved(ctx context.Context, outingID string) (int, error) {
	return countApproved(ctx, t.tx, outingID)
}

func (t *participationTx) Create(ctx context.Context, p *domain.Participation) error {
	query := `
		INSERT INTO participations (user_id, outing_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query, p.UserID, p.OutingID, p.Status, p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err, constraintParticipationUserOuting) {
			return domain.ErrAlreadyParticipating
		}
		return err
	}
	return nil
}

func (t *participationTx) ResolvePending(ctx context.Context, id string, status domain.ParticipationStatus, at time.Time) error {
	query := `
		UPDATE participations
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = 'PENDING'
	`
	result, err := t.tx.ExecContext(ctx, query, status, at, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotPending
	}
	return nil
}

func (t *participationTx) Delete(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM participations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *participationTx) AddOutingParticipant(ctx context.Context, outingID, userID string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO outing_participants (outing_id, user_id) VALUES ($1, $2) ON CONFLICT (outing_id, user_id) DO NOTHING`, outingID, userID)
	return err
}

func (t *participationTx) RemoveOutingParticipant(ctx context.Context, outingID, userID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM outing_participants WHERE outing_id = $1 AND user_id = $2`, outingID, userID)
	return err
}

func getParticipation(ctx context.Context, q querier, id string) (*domain.Participation, error) {
	query := `
		SELECT id, user_id, outing_id, status, created_at, updated_at
		FROM participations
		WHERE id = $1
	`
	p := &domain.Participation{}
	err := q.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.UserID, &p.OutingID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// countApproved never counts the organizer as their own participant.
func countApproved(ctx context.Context, q querier, outingID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM participations p
		JOIN outings o ON o.id = p.outing_id
		WHERE p.outing_id = $1 AND p.status = 'APPROVED' AND p.user_id <> o.organizer_id
	`
	var n int
	if err := q.QueryRowContext(ctx, query, outingID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
