package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"outingrewards/internal/domain"
)

type participationRepository struct{ s *Store }

func (r *participationRepository) GetByID(_ context.Context, id string) (*domain.Participation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.participationByID(id)
}

func (r *participationRepository) GetByOutingAndUser(_ context.Context, outingID, userID string) (*domain.Participation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.participations {
		if p.OutingID == outingID && p.UserID == userID {
			c := *p
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *participationRepository) ListByOutingID(_ context.Context, outingID string) ([]*domain.Participation, error) {
	return r.list(func(p *domain.Participation) bool { return p.OutingID == outingID }), nil
}

func (r *participationRepository) ListByUserID(_ context.Context, userID string) ([]*domain.Participation, error) {
	return r.list(func(p *domain.Participation) bool { return p.UserID == userID }), nil
}

func (r *participationRepository) list(match func(*domain.Participation) bool) []*domain.Participation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*domain.Participation, 0)
	for _, p := range r.s.participations {
		if match(p) {
			c := *p
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (r *participationRepository) CountApproved(_ context.Context, outingID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.countApproved(outingID), nil
}

func (r *participationRepository) WithOutingLock(ctx context.Context, outingID string, fn func(ctx context.Context, tx domain.ParticipationTx) error) error {
	release := r.s.locks.lock(outingID)
	defer release()
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.RLock()
	_, ok := r.s.outings[outingID]
	r.s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}

	tx := &participationTx{s: r.s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, op := range tx.ops {
		op()
	}
	return nil
}

// participationTx stages writes and applies them when the unit succeeds.
// Reads see committed state only; the outing lock keeps that state stable for the unit.
type participationTx struct {
	s   *Store
	ops []func()
}

func (tx *participationTx) GetByID(_ context.Context, id string) (*domain.Participation, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	return tx.s.participationByID(id)
}

func (tx *participationTx) CountApproved(_ context.Context, outingID string) (int, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	return tx.s.countApproved(outingID), nil
}

func (tx *participationTx) Create(_ context.Context, p *domain.Participation) error {
	tx.s.mu.RLock()
	for _, existing := range tx.s.participations {
		if existing.OutingID == p.OutingID && existing.UserID == p.UserID {
			tx.s.mu.RUnlock()
			return domain.ErrAlreadyParticipating
		}
	}
	tx.s.mu.RUnlock()

	p.ID = uuid.NewString()
	c := *p
	tx.ops = append(tx.ops, func() { tx.s.participations[c.ID] = &c })
	return nil
}

func (tx *participationTx) ResolvePending(_ context.Context, id string, status domain.ParticipationStatus, at time.Time) error {
	tx.s.mu.RLock()
	p, ok := tx.s.participations[id]
	pending := ok && p.IsPending()
	tx.s.mu.RUnlock()
	if !pending {
		return domain.ErrNotPending
	}
	tx.ops = append(tx.ops, func() {
		if p, ok := tx.s.participations[id]; ok {
			p.Status = status
			p.UpdatedAt = at
		}
	})
	return nil
}

func (tx *participationTx) Delete(_ context.Context, id string) error {
	tx.s.mu.RLock()
	_, ok := tx.s.participations[id]
	tx.s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	tx.ops = append(tx.ops, func() { delete(tx.s.participations, id) })
	return nil
}

func (tx *participationTx) AddOutingParticipant(_ context.Context, outingID, userID string) error {
	tx.s.mu.RLock()
	_, ok := tx.s.outings[outingID]
	tx.s.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}
	tx.ops = append(tx.ops, func() {
		o := tx.s.outings[outingID]
		if !slices.Contains(o.ParticipantIDs, userID) {
			o.ParticipantIDs = append(o.ParticipantIDs, userID)
		}
	})
	return nil
}

func (tx *participationTx) RemoveOutingParticipant(_ context.Context, outingID, userID string) error {
	tx.ops = append(tx.ops, func() {
		if o, ok := tx.s.outings[outingID]; ok {
			o.ParticipantIDs = slices.DeleteFunc(o.ParticipantIDs, func(id string) bool { return id == userID })
		}
	})
	return nil
}

// participationByID must be called with s.mu held.
func (s *Store) participationByID(id string) (*domain.Participation, error) {
	p, ok := s.participations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *p
	return &c, nil
}

// countApproved must be called with s.mu held.
func (s *Store) countApproved(outingID string) int {
	organizerID := ""
	if o, ok := s.outings[outingID]; ok {
		organizerID = o.OrganizerID
	}
	n := 0
	for _, p := range s.participations {
		if p.OutingID == outingID && p.IsApproved() && p.UserID != organizerID {
			n++
		}
	}
	return n
}
