package memory

import (
	"context"
	"sort"

	"outingrewards/internal/domain"
)

type outingRepository struct{ s *Store }

func (r *outingRepository) GetByID(_ context.Context, id string) (*domain.Outing, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.outings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *o
	c.ParticipantIDs = append([]string{}, o.ParticipantIDs...)
	return &c, nil
}

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

type rewardRepository struct{ s *Store }

func (r *rewardRepository) GetByID(_ context.Context, id string) (*domain.Reward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rw, ok := r.s.rewards[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *rw
	return &c, nil
}

func (r *rewardRepository) ListByEventID(_ context.Context, eventID string) ([]*domain.Reward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*domain.Reward, 0)
	for _, rw := range r.s.rewards {
		if rw.EventID == eventID {
			c := *rw
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].RequiredParticipants < list[j].RequiredParticipants
	})
	return list, nil
}
