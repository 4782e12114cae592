// Package memory is an in-process implementation of the repositories. It keeps
// the same constraints as the Postgres schema: unique (user, outing)
// participations, unique voucher codes, and unique (user, reward, outing) vouchers.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"outingrewards/internal/domain"
)

// Store holds all records. Use the accessor methods to get domain repositories.
type Store struct {
	mu             sync.RWMutex
	outings        map[string]*domain.Outing
	users          map[string]*domain.User
	rewards        map[string]*domain.Reward
	participations map[string]*domain.Participation
	vouchers       map[string]*domain.Voucher

	locks *outingLocks
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		outings:        make(map[string]*domain.Outing),
		users:          make(map[string]*domain.User),
		rewards:        make(map[string]*domain.Reward),
		participations: make(map[string]*domain.Participation),
		vouchers:       make(map[string]*domain.Voucher),
		locks:          newOutingLocks(),
	}
}

// PutOuting inserts or replaces an outing. A missing ID is generated.
func (s *Store) PutOuting(o *domain.Outing) *domain.Outing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	c := *o
	c.ParticipantIDs = append([]string(nil), o.ParticipantIDs...)
	s.outings[c.ID] = &c
	return o
}

// PutUser inserts or replaces a user. A missing ID is generated.
func (s *Store) PutUser(u *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	c := *u
	s.users[c.ID] = &c
	return u
}

// PutReward inserts or replaces a reward. A missing ID is generated.
func (s *Store) PutReward(r *domain.Reward) *domain.Reward {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	c := *r
	s.rewards[c.ID] = &c
	return r
}

// PutVoucher inserts or replaces a voucher without uniqueness checks. A missing ID is generated.
func (s *Store) PutVoucher(v *domain.Voucher) *domain.Voucher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	c := *v
	s.vouchers[c.ID] = &c
	return v
}

// Outings returns the outing repository.
func (s *Store) Outings() domain.OutingRepository { return &outingRepository{s: s} }

// Users returns the user repository.
func (s *Store) Users() domain.UserRepository { return &userRepository{s: s} }

// Rewards returns the reward repository.
func (s *Store) Rewards() domain.RewardRepository { return &rewardRepository{s: s} }

// Participations returns the participation repository.
func (s *Store) Participations() domain.ParticipationRepository {
	return &participationRepository{s: s}
}

// Vouchers returns the voucher repository.
func (s *Store) Vouchers() domain.VoucherRepository { return &voucherRepository{s: s} }
