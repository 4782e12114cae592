package domain

import (
	"context"
	"time"
)

// Tier is the account tier of a user. It decides outing limits and reward eligibility.
type Tier string

const (
	TierUser     Tier = "USER"
	TierPremium  Tier = "PREMIUM"
	TierBusiness Tier = "BUSINESS"
	TierAdmin    Tier = "ADMIN"
)

// User is the subset of a user account this service reads.
// swagger:model User
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Tier  Tier   `json:"tier"`
}

// Unlimited marks a policy limit with no practical bound.
const Unlimited = 999999

// TierPolicy holds the limits attached to an account tier.
type TierPolicy struct {
	MaxOutingsPerMonth       int
	MaxParticipantsPerOuting int
	RewardEligible           bool
}

var tierPolicies = map[Tier]TierPolicy{
	TierUser:     {MaxOutingsPerMonth: 5, MaxParticipantsPerOuting: 10},
	TierPremium:  {MaxOutingsPerMonth: 10, MaxParticipantsPerOuting: 999, RewardEligible: true},
	TierBusiness: {MaxOutingsPerMonth: Unlimited, MaxParticipantsPerOuting: Unlimited},
	TierAdmin:    {MaxOutingsPerMonth: Unlimited, MaxParticipantsPerOuting: Unlimited},
}

// PolicyFor returns the policy of tier. Unknown tiers get the USER policy.
func PolicyFor(tier Tier) TierPolicy {
	if p, ok := tierPolicies[tier]; ok {
		return p
	}
	return tierPolicies[TierUser]
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, tier Tier, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository looks up user accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
