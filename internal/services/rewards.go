package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"outingrewards/internal/domain"
)

// maxCodeAttempts bounds regeneration of a voucher code that collides with an existing one.
const maxCodeAttempts = 3

type rewardEngine struct {
	outingRepo        domain.OutingRepository
	userRepo          domain.UserRepository
	rewardRepo        domain.RewardRepository
	participationRepo domain.ParticipationRepository
	voucherRepo       domain.VoucherRepository
	publisher         domain.NotificationPublisher
	validity          time.Duration
	logger            *slog.Logger
	now               func() time.Time
	newCode           func() string
}

// NewRewardEngine creates the reward eligibility engine. A non-positive validity
// falls back to domain.DefaultVoucherValidity.
func NewRewardEngine(
	outingRepo domain.OutingRepository,
	userRepo domain.UserRepository,
	rewardRepo domain.RewardRepository,
	participationRepo domain.ParticipationRepository,
	voucherRepo domain.VoucherRepository,
	publisher domain.NotificationPublisher,
	validity time.Duration,
	logger *slog.Logger,
) domain.RewardEngine {
	if validity <= 0 {
		validity = domain.DefaultVoucherValidity
	}
	return &rewardEngine{
		outingRepo:        outingRepo,
		userRepo:          userRepo,
		rewardRepo:        rewardRepo,
		participationRepo: participationRepo,
		voucherRepo:       voucherRepo,
		publisher:         publisher,
		validity:          validity,
		logger:            logger,
		now:               time.Now,
		newCode:           NewVoucherCode,
	}
}

// NewVoucherCode returns a redemption code of the form VOUCHER-XXXXXXXX.
func NewVoucherCode() string {
	return "VOUCHER-" + strings.ToUpper(uuid.NewString()[:8])
}

func (e *rewardEngine) Evaluate(ctx context.Context, outingID, userID string) error {
	outing, err := e.outingRepo.GetByID(ctx, outingID)
	if err != nil {
		return fmt.Errorf("get outing: %w", err)
	}
	if !outing.IsLinkedToEvent() {
		e.logger.DebugContext(ctx, "outing not linked to an event, skipping rewards", "outing_id", outingID)
		return nil
	}
	if outing.OrganizerID != userID {
		e.logger.DebugContext(ctx, "user is not the organizer, skipping rewards", "outing_id", outingID, "user_id", userID)
		return nil
	}
	user, err := e.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !domain.PolicyFor(user.Tier).RewardEligible {
		e.logger.DebugContext(ctx, "tier not eligible for rewards", "user_id", userID, "tier", user.Tier)
		return nil
	}

	rewards, err := e.rewardRepo.ListByEventID(ctx, *outing.EventID)
	if err != nil {
		return fmt.Errorf("list rewards: %w", err)
	}
	if len(rewards) == 0 {
		return nil
	}
	approved, err := e.participationRepo.CountApproved(ctx, outingID)
	if err != nil {
		return fmt.Errorf("count approved: %w", err)
	}

	for _, reward := range rewards {
		if reward.RequiredParticipants > approved {
			continue
		}
		v, err := e.issue(ctx, userID, reward.ID, outingID)
		if err != nil {
			return fmt.Errorf("issue voucher for reward %s: %w", reward.ID, err)
		}
		if v == nil {
			e.logger.DebugContext(ctx, "voucher already issued", "user_id", userID, "reward_id", reward.ID, "outing_id", outingID)
			continue
		}
		e.logger.InfoContext(ctx, "voucher issued", "voucher_id", v.ID, "user_id", userID, "reward_id", reward.ID, "outing_id", outingID)
		e.publisher.Publish(ctx, &domain.Notification{
			Type:          domain.NotificationRewardEarned,
			RecipientID:   userID,
			Title:         "Reward earned!",
			Message:       fmt.Sprintf("You earned %q for %s", reward.Title, outing.Title),
			ReferenceID:   v.ID,
			ReferenceType: "VOUCHER",
			CreatedAt:     v.IssuedAt,
		})
	}
	return nil
}

// issue creates the voucher for (userID, rewardID, outingID) unless one exists.
// It returns nil when the voucher had already been issued.
func (e *rewardEngine) issue(ctx context.Context, userID, rewardID, outingID string) (*domain.Voucher, error) {
	for range maxCodeAttempts {
		v := domain.NewVoucher(userID, rewardID, outingID, e.newCode(), e.now(), e.validity)
		created, err := e.voucherRepo.CreateIfAbsent(ctx, v)
		if errors.Is(err, domain.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !created {
			return nil, nil
		}
		return v, nil
	}
	return nil, fmt.Errorf("generate unique voucher code: %w", domain.ErrDuplicateCode)
}
