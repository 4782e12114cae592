package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outingrewards/internal/domain"
)

type voucherService struct {
	voucherRepo domain.VoucherRepository
	rewardRepo  domain.RewardRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewVoucherService creates the voucher ledger.
func NewVoucherService(voucherRepo domain.VoucherRepository, rewardRepo domain.RewardRepository, logger *slog.Logger) domain.VoucherService {
	return &voucherService{
		voucherRepo: voucherRepo,
		rewardRepo:  rewardRepo,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *voucherService) Redeem(ctx context.Context, qrCode, businessID string) (*domain.Voucher, error) {
	v, err := s.voucherRepo.GetByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("voucher with code %s: %w", qrCode, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	reward, err := s.rewardRepo.GetByID(ctx, v.RewardID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("reward %s: %w", v.RewardID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if reward.BusinessID != businessID {
		return nil, domain.ErrWrongBusiness
	}

	now := s.now()
	if err := v.RedeemableAt(now); err != nil {
		return nil, err
	}
	ok, err := s.voucherRepo.MarkRedeemed(ctx, v.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark voucher redeemed: %w", err)
	}
	if !ok {
		// Lost a race with another redemption or the expiry sweep; report the winner's outcome.
		current, err := s.voucherRepo.GetByID(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("reload voucher: %w", err)
		}
		if cause := current.RedeemableAt(now); cause != nil {
			return nil, cause
		}
		return nil, domain.ErrVoucherAlreadyRedeemed
	}

	v.Status = domain.VoucherRedeemed
	v.RedeemedAt = &now
	v.CanBeRedeemed = false
	s.logger.InfoContext(ctx, "voucher redeemed", "voucher_id", v.ID, "business_id", businessID)
	return v, nil
}

func (s *voucherService) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.voucherRepo.ExpireBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire vouchers: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "vouchers expired", "count", n)
	}
	return n, nil
}

func (s *voucherService) Get(ctx context.Context, voucherID, userID string) (*domain.Voucher, error) {
	v, err := s.voucherRepo.GetByID(ctx, voucherID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("voucher %s: %w", voucherID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if v.UserID != userID {
		return nil, domain.ErrNotVoucherHolder
	}
	s.markRedeemable(v)
	return v, nil
}

func (s *voucherService) ListForUser(ctx context.Context, userID string) ([]*domain.Voucher, error) {
	list, err := s.voucherRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	s.markRedeemable(list...)
	return list, nil
}

func (s *voucherService) ListActiveForUser(ctx context.Context, userID string) ([]*domain.Voucher, error) {
	list, err := s.voucherRepo.ListActiveByUserID(ctx, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list active vouchers: %w", err)
	}
	s.markRedeemable(list...)
	return list, nil
}

func (s *voucherService) markRedeemable(vs ...*domain.Voucher) {
	now := s.now()
	for _, v := range vs {
		v.CanBeRedeemed = v.RedeemableAt(now) == nil
	}
}
