package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"outingrewards/internal/domain"
)

type voucherRepository struct{ s *Store }

func (r *voucherRepository) CreateIfAbsent(_ context.Context, v *domain.Voucher) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.vouchers {
		if existing.UserID == v.UserID && existing.RewardID == v.RewardID && existing.OutingID == v.OutingID {
			return false, nil
		}
		if existing.QRCode == v.QRCode {
			return false, domain.ErrDuplicateCode
		}
	}
	v.ID = uuid.NewString()
	c := *v
	r.s.vouchers[c.ID] = &c
	return true, nil
}

func (r *voucherRepository) GetByID(_ context.Context, id string) (*domain.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vouchers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *v
	return &c, nil
}

func (r *voucherRepository) GetByQRCode(_ context.Context, qrCode string) (*domain.Voucher, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.vouchers {
		if v.QRCode == qrCode {
			c := *v
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *voucherRepository) ListByUserID(_ context.Context, userID string) ([]*domain.Voucher, error) {
	return r.list(func(v *domain.Voucher) bool { return v.UserID == userID }), nil
}

func (r *voucherRepository) ListActiveByUserID(_ context.Context, userID string, now time.Time) ([]*domain.Voucher, error) {
	return r.list(func(v *domain.Voucher) bool {
		return v.UserID == userID && v.Status == domain.VoucherActive && v.ExpiresAt.After(now)
	}), nil
}

func (r *voucherRepository) list(match func(*domain.Voucher) bool) []*domain.Voucher {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*domain.Voucher, 0)
	for _, v := range r.s.vouchers {
		if match(v) {
			c := *v
			list = append(list, &c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].IssuedAt.After(list[j].IssuedAt) })
	return list
}

func (r *voucherRepository) MarkRedeemed(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vouchers[id]
	if !ok || v.Status != domain.VoucherActive || at.After(v.ExpiresAt) {
		return false, nil
	}
	v.Status = domain.VoucherRedeemed
	v.RedeemedAt = &at
	return true, nil
}

func (r *voucherRepository) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, v := range r.s.vouchers {
		if v.Status == domain.VoucherActive && v.ExpiresAt.Before(now) {
			v.Status = domain.VoucherExpired
			n++
		}
	}
	return n, nil
}
