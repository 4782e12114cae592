package domain

import (
	"context"
	"time"
)

// DefaultVoucherValidity is how long an issued voucher stays redeemable.
const DefaultVoucherValidity = 60 * 24 * time.Hour

// VoucherStatus is the lifecycle state of a voucher. Every state other than ACTIVE is terminal.
type VoucherStatus string

const (
	VoucherActive    VoucherStatus = "ACTIVE"
	VoucherRedeemed  VoucherStatus = "REDEEMED"
	VoucherExpired   VoucherStatus = "EXPIRED"
	VoucherCancelled VoucherStatus = "CANCELLED"
)

// Voucher is a redeemable instance of a Reward earned by one user through one outing.
// swagger:model Voucher
type Voucher struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	RewardID      string        `json:"reward_id"`
	OutingID      string        `json:"outing_id"`
	QRCode        string        `json:"qr_code"`
	Status        VoucherStatus `json:"status"`
	IssuedAt      time.Time     `json:"issued_at"`
	RedeemedAt    *time.Time    `json:"redeemed_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	CanBeRedeemed bool          `json:"can_be_redeemed"`
}

// NewVoucher returns an ACTIVE voucher expiring validity after issuedAt.
func NewVoucher(userID, rewardID, outingID, qrCode string, issuedAt time.Time, validity time.Duration) *Voucher {
	return &Voucher{
		UserID:        userID,
		RewardID:      rewardID,
		OutingID:      outingID,
		QRCode:        qrCode,
		Status:        VoucherActive,
		IssuedAt:      issuedAt,
		ExpiresAt:     issuedAt.Add(validity),
		CanBeRedeemed: true,
	}
}

// RedeemableAt returns nil if the voucher can be redeemed at now, or the redemption
// error describing why not.
func (v *Voucher) RedeemableAt(now time.Time) error {
	switch v.Status {
	case VoucherActive:
	case VoucherRedeemed:
		return ErrVoucherAlreadyRedeemed
	case VoucherCancelled:
		return ErrVoucherCancelled
	case VoucherExpired:
		return ErrVoucherExpired
	default:
		return ErrRedemption
	}
	if now.After(v.ExpiresAt) {
		return ErrVoucherExpired
	}
	return nil
}

// VoucherRepository defines storage operations for vouchers.
type VoucherRepository interface {
	// CreateIfAbsent inserts v unless a voucher for (UserID, RewardID, OutingID)
	// already exists, in which case it returns false and leaves v unchanged.
	// A collision on QRCode returns ErrDuplicateCode.
	CreateIfAbsent(ctx context.Context, v *Voucher) (created bool, err error)
	GetByID(ctx context.Context, id string) (*Voucher, error)
	GetByQRCode(ctx context.Context, qrCode string) (*Voucher, error)
	ListByUserID(ctx context.Context, userID string) ([]*Voucher, error)
	// ListActiveByUserID lists ACTIVE vouchers of the user that expire after now.
	ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]*Voucher, error)
	// MarkRedeemed moves the voucher to REDEEMED only if it is still ACTIVE and
	// not expired at the given time. It reports whether the row changed.
	MarkRedeemed(ctx context.Context, id string, at time.Time) (bool, error)
	// ExpireBefore moves every ACTIVE voucher with expires_at < now to EXPIRED.
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)
}

// VoucherService is the voucher ledger.
type VoucherService interface {
	Redeem(ctx context.Context, qrCode, businessID string) (*Voucher, error)
	ExpireSweep(ctx context.Context, now time.Time) (int64, error)
	Get(ctx context.Context, voucherID, userID string) (*Voucher, error)
	ListForUser(ctx context.Context, userID string) ([]*Voucher, error)
	ListActiveForUser(ctx context.Context, userID string) ([]*Voucher, error)
}
