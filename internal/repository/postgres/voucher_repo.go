package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outingrewards/internal/domain"
)

const voucherColumns = `id, user_id, reward_id, outing_id, qr_code, status, issued_at, redeemed_at, expires_at`

type voucherRepository struct {
	DB *sql.DB
}

func NewVoucherRepository(db *sql.DB) domain.VoucherRepository {
	return &voucherRepository{DB: db}
}

func (r *voucherRepository) CreateIfAbsent(ctx context.Context, v *domain.Voucher) (bool, error) {
	query := `
		INSERT INTO vouchers (user_id, reward_id, outing_id, qr_code, status, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, reward_id, outing_id) DO NOTHING
		RETURNING id
	`
	var id string
	err := r.DB.QueryRowContext(ctx, query, v.UserID, v.RewardID, v.OutingID, v.QRCode, v.Status, v.IssuedAt, v.ExpiresAt).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if isUniqueViolation(err, constraintVoucherQRCode) {
			return false, domain.ErrDuplicateCode
		}
		return false, err
	}
	v.ID = id
	return true, nil
}

func (r *voucherRepository) GetByID(ctx context.Context, id string) (*domain.Voucher, error) {
	return r.getOne(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
}

func (r *voucherRepository) GetByQRCode(ctx context.Context, qrCode string) (*domain.Voucher, error) {
	return r.getOne(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE qr_code = $1`, qrCode)
}

func (r *voucherRepository) getOne(ctx context.Context, query string, arg string) (*domain.Voucher, error) {
	v, err := scanVoucher(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *voucherRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE user_id = $1 ORDER BY issued_at DESC`
	return r.list(ctx, query, userID)
}

func (r *voucherRepository) ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE user_id = $1 AND status = 'ACTIVE' AND expires_at > $2 ORDER BY issued_at DESC`
	return r.list(ctx, query, userID, now)
}

func (r *voucherRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Voucher, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vouchers := make([]*domain.Voucher, 0)
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

// MarkRedeemed is a compare-and-swap on status: only an ACTIVE, unexpired row moves.
func (r *voucherRepository) MarkRedeemed(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE vouchers
		SET status = 'REDEEMED', redeemed_at = $2
		WHERE id = $1 AND status = 'ACTIVE' AND expires_at >= $2
	`
	result, err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *voucherRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `UPDATE vouchers SET status = 'EXPIRED' WHERE status = 'ACTIVE' AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoucher(row rowScanner) (*domain.Voucher, error) {
	v := &domain.Voucher{}
	var redeemedAt sql.NullTime
	if err := row.Scan(&v.ID, &v.UserID, &v.RewardID, &v.OutingID, &v.QRCode, &v.Status, &v.IssuedAt, &redeemedAt, &v.ExpiresAt); err != nil {
		return nil, err
	}
	if redeemedAt.Valid {
		v.RedeemedAt = &redeemedAt.Time
	}
	return v, nil
}
