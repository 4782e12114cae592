package domain

import (
	"errors"
	"fmt"
)

// Error categories. Callers match these with errors.Is; the specific causes
// below wrap exactly one category each.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCapacityExceeded  = errors.New("outing is full")
	ErrInvalidState      = errors.New("invalid state")
	ErrRedemption        = errors.New("voucher cannot be redeemed")
	ErrTransientConflict = errors.New("conflicting concurrent update, retry later")
)

// Validation causes.
var (
	ErrSelfJoin             = fmt.Errorf("%w: organizer cannot join own outing", ErrInvalidInput)
	ErrAlreadyParticipating = fmt.Errorf("%w: user already has a participation request for this outing", ErrInvalidInput)
)

// Authorization causes.
var (
	ErrNotOrganizer     = fmt.Errorf("%w: only the outing organizer can manage participations", ErrForbidden)
	ErrNotParticipant   = fmt.Errorf("%w: you can only cancel your own participation", ErrForbidden)
	ErrWrongBusiness    = fmt.Errorf("%w: voucher belongs to a different business", ErrForbidden)
	ErrNotVoucherHolder = fmt.Errorf("%w: voucher belongs to another user", ErrForbidden)
)

// ErrNotPending is returned when approving or rejecting a participation that was already resolved.
var ErrNotPending = fmt.Errorf("%w: participation is not pending", ErrInvalidState)

// Redemption causes.
var (
	ErrVoucherAlreadyRedeemed = fmt.Errorf("%w: already redeemed", ErrRedemption)
	ErrVoucherCancelled       = fmt.Errorf("%w: cancelled", ErrRedemption)
	ErrVoucherExpired         = fmt.Errorf("%w: expired", ErrRedemption)
)

// ErrDuplicateCode is returned by a VoucherRepository when a generated redemption
// code collides with an existing one. The caller should generate a new code.
var ErrDuplicateCode = errors.New("voucher code already in use")
