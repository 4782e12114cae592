package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"outingrewards/internal/domain"
)

// Postgres SQLSTATE codes this package reacts to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// Constraint names from schema.sql.
const (
	constraintParticipationUserOuting = "uk_participation_user_outing"
	constraintVoucherQRCode           = "uk_voucher_qr_code"
)

// mapError translates lock and serialization failures into domain.ErrTransientConflict.
// Other errors are returned unchanged.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %s", domain.ErrTransientConflict, pqErr.Message)
	}
	return err
}

// isUniqueViolation reports whether err is a unique violation, optionally of the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
