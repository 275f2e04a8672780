package models

import (
	"errors"
	"fmt"
)

var (
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrDuplicateCode     = errors.New("promo code already exists for this canteen")
	ErrInvalidTransition = errors.New("invalid promotion status transition")

	// ErrNoSession is returned when a session has no order lines.
	ErrNoSession = errors.New("NO_SESSION_FOUND")
	// ErrSessionFinalized is returned when another finalization claimed
	// the session first, or when lines were placed after it was billed.
	ErrSessionFinalized = errors.New("session already finalized")
	// ErrOrderLineNotFound is returned when a line to update is gone.
	ErrOrderLineNotFound = errors.New("order line not found")
	// ErrRedemptionCapReached is returned by a conditional increment that
	// found the promotion at its cap.
	ErrRedemptionCapReached = errors.New("redemption cap reached")
)

// ValidationError reports a malformed or out-of-range input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
