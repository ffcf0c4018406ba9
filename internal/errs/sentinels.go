// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller that is not entitled to the action.
	ErrForbidden = errors.New("forbidden")

	// ErrBanned indicates the caller's account is suspended.
	ErrBanned = errors.New("account suspended")

	// ErrValidation indicates user-correctable input.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream indicates a payment or storage provider failure.
	ErrUpstream = errors.New("upstream failure")

	// ErrRateLimited indicates the caller exceeded its request window.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrSellerNotReady indicates the seller has no payout destination configured.
	ErrSellerNotReady = errors.New("seller has not configured payouts")

	// ErrBadSignature indicates a webhook payload whose signature does not verify.
	ErrBadSignature = errors.New("bad webhook signature")
)

type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrValidation }

// Validation returns a user-facing validation error matching ErrValidation.
func Validation(msg string) error { return &validationError{msg: msg} }
