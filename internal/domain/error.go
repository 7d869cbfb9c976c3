package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Payment confirmation errors
	ErrForbidden           = errors.New("payment belongs to another user")
	ErrMissingSignature    = errors.New("missing signature")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrPaymentResolved     = errors.New("payment already resolved")
	ErrInvalidTransition   = errors.New("payment status does not allow this change")
	ErrPricingNotFound     = errors.New("pricing not found for plan and currency")
	ErrPricingInactive     = errors.New("pricing is not active")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrMalformedPayload    = errors.New("malformed provider payload")
	ErrRateLimited         = errors.New("too many requests")

	// Subscription errors
	ErrNoActiveSubscription = errors.New("no active subscription")
)
