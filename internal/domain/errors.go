package domain

import "errors"

var (
	// Client input errors.
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidTargetURL     = errors.New("invalid target url")
	ErrUnknownService       = errors.New("unknown service")
	ErrEmptyOrder           = errors.New("empty order")
	ErrInvalidSpeedTier     = errors.New("invalid speed tier")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidPlatform      = errors.New("invalid platform")
	ErrInvalidTicket        = errors.New("invalid ticket")
	ErrInvalidAmount        = errors.New("invalid amount")

	// Ledger and payment outcomes.
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrPaymentProviderFailure = errors.New("payment provider failure")
	ErrInvalidSignature       = errors.New("invalid payment signature")

	// Task execution.
	ErrNotEligible = errors.New("task not eligible")

	// State changes.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrCancelNotSupported  = errors.New("cancel not supported once processing")
	ErrInvalidTransition   = errors.New("invalid order status transition")

	// Lookups and access.
	ErrOrderNotFound = errors.New("order not found")
	ErrTaskNotFound  = errors.New("task not found")
	ErrForbidden     = errors.New("forbidden")
)
