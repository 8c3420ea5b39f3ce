package domain

import "github.com/google/uuid"

type PaymentOutcomeKind string

const (
	PaymentSucceeded PaymentOutcomeKind = "success"
	PaymentFailed    PaymentOutcomeKind = "failure"
)

// PaymentOutcome is delivered asynchronously by an external payment provider.
type PaymentOutcome struct {
	OrderID uuid.UUID
	Outcome PaymentOutcomeKind
	Reason  string
}
