package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next == OrderStatusFailed
	case OrderStatusProcessing:
		return next == OrderStatusCompleted
	}
	return false
}

type SpeedTier string

const (
	SpeedNormal  SpeedTier = "normal"
	SpeedFast    SpeedTier = "fast"
	SpeedExpress SpeedTier = "express"
)

func ParseSpeedTier(s string) (SpeedTier, error) {
	switch t := SpeedTier(s); t {
	case SpeedNormal, SpeedFast, SpeedExpress:
		return t, nil
	case "":
		return SpeedNormal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSpeedTier, s)
}

type PaymentMethod string

const (
	PaymentBalance PaymentMethod = "balance"
	PaymentCard    PaymentMethod = "card"
	PaymentCrypto  PaymentMethod = "crypto"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentBalance, PaymentCard, PaymentCrypto:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

// External reports whether the payment is confirmed asynchronously by a provider.
func (m PaymentMethod) External() bool {
	return m == PaymentCard || m == PaymentCrypto
}

// Failure reasons recorded on failed orders.
const (
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonReservationError    = "reservation_error"
	ReasonTaskSpawnFailed     = "task_spawn_failed"
	ReasonCancelled           = "cancelled"
	ReasonPaymentFailed       = "payment_failed"
)

// LineRequest is a client supplied order line before pricing.
type LineRequest struct {
	ServiceID string
	TargetURL string
	Quantity  int
}

// OrderLine is a priced line. It is never mutated after pricing.
type OrderLine struct {
	ServiceID string
	TargetURL string
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	LineTotal decimal.Decimal
}

func (l OrderLine) Request() LineRequest {
	return LineRequest{ServiceID: l.ServiceID, TargetURL: l.TargetURL, Quantity: l.Quantity}
}

type Order struct {
	ID            uuid.UUID
	BatchID       uuid.UUID
	OwnerID       string
	Platform      Platform
	Lines         []OrderLine
	SpeedTier     SpeedTier
	PaymentMethod PaymentMethod
	Status        OrderStatus
	FailureReason string
	// Amount is the sum of line totals plus the speed surcharge. It is
	// frozen at creation: payment is collected against it.
	Amount    decimal.Decimal
	RepeatOf  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SettledAmount is the amount charged to the owner, rounded to cents.
func (o *Order) SettledAmount() decimal.Decimal {
	return Settle(o.Amount)
}

// FailureError maps the failure reason of a failed order to its error kind.
func (o *Order) FailureError() error {
	if o.Status != OrderStatusFailed {
		return nil
	}
	switch {
	case o.FailureReason == ReasonInsufficientBalance:
		return ErrInsufficientBalance
	case strings.HasPrefix(o.FailureReason, ReasonPaymentFailed):
		detail := strings.TrimPrefix(strings.TrimPrefix(o.FailureReason, ReasonPaymentFailed), ": ")
		if detail == "" {
			return ErrPaymentProviderFailure
		}
		return fmt.Errorf("%w: %s", ErrPaymentProviderFailure, detail)
	case o.FailureReason == ReasonCancelled:
		return nil
	}
	return errors.New(o.FailureReason)
}

func (o *Order) LineRequests() []LineRequest {
	out := make([]LineRequest, len(o.Lines))
	for i, l := range o.Lines {
		out[i] = l.Request()
	}
	return out
}

// Settle rounds a currency amount to two places. Only call it at the point
// of settlement or display.
func Settle(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
