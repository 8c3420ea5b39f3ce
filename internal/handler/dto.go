package handler

import (
	"time"

	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/eligibility"
	"github.com/set-night/boostly/internal/pricing"
	"github.com/shopspring/decimal"
)

type lineInput struct {
	ServiceID string `json:"serviceId" binding:"required"`
	TargetURL string `json:"targetUrl" binding:"required,url"`
	Quantity  int    `json:"quantity"`
}

type orderInput struct {
	OwnerID       string      `json:"ownerId"`
	Platform      string      `json:"platform" binding:"required"`
	Lines         []lineInput `json:"lines" binding:"dive"`
	SpeedTier     string      `json:"speedTier"`
	PaymentMethod string      `json:"paymentMethod"`
}

type groupInput struct {
	Platform string      `json:"platform" binding:"required"`
	Lines    []lineInput `json:"lines" binding:"dive"`
}

type bulkInput struct {
	OwnerID       string       `json:"ownerId"`
	Groups        []groupInput `json:"groups" binding:"dive"`
	SpeedTier     string       `json:"speedTier"`
	PaymentMethod string       `json:"paymentMethod"`
}

type reportInput struct {
	Details string `json:"details"`
}

func toLineRequests(in []lineInput) []domain.LineRequest {
	out := make([]domain.LineRequest, len(in))
	for i, l := range in {
		out[i] = domain.LineRequest{ServiceID: l.ServiceID, TargetURL: l.TargetURL, Quantity: l.Quantity}
	}
	return out
}

// money renders a currency amount the way it is settled.
func money(d decimal.Decimal) string {
	return domain.Settle(d).StringFixed(2)
}

type lineResponse struct {
	ServiceID string `json:"serviceId"`
	TargetURL string `json:"targetUrl"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Discount  string `json:"discount"`
	LineTotal string `json:"lineTotal"`
}

func newLineResponses(lines []domain.OrderLine) []lineResponse {
	out := make([]lineResponse, len(lines))
	for i, l := range lines {
		out[i] = lineResponse{
			ServiceID: l.ServiceID,
			TargetURL: l.TargetURL,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
			Discount:  l.Discount.StringFixed(2),
			LineTotal: money(l.LineTotal),
		}
	}
	return out
}

type orderResponse struct {
	ID            string         `json:"id"`
	BatchID       string         `json:"batchId"`
	OwnerID       string         `json:"ownerId"`
	Platform      string         `json:"platform"`
	Lines         []lineResponse `json:"lines"`
	SpeedTier     string         `json:"speedTier"`
	PaymentMethod string         `json:"paymentMethod"`
	Status        string         `json:"status"`
	FailureReason string         `json:"failureReason,omitempty"`
	Amount        string         `json:"amount"`
	RepeatOf      *string        `json:"repeatOf,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func newOrderResponse(o *domain.Order) orderResponse {
	r := orderResponse{
		ID:            o.ID.String(),
		BatchID:       o.BatchID.String(),
		OwnerID:       o.OwnerID,
		Platform:      string(o.Platform),
		Lines:         newLineResponses(o.Lines),
		SpeedTier:     string(o.SpeedTier),
		PaymentMethod: string(o.PaymentMethod),
		Status:        string(o.Status),
		FailureReason: o.FailureReason,
		Amount:        money(o.Amount),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.RepeatOf != nil {
		s := o.RepeatOf.String()
		r.RepeatOf = &s
	}
	return r
}

type quoteResponse struct {
	Platform  string         `json:"platform"`
	Lines     []lineResponse `json:"lines"`
	Subtotal  string         `json:"subtotal"`
	Surcharge string         `json:"surcharge"`
	Amount    string         `json:"amount"`
}

func newQuoteResponse(q *pricing.Quote) quoteResponse {
	return quoteResponse{
		Platform:  string(q.Platform),
		Lines:     newLineResponses(q.Lines),
		Subtotal:  money(q.Subtotal),
		Surcharge: money(q.Surcharge),
		Amount:    money(q.Amount),
	}
}

type taskResponse struct {
	ID                string     `json:"id"`
	Platform          string     `json:"platform"`
	Type              string     `json:"type"`
	TargetURL         string     `json:"targetUrl"`
	Quantity          int        `json:"quantity"`
	RemainingQuantity int        `json:"remainingQuantity"`
	Reward            string     `json:"reward"`
	Status            string     `json:"status"`
	CooldownEndsAt    *time.Time `json:"cooldownEndsAt,omitempty"`
}

func newTaskResponse(t *domain.Task, now time.Time) taskResponse {
	return taskResponse{
		ID:                t.ID.String(),
		Platform:          string(t.Platform),
		Type:              string(t.Type),
		TargetURL:         t.TargetURL,
		Quantity:          t.Quantity,
		RemainingQuantity: t.RemainingQuantity,
		Reward:            money(t.Rate),
		Status:            string(eligibility.Effective(t, now)),
		CooldownEndsAt:    t.CooldownEndsAt,
	}
}

type serviceResponse struct {
	Platform    string `json:"platform"`
	ServiceID   string `json:"serviceId"`
	TaskType    string `json:"taskType"`
	Title       string `json:"title"`
	BasePrice   string `json:"basePrice"`
	MinQuantity int    `json:"minQuantity"`
	MaxQuantity int    `json:"maxQuantity"`
}
