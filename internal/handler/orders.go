package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/config"
	"github.com/set-night/boostly/internal/domain"
	"github.com/set-night/boostly/internal/middleware"
	"github.com/set-night/boostly/internal/service"
)

// ownerFrom returns the authenticated owner, rejecting a client supplied
// owner id that names somebody else.
func ownerFrom(c *gin.Context, claimed string) (string, bool) {
	owner := middleware.GetOwner(c)
	if claimed != "" && claimed != owner {
		respondError(c, fmt.Errorf("%w: owner id does not match credentials", domain.ErrForbidden))
		return "", false
	}
	return owner, true
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) createOrder(c *gin.Context) {
	var in orderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	owner, ok := ownerFrom(c, in.OwnerID)
	if !ok {
		return
	}
	platform, err := domain.ParsePlatform(in.Platform)
	if err != nil {
		respondError(c, err)
		return
	}

	o, err := h.orders.Submit(c.Request.Context(), service.SubmitRequest{
		OwnerID:       owner,
		Platform:      platform,
		Lines:         toLineRequests(in.Lines),
		SpeedTier:     domain.SpeedTier(in.SpeedTier),
		PaymentMethod: paymentMethod(in.PaymentMethod),
	})
	if err != nil {
		if o != nil {
			respondError(c, err, "orderId", o.ID.String(), "status", o.Status)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"orderId": o.ID.String(),
		"amount":  money(o.Amount),
		"status":  o.Status,
	})
}

func (h *Handler) createBulkOrder(c *gin.Context) {
	var in bulkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(in.Groups) > config.MaxBulkGroups {
		badRequest(c, fmt.Sprintf("at most %d groups per bulk order", config.MaxBulkGroups))
		return
	}
	owner, ok := ownerFrom(c, in.OwnerID)
	if !ok {
		return
	}

	groups := make([]service.LineGroup, len(in.Groups))
	for i, g := range in.Groups {
		platform, err := domain.ParsePlatform(g.Platform)
		if err != nil {
			respondError(c, fmt.Errorf("group %d: %w", i, err))
			return
		}
		groups[i] = service.LineGroup{Platform: platform, Lines: toLineRequests(g.Lines)}
	}

	orders, err := h.orders.SubmitBulk(c.Request.Context(), service.BulkRequest{
		OwnerID:       owner,
		Groups:        groups,
		SpeedTier:     domain.SpeedTier(in.SpeedTier),
		PaymentMethod: paymentMethod(in.PaymentMethod),
	})

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
	}
	if err != nil {
		if len(orders) > 0 {
			respondError(c, err, "batchId", orders[0].BatchID.String(), "orderIds", ids)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"batchId":  orders[0].BatchID.String(),
		"orderIds": ids,
		"status":   orders[0].Status,
	})
}

func (h *Handler) quoteOrder(c *gin.Context) {
	var in orderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	platform, err := domain.ParsePlatform(in.Platform)
	if err != nil {
		respondError(c, err)
		return
	}

	q, err := h.orders.Quote(platform, toLineRequests(in.Lines), domain.SpeedTier(in.SpeedTier))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuoteResponse(q))
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), middleware.GetOwner(c), id, middleware.IsAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

func (h *Handler) repeatOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := h.orders.Repeat(c.Request.Context(), middleware.GetOwner(c), id)
	if err != nil {
		if o != nil {
			respondError(c, err, "orderId", o.ID.String(), "status", o.Status)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(o))
}

func (h *Handler) reportIssue(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var in reportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	t, err := h.orders.ReportIssue(c.Request.Context(), middleware.GetOwner(c), id, in.Details)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"ticketId":  t.ID.String(),
		"orderId":   t.OrderID.String(),
		"createdAt": t.CreatedAt,
	})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := h.orders.Cancel(c.Request.Context(), middleware.GetOwner(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

func (h *Handler) markDelivered(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	o, err := h.orders.MarkDelivered(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o))
}

// paymentMethod defaults an omitted method to balance.
func paymentMethod(s string) domain.PaymentMethod {
	if s == "" {
		return domain.PaymentBalance
	}
	return domain.PaymentMethod(s)
}
