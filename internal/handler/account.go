package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/set-night/boostly/internal/config"
	"github.com/set-night/boostly/internal/middleware"
)

func (h *Handler) getBalance(c *gin.Context) {
	owner := middleware.GetOwner(c)
	acc, err := h.ledger.Balance(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ownerId": acc.OwnerID, "available": money(acc.Available)})
}

func (h *Handler) listCatalog(c *gin.Context) {
	defs := h.catalog.Services()
	out := make([]serviceResponse, len(defs))
	for i, d := range defs {
		out[i] = serviceResponse{
			Platform:    string(d.Platform),
			ServiceID:   d.ServiceID,
			TaskType:    string(d.TaskType),
			Title:       d.Title,
			BasePrice:   d.BasePrice.String(),
			MinQuantity: d.MinQuantity,
			MaxQuantity: d.MaxQuantity,
		}
	}
	c.JSON(http.StatusOK, gin.H{"services": out})
}

func (h *Handler) health(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), config.HealthTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// paymentCallback receives provider verdicts. It is authenticated by the
// body signature, not by a bearer token.
func (h *Handler) paymentCallback(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxCallbackBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large", "code": "body_too_large"})
		return
	}
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}

	outcome, err := h.payments.Verify(body, c.GetHeader("sign"))
	if err != nil {
		respondError(c, err)
		return
	}

	orders, err := h.orders.HandlePaymentOutcome(c.Request.Context(), outcome)
	if err != nil {
		respondError(c, err)
		return
	}

	statuses := make(map[string]string, len(orders))
	for _, o := range orders {
		statuses[o.ID.String()] = string(o.Status)
	}
	c.JSON(http.StatusOK, gin.H{"orders": statuses})
}
