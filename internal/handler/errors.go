package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/set-night/boostly/internal/domain"
)

type errorKind struct {
	err    error
	status int
	code   string
}

// First match wins, so narrower kinds come first.
var errorKinds = []errorKind{
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrInvalidTargetURL, http.StatusBadRequest, "invalid_target_url"},
	{domain.ErrUnknownService, http.StatusBadRequest, "unknown_service"},
	{domain.ErrEmptyOrder, http.StatusBadRequest, "empty_order"},
	{domain.ErrInvalidSpeedTier, http.StatusBadRequest, "invalid_speed_tier"},
	{domain.ErrInvalidPaymentMethod, http.StatusBadRequest, "invalid_payment_method"},
	{domain.ErrInvalidPlatform, http.StatusBadRequest, "invalid_platform"},
	{domain.ErrInvalidTicket, http.StatusBadRequest, "invalid_ticket"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrPaymentProviderFailure, http.StatusBadRequest, "payment_provider_failure"},
	{domain.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
	{domain.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{domain.ErrTaskNotFound, http.StatusNotFound, "task_not_found"},
	{domain.ErrNotEligible, http.StatusConflict, "not_eligible"},
	{domain.ErrConcurrencyConflict, http.StatusConflict, "concurrency_conflict"},
	{domain.ErrCancelNotSupported, http.StatusConflict, "cancel_not_supported"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes err in the common error shape and aborts the chain.
// Unclassified errors are logged and hidden from the client.
func respondError(c *gin.Context, err error, extra ...any) {
	status, code := classify(err)
	body := gin.H{"error": err.Error(), "code": code}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		body["error"] = "internal error"
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			body[k] = extra[i+1]
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}
