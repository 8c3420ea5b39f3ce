package service

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/set-night/boostly/internal/domain"
)

// PaymentVerifier authenticates payment provider callbacks. A callback is
// signed with md5(base64(body) + secret), hex encoded.
type PaymentVerifier struct {
	secret string
}

func NewPaymentVerifier(secret string) *PaymentVerifier {
	return &PaymentVerifier{secret: secret}
}

type callbackPayload struct {
	OrderID string `json:"orderId"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

// Verify checks sign against body and decodes the outcome it carries.
// Without a configured secret every callback is rejected.
func (v *PaymentVerifier) Verify(body []byte, sign string) (domain.PaymentOutcome, error) {
	if v.secret == "" || sign == "" {
		return domain.PaymentOutcome{}, domain.ErrInvalidSignature
	}
	want := createSign(body, v.secret)
	if subtle.ConstantTimeCompare([]byte(want), []byte(sign)) != 1 {
		return domain.PaymentOutcome{}, domain.ErrInvalidSignature
	}

	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%w: decode callback: %v", domain.ErrPaymentProviderFailure, err)
	}
	id, err := uuid.Parse(p.OrderID)
	if err != nil {
		return domain.PaymentOutcome{}, fmt.Errorf("%w: bad order id %q", domain.ErrPaymentProviderFailure, p.OrderID)
	}

	outcome := domain.PaymentOutcomeKind(p.Outcome)
	switch outcome {
	case domain.PaymentSucceeded, domain.PaymentFailed:
	default:
		return domain.PaymentOutcome{}, fmt.Errorf("%w: unknown outcome %q", domain.ErrPaymentProviderFailure, p.Outcome)
	}
	return domain.PaymentOutcome{OrderID: id, Outcome: outcome, Reason: p.Reason}, nil
}

// Sign returns the signature a provider attaches to body.
func (v *PaymentVerifier) Sign(body []byte) string {
	return createSign(body, v.secret)
}

func createSign(payload []byte, secret string) string {
	encoded := base64.StdEncoding.EncodeToString(payload)
	hash := md5.Sum([]byte(encoded + secret))
	return hex.EncodeToString(hash[:])
}
