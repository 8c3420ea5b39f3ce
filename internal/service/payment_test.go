package service

import (
	"testing"

	"github.com/set-night/boostly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSign_KnownVector(t *testing.T) {
	// md5("e30=" + "secret")
	assert.Equal(t, "847494ce9311176ff4da7f7ac064a396", createSign([]byte("{}"), "secret"))
	assert.NotEqual(t, createSign([]byte("{}"), "secret"), createSign([]byte("{}"), "other"))
}

func TestPaymentVerifier_Verify(t *testing.T) {
	v := NewPaymentVerifier("s3cret")
	body := []byte(`{"orderId":"6f1c2a4e-8d0b-4c7e-9f3a-1b2c3d4e5f60","outcome":"failure","reason":"card declined"}`)

	tests := []struct {
		name    string
		body    []byte
		sign    string
		wantErr error
	}{
		{name: "valid", body: body, sign: v.Sign(body)},
		{name: "missing sign", body: body, sign: "", wantErr: domain.ErrInvalidSignature},
		{name: "wrong sign", body: body, sign: NewPaymentVerifier("other").Sign(body), wantErr: domain.ErrInvalidSignature},
		{name: "tampered body", body: append([]byte(nil), body[:len(body)-2]...), sign: v.Sign(body), wantErr: domain.ErrInvalidSignature},
		{
			name:    "bad outcome",
			body:    []byte(`{"orderId":"6f1c2a4e-8d0b-4c7e-9f3a-1b2c3d4e5f60","outcome":"maybe"}`),
			wantErr: domain.ErrPaymentProviderFailure,
		},
		{
			name:    "bad order id",
			body:    []byte(`{"orderId":"nope","outcome":"success"}`),
			wantErr: domain.ErrPaymentProviderFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sign := tt.sign
			if sign == "" && tt.wantErr != domain.ErrInvalidSignature {
				sign = v.Sign(tt.body)
			}
			out, err := v.Verify(tt.body, sign)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentFailed, out.Outcome)
			assert.Equal(t, "card declined", out.Reason)
			assert.Equal(t, "6f1c2a4e-8d0b-4c7e-9f3a-1b2c3d4e5f60", out.OrderID.String())
		})
	}
}

func TestPaymentVerifier_NoSecretRejectsEverything(t *testing.T) {
	v := NewPaymentVerifier("")
	body := []byte(`{"orderId":"6f1c2a4e-8d0b-4c7e-9f3a-1b2c3d4e5f60","outcome":"success"}`)

	_, err := v.Verify(body, createSign(body, ""))

	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}
