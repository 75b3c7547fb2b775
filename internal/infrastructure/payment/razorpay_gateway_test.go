package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"healthsync-api/internal/service"
)

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "test_secret"
	valid := sign(secret, "order_1|pay_1")

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid", "order_1", "pay_1", valid, true},
		{"wrong payment", "order_1", "pay_2", valid, false},
		{"wrong order", "order_2", "pay_1", valid, false},
		{"empty signature", "order_1", "pay_1", "", false},
		{"wrong secret", "order_1", "pay_1", sign("other", "order_1|pay_1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := verifySignature(secret, tt.orderID, tt.paymentID, tt.signature); got != tt.want {
				t.Errorf("verifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	input := service.CreateOrderInput{Amount: 30000, Currency: "INR", Receipt: "rcpt_1"}

	order, err := parseOrder(map[string]interface{}{"id": "order_abc", "amount": float64(30000), "currency": "INR"}, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "order_abc" || order.Amount != 30000 || order.Receipt != "rcpt_1" {
		t.Errorf("unexpected order %+v", order)
	}

	if _, err := parseOrder(map[string]interface{}{"error": "bad"}, input); err != ErrInvalidOrderResponse {
		t.Errorf("expected ErrInvalidOrderResponse, got %v", err)
	}
}
