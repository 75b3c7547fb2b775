package service

import "context"

// GatewayOrder is an order created at the payment gateway. Amount is in the
// smallest currency unit (paise for INR).
type GatewayOrder struct {
	ID       string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type CreateOrderInput struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type PaymentGateway interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*GatewayOrder, error)
	// VerifySignature checks the checkout signature returned to the client
	// for orderID and paymentID.
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}
