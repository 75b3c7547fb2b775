package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"healthsync-api/config"
	"healthsync-api/internal/service"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrInvalidOrderResponse = errors.New("razorpay returned an order without id")

type razorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

func NewRazorpayGateway(cfg config.PaymentConfig) service.PaymentGateway {
	return &razorpayGateway{
		client:    razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		keyID:     cfg.RazorpayKeyID,
		keySecret: cfg.RazorpayKeySecret,
	}
}

func (g *razorpayGateway) KeyID() string {
	return g.keyID
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes := make(map[string]interface{}, len(input.Notes))
	for k, v := range input.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   input.Amount,
		"currency": input.Currency,
		"receipt":  input.Receipt,
		"notes":    notes,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}

	return parseOrder(body, input)
}

func parseOrder(body map[string]interface{}, input service.CreateOrderInput) (*service.GatewayOrder, error) {
	id, ok := body["id"].(string)
	if !ok || id == "" {
		return nil, ErrInvalidOrderResponse
	}

	order := &service.GatewayOrder{
		ID:       id,
		Amount:   input.Amount,
		Currency: input.Currency,
		Receipt:  input.Receipt,
	}
	if amount, ok := body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	if currency, ok := body["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	return order, nil
}

// VerifySignature compares the checkout signature against
// HMAC-SHA256(orderID + "|" + paymentID) keyed with the API secret.
func (g *razorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return verifySignature(g.keySecret, orderID, paymentID, signature)
}

func verifySignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
