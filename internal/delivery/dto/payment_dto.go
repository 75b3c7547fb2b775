package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreatePaymentOrderRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	CouponCode    string `json:"coupon_code" validate:"omitempty,max=50"`
	PaymentMode   string `json:"payment_mode" validate:"required,oneof=UPI CARD"`
	CardType      string `json:"card_type" validate:"omitempty,oneof=RUPAY VISA MASTERCARD"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Response DTOs

type PaymentOrderResponse struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	OrderID        string          `json:"order_id"`
	KeyID          string          `json:"key_id"`
	Amount         int64           `json:"amount"`
	Currency       string          `json:"currency"`
	InvoiceNumber  string          `json:"invoice_number"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	GSTAmount      decimal.Decimal `json:"gst_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
}

type TransactionResponse struct {
	ID               uuid.UUID       `json:"id"`
	AppointmentID    uuid.UUID       `json:"appointment_id"`
	Status           string          `json:"status"`
	PaymentMode      string          `json:"payment_mode"`
	CardType         *string         `json:"card_type,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	GatewayOrderID   *string         `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string         `json:"gateway_payment_id,omitempty"`
	InvoiceNumber    *string         `json:"invoice_number,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}
