package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusCreated  TransactionStatus = "CREATED"
	TransactionStatusPaid     TransactionStatus = "PAID"
	TransactionStatusFailed   TransactionStatus = "FAILED"
	TransactionStatusRefunded TransactionStatus = "REFUNDED"
)

type PaymentMode string

const (
	PaymentModeUPI  PaymentMode = "UPI"
	PaymentModeCard PaymentMode = "CARD"
)

type CardType string

const (
	CardTypeRupay      CardType = "RUPAY"
	CardTypeVisa       CardType = "VISA"
	CardTypeMastercard CardType = "MASTERCARD"
)

const PaymentGatewayRazorpay = "RAZORPAY"

// Transaction is a payment attempt for an appointment
type Transaction struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AppointmentID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"appointment_id"`
	PatientID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID         uuid.UUID         `gorm:"type:uuid;not null" json:"doctor_id"`
	BaseAmount       decimal.Decimal   `gorm:"type:numeric(10,2);not null" json:"base_amount"`
	GSTPercentage    decimal.Decimal   `gorm:"type:numeric(5,2);not null;default:0" json:"gst_percentage"`
	GSTAmount        decimal.Decimal   `gorm:"type:numeric(10,2);not null;default:0" json:"gst_amount"`
	DiscountAmount   decimal.Decimal   `gorm:"type:numeric(10,2);not null;default:0" json:"discount_amount"`
	TotalAmount      decimal.Decimal   `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	CouponID         *uuid.UUID        `gorm:"type:uuid" json:"coupon_id,omitempty"`
	CouponCode       *string           `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	PaymentMode      PaymentMode       `gorm:"type:varchar(10);not null" json:"payment_mode"`
	CardType         *CardType         `gorm:"type:varchar(20)" json:"card_type,omitempty"`
	Gateway          string            `gorm:"type:varchar(20);not null;default:'RAZORPAY'" json:"gateway"`
	GatewayOrderID   *string           `gorm:"type:varchar(100);index" json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string           `gorm:"type:varchar(100)" json:"gateway_payment_id,omitempty"`
	GatewaySignature *string           `gorm:"type:varchar(255)" json:"-"`
	InvoiceNumber    *string           `gorm:"type:varchar(50);uniqueIndex" json:"invoice_number,omitempty"`
	InvoiceDate      *time.Time        `json:"invoice_date,omitempty"`
	Status           TransactionStatus `gorm:"type:varchar(20);not null;default:'CREATED';index" json:"status"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Appointment *Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// PaymentReceipt holds what the gateway confirmed for a paid transaction
type PaymentReceipt struct {
	PaymentID string
	Signature string
	PaidAt    time.Time
}

// MarkPaid applies a receipt to the transaction
func (t *Transaction) MarkPaid(receipt PaymentReceipt) {
	paidAt := receipt.PaidAt
	t.Status = TransactionStatusPaid
	t.GatewayPaymentID = &receipt.PaymentID
	t.GatewaySignature = &receipt.Signature
	t.InvoiceDate = &paidAt
	t.PaidAt = &paidAt
}
