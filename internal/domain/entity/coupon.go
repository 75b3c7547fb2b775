package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypeFlat    DiscountType = "FLAT"
	DiscountTypePercent DiscountType = "PERCENT"
)

// Coupon is a discount code applied when creating a payment order
type Coupon struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code                string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	DiscountType        DiscountType     `gorm:"type:varchar(10);not null" json:"discount_type"`
	DiscountValue       decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"discount_value"`
	MaxDiscount         *decimal.Decimal `gorm:"type:numeric(10,2)" json:"max_discount,omitempty"`
	IntendedPaymentMode *PaymentMode     `gorm:"type:varchar(10)" json:"intended_payment_mode,omitempty"`
	AllowedCardTypes    string           `gorm:"type:varchar(100)" json:"allowed_card_types,omitempty"` // comma separated
	ExpiresAt           *time.Time       `json:"expires_at,omitempty"`
	IsActive            bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// IsExpired reports whether the coupon expired before now
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// AllowsCard reports whether the coupon can be used with the given card type.
// An empty allow-list accepts every card.
func (c *Coupon) AllowsCard(cardType CardType) bool {
	if strings.TrimSpace(c.AllowedCardTypes) == "" {
		return true
	}
	for _, allowed := range strings.Split(c.AllowedCardTypes, ",") {
		if strings.EqualFold(strings.TrimSpace(allowed), string(cardType)) {
			return true
		}
	}
	return false
}

// Discount computes the discount on base. PERCENT discounts are floored to
// whole rupees and capped by MaxDiscount; the result never exceeds base.
func (c *Coupon) Discount(base decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountTypeFlat:
		discount = c.DiscountValue
	case DiscountTypePercent:
		discount = base.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Floor()
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(base) {
		return base
	}
	return discount
}
