package repository

import (
	"context"

	"healthsync-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	Create(ctx context.Context, db *gorm.DB, transaction *entity.Transaction) error
	Update(ctx context.Context, db *gorm.DB, transaction *entity.Transaction) error
	FindCreatedByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*entity.Transaction, error)
	// MarkPaid moves a CREATED transaction to PAID. Returns affected rows so a
	// concurrent verification of the same order succeeds only once.
	MarkPaid(ctx context.Context, db *gorm.DB, id uuid.UUID, receipt entity.PaymentReceipt) (int64, error)
}

type CouponRepository interface {
	FindActiveByCode(ctx context.Context, db *gorm.DB, code string) (*entity.Coupon, error)
}
