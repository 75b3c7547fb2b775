package repository

import (
	"context"
	"errors"
	"strings"

	"healthsync-api/internal/domain/entity"
	domainRepo "healthsync-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepository struct{}

func NewTransactionRepository() domainRepo.TransactionRepository {
	return &transactionRepository{}
}

func (r *transactionRepository) Create(ctx context.Context, db *gorm.DB, transaction *entity.Transaction) error {
	return db.WithContext(ctx).Omit("Appointment").Create(transaction).Error
}

func (r *transactionRepository) Update(ctx context.Context, db *gorm.DB, transaction *entity.Transaction) error {
	return db.WithContext(ctx).Omit("Appointment").Save(transaction).Error
}

func (r *transactionRepository) FindCreatedByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*entity.Transaction, error) {
	var transaction entity.Transaction
	err := db.WithContext(ctx).
		Where("gateway_order_id = ? AND status = ?", orderID, entity.TransactionStatusCreated).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transaction, nil
}

func (r *transactionRepository) MarkPaid(ctx context.Context, db *gorm.DB, id uuid.UUID, receipt entity.PaymentReceipt) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Transaction{}).
		Where("id = ? AND status = ?", id, entity.TransactionStatusCreated).
		Updates(map[string]interface{}{
			"status":             entity.TransactionStatusPaid,
			"gateway_payment_id": receipt.PaymentID,
			"gateway_signature":  receipt.Signature,
			"invoice_date":       receipt.PaidAt,
			"paid_at":            receipt.PaidAt,
		})
	return result.RowsAffected, result.Error
}

type couponRepository struct{}

func NewCouponRepository() domainRepo.CouponRepository {
	return &couponRepository{}
}

func (r *couponRepository) FindActiveByCode(ctx context.Context, db *gorm.DB, code string) (*entity.Coupon, error) {
	var coupon entity.Coupon
	err := db.WithContext(ctx).
		Where("code = ? AND is_active = ?", strings.ToUpper(strings.TrimSpace(code)), true).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}
