package repository

import (
	"context"
	"errors"

	"healthsync-api/internal/domain/entity"
	domainRepo "healthsync-api/internal/domain/repository"

	"gorm.io/gorm"
)

type auditLogRepository struct{}

func NewAuditLogRepository() domainRepo.AuditLogRepository {
	return &auditLogRepository{}
}

func (r *auditLogRepository) Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error {
	return db.WithContext(ctx).Omit("User").Create(log).Error
}

func (r *auditLogRepository) FindAll(ctx context.Context, db *gorm.DB) ([]entity.AuditLog, error) {
	var logs []entity.AuditLog
	err := db.WithContext(ctx).Preload("User").Order("created_at DESC").Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *auditLogRepository) FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error) {
	var log entity.AuditLog
	err := db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

type txManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) domainRepo.TxManager {
	return &txManager{db: db}
}

func (m *txManager) WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}
