package repository

import (
	"context"

	"healthsync-api/internal/domain/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(ctx context.Context, db *gorm.DB, log *entity.AuditLog) error
	FindAll(ctx context.Context, db *gorm.DB) ([]entity.AuditLog, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*entity.AuditLog, error)
}

// TxManager runs fn inside a database transaction. fn receives the
// transaction handle to pass on to repositories.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
