package repository

import (
	"context"

	"healthsync-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, db *gorm.DB, user *entity.User) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.User, error)
	FindByVerificationToken(ctx context.Context, db *gorm.DB, token string) (*entity.User, error)
	FindByResetToken(ctx context.Context, db *gorm.DB, token string) (*entity.User, error)
	Update(ctx context.Context, db *gorm.DB, user *entity.User) error
}
