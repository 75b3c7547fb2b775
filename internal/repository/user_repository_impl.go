package repository

import (
	"context"
	"errors"
	"time"

	"healthsync-api/internal/domain/entity"
	domainRepo "healthsync-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct{}

func NewUserRepository() domainRepo.UserRepository {
	return &userRepository{}
}

func (r *userRepository) Create(ctx context.Context, db *gorm.DB, user *entity.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.User, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *userRepository) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*entity.User, error) {
	return r.first(db.WithContext(ctx).Where("email = ?", email))
}

func (r *userRepository) FindByVerificationToken(ctx context.Context, db *gorm.DB, token string) (*entity.User, error) {
	return r.first(db.WithContext(ctx).
		Where("email_verification_token = ? AND email_verification_expires_at > ?", token, time.Now()))
}

func (r *userRepository) FindByResetToken(ctx context.Context, db *gorm.DB, token string) (*entity.User, error) {
	return r.first(db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expires_at > ?", token, time.Now()))
}

func (r *userRepository) Update(ctx context.Context, db *gorm.DB, user *entity.User) error {
	return db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) first(query *gorm.DB) (*entity.User, error) {
	var user entity.User
	err := query.First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
