package usecase

import (
	"context"
	"strings"

	"healthsync-api/internal/converter"
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/domain/repository"
	"healthsync-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UserUsecase interface {
	UpdateMyProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
}

type userUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	txManager    repository.TxManager
	userRepo     repository.UserRepository
	auditService service.AuditService
}

func NewUserUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	txManager repository.TxManager,
	userRepo repository.UserRepository,
	auditService service.AuditService,
) UserUsecase {
	return &userUsecase{
		db:           db,
		log:          log,
		txManager:    txManager,
		userRepo:     userRepo,
		auditService: auditService,
	}
}

// UpdateMyProfile changes name and phone when non-empty and age when present.
func (u *userUsecase) UpdateMyProfile(ctx context.Context, userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(ctx, u.db, userID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	before := profileSnapshot(user)
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.Phone = phone
	}
	if req.Age != nil {
		age := *req.Age
		user.Age = &age
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}
		return u.auditService.LogUpdate(ctx, tx, &userID, entity.AuditActionProfileUpdate, userEntity, userID.String(), before, profileSnapshot(user))
	})
	if err != nil {
		u.log.Warnf("Failed to update profile: %+v", err)
		return nil, err
	}

	return converter.UserToResponse(user), nil
}

func profileSnapshot(user *entity.User) map[string]interface{} {
	snapshot := map[string]interface{}{
		"name":  user.Name,
		"phone": user.Phone,
	}
	if user.Age != nil {
		snapshot["age"] = *user.Age
	}
	return snapshot
}
