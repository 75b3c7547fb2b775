package usecase

import (
	"context"
	"errors"

	"healthsync-api/internal/converter"
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAuditLogNotFound = errors.New("audit log not found")
)

type AuditLogUsecase interface {
	GetAllAuditLogs(ctx context.Context) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		db:           db,
		log:          log,
		auditLogRepo: auditLogRepo,
	}
}

func (u *auditLogUsecase) GetAllAuditLogs(ctx context.Context) (*dto.AuditLogListResponse, error) {
	logs, err := u.auditLogRepo.FindAll(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to find all audit logs: %+v", err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs),
		Total: len(logs),
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error) {
	auditLog, err := u.auditLogRepo.FindByID(ctx, u.db, id)
	if err != nil {
		u.log.Warnf("Failed to find audit log %d: %+v", id, err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog), nil
}
