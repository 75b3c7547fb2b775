package usecase

import (
	"context"
	"errors"

	"healthsync-api/internal/converter"
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/domain/repository"
	"healthsync-api/internal/service"
	"healthsync-api/pkg/timeslot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAvailabilityNotFound      = errors.New("availability not found")
	ErrInvalidAvailabilityWindow = errors.New("start time must be before end time and slot duration must fit in the window")
	ErrInvalidWeekday            = errors.New("invalid day of week")
	ErrInvalidTimeFormat         = errors.New("invalid time format, use HH:MM")
)

const availabilityEntity = "doctor_availability"

type AvailabilityUsecase interface {
	CreateAvailability(ctx context.Context, doctorID uuid.UUID, req *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error)
	GetMyAvailability(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error)
	GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error)
	UpdateAvailability(ctx context.Context, doctorID, availabilityID uuid.UUID, req *dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error)
	DisableAvailability(ctx context.Context, doctorID, availabilityID uuid.UUID) (*dto.AvailabilityResponse, error)
}

type availabilityUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	txManager        repository.TxManager
	availabilityRepo repository.AvailabilityRepository
	auditService     service.AuditService
}

func NewAvailabilityUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	txManager repository.TxManager,
	availabilityRepo repository.AvailabilityRepository,
	auditService service.AuditService,
) AvailabilityUsecase {
	return &availabilityUsecase{
		db:               db,
		log:              log,
		txManager:        txManager,
		availabilityRepo: availabilityRepo,
		auditService:     auditService,
	}
}

// validateWindow enforces start < end and 0 < slot duration <= end - start.
func validateWindow(a *entity.DoctorAvailability) error {
	if !a.DayOfWeek.Valid() {
		return ErrInvalidWeekday
	}
	start, err := timeslot.ParseClock(a.StartTime)
	if err != nil {
		return ErrInvalidTimeFormat
	}
	end, err := timeslot.ParseClock(a.EndTime)
	if err != nil {
		return ErrInvalidTimeFormat
	}
	if start >= end || a.SlotDuration <= 0 || a.SlotDuration > end-start {
		return ErrInvalidAvailabilityWindow
	}

	// Store the canonical zero-padded form
	a.StartTime = timeslot.FormatClock(start)
	a.EndTime = timeslot.FormatClock(end)
	return nil
}

func (u *availabilityUsecase) CreateAvailability(ctx context.Context, doctorID uuid.UUID, req *dto.CreateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	slotDuration := req.SlotDuration
	if slotDuration == 0 {
		slotDuration = entity.DefaultSlotDuration
	}

	availability := &entity.DoctorAvailability{
		DoctorID:     doctorID,
		DayOfWeek:    entity.Weekday(req.DayOfWeek),
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		SlotDuration: slotDuration,
		IsActive:     true,
	}
	if err := validateWindow(availability); err != nil {
		return nil, err
	}

	err := u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.availabilityRepo.Create(ctx, tx, availability); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, &doctorID, entity.AuditActionAvailabilityCreate, availabilityEntity, availability.ID.String(), availability)
	})
	if err != nil {
		u.log.Warnf("Failed to create availability: %+v", err)
		return nil, err
	}

	return converter.AvailabilityToResponse(availability), nil
}

func (u *availabilityUsecase) GetMyAvailability(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error) {
	return u.listActive(ctx, doctorID)
}

func (u *availabilityUsecase) GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error) {
	return u.listActive(ctx, doctorID)
}

func (u *availabilityUsecase) listActive(ctx context.Context, doctorID uuid.UUID) (*dto.AvailabilityListResponse, error) {
	availabilities, err := u.availabilityRepo.FindActiveByDoctor(ctx, u.db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.AvailabilityListResponse{
		Availabilities: converter.AvailabilitiesToResponses(availabilities),
		Total:          len(availabilities),
	}, nil
}

// findOwned returns the doctor's own window, or ErrAvailabilityNotFound.
func (u *availabilityUsecase) findOwned(ctx context.Context, doctorID, availabilityID uuid.UUID) (*entity.DoctorAvailability, error) {
	availability, err := u.availabilityRepo.FindByID(ctx, u.db, availabilityID)
	if err != nil {
		u.log.Warnf("Failed to find availability %s: %+v", availabilityID, err)
		return nil, err
	}
	if availability == nil || availability.DoctorID != doctorID {
		return nil, ErrAvailabilityNotFound
	}
	return availability, nil
}

func (u *availabilityUsecase) UpdateAvailability(ctx context.Context, doctorID, availabilityID uuid.UUID, req *dto.UpdateAvailabilityRequest) (*dto.AvailabilityResponse, error) {
	availability, err := u.findOwned(ctx, doctorID, availabilityID)
	if err != nil {
		return nil, err
	}
	before := *availability
	before.Doctor = nil

	if req.DayOfWeek != nil {
		availability.DayOfWeek = entity.Weekday(*req.DayOfWeek)
	}
	if req.StartTime != nil {
		availability.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		availability.EndTime = *req.EndTime
	}
	if req.SlotDuration != nil {
		availability.SlotDuration = *req.SlotDuration
	}
	if req.IsActive != nil {
		availability.IsActive = *req.IsActive
	}
	if err := validateWindow(availability); err != nil {
		return nil, err
	}

	if err := u.save(ctx, doctorID, entity.AuditActionAvailabilityUpdate, &before, availability); err != nil {
		return nil, err
	}
	return converter.AvailabilityToResponse(availability), nil
}

// DisableAvailability soft deletes a window; windows are never removed.
func (u *availabilityUsecase) DisableAvailability(ctx context.Context, doctorID, availabilityID uuid.UUID) (*dto.AvailabilityResponse, error) {
	availability, err := u.findOwned(ctx, doctorID, availabilityID)
	if err != nil {
		return nil, err
	}
	before := *availability
	before.Doctor = nil

	availability.IsActive = false
	if err := u.save(ctx, doctorID, entity.AuditActionAvailabilityDisable, &before, availability); err != nil {
		return nil, err
	}
	return converter.AvailabilityToResponse(availability), nil
}

func (u *availabilityUsecase) save(ctx context.Context, doctorID uuid.UUID, action string, before, after *entity.DoctorAvailability) error {
	err := u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.availabilityRepo.Update(ctx, tx, after); err != nil {
			return err
		}
		return u.auditService.LogUpdate(ctx, tx, &doctorID, action, availabilityEntity, after.ID.String(), before, after)
	})
	if err != nil {
		u.log.Warnf("Failed to update availability %s: %+v", after.ID, err)
	}
	return err
}
