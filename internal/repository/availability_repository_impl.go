package repository

import (
	"context"
	"errors"

	"healthsync-api/internal/domain/entity"
	domainRepo "healthsync-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type availabilityRepository struct{}

func NewAvailabilityRepository() domainRepo.AvailabilityRepository {
	return &availabilityRepository{}
}

func (r *availabilityRepository) Create(ctx context.Context, db *gorm.DB, availability *entity.DoctorAvailability) error {
	return db.WithContext(ctx).Create(availability).Error
}

func (r *availabilityRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.DoctorAvailability, error) {
	var availability entity.DoctorAvailability
	err := db.WithContext(ctx).Where("id = ?", id).First(&availability).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &availability, nil
}

func (r *availabilityRepository) FindActiveByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorAvailability, error) {
	var availabilities []entity.DoctorAvailability
	err := db.WithContext(ctx).
		Where("doctor_id = ? AND is_active = ?", doctorID, true).
		Order("start_time ASC").
		Find(&availabilities).Error
	if err != nil {
		return nil, err
	}
	return availabilities, nil
}

func (r *availabilityRepository) FindActiveByDoctorAndDay(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, day entity.Weekday) ([]entity.DoctorAvailability, error) {
	var availabilities []entity.DoctorAvailability
	err := db.WithContext(ctx).
		Where("doctor_id = ? AND day_of_week = ? AND is_active = ?", doctorID, day, true).
		Order("start_time ASC, created_at ASC").
		Find(&availabilities).Error
	if err != nil {
		return nil, err
	}
	return availabilities, nil
}

func (r *availabilityRepository) Update(ctx context.Context, db *gorm.DB, availability *entity.DoctorAvailability) error {
	return db.WithContext(ctx).Omit("Doctor").Save(availability).Error
}
