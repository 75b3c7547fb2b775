package repository

import (
	"context"

	"healthsync-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AvailabilityRepository interface {
	Create(ctx context.Context, db *gorm.DB, availability *entity.DoctorAvailability) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.DoctorAvailability, error)
	FindActiveByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorAvailability, error)
	// FindActiveByDoctorAndDay returns active windows ordered by start time.
	FindActiveByDoctorAndDay(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, day entity.Weekday) ([]entity.DoctorAvailability, error)
	Update(ctx context.Context, db *gorm.DB, availability *entity.DoctorAvailability) error
}
