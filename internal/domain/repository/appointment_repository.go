package repository

import (
	"context"

	"healthsync-api/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentRepository queries appointments. Dates are YYYY-MM-DD strings.
// Unless stated otherwise, "active" means status is not CANCELLED.
type AppointmentRepository interface {
	Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	Update(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error

	FindActiveByDoctorSlot(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date, slotTime string) (*entity.Appointment, error)
	FindActiveByPatientAndDate(ctx context.Context, db *gorm.DB, patientID uuid.UUID, date string) ([]entity.Appointment, error)

	// MaxQueueNumber includes cancelled appointments so numbers are never reused.
	MaxQueueNumber(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (int, error)

	// FindEarliestActiveByPatient returns the patient's first non-cancelled
	// appointment, by queue date then queue number.
	FindEarliestActiveByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (*entity.Appointment, error)
	CountAhead(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (int64, error)
	CountInQueue(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (int64, error)

	FindInProgress(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (*entity.Appointment, error)
	FindActiveByQueueNumber(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (*entity.Appointment, error)
	// FindNextActiveAfter returns the active appointment with the smallest
	// queue number strictly greater than queueNumber.
	FindNextActiveAfter(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (*entity.Appointment, error)

	FindByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, filter *entity.AppointmentFilter) ([]entity.Appointment, error)

	// Cancel atomically cancels an appointment that is neither cancelled nor
	// completed. Returns affected rows: 1 = success, 0 = lost the race.
	Cancel(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error)
	// Confirm marks a non-cancelled appointment PAID. Only a PENDING status
	// moves to CONFIRMED; a completed appointment stays COMPLETED.
	Confirm(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error)
}
