package repository

import (
	"context"
	"errors"

	"healthsync-api/internal/domain/entity"
	domainRepo "healthsync-api/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	return db.WithContext(ctx).Omit("Patient", "Doctor").Create(appointment).Error
}

func (r *appointmentRepository) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *appointmentRepository) Update(ctx context.Context, db *gorm.DB, appointment *entity.Appointment) error {
	return db.WithContext(ctx).Omit("Patient", "Doctor").Save(appointment).Error
}

func (r *appointmentRepository) FindActiveByDoctorSlot(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, date, slotTime string) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx).
		Where("doctor_id = ? AND appointment_date = ? AND slot_time = ? AND status != ?",
			doctorID, date, slotTime, entity.AppointmentStatusCancelled))
}

func (r *appointmentRepository) FindActiveByPatientAndDate(ctx context.Context, db *gorm.DB, patientID uuid.UUID, date string) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).
		Where("patient_id = ? AND appointment_date = ? AND status != ?", patientID, date, entity.AppointmentStatusCancelled).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) MaxQueueNumber(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (int, error) {
	var maxQueue int
	err := db.WithContext(ctx).Model(&entity.Appointment{}).
		Select("COALESCE(MAX(queue_number), 0)").
		Where("doctor_id = ? AND queue_date = ?", doctorID, queueDate).
		Scan(&maxQueue).Error
	return maxQueue, err
}

func (r *appointmentRepository) FindEarliestActiveByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx).
		Where("patient_id = ? AND status != ? AND queue_number > 0", patientID, entity.AppointmentStatusCancelled).
		Order("queue_date ASC, queue_number ASC"))
}

func (r *appointmentRepository) CountAhead(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("doctor_id = ? AND queue_date = ? AND queue_number < ? AND status != ?",
			doctorID, queueDate, queueNumber, entity.AppointmentStatusCancelled).
		Count(&count).Error
	return count, err
}

func (r *appointmentRepository) CountInQueue(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("doctor_id = ? AND queue_date = ? AND status != ?", doctorID, queueDate, entity.AppointmentStatusCancelled).
		Count(&count).Error
	return count, err
}

func (r *appointmentRepository) FindInProgress(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx).
		Where("doctor_id = ? AND queue_date = ? AND queue_status = ? AND status != ?",
			doctorID, queueDate, entity.QueueStatusInProgress, entity.AppointmentStatusCancelled))
}

func (r *appointmentRepository) FindActiveByQueueNumber(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx).
		Where("doctor_id = ? AND queue_date = ? AND queue_number = ? AND status != ?",
			doctorID, queueDate, queueNumber, entity.AppointmentStatusCancelled))
}

func (r *appointmentRepository) FindNextActiveAfter(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, queueDate string, queueNumber int) (*entity.Appointment, error) {
	return r.first(db.WithContext(ctx).
		Where("doctor_id = ? AND queue_date = ? AND queue_number > ? AND status != ?",
			doctorID, queueDate, queueNumber, entity.AppointmentStatusCancelled).
		Order("queue_number ASC"))
}

func (r *appointmentRepository) FindByPatient(ctx context.Context, db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.WithContext(ctx).Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("appointment_date ASC, queue_number ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByDoctor(ctx context.Context, db *gorm.DB, doctorID uuid.UUID, filter *entity.AppointmentFilter) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	query := db.WithContext(ctx).Preload("Patient").Where("doctor_id = ?", doctorID)

	if filter != nil {
		if filter.Date != "" {
			query = query.Where("appointment_date = ?", filter.Date)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
	}

	err := query.Order("appointment_date ASC, queue_number ASC").Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) Cancel(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status NOT IN ?", id,
			[]entity.AppointmentStatus{entity.AppointmentStatusCancelled, entity.AppointmentStatusCompleted}).
		Update("status", entity.AppointmentStatusCancelled)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) Confirm(ctx context.Context, db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.WithContext(ctx).Model(&entity.Appointment{}).
		Where("id = ? AND status != ?", id, entity.AppointmentStatusCancelled).
		Updates(map[string]interface{}{
			"status": gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
				entity.AppointmentStatusPending, entity.AppointmentStatusConfirmed),
			"payment_status": entity.PaymentStatusPaid,
		})
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) first(query *gorm.DB) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := query.First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}
