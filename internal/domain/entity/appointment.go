package entity

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day format used for appointment and queue dates.
const DateLayout = "2006-01-02"

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// QueueStatus tracks progress through the doctor's daily queue
type QueueStatus string

const (
	QueueStatusWaiting    QueueStatus = "WAITING"
	QueueStatusInProgress QueueStatus = "IN_PROGRESS"
	QueueStatusCompleted  QueueStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// Appointment is a patient booking of one doctor slot, positioned in the
// doctor's queue for QueueDate.
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID        uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_doctor_queue" json:"doctor_id"`
	AppointmentDate time.Time         `gorm:"type:date;not null" json:"appointment_date"`
	SlotTime        string            `gorm:"type:varchar(13);not null" json:"slot_time"`
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentStatus   PaymentStatus     `gorm:"type:varchar(20);not null;default:'UNPAID'" json:"payment_status"`
	QueueDate       time.Time         `gorm:"type:date;not null;index:idx_appointments_doctor_queue" json:"queue_date"`
	QueueNumber     int               `gorm:"not null" json:"queue_number"`
	QueueStatus     QueueStatus       `gorm:"type:varchar(20);not null;default:'WAITING'" json:"queue_status"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsCancelled checks if appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// IsCompleted checks if appointment is completed
func (a *Appointment) IsCompleted() bool {
	return a.Status == AppointmentStatusCompleted
}

// QueueDay returns the queue partition key as YYYY-MM-DD
func (a *Appointment) QueueDay() string {
	return a.QueueDate.Format(DateLayout)
}

// StartInProgress moves a waiting appointment to the head of the queue.
// Queue status never regresses, so anything past WAITING is left alone.
func (a *Appointment) StartInProgress() bool {
	if a.QueueStatus != QueueStatusWaiting {
		return false
	}
	a.QueueStatus = QueueStatusInProgress
	return true
}

// Complete marks both the appointment and its queue entry as completed
func (a *Appointment) Complete() {
	a.Status = AppointmentStatusCompleted
	a.QueueStatus = QueueStatusCompleted
}

// Confirm marks the appointment paid. Status only moves forward from PENDING.
func (a *Appointment) Confirm() {
	if a.Status == AppointmentStatusPending {
		a.Status = AppointmentStatusConfirmed
	}
	a.PaymentStatus = PaymentStatusPaid
}

// CalendarDay truncates t to midnight UTC of its calendar date.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
