package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type BookAppointmentRequest struct {
	DoctorID        string `json:"doctor_id" validate:"required,uuid"`
	AppointmentDate string `json:"appointment_date" validate:"required,date"`
	SlotTime        string `json:"slot_time" validate:"required"`
}

type RescheduleAppointmentRequest struct {
	AppointmentDate string `json:"appointment_date" validate:"required,date"`
	SlotTime        string `json:"slot_time" validate:"required"`
}

// Response DTOs

type AvailableSlotsResponse struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Day      string    `json:"day"`
	Slots    []string  `json:"slots"`
}

type AppointmentResponse struct {
	ID              uuid.UUID     `json:"id"`
	PatientID       uuid.UUID     `json:"patient_id"`
	DoctorID        uuid.UUID     `json:"doctor_id"`
	AppointmentDate string        `json:"appointment_date"`
	SlotTime        string        `json:"slot_time"`
	Status          string        `json:"status"`
	PaymentStatus   string        `json:"payment_status"`
	QueueDate       string        `json:"queue_date"`
	QueueNumber     int           `json:"queue_number"`
	QueueStatus     string        `json:"queue_status"`
	Patient         *UserResponse `json:"patient,omitempty"`
	Doctor          *UserResponse `json:"doctor,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type QueuePositionResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	QueueDate     string    `json:"queue_date"`
	QueueNumber   int       `json:"queue_number"`
	Position      int64     `json:"position"`
	AheadOfYou    int64     `json:"ahead_of_you"`
	TotalInQueue  int64     `json:"total_in_queue"`
	QueueStatus   string    `json:"queue_status"`
}
