package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateAvailabilityRequest struct {
	DayOfWeek    string `json:"day_of_week" validate:"required,weekday"`
	StartTime    string `json:"start_time" validate:"required,hhmm"`
	EndTime      string `json:"end_time" validate:"required,hhmm"`
	SlotDuration int    `json:"slot_duration" validate:"omitempty,gte=5,lte=240"`
}

// UpdateAvailabilityRequest is a partial update; nil fields are left as is.
type UpdateAvailabilityRequest struct {
	DayOfWeek    *string `json:"day_of_week" validate:"omitempty,weekday"`
	StartTime    *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime      *string `json:"end_time" validate:"omitempty,hhmm"`
	SlotDuration *int    `json:"slot_duration" validate:"omitempty,gte=5,lte=240"`
	IsActive     *bool   `json:"is_active"`
}

// Response DTOs

type AvailabilityResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	DayOfWeek    string    `json:"day_of_week"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	SlotDuration int       `json:"slot_duration"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AvailabilityListResponse struct {
	Availabilities []AvailabilityResponse `json:"availabilities"`
	Total          int                    `json:"total"`
}
