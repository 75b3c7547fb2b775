package converter

import (
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
)

func AvailabilityToResponse(a *entity.DoctorAvailability) *dto.AvailabilityResponse {
	if a == nil {
		return nil
	}

	return &dto.AvailabilityResponse{
		ID:           a.ID,
		DoctorID:     a.DoctorID,
		DayOfWeek:    string(a.DayOfWeek),
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		SlotDuration: a.SlotDuration,
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func AvailabilitiesToResponses(availabilities []entity.DoctorAvailability) []dto.AvailabilityResponse {
	responses := make([]dto.AvailabilityResponse, len(availabilities))
	for i := range availabilities {
		responses[i] = *AvailabilityToResponse(&availabilities[i])
	}
	return responses
}
