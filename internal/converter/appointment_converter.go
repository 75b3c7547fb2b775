package converter

import (
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO.
// Patient and Doctor are included when preloaded.
func AppointmentToResponse(a *entity.Appointment) *dto.AppointmentResponse {
	if a == nil {
		return nil
	}

	return &dto.AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		AppointmentDate: a.AppointmentDate.Format(entity.DateLayout),
		SlotTime:        a.SlotTime,
		Status:          string(a.Status),
		PaymentStatus:   string(a.PaymentStatus),
		QueueDate:       a.QueueDay(),
		QueueNumber:     a.QueueNumber,
		QueueStatus:     string(a.QueueStatus),
		Patient:         UserToResponse(a.Patient),
		Doctor:          UserToResponse(a.Doctor),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
