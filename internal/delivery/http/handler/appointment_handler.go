package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/usecase"
	"healthsync-api/pkg/response"
	"healthsync-api/pkg/validator"

	"github.com/google/uuid"
)

type AppointmentHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	validator          *validator.CustomValidator
}

func NewAppointmentHandler(appointmentUsecase usecase.AppointmentUsecase, validator *validator.CustomValidator) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentUsecase: appointmentUsecase,
		validator:          validator,
	}
}

// writeAppointmentError maps appointment and queue errors to responses.
func writeAppointmentError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrAppointmentNotFound:
		response.NotFound(w, "Appointment not found")
	case usecase.ErrInvalidSlot, usecase.ErrInvalidDate, usecase.ErrInvalidDoctorID, usecase.ErrInvalidAppointmentStatus:
		response.BadRequest(w, err.Error())
	case usecase.ErrDoctorSlotTaken, usecase.ErrAppointmentOverlap,
		usecase.ErrAppointmentCompleted, usecase.ErrAppointmentAlreadyCancelled, usecase.ErrAppointmentChanged:
		response.Conflict(w, err.Error())
	default:
		response.InternalServerError(w, fallback)
	}
}

// GetAvailableSlots lists free slots for a doctor on a date
// @Summary Get available slots
// @Tags Appointments
// @Security BearerAuth
// @Produce json
// @Param doctorId query string true "Doctor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /appointments/slots [get]
func (h *AppointmentHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	doctorID, err := uuid.Parse(query.Get("doctorId"))
	if err != nil {
		response.BadRequest(w, "doctorId must be a valid uuid")
		return
	}
	date := query.Get("date")
	if date == "" {
		response.BadRequest(w, "date is required")
		return
	}

	slots, err := h.appointmentUsecase.GetAvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}

// BookAppointment books a slot and assigns a queue number
// @Summary Book an appointment
// @Tags Appointments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.BookAppointmentRequest true "Book Appointment Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments [post]
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	patientID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.BookAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.BookAppointment(r.Context(), patientID, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to book appointment")
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", appointment)
}

// GetMyAppointments lists the patient's appointments
// @Summary List my appointments
// @Tags Appointments
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /appointments/my [get]
func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
	patientID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	appointments, err := h.appointmentUsecase.GetMyAppointments(r.Context(), patientID)
	if err != nil {
		response.InternalServerError(w, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

// RescheduleAppointment moves an appointment to another slot
// @Summary Reschedule an appointment
// @Tags Appointments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param request body dto.RescheduleAppointmentRequest true "Reschedule Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/reschedule [put]
func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	patientID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "id", "appointment")
	if !ok {
		return
	}

	var req dto.RescheduleAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := h.appointmentUsecase.RescheduleAppointment(r.Context(), patientID, appointmentID, &req)
	if err != nil {
		writeAppointmentError(w, err, "Failed to reschedule appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment rescheduled successfully", appointment)
}

// CancelAppointment cancels one of the patient's appointments
// @Summary Cancel an appointment
// @Tags Appointments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/cancel [put]
func (h *AppointmentHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	patientID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.CancelAppointment(r.Context(), patientID, appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to cancel appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment cancelled successfully", appointment)
}

// GetMyQueuePosition reports where the patient stands in the queue
// @Summary Get my queue position
// @Description Uses the given appointment, or the earliest active one
// @Tags Appointments
// @Security BearerAuth
// @Produce json
// @Param appointmentId query string false "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /appointments/my/queue-position [get]
func (h *AppointmentHandler) GetMyQueuePosition(w http.ResponseWriter, r *http.Request) {
	patientID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var appointmentID *uuid.UUID
	if raw := r.URL.Query().Get("appointmentId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "appointmentId must be a valid uuid")
			return
		}
		appointmentID = &id
	}

	position, err := h.appointmentUsecase.GetMyQueuePosition(r.Context(), patientID, appointmentID)
	if err != nil {
		switch err {
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "No active appointment found")
		default:
			response.InternalServerError(w, "Failed to get queue position")
		}
		return
	}

	response.Success(w, http.StatusOK, "Queue position retrieved successfully", position)
}

// GetDoctorAppointments lists the doctor's appointments
// @Summary List doctor appointments
// @Tags Appointments
// @Security BearerAuth
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD)"
// @Param status query string false "Appointment status"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /appointments/doctor [get]
func (h *AppointmentHandler) GetDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := &entity.AppointmentFilter{
		Date:   query.Get("date"),
		Status: entity.AppointmentStatus(strings.ToUpper(query.Get("status"))),
	}

	appointments, err := h.appointmentUsecase.GetDoctorAppointments(r.Context(), doctorID, filter)
	if err != nil {
		writeAppointmentError(w, err, "Failed to get appointments")
		return
	}

	response.Success(w, http.StatusOK, "Appointments retrieved successfully", appointments)
}

// CompleteAppointment completes a visit and advances the queue
// @Summary Complete an appointment
// @Tags Appointments
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /appointments/{id}/complete [put]
func (h *AppointmentHandler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	appointmentID, ok := pathUUID(w, r, "id", "appointment")
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.CompleteAppointment(r.Context(), doctorID, appointmentID)
	if err != nil {
		writeAppointmentError(w, err, "Failed to complete appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment completed successfully", appointment)
}
