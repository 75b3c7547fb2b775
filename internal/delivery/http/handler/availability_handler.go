package handler

import (
	"encoding/json"
	"net/http"

	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/usecase"
	"healthsync-api/pkg/response"
	"healthsync-api/pkg/validator"
)

type AvailabilityHandler struct {
	availabilityUsecase usecase.AvailabilityUsecase
	validator           *validator.CustomValidator
}

func NewAvailabilityHandler(availabilityUsecase usecase.AvailabilityUsecase, validator *validator.CustomValidator) *AvailabilityHandler {
	return &AvailabilityHandler{
		availabilityUsecase: availabilityUsecase,
		validator:           validator,
	}
}

func writeAvailabilityError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case usecase.ErrAvailabilityNotFound:
		response.NotFound(w, "Availability not found")
	case usecase.ErrInvalidAvailabilityWindow, usecase.ErrInvalidWeekday, usecase.ErrInvalidTimeFormat:
		response.BadRequest(w, err.Error())
	default:
		response.InternalServerError(w, fallback)
	}
}

// CreateAvailability adds a weekly window for the doctor
// @Summary Create availability window
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateAvailabilityRequest true "Create Availability Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /doctor/availability [post]
func (h *AvailabilityHandler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.CreateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	availability, err := h.availabilityUsecase.CreateAvailability(r.Context(), doctorID, &req)
	if err != nil {
		writeAvailabilityError(w, err, "Failed to create availability")
		return
	}

	response.Success(w, http.StatusCreated, "Availability created successfully", availability)
}

// GetMyAvailability lists the doctor's active windows
// @Summary List my availability
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /doctor/availability [get]
func (h *AvailabilityHandler) GetMyAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	availabilities, err := h.availabilityUsecase.GetMyAvailability(r.Context(), doctorID)
	if err != nil {
		response.InternalServerError(w, "Failed to get availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", availabilities)
}

// UpdateAvailability partially updates one of the doctor's windows
// @Summary Update availability window
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Availability ID"
// @Param request body dto.UpdateAvailabilityRequest true "Update Availability Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctor/availability/{id} [put]
func (h *AvailabilityHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	availabilityID, ok := pathUUID(w, r, "id", "availability")
	if !ok {
		return
	}

	var req dto.UpdateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	availability, err := h.availabilityUsecase.UpdateAvailability(r.Context(), doctorID, availabilityID, &req)
	if err != nil {
		writeAvailabilityError(w, err, "Failed to update availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability updated successfully", availability)
}

// DisableAvailability deactivates one of the doctor's windows
// @Summary Disable availability window
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Param id path string true "Availability ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctor/availability/{id}/disable [patch]
func (h *AvailabilityHandler) DisableAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	availabilityID, ok := pathUUID(w, r, "id", "availability")
	if !ok {
		return
	}

	availability, err := h.availabilityUsecase.DisableAvailability(r.Context(), doctorID, availabilityID)
	if err != nil {
		writeAvailabilityError(w, err, "Failed to disable availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability disabled successfully", availability)
}

// GetDoctorAvailability lists a doctor's active windows for patients
// @Summary List a doctor's availability
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Param doctorId path string true "Doctor ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /doctor/doctors/{doctorId}/availability [get]
func (h *AvailabilityHandler) GetDoctorAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorId", "doctor")
	if !ok {
		return
	}

	availabilities, err := h.availabilityUsecase.GetDoctorAvailability(r.Context(), doctorID)
	if err != nil {
		response.InternalServerError(w, "Failed to get availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability retrieved successfully", availabilities)
}
