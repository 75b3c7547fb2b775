package handler

import (
	"encoding/json"
	"net/http"

	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/usecase"
	"healthsync-api/pkg/response"
	"healthsync-api/pkg/validator"
)

type UserHandler struct {
	userUsecase usecase.UserUsecase
	validator   *validator.CustomValidator
}

func NewUserHandler(userUsecase usecase.UserUsecase, validator *validator.CustomValidator) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		validator:   validator,
	}
}

// UpdateMyProfile updates the caller's profile
// @Summary Update my profile
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Update Profile Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/me [put]
func (h *UserHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	user, err := h.userUsecase.UpdateMyProfile(r.Context(), userID, &req)
	if err != nil {
		switch err {
		case usecase.ErrUserNotFound:
			response.NotFound(w, "User not found")
		default:
			response.InternalServerError(w, "Failed to update profile")
		}
		return
	}

	response.Success(w, http.StatusOK, "Profile updated successfully", user)
}
