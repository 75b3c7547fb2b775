package handler

import (
	"encoding/json"
	"net/http"

	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/delivery/http/middleware"
	"healthsync-api/internal/usecase"
	"healthsync-api/pkg/response"
	"healthsync-api/pkg/validator"
)

type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	validator   *validator.CustomValidator
}

func NewAuthHandler(authUsecase usecase.AuthUsecase, validator *validator.CustomValidator) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		validator:   validator,
	}
}

// Register handles user registration
// @Summary Register a new patient or doctor
// @Description Creates an unverified account and emails a verification link
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Register Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	user, err := h.authUsecase.Register(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrEmailAlreadyExists:
			response.Conflict(w, "Email already exists")
		case usecase.ErrInvalidRole:
			response.BadRequest(w, "Role must be patient or doctor")
		default:
			response.InternalServerError(w, "Failed to register user")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Registration successful, please check your email to verify your account", user)
}

// VerifyEmail handles email verification
// @Summary Verify email address
// @Tags Auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, "Verification token is required")
		return
	}

	if err := h.authUsecase.VerifyEmail(r.Context(), token); err != nil {
		switch err {
		case usecase.ErrInvalidVerificationToken:
			response.BadRequest(w, "Invalid or expired verification token")
		default:
			response.InternalServerError(w, "Failed to verify email")
		}
		return
	}

	response.Success(w, http.StatusOK, "Email verified successfully", nil)
}

// Login handles user login
// @Summary Login user
// @Description Login with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	tokens, err := h.authUsecase.Login(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidCredentials:
			response.Unauthorized(w, "Invalid email or password")
		case usecase.ErrEmailNotVerified:
			response.Forbidden(w, "Please verify your email before logging in")
		case usecase.ErrAccountBlocked:
			response.Forbidden(w, "Account has been blocked")
		default:
			response.InternalServerError(w, "Failed to login")
		}
		return
	}

	response.Success(w, http.StatusOK, "Login successful", tokens)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revokes the access token and, when provided, the refresh token
// @Tags Auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.LogoutRequest false "Logout Request"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	tokenID, ok := middleware.GetTokenIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return
	}

	// The body is optional
	var req dto.LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.authUsecase.Logout(r.Context(), userID, tokenID, &req); err != nil {
		response.InternalServerError(w, "Failed to logout")
		return
	}

	response.Success(w, http.StatusOK, "Logout successful", nil)
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Rotates the refresh token and issues a new token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh Token Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	tokens, err := h.authUsecase.RefreshToken(r.Context(), &req)
	if err != nil {
		switch err {
		case usecase.ErrInvalidToken, usecase.ErrTokenRevoked, usecase.ErrUserNotFound:
			response.Unauthorized(w, "Invalid or expired refresh token")
		case usecase.ErrAccountBlocked:
			response.Forbidden(w, "Account has been blocked")
		default:
			response.InternalServerError(w, "Failed to refresh token")
		}
		return
	}

	response.Success(w, http.StatusOK, "Token refreshed successfully", tokens)
}

// ForgotPassword handles password reset requests
// @Summary Request a password reset link
// @Description Always succeeds so account existence is not disclosed
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Forgot Password Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	if err := h.authUsecase.ForgotPassword(r.Context(), &req); err != nil {
		response.InternalServerError(w, "Failed to process password reset")
		return
	}

	response.Success(w, http.StatusOK, "If the email is registered, a reset link has been sent", nil)
}

// ResetPassword handles password reset
// @Summary Reset password
// @Tags Auth
// @Accept json
// @Produce json
// @Param token query string true "Reset token"
// @Param request body dto.ResetPasswordRequest true "Reset Password Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, "Reset token is required")
		return
	}

	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	if err := h.authUsecase.ResetPassword(r.Context(), token, &req); err != nil {
		switch err {
		case usecase.ErrInvalidResetToken:
			response.BadRequest(w, "Invalid or expired reset token")
		default:
			response.InternalServerError(w, "Failed to reset password")
		}
		return
	}

	response.Success(w, http.StatusOK, "Password reset successfully", nil)
}

// Me returns the current user
// @Summary Get current user
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.authUsecase.GetCurrentUser(r.Context(), userID)
	if err != nil {
		switch err {
		case usecase.ErrUserNotFound:
			response.NotFound(w, "User not found")
		default:
			response.InternalServerError(w, "Failed to get user")
		}
		return
	}

	response.Success(w, http.StatusOK, "User retrieved successfully", user)
}
