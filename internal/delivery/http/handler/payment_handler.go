package handler

import (
	"encoding/json"
	"net/http"

	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/usecase"
	"healthsync-api/pkg/response"
	"healthsync-api/pkg/validator"
)

type PaymentHandler struct {
	paymentUsecase usecase.PaymentUsecase
	validator      *validator.CustomValidator
}

func NewPaymentHandler(paymentUsecase usecase.PaymentUsecase, validator *validator.CustomValidator) *PaymentHandler {
	return &PaymentHandler{
		paymentUsecase: paymentUsecase,
		validator:      validator,
	}
}

// CreateOrder prices an appointment and opens a gateway order
// @Summary Create payment order
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreatePaymentOrderRequest true "Create Order Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /payments/create-order [post]
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	patientID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.CreatePaymentOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	order, err := h.paymentUsecase.CreatePaymentOrder(r.Context(), patientID, &req)
	if err != nil {
		switch err {
		case usecase.ErrCardTypeRequired, usecase.ErrInvalidPaymentMode,
			usecase.ErrInvalidCoupon, usecase.ErrCouponPaymentMode, usecase.ErrCouponCardType:
			response.BadRequest(w, err.Error())
		case usecase.ErrAppointmentNotFound:
			response.NotFound(w, "Appointment not found")
		case usecase.ErrAppointmentAlreadyPaid:
			response.Conflict(w, "Appointment is already paid")
		case usecase.ErrPaymentGateway:
			response.Error(w, http.StatusBadGateway, "Payment gateway is unavailable, please try again", nil)
		default:
			response.InternalServerError(w, "Failed to create payment order")
		}
		return
	}

	response.Success(w, http.StatusCreated, "Payment order created successfully", order)
}

// VerifyPayment checks the gateway signature and confirms the appointment
// @Summary Verify payment
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.VerifyPaymentRequest true "Verify Payment Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /payments/verify [post]
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	patientID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req dto.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	transaction, err := h.paymentUsecase.VerifyPayment(r.Context(), patientID, &req)
	if err != nil {
		switch err {
		case usecase.ErrPaymentVerification:
			response.BadRequest(w, "Payment verification failed")
		case usecase.ErrTransactionNotFound:
			response.NotFound(w, "Transaction not found or already processed")
		default:
			response.InternalServerError(w, "Failed to verify payment")
		}
		return
	}

	response.Success(w, http.StatusOK, "Payment verified successfully", transaction)
}
