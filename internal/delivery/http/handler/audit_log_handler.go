package handler

import (
	"net/http"
	"strconv"

	"healthsync-api/internal/usecase"
	"healthsync-api/pkg/response"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

// GetAuditLog returns a single audit entry
// @Summary Get audit log
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "Audit log ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/audit-logs/{id} [get]
func (h *AuditLogHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	auditLogID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid audit log ID", nil)
		return
	}

	auditLog, err := h.auditLogUsecase.GetAuditLog(r.Context(), auditLogID)
	if err != nil {
		if err == usecase.ErrAuditLogNotFound {
			response.NotFound(w, "Audit log not found")
			return
		}
		response.InternalServerError(w, "Failed to get audit log")
		return
	}

	response.Success(w, http.StatusOK, "Audit log retrieved successfully", auditLog)
}

// GetAllAuditLogs lists audit entries, newest first
// @Summary List audit logs
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /admin/audit-logs [get]
func (h *AuditLogHandler) GetAllAuditLogs(w http.ResponseWriter, r *http.Request) {
	auditLogs, err := h.auditLogUsecase.GetAllAuditLogs(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to get audit logs")
		return
	}

	response.Success(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs)
}
