package handler

import (
	"net/http"

	"healthsync-api/internal/delivery/http/middleware"
	"healthsync-api/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// currentUserID reads the authenticated user id, writing 401 when absent.
func currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "User not authenticated")
		return uuid.Nil, false
	}
	return userID, true
}

// pathUUID parses a uuid path variable, writing 400 when malformed.
func pathUUID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid "+label+" ID", nil)
		return uuid.Nil, false
	}
	return id, true
}
