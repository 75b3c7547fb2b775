package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var body Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "created", map[string]string{"id": "1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	body := decode(t, rec)
	if !body.Success || body.Message != "created" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestErrorHelpers_DefaultMessages(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		code    int
		message string
	}{
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "") }, http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "") }, http.StatusForbidden, "Forbidden"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "") }, http.StatusNotFound, "Resource not found"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "") }, http.StatusConflict, "Conflict"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid slot") }, http.StatusBadRequest, "Invalid slot"},
		{"too many", func(w http.ResponseWriter) { TooManyRequests(w, "") }, http.StatusTooManyRequests, "Too many requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			body := decode(t, rec)
			if body.Success || body.Message != tt.message {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}
