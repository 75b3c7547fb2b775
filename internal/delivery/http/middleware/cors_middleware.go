package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

type CORSMiddleware struct {
	cors *cors.Cors
}

// NewCORSMiddleware allows the configured origins; "*" allows any origin.
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	return &CORSMiddleware{
		cors: cors.New(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}),
	}
}

func (m *CORSMiddleware) Handle(next http.Handler) http.Handler {
	return m.cors.Handler(next)
}
