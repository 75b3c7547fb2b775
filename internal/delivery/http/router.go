package http

import (
	"net/http"

	"healthsync-api/internal/delivery/http/handler"
	"healthsync-api/internal/delivery/http/middleware"
	"healthsync-api/internal/delivery/ws"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Router struct {
	router              *mux.Router
	log                 *logrus.Logger
	healthHandler       *handler.HealthHandler
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	availabilityHandler *handler.AvailabilityHandler
	appointmentHandler  *handler.AppointmentHandler
	paymentHandler      *handler.PaymentHandler
	auditLogHandler     *handler.AuditLogHandler
	queueHandler        *ws.QueueHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	rateLimiter         *middleware.RateLimiter
}

func NewRouter(
	log *logrus.Logger,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	availabilityHandler *handler.AvailabilityHandler,
	appointmentHandler *handler.AppointmentHandler,
	paymentHandler *handler.PaymentHandler,
	auditLogHandler *handler.AuditLogHandler,
	queueHandler *ws.QueueHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	rateLimiter *middleware.RateLimiter,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		log:                 log,
		healthHandler:       healthHandler,
		authHandler:         authHandler,
		userHandler:         userHandler,
		availabilityHandler: availabilityHandler,
		appointmentHandler:  appointmentHandler,
		paymentHandler:      paymentHandler,
		auditLogHandler:     auditLogHandler,
		queueHandler:        queueHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
		rateLimiter:         rateLimiter,
	}
}

func (r *Router) limited(h http.HandlerFunc) http.Handler {
	return r.rateLimiter.Limit(h)
}

// Setup registers every route. CORS wraps the whole router so preflight
// requests are answered before method matching.
func (r *Router) Setup() http.Handler {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthHandler.Health).Methods(http.MethodGet)

	// Queue updates over websocket (public)
	api.Handle("/ws/queue", r.queueHandler).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.Handle("/register", r.limited(r.authHandler.Register)).Methods(http.MethodPost)
	auth.Handle("/login", r.limited(r.authHandler.Login)).Methods(http.MethodPost)
	auth.Handle("/forgot-password", r.limited(r.authHandler.ForgotPassword)).Methods(http.MethodPost)
	auth.HandleFunc("/verify-email", r.authHandler.VerifyEmail).Methods(http.MethodGet)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", r.authHandler.ResetPassword).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.Me).Methods(http.MethodGet)

	// User routes (patient)
	users := api.PathPrefix("/users").Subrouter()
	users.Use(r.authMiddleware.Authenticate)
	users.Use(middleware.RequirePatient)
	users.HandleFunc("/me", r.userHandler.UpdateMyProfile).Methods(http.MethodPut)

	// Doctor availability (doctor)
	doctor := api.PathPrefix("/doctor/availability").Subrouter()
	doctor.Use(r.authMiddleware.Authenticate)
	doctor.Use(middleware.RequireDoctor)
	doctor.HandleFunc("", r.availabilityHandler.CreateAvailability).Methods(http.MethodPost)
	doctor.HandleFunc("", r.availabilityHandler.GetMyAvailability).Methods(http.MethodGet)
	doctor.HandleFunc("/{id}", r.availabilityHandler.UpdateAvailability).Methods(http.MethodPut)
	doctor.HandleFunc("/{id}/disable", r.availabilityHandler.DisableAvailability).Methods(http.MethodPatch)

	// Doctor directory (patient)
	directory := api.PathPrefix("/doctor/doctors").Subrouter()
	directory.Use(r.authMiddleware.Authenticate)
	directory.Use(middleware.RequirePatient)
	directory.HandleFunc("/{doctorId}/availability", r.availabilityHandler.GetDoctorAvailability).Methods(http.MethodGet)

	// Appointment routes (patient)
	patientAppointments := api.PathPrefix("/appointments").Subrouter()
	patientAppointments.Use(r.authMiddleware.Authenticate)
	patientAppointments.Use(middleware.RequirePatient)
	patientAppointments.HandleFunc("/slots", r.appointmentHandler.GetAvailableSlots).Methods(http.MethodGet)
	patientAppointments.HandleFunc("", r.appointmentHandler.BookAppointment).Methods(http.MethodPost)
	patientAppointments.HandleFunc("/my", r.appointmentHandler.GetMyAppointments).Methods(http.MethodGet)
	patientAppointments.HandleFunc("/my/queue-position", r.appointmentHandler.GetMyQueuePosition).Methods(http.MethodGet)
	patientAppointments.HandleFunc("/{id}/reschedule", r.appointmentHandler.RescheduleAppointment).Methods(http.MethodPut)
	patientAppointments.HandleFunc("/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPut)

	// Appointment routes (doctor)
	doctorAppointments := api.PathPrefix("/appointments").Subrouter()
	doctorAppointments.Use(r.authMiddleware.Authenticate)
	doctorAppointments.Use(middleware.RequireDoctor)
	doctorAppointments.HandleFunc("/doctor", r.appointmentHandler.GetDoctorAppointments).Methods(http.MethodGet)
	doctorAppointments.HandleFunc("/{id}/complete", r.appointmentHandler.CompleteAppointment).Methods(http.MethodPut)

	// Payment routes (patient)
	payments := api.PathPrefix("/payments").Subrouter()
	payments.Use(r.authMiddleware.Authenticate)
	payments.Use(middleware.RequirePatient)
	payments.HandleFunc("/create-order", r.paymentHandler.CreateOrder).Methods(http.MethodPost)
	payments.HandleFunc("/verify", r.paymentHandler.VerifyPayment).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	r.router.Use(middleware.Logging(r.log))

	return r.corsMiddleware.Handle(r.router)
}
