package rest

import (
	"net/http"
	"os"

	"intaker/internal/service"
	"intaker/internal/transport/rest/handler"
	"intaker/internal/transport/rest/middleware"
	"intaker/internal/transport/ws"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService       *service.AuthService
	ScriptService     *service.ScriptService
	IntakeService     *service.IntakeService
	AssessmentService *service.AssessmentService
	WSHub             *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	sessionHandler := handler.NewSessionHandler(c.IntakeService)
	chatHandler := handler.NewChatHandler(c.IntakeService)
	assessmentHandler := handler.NewAssessmentHandler(c.AssessmentService)
	scriptHandler := handler.NewScriptHandler(c.ScriptService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.IntakeService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{sessionId}/clinician", wsHandler.ClinicianWS).Methods("GET")
	v1.HandleFunc("/ws/sessions/{sessionId}/patient", wsHandler.PatientWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Clinician routes (require clinician auth)
	clinicianRoutes := v1.NewRoute().Subrouter()
	clinicianRoutes.Use(authMW.RequireClinician)

	clinicianRoutes.HandleFunc("/sessions", sessionHandler.Start).Methods("POST", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}/end", sessionHandler.End).Methods("POST", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}/audit", sessionHandler.Audit).Methods("GET", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}/assessment", assessmentHandler.Get).Methods("GET", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}/plan", assessmentHandler.GeneratePlan).Methods("POST", "OPTIONS")
	clinicianRoutes.HandleFunc("/sessions/{sessionId}/plan", assessmentHandler.GetPlan).Methods("GET", "OPTIONS")
	clinicianRoutes.HandleFunc("/scripts/active", scriptHandler.GetActive).Methods("GET", "OPTIONS")
	clinicianRoutes.HandleFunc("/scripts", scriptHandler.Publish).Methods("POST", "OPTIONS")

	// Patient routes (require patient auth)
	patientRoutes := v1.NewRoute().Subrouter()
	patientRoutes.Use(authMW.RequirePatient)

	patientRoutes.HandleFunc("/chat/message", chatHandler.Message).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
