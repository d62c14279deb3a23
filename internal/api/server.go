package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kestrelsec/mailgate/internal/core"
	"go.uber.org/zap"
)

// Store is the persistence surface the admin API needs: tenant
// configuration plus the alert log.
type Store interface {
	core.ConfigStore
	core.AlertRepository
}

// Server exposes the admin API: rule and policy management, the alert
// log, and a direct message evaluation endpoint for testing rules.
type Server struct {
	router        *chi.Mux
	http          *http.Server
	store         Store
	service       *core.TriageService
	logger        *zap.Logger
	defaultTenant string
}

// NewServer creates the admin API server
func NewServer(addr string, store Store, service *core.TriageService, defaultTenant string, logger *zap.Logger) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		store:         store,
		service:       service,
		logger:        logger,
		defaultTenant: defaultTenant,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(jsonContentType)
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.listRules)
			r.Post("/", s.createRule)
			r.Get("/{ruleID}", s.getRule)
			r.Put("/{ruleID}", s.updateRule)
			r.Delete("/{ruleID}", s.deleteRule)
			r.Post("/{ruleID}/enable", s.enableRule)
			r.Post("/{ruleID}/disable", s.disableRule)
		})

		r.Route("/policy", func(r chi.Router) {
			r.Get("/", s.getPolicy)
			r.Put("/", s.updatePolicy)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.listAlerts)
			r.Post("/{alertID}/acknowledge", s.acknowledgeAlert)
		})

		r.Post("/evaluate", s.evaluateMessage)
	})
}

// Start starts the admin API server
func (s *Server) Start() error {
	s.logger.Info("Admin API starting", zap.String("address", s.http.Addr))

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Admin API server error", zap.Error(err))
		}
	}()

	return nil
}

// ServeHTTP dispatches to the router, letting the server be mounted or
// driven directly in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Stop gracefully shuts down the admin API server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

// tenantFrom resolves the tenant a request operates on. Single-tenant
// deployments never pass the parameter and get the default.
func (s *Server) tenantFrom(r *http.Request) string {
	if tenant := r.URL.Query().Get("tenant"); tenant != "" {
		return tenant
	}
	return s.defaultTenant
}

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
