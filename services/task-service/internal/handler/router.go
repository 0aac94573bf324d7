package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/config"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/usecase"
	"github.com/vasapolrittideah/task-manager-api/shared/response"
	"github.com/vasapolrittideah/task-manager-api/shared/validator"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	AuthUsecase usecase.AuthUsecase
	TaskUsecase usecase.TaskUsecase
	Validator   *validator.Validator
	Session     config.SessionConfig
	Logger      *zerolog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := newAuthHTTPHandler(cfg.AuthUsecase, cfg.Validator, cfg.Session, cfg.Logger)
	taskHandler := newTaskHTTPHandler(cfg.TaskUsecase, cfg.Validator, cfg.Logger)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		accessLog(cfg.Logger),
		middleware.Recoverer,
		securityHeaders,
	)

	// set before mounting so sub-routers inherit them
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, "ok")
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/verify", authHandler.Verify)
	})

	r.Route("/api/task", func(r chi.Router) {
		r.Use(requireSession(cfg.AuthUsecase, cfg.Session.CookieName, cfg.Logger))

		r.Post("/create", taskHandler.Create)
		r.Patch("/update/{id}", taskHandler.Update)
		r.Get("/list", taskHandler.List)
		r.Patch("/rearrange", taskHandler.Rearrange)
		r.Post("/rearrange", taskHandler.Rearrange)
		r.Delete("/delete/{id}", taskHandler.Delete)
	})

	return r
}
