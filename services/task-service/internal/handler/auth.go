package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/config"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/payload"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/usecase"
	"github.com/vasapolrittideah/task-manager-api/shared/response"
	"github.com/vasapolrittideah/task-manager-api/shared/validator"
)

type authHTTPHandler struct {
	authUsecase usecase.AuthUsecase
	validator   *validator.Validator
	sessionCfg  config.SessionConfig
	logger      *zerolog.Logger
}

func newAuthHTTPHandler(
	authUsecase usecase.AuthUsecase,
	validator *validator.Validator,
	sessionCfg config.SessionConfig,
	logger *zerolog.Logger,
) *authHTTPHandler {
	return &authHTTPHandler{
		authUsecase: authUsecase,
		validator:   validator,
		sessionCfg:  sessionCfg,
		logger:      logger,
	}
}

func (h *authHTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req payload.RegisterRequest
	if verr := decodeJSON(w, r, &req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}
	req.Email = usecase.NormalizeEmail(req.Email)
	if verr := h.validator.Validate(&req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	_, err := h.authUsecase.Register(r.Context(), usecase.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserAlreadyExists):
			response.Error(w, http.StatusConflict, "User already exists!")
		default:
			h.logger.Error().Err(err).Msg("failed to register user")
			response.Error(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	response.OK(w, payload.RegisterSuccessMessage)
}

func (h *authHTTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req payload.VerifyRequest
	if verr := decodeJSON(w, r, &req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}
	req.Email = usecase.NormalizeEmail(req.Email)
	if verr := h.validator.Validate(&req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	err := h.authUsecase.Verify(r.Context(), usecase.VerifyParams{
		Email: req.Email,
		Code:  req.OTP,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserNotFound):
			response.Error(w, http.StatusNotFound, "User not found!")
		case errors.Is(err, usecase.ErrInvalidOTP):
			response.Error(w, http.StatusUnauthorized, "Invalid OTP!")
		default:
			h.logger.Error().Err(err).Msg("failed to verify user")
			response.Error(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	response.OK(w, payload.VerifySuccessMessage)
}

func (h *authHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if verr := decodeJSON(w, r, &req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}
	req.Email = usecase.NormalizeEmail(req.Email)
	if verr := h.validator.Validate(&req); verr != nil {
		response.Error(w, http.StatusBadRequest, verr.Fields)
		return
	}

	session, err := h.authUsecase.Login(r.Context(), usecase.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserNotFound):
			response.Error(w, http.StatusNotFound, "User not found!")
		case errors.Is(err, usecase.ErrInvalidCredentials):
			response.Error(w, http.StatusUnauthorized, "Invalid credentials!")
		case errors.Is(err, usecase.ErrEmailNotVerified):
			response.Error(w, http.StatusForbidden, "Please verify your email address before logging in.")
		default:
			h.logger.Error().Err(err).Msg("failed to login user")
			response.Error(w, http.StatusInternalServerError, "Something went wrong")
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionCfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(h.sessionCfg.ExpiresIn.Seconds()),
		HttpOnly: true,
		Secure:   h.sessionCfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	response.OK(w, payload.LoginSuccessMessage)
}
