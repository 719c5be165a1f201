// auth.go — вход, регистрация, выход и текущая сессия.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/tickly/internal/api/errors"
	"github.com/bigkaa/tickly/internal/api/middleware"
	"github.com/bigkaa/tickly/internal/domain/model"
	"github.com/bigkaa/tickly/internal/manta"
	"github.com/bigkaa/tickly/internal/service"
)

// AuthHandler — обработчик auth endpoints.
type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler создаёт обработчик auth endpoints.
// cookieSecure — флаг Secure у cookie сессии.
func NewAuthHandler(auth *service.AuthService, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		cookieSecure: cookieSecure,
		logger:       logger.With(slog.String("component", "auth_handler")),
	}
}

type sessionResponse struct {
	Success bool           `json:"success"`
	Session *model.Session `json:"session"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login — POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Invalid payload")
		return
	}

	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err, "Login failed")
		return
	}

	middleware.SetSessionCookie(w, session.Token, h.cookieSecure)
	session.Token = ""
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: session})
}

// Signup — POST /api/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Invalid payload")
		return
	}

	err := h.auth.Signup(r.Context(), service.SignupInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthError(w, err, "Signup failed")
		return
	}
	writeJSON(w, http.StatusOK, okResponse)
}

// Logout — POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	middleware.ClearSessionCookie(w, h.cookieSecure)
	writeJSON(w, http.StatusOK, okResponse)
}

// CheckAuth — GET /api/checkAuth. Сессию кладёт в контекст SessionAuth.Middleware.
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		apierrors.Unauthorized(w, "")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Success: true, Session: session})
}

// writeAuthError передаёт отказ auth workflow клиенту с его статусом.
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *manta.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		apierrors.WriteError(w, apiErr.StatusCode, msg)
		return
	}
	writeServiceError(w, h.logger, err, fallback)
}
