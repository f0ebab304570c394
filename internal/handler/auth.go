package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dshare/dshare/internal/ctxkeys"
	"github.com/dshare/dshare/internal/service"
	"github.com/dshare/dshare/internal/validation"
)

type authHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *authHandler {
	return &authHandler{authService: authService}
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		PIN      string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.Register(req.Email, req.Password, req.PIN)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists):
			respondFail(w, http.StatusConflict, "email already registered")
		case errors.Is(err, service.ErrInvalidEmail):
			respondFail(w, http.StatusBadRequest, "invalid email address")
		case isValidationError(err):
			respondFail(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, err)
		}
		return
	}

	respondOK(w, map[string]any{
		"message": "verification email sent",
	})
}

func (h *authHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	user, err := h.authService.VerifyEmail(token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			respondFail(w, http.StatusNotFound, "invalid or expired verification link")
			return
		}
		respondError(w, err)
		return
	}

	// Verification logs the user straight in.
	jwtToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		respondError(w, err)
		return
	}
	h.authService.SetJWTCookie(w, jwtToken, time.Now().Add(h.authService.JWTExpiry()))

	respondOK(w, map[string]any{
		"email": user.Email,
	})
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Secret string `json:"secret"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Login(req.Email, req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondFail(w, http.StatusUnauthorized, "invalid email or credentials")
		case errors.Is(err, service.ErrEmailNotVerified):
			respondFail(w, http.StatusForbidden, "email not verified")
		default:
			respondError(w, err)
		}
		return
	}

	jwtToken, err := h.authService.GenerateJWT(user)
	if err != nil {
		respondError(w, err)
		return
	}
	h.authService.SetJWTCookie(w, jwtToken, time.Now().Add(h.authService.JWTExpiry()))

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)

	respondOK(w, map[string]any{
		"email": user.Email,
	})
}

func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	respondOK(w, nil)
}

func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	respondOK(w, map[string]any{
		"email": user.Email,
	})
}

func (h *authHandler) SetCredentials(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
		PIN      string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	user := ctxkeys.User(r.Context())
	err := h.authService.SetCredentials(user.ID, req.Password, req.PIN)
	if err != nil {
		if isValidationError(err) {
			respondFail(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, err)
		return
	}

	respondOK(w, nil)
}

// EmailStatus reports whether an address is registered and verified, so
// the client can poll it after registration.
func (h *authHandler) EmailStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		respondFail(w, http.StatusBadRequest, "email is required")
		return
	}

	status := h.authService.StatusForEmail(req.Email)
	respondOK(w, map[string]any{
		"registered": status.Registered,
		"verified":   status.Verified,
	})
}

// isValidationError reports whether err is a user-input failure (weak
// password, bad pin) rather than an infrastructure one.
func isValidationError(err error) bool {
	var ve validation.Error
	return errors.As(err, &ve)
}
