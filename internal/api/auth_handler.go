package api

import (
	"errors"
	"net/http"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/pkg/response"
	"github.com/praxis/backend/pkg/validator"
	"go.uber.org/zap"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *domain.AuthService
	isProduction bool
	logger       *zap.Logger
}

func NewAuthHandler(authService *domain.AuthService, isProduction bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		isProduction: isProduction,
		logger:       logger,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// GoogleLoginRequest represents the Google sign-in request body
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// PasswordResetRequest represents the password reset request body
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Validate all fields so the form can show every problem at once
	var errs validator.ValidationErrors
	req.Email = validator.SanitizeEmail(req.Email)
	if !validator.ValidateEmail(req.Email) {
		errs.Add("email", "invalid email address")
	}
	errs = append(errs, validator.ValidatePassword(req.Password)...)
	req.Name = validator.SanitizeString(req.Name, 100)
	if !validator.ValidateName(req.Name) {
		errs.Add("name", "must be between 2 and 100 characters")
	}
	if errs.HasErrors() {
		response.ValidationFailed(w, errs)
		return
	}

	// Create identity and profile
	result, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		serviceError(w, h.logger, err, "registration failed")
		return
	}

	h.logger.Info("user registered", zap.String("user_id", result.Profile.ID))
	response.Created(w, result)
}

// GoogleLogin handles POST /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IDToken == "" {
		response.BadRequest(w, "idToken is required")
		return
	}

	result, err := h.authService.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.Unauthorized(w, "invalid Google token")
			return
		}
		serviceError(w, h.logger, err, "Google sign-in failed")
		return
	}

	response.OK(w, result)
}

// PasswordReset handles POST /auth/password-reset. Outside production the
// link is returned so it can be followed without a mail server.
func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = validator.SanitizeEmail(req.Email)
	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "invalid email address")
		return
	}

	link, err := h.authService.PasswordResetLink(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) && h.isProduction {
			response.OK(w, map[string]bool{"sent": true})
			return
		}
		serviceError(w, h.logger, err, "failed to create password reset link")
		return
	}

	if h.isProduction {
		response.OK(w, map[string]bool{"sent": true})
		return
	}
	response.OK(w, map[string]interface{}{"sent": true, "link": link})
}

// LogoutAll handles POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.authService.LogoutAll(r.Context(), userID); err != nil {
		serviceError(w, h.logger, err, "failed to sign out")
		return
	}
	response.NoContent(w)
}
