package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/pkg/response"
	"go.uber.org/zap"
)

var avatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ProfileHandler serves the current user's profile and other users' public profiles
type ProfileHandler struct {
	profiles       *domain.ProfileService
	connections    *domain.ConnectionService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewProfileHandler(profiles *domain.ProfileService, connections *domain.ConnectionService, maxUploadBytes int64, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:       profiles,
		connections:    connections,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// MeResponse is the current profile with derived fields
type MeResponse struct {
	*domain.Profile
	NeedsOnboarding bool `json:"needsOnboarding"`
	ConnectionCount int  `json:"connectionCount"`
}

// Me handles GET /api/v1/me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.writeMe(w, r, userID, nil)
}

func (h *ProfileHandler) writeMe(w http.ResponseWriter, r *http.Request, userID string, p *domain.Profile) {
	if p == nil {
		var err error
		if p, err = h.profiles.GetProfile(r.Context(), userID); err != nil {
			serviceError(w, h.logger, err, "failed to load profile")
			return
		}
	}
	conns, err := h.connections.GetConnections(r.Context(), userID)
	if err != nil {
		serviceError(w, h.logger, err, "failed to load profile")
		return
	}
	response.OK(w, MeResponse{Profile: p, NeedsOnboarding: p.NeedsOnboarding(), ConnectionCount: len(conns)})
}

// UpdateProfileRequest carries the editable fields; omitted fields are unchanged
type UpdateProfileRequest struct {
	Name         *string   `json:"name"`
	Bio          *string   `json:"bio"`
	Skills       *[]string `json:"skills"`
	WantsToLearn *[]string `json:"wantsToLearn"`
}

// UpdateMe handles PUT /api/v1/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.profiles.UpdateProfile(r.Context(), userID, domain.UpdateProfileParams{
		Name:         req.Name,
		Bio:          req.Bio,
		Skills:       req.Skills,
		WantsToLearn: req.WantsToLearn,
	})
	if err != nil {
		serviceError(w, h.logger, err, "Failed to update profile")
		return
	}
	h.writeMe(w, r, userID, p)
}

type onboardingRequest struct {
	Skills       []string `json:"skills"`
	WantsToLearn []string `json:"wantsToLearn"`
}

// CompleteOnboarding handles POST /api/v1/me/onboarding
func (h *ProfileHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req onboardingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.profiles.CompleteOnboarding(r.Context(), userID, req.Skills, req.WantsToLearn)
	if err != nil {
		serviceError(w, h.logger, err, "Failed to save your skills")
		return
	}
	h.writeMe(w, r, userID, p)
}

// UpdateSettings handles PUT /api/v1/me/settings
func (h *ProfileHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req domain.Settings
	if !decodeJSON(w, r, &req) {
		return
	}

	settings, err := h.profiles.UpdateSettings(r.Context(), userID, req)
	if err != nil {
		serviceError(w, h.logger, err, "Failed to save settings")
		return
	}
	response.OK(w, settings)
}

// UploadAvatar handles POST /api/v1/me/avatar (multipart field "avatar")
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	// Parse multipart form, allowing room for the form headers
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+4096)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		response.BadRequest(w, "avatar is too large or malformed")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.BadRequest(w, "avatar file is required")
		return
	}
	defer file.Close()

	// Validate file type
	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if !avatarTypes[contentType] {
		response.BadRequest(w, "avatar must be a JPEG, PNG, WebP or GIF image")
		return
	}

	url, err := h.profiles.SetAvatar(r.Context(), userID, file, header.Filename, contentType)
	if err != nil {
		serviceError(w, h.logger, err, "Failed to upload avatar")
		return
	}
	response.OK(w, map[string]string{"avatarUrl": url})
}

// RegisterFCMToken handles POST /api/v1/me/fcm-token
func (h *ProfileHandler) RegisterFCMToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.profiles.RegisterFCMToken(r.Context(), userID, strings.TrimSpace(req.Token)); err != nil {
		serviceError(w, h.logger, err, "failed to register device")
		return
	}
	response.NoContent(w)
}

// GetUser handles GET /api/v1/users/{userId}
func (h *ProfileHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	p, err := h.profiles.GetPublicProfile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		serviceError(w, h.logger, err, "failed to load user")
		return
	}
	response.OK(w, p)
}
