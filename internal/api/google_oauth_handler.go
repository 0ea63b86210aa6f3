package api

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"time"

	"github.com/praxis/backend/internal/auth"
	"github.com/praxis/backend/internal/config"
	"github.com/praxis/backend/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const oauthStateCookie = "praxis_oauth_state"

// GoogleOAuthHandler handles browser-based Google OAuth flow
type GoogleOAuthHandler struct {
	config       *oauth2.Config
	authService  *domain.AuthService
	webAppURL    string
	secureCookie bool
	logger       *zap.Logger
}

// NewGoogleOAuthHandler creates a new Google OAuth handler
func NewGoogleOAuthHandler(cfg *config.Config, authService *domain.AuthService, logger *zap.Logger) *GoogleOAuthHandler {
	// The first configured client ID is the web client
	clientID := ""
	if len(cfg.Google.ClientIDs) > 0 {
		clientID = cfg.Google.ClientIDs[0]
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}

	return &GoogleOAuthHandler{
		config:       conf,
		authService:  authService,
		webAppURL:    cfg.Server.WebAppURL,
		secureCookie: cfg.IsProduction(),
		logger:       logger,
	}
}

// Login handles GET /auth/google/login by redirecting to Google
func (h *GoogleOAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.config.ClientID == "" {
		h.redirectWithError(w, r, "Google sign-in is not configured")
		return
	}

	state, err := auth.GenerateSecureToken(24)
	if err != nil {
		h.logger.Error("failed to generate oauth state", zap.Error(err))
		h.redirectWithError(w, r, "Failed to start Google sign-in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// Callback handles GET /auth/google/callback
func (h *GoogleOAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	// Verify state to prevent CSRF
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || q.Get("state") == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		h.redirectWithError(w, r, "Sign-in session expired, please try again")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth/google", MaxAge: -1})

	// Check for error from Google
	if e := q.Get("error"); e != "" {
		h.logger.Info("Google sign-in cancelled", zap.String("error", e))
		h.redirectWithError(w, r, "Google sign-in was cancelled")
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectWithError(w, r, "Authorization code missing")
		return
	}

	// Exchange code for token
	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("failed to exchange code for token", zap.Error(err))
		h.redirectWithError(w, r, "Failed to authenticate with Google")
		return
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		h.logger.Error("no id_token in Google token response")
		h.redirectWithError(w, r, "Failed to get user info from Google")
		return
	}

	// Sign in or create the account
	result, err := h.authService.GoogleLogin(ctx, idToken)
	if err != nil {
		h.logger.Error("Google sign-in failed", zap.Error(err))
		h.redirectWithError(w, r, "Failed to sign in with Google")
		return
	}

	// Hand the token back to the web app
	v := url.Values{}
	v.Set("token", result.CustomToken)
	if result.NeedsOnboarding {
		v.Set("onboarding", "1")
	}
	h.redirect(w, r, v)
}

func (h *GoogleOAuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	v := url.Values{}
	v.Set("error", msg)
	h.redirect(w, r, v)
}

// redirect hands the result to the web app in the URL fragment
func (h *GoogleOAuthHandler) redirect(w http.ResponseWriter, r *http.Request, v url.Values) {
	http.Redirect(w, r, h.webAppURL+"/auth/callback#"+v.Encode(), http.StatusTemporaryRedirect)
}
