package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/praxis/backend/internal/middleware"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth          *AuthHandler
	GoogleOAuth   *GoogleOAuthHandler
	Profile       *ProfileHandler
	Skills        *SkillsHandler
	Connection    *ConnectionHandler
	Chat          *ChatHandler
	Notification  *NotificationHandler
	Realtime      *RealtimeHandler
	Health        *HealthHandler
	Uploads       http.Handler // nil when avatars are not served locally
	UploadsPrefix string
}

// Router holds all handlers and creates the chi router
type Router struct {
	handlers       Handlers
	verifier       middleware.TokenVerifier
	authLimiter    *middleware.IPRateLimiter
	allowedOrigins []string
	trustProxy     bool
	logger         *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	handlers Handlers,
	verifier middleware.TokenVerifier,
	authLimiter *middleware.IPRateLimiter,
	allowedOrigins []string,
	trustProxy bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		handlers:       handlers,
		verifier:       verifier,
		authLimiter:    authLimiter,
		allowedOrigins: allowedOrigins,
		trustProxy:     trustProxy,
		logger:         logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	h := rt.handlers
	r := chi.NewRouter()

	// Global middleware
	// Client IPs key the /auth rate limit, so proxy headers are only believed when configured
	if rt.trustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.allowedOrigins))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Health.Health)
		r.Get("/ready", h.Health.Ready)
		r.Get("/live", h.Health.Live)
	})

	// The socket authenticates with a ticket from /api/v1/ws/ticket
	r.Get("/ws", h.Realtime.Serve)

	if h.Uploads != nil {
		r.Handle(h.UploadsPrefix+"/*", http.StripPrefix(h.UploadsPrefix+"/", h.Uploads))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(rt.authLimiter.Middleware)
		r.Post("/register", h.Auth.Register)
		r.Post("/google", h.Auth.GoogleLogin)
		r.Post("/password-reset", h.Auth.PasswordReset)
		r.Get("/google/login", h.GoogleOAuth.Login)
		r.Get("/google/callback", h.GoogleOAuth.Callback)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Compress(5))

		r.Get("/skills", h.Skills.Search)
		r.Get("/skills/categories", h.Skills.Categories)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.verifier))

			r.Post("/auth/logout-all", h.Auth.LogoutAll)
			r.Get("/ws/ticket", h.Realtime.Ticket)

			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.Profile.Me)
				r.Put("/", h.Profile.UpdateMe)
				r.Post("/onboarding", h.Profile.CompleteOnboarding)
				r.Put("/settings", h.Profile.UpdateSettings)
				r.Post("/avatar", h.Profile.UploadAvatar)
				r.Post("/fcm-token", h.Profile.RegisterFCMToken)
			})
			r.Get("/users/{userId}", h.Profile.GetUser)
			r.Get("/skills/suggestions", h.Skills.Suggestions)

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", h.Connection.Matches)
				r.Post("/{userId}/like", h.Connection.Like)
				r.Post("/{userId}/pass", h.Connection.Pass)
			})

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", h.Connection.GetConnections)
				r.Get("/requests", h.Connection.GetRequests)
				r.Post("/requests/{requestId}/accept", h.Connection.Accept)
				r.Post("/requests/{requestId}/decline", h.Connection.Decline)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", h.Chat.GetChats)
				r.Get("/{userId}/messages", h.Chat.GetMessages)
				r.Post("/{userId}/messages", h.Chat.SendMessage)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.GetNotifications)
				r.Post("/{id}/read", h.Notification.MarkRead)
			})
		})
	})

	return r
}
