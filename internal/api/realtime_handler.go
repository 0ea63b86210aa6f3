package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/praxis/backend/internal/auth"
	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/realtime"
	"github.com/praxis/backend/pkg/response"
	"go.uber.org/zap"
)

// RealtimeHandler issues WebSocket tickets and serves dashboard sessions
type RealtimeHandler struct {
	tickets  *auth.TicketManager
	hub      *realtime.Hub
	profiles domain.ProfileRepository
	feed     domain.ConnectionFeed
	actions  realtime.ConnectionActions
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewRealtimeHandler(
	tickets *auth.TicketManager,
	hub *realtime.Hub,
	profiles domain.ProfileRepository,
	feed domain.ConnectionFeed,
	actions realtime.ConnectionActions,
	allowedOrigins []string,
	logger *zap.Logger,
) *RealtimeHandler {
	return &RealtimeHandler{
		tickets:  tickets,
		hub:      hub,
		profiles: profiles,
		feed:     feed,
		actions:  actions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// originChecker accepts same-host requests and the listed origins. An empty
// list accepts every origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

type ticketResponse struct {
	Ticket    string    `json:"ticket"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Ticket handles GET /api/v1/ws/ticket
func (h *RealtimeHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ticket, expiresAt, err := h.tickets.Issue(userID)
	if err != nil {
		h.logger.Error("failed to issue ws ticket", zap.Error(err))
		response.InternalError(w, "failed to open realtime session")
		return
	}
	response.OK(w, ticketResponse{Ticket: ticket, ExpiresAt: expiresAt})
}

// Serve handles GET /ws?ticket= and blocks for the life of the socket
func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, err := h.tickets.Validate(r.URL.Query().Get("ticket"))
	if err != nil {
		response.Unauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewClient(userID, conn)
	realtime.NewSession(client, h.hub, h.profiles, h.feed, h.actions, h.logger).Serve(r.Context())
}
