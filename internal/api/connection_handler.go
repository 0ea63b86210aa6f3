package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/pkg/response"
	"go.uber.org/zap"
)

// ConnectionHandler exposes matches and the connection lifecycle over HTTP.
// The same verbs are available on the WebSocket session.
type ConnectionHandler struct {
	connService  *domain.ConnectionService
	matchService *domain.MatchService
	logger       *zap.Logger
}

func NewConnectionHandler(connService *domain.ConnectionService, matchService *domain.MatchService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connService:  connService,
		matchService: matchService,
		logger:       logger,
	}
}

// Matches handles GET /api/v1/matches
func (h *ConnectionHandler) Matches(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	matches, err := h.matchService.VisibleMatches(r.Context(), userID)
	if err != nil {
		serviceError(w, h.logger, err, "Failed to load matches")
		return
	}
	response.OK(w, matches)
}

// Like handles POST /api/v1/matches/{userId}/like
func (h *ConnectionHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	result, err := h.connService.Like(r.Context(), userID, chi.URLParam(r, "userId"))
	if err != nil {
		serviceError(w, h.logger, err, "Failed to send connection request")
		return
	}
	response.OK(w, result)
}

// Pass handles POST /api/v1/matches/{userId}/pass
func (h *ConnectionHandler) Pass(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	rec, err := h.connService.Pass(r.Context(), userID, chi.URLParam(r, "userId"))
	if err != nil {
		serviceError(w, h.logger, err, "Failed to pass on this match")
		return
	}
	response.Created(w, rec)
}

type acceptRequest struct {
	FromUserID string `json:"fromUserId"`
}

// Accept handles POST /api/v1/connections/requests/{requestId}/accept
func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req acceptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.FromUserID == "" {
		response.BadRequest(w, "fromUserId is required")
		return
	}

	conn, err := h.connService.AcceptRequest(r.Context(), userID, chi.URLParam(r, "requestId"), req.FromUserID)
	if err != nil {
		serviceError(w, h.logger, err, "Failed to accept request")
		return
	}
	response.Created(w, conn)
}

// Decline handles POST /api/v1/connections/requests/{requestId}/decline
func (h *ConnectionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.connService.DeclineRequest(r.Context(), userID, chi.URLParam(r, "requestId")); err != nil {
		serviceError(w, h.logger, err, "Failed to decline request")
		return
	}
	response.NoContent(w)
}

// GetConnections handles GET /api/v1/connections
func (h *ConnectionHandler) GetConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	conns, err := h.connService.GetConnections(r.Context(), userID)
	if err != nil {
		serviceError(w, h.logger, err, "failed to get connections")
		return
	}
	response.OK(w, conns)
}

// GetRequests handles GET /api/v1/connections/requests
func (h *ConnectionHandler) GetRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	reqs, err := h.connService.GetPendingRequests(r.Context(), userID)
	if err != nil {
		serviceError(w, h.logger, err, "failed to get requests")
		return
	}
	response.OK(w, reqs)
}
