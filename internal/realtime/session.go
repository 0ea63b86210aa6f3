package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/praxis/backend/internal/domain"
	"go.uber.org/zap"
)

const actionTimeout = 10 * time.Second

// ConnectionActions are the relationship verbs a session may dispatch
type ConnectionActions interface {
	Like(ctx context.Context, userID, otherID string) (*domain.LikeResult, error)
	Pass(ctx context.Context, userID, otherID string) (*domain.PassRecord, error)
	AcceptRequest(ctx context.Context, userID, requestID, fromUserID string) (*domain.Connection, error)
	DeclineRequest(ctx context.Context, userID, requestID string) error
}

// Frame is a client action sent over the socket
type Frame struct {
	Type      string `json:"type"`
	Ref       string `json:"ref,omitempty"`
	UserID    string `json:"userId,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ActionResult answers a Frame
type ActionResult struct {
	Action  string `json:"action"`
	OK      bool   `json:"ok"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Session serves one user's socket: it streams dashboard state and executes
// the actions the client sends
type Session struct {
	client   *Client
	hub      *Hub
	profiles domain.ProfileRepository
	feed     domain.ConnectionFeed
	actions  ConnectionActions
	logger   *zap.Logger
}

func NewSession(client *Client, hub *Hub, profiles domain.ProfileRepository, feed domain.ConnectionFeed, actions ConnectionActions, logger *zap.Logger) *Session {
	return &Session{
		client:   client,
		hub:      hub,
		profiles: profiles,
		feed:     feed,
		actions:  actions,
		logger:   logger.With(zap.String("user_id", client.UserID), zap.String("client_id", client.ID.String())),
	}
}

// Serve blocks until the socket closes or ctx is done
func (s *Session) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.hub.Register(s.client)
	defer s.hub.Unregister(s.client)
	go s.client.writePump()

	dashboard := domain.NewDashboard(s.client.UserID, s.profiles, s.feed, s.pushState, s.logger)
	go func() {
		if err := dashboard.Run(ctx); err != nil {
			s.logger.Error("dashboard stopped", zap.Error(err))
			s.send(EventError, "", map[string]string{"message": "Failed to load your dashboard"})
		}
	}()

	err := s.client.readPump(ctx, s.handleFrame)
	if err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		s.logger.Debug("websocket closed unexpectedly", zap.Error(err))
	}
}

// pushState coalesces dashboard snapshots so the newest one always reaches the client
func (s *Session) pushState(state domain.DashboardState) {
	msg, ok := s.encode(EventDashboard, "", state)
	if !ok {
		return
	}
	if !s.client.Replace(msg) {
		s.logger.Debug("dashboard state for closed client")
	}
}

func (s *Session) send(typ, ref string, payload interface{}) {
	msg, ok := s.encode(typ, ref, payload)
	if !ok {
		return
	}
	if !s.client.Enqueue(msg) {
		s.logger.Warn("dropped event for closed or slow client", zap.String("type", typ))
	}
}

func (s *Session) encode(typ, ref string, payload interface{}) ([]byte, bool) {
	ev, err := NewEvent(typ, payload)
	if err != nil {
		s.logger.Error("failed to encode event", zap.String("type", typ), zap.Error(err))
		return nil, false
	}
	ev.Ref = ref
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to encode frame", zap.String("type", typ), zap.Error(err))
		return nil, false
	}
	return msg, true
}

func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		s.send(EventError, "", map[string]string{"message": "Malformed frame"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	result := ActionResult{Action: f.Type}
	err := s.dispatch(ctx, f, &result)
	if err != nil {
		s.logger.Warn("action failed", zap.String("action", f.Type), zap.Error(err))
		result.Error = actionError(f.Type, err)
	} else {
		result.OK = true
	}
	s.send(EventActionResult, f.Ref, result)
}

var errUnknownAction = errors.New("unknown action")

func (s *Session) dispatch(ctx context.Context, f Frame, result *ActionResult) error {
	me := s.client.UserID
	switch f.Type {
	case "like":
		if f.UserID == "" {
			return errMissingField
		}
		res, err := s.actions.Like(ctx, me, f.UserID)
		if err != nil {
			return err
		}
		result.Outcome = string(res.Outcome)
	case "pass":
		if f.UserID == "" {
			return errMissingField
		}
		if _, err := s.actions.Pass(ctx, me, f.UserID); err != nil {
			return err
		}
		result.Outcome = "passed"
	case "accept":
		if f.RequestID == "" || f.UserID == "" {
			return errMissingField
		}
		if _, err := s.actions.AcceptRequest(ctx, me, f.RequestID, f.UserID); err != nil {
			return err
		}
		result.Outcome = string(domain.RequestStatusAccepted)
	case "decline":
		if f.RequestID == "" {
			return errMissingField
		}
		if err := s.actions.DeclineRequest(ctx, me, f.RequestID); err != nil {
			return err
		}
		result.Outcome = string(domain.RequestStatusDeclined)
	default:
		return errUnknownAction
	}
	return nil
}

var errMissingField = errors.New("missing field")

// actionError maps a failure to the message shown to the user
func actionError(action string, err error) string {
	switch {
	case errors.Is(err, errUnknownAction):
		return "Unknown action"
	case errors.Is(err, errMissingField):
		return "Missing user or request id"
	case errors.Is(err, domain.ErrSelfAction):
		return "You cannot do that to yourself"
	case errors.Is(err, domain.ErrRequestNotFound):
		return "That request is no longer pending"
	}
	switch action {
	case "like":
		return "Failed to send connection request"
	case "pass":
		return "Failed to pass on this match"
	case "accept":
		return "Failed to accept request"
	case "decline":
		return "Failed to decline request"
	}
	return "Something went wrong"
}
