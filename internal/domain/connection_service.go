package domain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// LikeOutcome tells the caller which branch a like took
type LikeOutcome string

const (
	LikeMatched          LikeOutcome = "matched"
	LikeAlreadyRequested LikeOutcome = "already_requested"
	LikeRequestSent      LikeOutcome = "request_sent"
)

// LikeResult is returned by ConnectionService.Like
type LikeResult struct {
	Outcome    LikeOutcome        `json:"outcome"`
	Request    *ConnectionRequest `json:"request,omitempty"`
	Connection *Connection        `json:"connection,omitempty"`
}

// ConnectionNotifier is told about relationship changes worth a push notification
type ConnectionNotifier interface {
	ConnectionRequested(ctx context.Context, fromUserID, toUserID string) error
	ConnectionAccepted(ctx context.Context, byUserID, toUserID string) error
}

// ConnectionService mutates the pairwise relationship state between users.
// Multi-step operations are not transactional: when a later step fails the
// earlier writes stay in place.
type ConnectionService struct {
	repo     ConnectionRepository
	notifier ConnectionNotifier
	logger   *zap.Logger
}

func NewConnectionService(repo ConnectionRepository, notifier ConnectionNotifier, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Pass records that userID does not want to see otherID again.
// Repeated passes add redundant records.
func (s *ConnectionService) Pass(ctx context.Context, userID, otherID string) (*PassRecord, error) {
	if userID == otherID {
		return nil, ErrSelfAction
	}
	record, err := s.repo.CreatePass(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("record pass: %w", err)
	}
	return record, nil
}

// Like expresses interest in otherID. An inbound pending request turns into a
// connection; an existing outbound one is left alone; otherwise a new request is sent.
func (s *ConnectionService) Like(ctx context.Context, userID, otherID string) (*LikeResult, error) {
	if userID == otherID {
		return nil, ErrSelfAction
	}

	inbound, err := s.repo.FindPendingRequest(ctx, otherID, userID)
	if err != nil {
		return nil, fmt.Errorf("check inbound request: %w", err)
	}
	if inbound != nil {
		conn, err := s.repo.CreateConnection(ctx, otherID, userID)
		if err != nil {
			return nil, fmt.Errorf("create connection: %w", err)
		}
		if err := s.repo.DeleteRequest(ctx, inbound.ID); err != nil {
			return nil, fmt.Errorf("delete matched request %s: %w", inbound.ID, err)
		}
		s.notifyAccepted(ctx, userID, otherID)
		return &LikeResult{Outcome: LikeMatched, Connection: conn}, nil
	}

	outbound, err := s.repo.FindPendingRequest(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("check outbound request: %w", err)
	}
	if outbound != nil {
		return &LikeResult{Outcome: LikeAlreadyRequested, Request: outbound}, nil
	}

	req, err := s.repo.CreateRequest(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.notifier != nil {
		if err := s.notifier.ConnectionRequested(ctx, userID, otherID); err != nil {
			s.logger.Warn("failed to notify connection request", zap.String("to", otherID), zap.Error(err))
		}
	}
	return &LikeResult{Outcome: LikeRequestSent, Request: req}, nil
}

// AcceptRequest connects fromUserID with userID and removes the request.
// Only the recipient of a pending request sent by fromUserID may accept it.
func (s *ConnectionService) AcceptRequest(ctx context.Context, userID, requestID, fromUserID string) (*Connection, error) {
	if userID == fromUserID {
		return nil, ErrSelfAction
	}
	req, err := s.pendingRequestFor(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	if req.FromUserID != fromUserID {
		return nil, ErrRequestNotFound
	}

	conn, err := s.repo.CreateConnection(ctx, fromUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if err := s.repo.DeleteRequest(ctx, requestID); err != nil {
		return nil, fmt.Errorf("delete accepted request %s: %w", requestID, err)
	}
	s.notifyAccepted(ctx, userID, fromUserID)
	return conn, nil
}

// DeclineRequest removes a pending request addressed to userID
func (s *ConnectionService) DeclineRequest(ctx context.Context, userID, requestID string) error {
	if _, err := s.pendingRequestFor(ctx, userID, requestID); err != nil {
		return err
	}
	if err := s.repo.DeleteRequest(ctx, requestID); err != nil {
		return fmt.Errorf("delete declined request %s: %w", requestID, err)
	}
	return nil
}

// pendingRequestFor loads a request and hides it unless it is pending and addressed to userID
func (s *ConnectionService) pendingRequestFor(ctx context.Context, userID, requestID string) (*ConnectionRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	if req.ToUserID != userID || req.Status != RequestStatusPending {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *ConnectionService) GetConnections(ctx context.Context, userID string) ([]*Connection, error) {
	return s.repo.ListConnections(ctx, userID)
}

func (s *ConnectionService) GetPendingRequests(ctx context.Context, userID string) ([]*ConnectionRequest, error) {
	return s.repo.ListIncomingRequests(ctx, userID)
}

func (s *ConnectionService) notifyAccepted(ctx context.Context, byUserID, toUserID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.ConnectionAccepted(ctx, byUserID, toUserID); err != nil {
		s.logger.Warn("failed to notify connection accepted", zap.String("to", toUserID), zap.Error(err))
	}
}
