package domain

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MatchService computes a one-shot view of a user's visible matches
type MatchService struct {
	profiles    ProfileRepository
	connections ConnectionRepository
}

func NewMatchService(profiles ProfileRepository, connections ConnectionRepository) *MatchService {
	return &MatchService{
		profiles:    profiles,
		connections: connections,
	}
}

// VisibleMatches ranks every profile against userID and hides connected,
// requested and passed users
func (s *MatchService) VisibleMatches(ctx context.Context, userID string) ([]MatchCandidate, error) {
	var (
		self        *Profile
		all         []*Profile
		connections []*Connection
		requests    []*ConnectionRequest
		passed      []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.GetProfile(gctx, userID)
		if err != nil {
			return err
		}
		self = p
		return nil
	})
	g.Go(func() error {
		ps, err := s.profiles.ListProfiles(gctx)
		if err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		all = ps
		return nil
	})
	g.Go(func() error {
		cs, err := s.connections.ListConnections(gctx, userID)
		if err != nil {
			return fmt.Errorf("list connections: %w", err)
		}
		connections = cs
		return nil
	})
	g.Go(func() error {
		rs, err := s.connections.ListIncomingRequests(gctx, userID)
		if err != nil {
			return fmt.Errorf("list requests: %w", err)
		}
		requests = rs
		return nil
	})
	g.Go(func() error {
		ids, err := s.connections.ListPassedUserIDs(gctx, userID)
		if err != nil {
			return fmt.Errorf("list passes: %w", err)
		}
		passed = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return FilterVisible(userID, ComputeMatches(self, all), connections, requests, passed), nil
}
