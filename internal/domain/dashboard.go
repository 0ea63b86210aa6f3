package domain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DashboardState is the derived view pushed to a user's session
type DashboardState struct {
	Profile          *Profile             `json:"profile"`
	Matches          []MatchCandidate     `json:"matches"`
	IncomingRequests []*ConnectionRequest `json:"incomingRequests"`
	Connections      []*Connection        `json:"connections"`
}

type viewKind int

const (
	viewConnections viewKind = 1 << iota
	viewRequests
	viewPasses

	allViews = viewConnections | viewRequests | viewPasses
)

type viewEvent struct {
	kind        viewKind
	connections []*Connection
	requests    []*ConnectionRequest
	passed      []string
	err         error
}

// Dashboard keeps one user's live relationship views and the match list
// derived from them. Snapshot callbacks only enqueue events; a single loop in
// Run applies them, so views are reconciled one change at a time.
type Dashboard struct {
	userID   string
	profiles ProfileRepository
	feed     ConnectionFeed
	onChange func(DashboardState)
	logger   *zap.Logger

	events chan viewEvent

	mu          sync.RWMutex
	seen        viewKind
	self        *Profile
	ranked      []MatchCandidate
	connections []*Connection
	requests    []*ConnectionRequest
	passed      []string
}

func NewDashboard(userID string, profiles ProfileRepository, feed ConnectionFeed, onChange func(DashboardState), logger *zap.Logger) *Dashboard {
	return &Dashboard{
		userID:   userID,
		profiles: profiles,
		feed:     feed,
		onChange: onChange,
		logger:   logger.With(zap.String("user_id", userID)),
		events:   make(chan viewEvent, 8),
	}
}

// Run loads the initial ranking, subscribes to the three views and applies
// their updates until ctx is done. It returns an error only if startup fails.
func (d *Dashboard) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.load(ctx); err != nil {
		return err
	}

	var unsubscribes []func()
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()

	emit := func(ev viewEvent) {
		select {
		case d.events <- ev:
		case <-ctx.Done():
		}
	}

	unsubscribe, err := d.feed.WatchConnections(ctx, d.userID, func(cs []*Connection, err error) {
		emit(viewEvent{kind: viewConnections, connections: cs, err: err})
	})
	if err != nil {
		return fmt.Errorf("watch connections: %w", err)
	}
	unsubscribes = append(unsubscribes, unsubscribe)

	unsubscribe, err = d.feed.WatchIncomingRequests(ctx, d.userID, func(rs []*ConnectionRequest, err error) {
		emit(viewEvent{kind: viewRequests, requests: rs, err: err})
	})
	if err != nil {
		return fmt.Errorf("watch requests: %w", err)
	}
	unsubscribes = append(unsubscribes, unsubscribe)

	unsubscribe, err = d.feed.WatchPassedUserIDs(ctx, d.userID, func(ids []string, err error) {
		emit(viewEvent{kind: viewPasses, passed: ids, err: err})
	})
	if err != nil {
		return fmt.Errorf("watch passes: %w", err)
	}
	unsubscribes = append(unsubscribes, unsubscribe)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-d.events:
			d.apply(ctx, ev)
		}
	}
}

// State returns the current derived state
func (d *Dashboard) State() DashboardState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateLocked()
}

func (d *Dashboard) load(ctx context.Context) error {
	var (
		self *Profile
		all  []*Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := d.profiles.GetProfile(gctx, d.userID)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		self = p
		return nil
	})
	g.Go(func() error {
		ps, err := d.profiles.ListProfiles(gctx)
		if err != nil {
			return fmt.Errorf("load profiles: %w", err)
		}
		all = ps
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	d.mu.Lock()
	d.self = self
	d.ranked = ComputeMatches(self, all)
	d.mu.Unlock()
	return nil
}

func (d *Dashboard) apply(ctx context.Context, ev viewEvent) {
	if ev.err != nil {
		d.logger.Warn("dashboard view failed, keeping last state", zap.Int("view", int(ev.kind)), zap.Error(ev.err))
		return
	}

	d.mu.Lock()
	wasReady := d.seen == allViews
	switch ev.kind {
	case viewConnections:
		d.connections = ev.connections
	case viewRequests:
		d.requests = ev.requests
	case viewPasses:
		d.passed = ev.passed
	}
	d.seen |= ev.kind
	ready := d.seen == allViews
	d.mu.Unlock()

	if !ready {
		return
	}
	// Relationship changes can move users in or out of the ranking; passes only filter it.
	if wasReady && ev.kind != viewPasses {
		d.rerank(ctx)
	}
	if d.onChange != nil {
		d.onChange(d.State())
	}
}

func (d *Dashboard) rerank(ctx context.Context) {
	all, err := d.profiles.ListProfiles(ctx)
	if err != nil {
		d.logger.Warn("failed to refresh profiles for ranking", zap.Error(err))
		return
	}
	d.mu.Lock()
	d.ranked = ComputeMatches(d.self, all)
	d.mu.Unlock()
}

func (d *Dashboard) stateLocked() DashboardState {
	requests := d.requests
	if requests == nil {
		requests = []*ConnectionRequest{}
	}
	connections := d.connections
	if connections == nil {
		connections = []*Connection{}
	}
	return DashboardState{
		Profile:          d.self,
		Matches:          FilterVisible(d.userID, d.ranked, d.connections, d.requests, d.passed),
		IncomingRequests: requests,
		Connections:      connections,
	}
}
