package repository

import (
	"context"
	"sync"

	"github.com/praxis/backend/internal/domain"
	"github.com/praxis/backend/internal/store"
)

// WatchConnections follows both sides of the user's connections and delivers
// their union. Nothing is delivered until both sides have reported once.
func (r *DocumentRepository) WatchConnections(ctx context.Context, userID string, fn func([]*domain.Connection, error)) (func(), error) {
	var (
		mu     sync.Mutex
		sides  [2][]store.Document
		seen   [2]bool
		failed bool
	)

	deliver := func(side int, snap store.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if failed {
			return
		}
		if snap.Err != nil {
			failed = true
			fn(nil, snap.Err)
			return
		}
		sides[side] = snap.Docs
		seen[side] = true
		if !seen[0] || !seen[1] {
			return
		}
		conns, err := decodeAll(mergeByID(sides[0], sides[1]), toConnection)
		if err != nil {
			failed = true
		}
		fn(conns, err)
	}

	queries := connectionSides(userID)
	var unsubscribes []store.Unsubscribe
	cancel := func() {
		for _, u := range unsubscribes {
			u()
		}
	}
	for i, q := range queries {
		side := i
		u, err := r.store.Subscribe(ctx, q, func(snap store.Snapshot) { deliver(side, snap) })
		if err != nil {
			cancel()
			return nil, err
		}
		unsubscribes = append(unsubscribes, u)
	}
	return cancel, nil
}

// WatchIncomingRequests follows the pending requests addressed to userID
func (r *DocumentRepository) WatchIncomingRequests(ctx context.Context, userID string, fn func([]*domain.ConnectionRequest, error)) (func(), error) {
	u, err := r.store.Subscribe(ctx, pendingRequestsTo(userID), func(snap store.Snapshot) {
		if snap.Err != nil {
			fn(nil, snap.Err)
			return
		}
		fn(decodeAll(snap.Docs, toRequest))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// WatchPassedUserIDs follows the users userID has passed on
func (r *DocumentRepository) WatchPassedUserIDs(ctx context.Context, userID string, fn func([]string, error)) (func(), error) {
	u, err := r.store.Subscribe(ctx, passesBy(userID), func(snap store.Snapshot) {
		if snap.Err != nil {
			fn(nil, snap.Err)
			return
		}
		fn(passedIDs(snap.Docs))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
