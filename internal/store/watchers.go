package store

import (
	"context"
	"sync"
)

type queryFunc func(ctx context.Context, q Query) ([]Document, error)

type watcher struct {
	query  Query
	fn     func(Snapshot)
	signal chan struct{}
	cancel context.CancelFunc
}

// watchers re-runs subscribed queries whenever their collection is signalled.
// Signals coalesce: a watcher that is busy delivering sees at most one pending
// re-run, so a listener always observes the latest result set.
type watchers struct {
	mu           sync.Mutex
	byCollection map[string]map[*watcher]struct{}
}

func newWatchers() *watchers {
	return &watchers{byCollection: make(map[string]map[*watcher]struct{})}
}

func (ws *watchers) add(ctx context.Context, q Query, fn func(Snapshot), run queryFunc) Unsubscribe {
	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{
		query:  q,
		fn:     fn,
		signal: make(chan struct{}, 1),
		cancel: cancel,
	}

	ws.mu.Lock()
	set, ok := ws.byCollection[q.Collection]
	if !ok {
		set = make(map[*watcher]struct{})
		ws.byCollection[q.Collection] = set
	}
	set[w] = struct{}{}
	ws.mu.Unlock()

	w.signal <- struct{}{}
	go ws.loop(ctx, w, run)

	return func() {
		cancel()
		ws.remove(w)
	}
}

func (ws *watchers) loop(ctx context.Context, w *watcher, run queryFunc) {
	defer ws.remove(w)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
			docs, err := run(ctx, w.query)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				w.fn(Snapshot{Err: err})
				return
			}
			w.fn(Snapshot{Docs: docs})
		}
	}
}

func (ws *watchers) remove(w *watcher) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if set, ok := ws.byCollection[w.query.Collection]; ok {
		delete(set, w)
		if len(set) == 0 {
			delete(ws.byCollection, w.query.Collection)
		}
	}
}

// notify schedules a re-run of every query subscribed to collection
func (ws *watchers) notify(collection string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for w := range ws.byCollection[collection] {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// notifyAll schedules a re-run of every subscribed query
func (ws *watchers) notifyAll() {
	ws.mu.Lock()
	collections := make([]string, 0, len(ws.byCollection))
	for c := range ws.byCollection {
		collections = append(collections, c)
	}
	ws.mu.Unlock()
	for _, c := range collections {
		ws.notify(c)
	}
}

// closeAll cancels every subscription
func (ws *watchers) closeAll() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	for c, set := range ws.byCollection {
		for w := range set {
			w.cancel()
		}
		delete(ws.byCollection, c)
	}
}

func (ws *watchers) count() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	n := 0
	for _, set := range ws.byCollection {
		n += len(set)
	}
	return n
}
