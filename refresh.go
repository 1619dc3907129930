package chirp

import "context"

// ViewEvent is a screen lifecycle event delivered by the host runtime.
type ViewEvent int

const (
	// EventMount fires when a screen first becomes visible.
	EventMount ViewEvent = iota
	// EventFocus fires when navigation brings a backgrounded screen back.
	EventFocus
	// EventRefresh fires on an explicit pull-to-refresh gesture.
	EventRefresh
	// EventRender fires on every re-render and must never cause traffic.
	EventRender
)

// RefreshTrigger re-runs a scope's fetch on the three events that warrant it.
type RefreshTrigger struct {
	reload func(context.Context) error
}

func NewRefreshTrigger(reload func(context.Context) error) *RefreshTrigger {
	return &RefreshTrigger{reload: reload}
}

// ScopeRefresher binds a trigger to one cached scope with fixed paging.
func ScopeRefresher(cache *FeedCache, scope Scope, page, limit int) *RefreshTrigger {
	return NewRefreshTrigger(func(ctx context.Context) error {
		return cache.Load(ctx, scope, page, limit)
	})
}

// Notify handles one lifecycle event. Only mount, focus and pull-to-refresh
// reach the network; re-renders are ignored. Any straggler response from a
// superseded reload is discarded by the cache's request sequencing.
func (t *RefreshTrigger) Notify(ctx context.Context, event ViewEvent) error {
	switch event {
	case EventMount, EventFocus, EventRefresh:
		return t.reload(ctx)
	default:
		return nil
	}
}
