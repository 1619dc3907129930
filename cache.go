package chirp

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Scope identifies one independently cached view. The same post can sit in
// several scopes at once; the copies share nothing, so patching one never
// updates the others.
type Scope string

const (
	ScopeGlobal    Scope = "global"
	ScopeFollowing Scope = "following"
	ScopeOwn       Scope = "own"
	ScopeOther     Scope = "other"
)

// scopeState is the per-scope record: view data, busy flag and request
// sequencing in one place instead of ad hoc per-screen flags. Post and
// profile loads are sequenced independently so neither can mark the other
// stale.
type scopeState struct {
	posts              []Post
	profile            *UserProfile
	loading            bool
	userID             uint   // profile owner, for the own and other scopes
	nextRequest        uint64 // last handed-out post request id
	lastApplied        uint64 // newest post request id whose response was accepted
	nextProfileRequest uint64
	lastProfileApplied uint64
}

func errUnknownScope(scope Scope) error {
	return fmt.Errorf("unknown scope %q", scope)
}

// FeedCache holds the four per-screen views and keeps them consistent under
// overlapping loads and optimistic patches.
type FeedCache struct {
	mu      sync.Mutex
	client  *Client
	metrics *Metrics
	scopes  map[Scope]*scopeState
}

func NewFeedCache(client *Client) *FeedCache {
	return &FeedCache{
		client:  client,
		metrics: client.metrics,
		scopes: map[Scope]*scopeState{
			ScopeGlobal:    {},
			ScopeFollowing: {},
			ScopeOwn:       {},
			ScopeOther:     {},
		},
	}
}

// SetScopeUser points a profile scope at a user: the own scope once after
// login, the other scope every time a profile screen is opened. Switching
// user discards the stale view.
func (f *FeedCache) SetScopeUser(scope Scope, userID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok {
		return
	}
	if state.userID != userID {
		state.userID = userID
		state.posts = nil
		state.profile = nil
	}
}

// Posts returns a copy of the scope's current view.
func (f *FeedCache) Posts(scope Scope) []Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok {
		return nil
	}
	return clonePosts(state.posts)
}

// Loading reports the scope's busy flag.
func (f *FeedCache) Loading(scope Scope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	return ok && state.loading
}

// Profile returns the cached profile backing a profile scope.
func (f *FeedCache) Profile(scope Scope) (UserProfile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok || state.profile == nil {
		return UserProfile{}, false
	}
	return *state.profile, true
}

// Load fetches one page for the scope and replaces the view wholesale. A
// response that arrives after a newer load has already been applied is
// dropped. A failed fetch is logged and leaves the previous view on screen.
// The busy flag is cleared on every exit path.
func (f *FeedCache) Load(ctx context.Context, scope Scope, page, limit int) error {
	requestID, userID, err := f.begin(scope)
	if err != nil {
		return err
	}
	defer f.clearLoading(scope)

	posts, err := f.fetch(ctx, scope, userID, page, limit)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"scope": string(scope),
			"page":  page,
		}).WithError(err).Warn("Feed load failed, keeping previous view")
		return err
	}

	if !f.apply(scope, requestID, posts) {
		f.metrics.StaleResponses.WithLabelValues(string(scope)).Inc()
		logger.WithField("scope", string(scope)).Info("Dropped stale feed response")
	}
	return nil
}

func (f *FeedCache) begin(scope Scope) (uint64, uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok {
		return 0, 0, errUnknownScope(scope)
	}
	state.nextRequest++
	state.loading = true
	return state.nextRequest, state.userID, nil
}

func (f *FeedCache) clearLoading(scope Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if state, ok := f.scopes[scope]; ok {
		state.loading = false
	}
}

// apply commits a load response unless a newer one already landed.
func (f *FeedCache) apply(scope Scope, requestID uint64, posts []Post) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok || requestID <= state.lastApplied {
		return false
	}
	state.lastApplied = requestID
	state.posts = posts
	return true
}

func (f *FeedCache) fetch(ctx context.Context, scope Scope, userID uint, page, limit int) ([]Post, error) {
	switch scope {
	case ScopeGlobal:
		return f.client.Posts(ctx, page, limit)
	case ScopeFollowing:
		return f.client.FollowingFeed(ctx, page, limit)
	case ScopeOwn, ScopeOther:
		return f.client.UserPosts(ctx, userID, page, limit)
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
}

// Patch applies transform to the single post with the given id. A post absent
// from this scope is a no-op, and nothing else in the view is touched.
func (f *FeedCache) Patch(scope Scope, postID uint, transform func(Post) Post) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok {
		return
	}
	for i := range state.posts {
		if state.posts[i].ID == postID {
			state.posts[i] = transform(state.posts[i])
			f.metrics.CachePatches.WithLabelValues(string(scope)).Inc()
			return
		}
	}
}

// LoadProfile fetches the profile backing a profile scope. It is sequenced
// and owner-checked like Load: a response that arrives after a newer one, or
// after the scope was re-pointed at another user, is discarded.
func (f *FeedCache) LoadProfile(ctx context.Context, scope Scope) error {
	if scope != ScopeOwn && scope != ScopeOther {
		return fmt.Errorf("scope %q has no profile", scope)
	}

	requestID, userID, err := f.beginProfile(scope)
	if err != nil {
		return err
	}
	defer f.clearLoading(scope)

	var profile UserProfile
	if scope == ScopeOwn {
		profile, err = f.client.Me(ctx)
	} else {
		profile, err = f.client.User(ctx, userID)
	}
	if err != nil {
		logger.WithField("scope", string(scope)).WithError(err).Warn("Profile load failed, keeping previous view")
		return err
	}

	if !f.applyProfile(scope, requestID, userID, profile) {
		f.metrics.StaleResponses.WithLabelValues(string(scope)).Inc()
		logger.WithField("scope", string(scope)).Info("Dropped stale profile response")
	}
	return nil
}

func (f *FeedCache) beginProfile(scope Scope) (uint64, uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok {
		return 0, 0, errUnknownScope(scope)
	}
	state.nextProfileRequest++
	state.loading = true
	return state.nextProfileRequest, state.userID, nil
}

// applyProfile commits a profile response unless a newer one already landed
// or the scope has moved on to a different user since the fetch began.
func (f *FeedCache) applyProfile(scope Scope, requestID uint64, userID uint, profile UserProfile) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok || requestID <= state.lastProfileApplied || state.userID != userID {
		return false
	}
	state.lastProfileApplied = requestID
	state.profile = &profile
	if state.userID == 0 {
		// The own scope before SetScopeUser: adopt the authenticated id.
		state.userID = profile.UserID
	}
	return true
}

// PatchProfile applies transform to the scope's cached profile, if any.
func (f *FeedCache) PatchProfile(scope Scope, transform func(UserProfile) UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.scopes[scope]
	if !ok || state.profile == nil {
		return
	}
	patched := transform(*state.profile)
	state.profile = &patched
}
