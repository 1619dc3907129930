package chirp

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Strategy selects how a confirmed mutation reaches the local cache.
type Strategy int

const (
	// StrategyOptimistic patches the one affected record in place.
	StrategyOptimistic Strategy = iota
	// StrategyRefetch reloads the whole scope from the server. Authoritative
	// but slower, and it discards any other local state for the scope.
	StrategyRefetch
)

// Like acknowledgement messages the API sends.
const (
	MSG_POST_LIKED   = "Post liked."
	MSG_POST_UNLIKED = "Post unliked."
)

// Reconciler turns confirmed like and follow responses into consistent local
// state. Confirm-then-apply: nothing changes locally before the server
// acknowledges, so a rejected or unreachable mutation leaves every cached
// byte as it was and there is never a rollback to get wrong.
type Reconciler struct {
	client   *Client
	cache    *FeedCache
	userID   uint // the authenticated user, from /users/me at login
	strategy Strategy
	page     int
	limit    int
}

func NewReconciler(client *Client, cache *FeedCache, userID uint) *Reconciler {
	return &Reconciler{
		client:   client,
		cache:    cache,
		userID:   userID,
		strategy: StrategyOptimistic,
		page:     1,
		limit:    PER_PAGE,
	}
}

// SetStrategy switches the reconciliation path for screens that want an
// authoritative reload instead of the in-place patch.
func (r *Reconciler) SetStrategy(s Strategy) { r.strategy = s }

// UserID returns the authenticated identity the reconciler patches with.
func (r *Reconciler) UserID() uint { return r.userID }

// ToggleLike sends the like toggle and, once the server confirms, brings the
// scope's view in line. The acknowledgement message decides the direction of
// the patch; the client's intent never does.
func (r *Reconciler) ToggleLike(ctx context.Context, scope Scope, postID uint) error {
	message, err := r.client.ToggleLike(ctx, postID)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"scope":   string(scope),
			"post_id": postID,
		}).WithError(err).Warn("Like request failed, leaving view untouched")
		return err
	}

	if r.strategy == StrategyRefetch {
		return r.cache.Load(ctx, scope, r.page, r.limit)
	}

	switch {
	case strings.EqualFold(message, MSG_POST_LIKED):
		r.cache.Patch(scope, postID, func(p Post) Post {
			p.Likes = addLike(p.Likes, r.userID)
			return p
		})
	case strings.EqualFold(message, MSG_POST_UNLIKED):
		r.cache.Patch(scope, postID, func(p Post) Post {
			p.Likes = removeLike(p.Likes, r.userID)
			return p
		})
	default:
		// Unknown acknowledgement: reload rather than guess a direction.
		logger.WithField("message", message).Warn("Unrecognized like acknowledgement, refetching")
		return r.cache.Load(ctx, scope, r.page, r.limit)
	}
	return nil
}

// Liked reports whether the authenticated user has liked the post as cached
// in the given scope. Drives the heart-icon fill state.
func (r *Reconciler) Liked(scope Scope, postID uint) bool {
	for _, p := range r.cache.Posts(scope) {
		if p.ID == postID {
			return likesContain(p.Likes, r.userID)
		}
	}
	return false
}

// SetFollowing follows or unfollows the user behind a profile scope. On a
// confirmed success the cached profile's is_following flag and follower
// count are patched; a failure changes nothing.
func (r *Reconciler) SetFollowing(ctx context.Context, scope Scope, userID uint, follow bool) error {
	var err error
	if follow {
		_, err = r.client.Follow(ctx, userID)
	} else {
		_, err = r.client.Unfollow(ctx, userID)
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"scope":   string(scope),
			"user_id": userID,
			"follow":  follow,
		}).WithError(err).Warn("Follow request failed, leaving view untouched")
		return err
	}

	if r.strategy == StrategyRefetch {
		return r.cache.LoadProfile(ctx, scope)
	}

	r.cache.PatchProfile(scope, func(p UserProfile) UserProfile {
		if p.IsFollowing == follow {
			return p
		}
		p.IsFollowing = follow
		if follow {
			p.FollowerCount++
		} else if p.FollowerCount > 0 {
			p.FollowerCount--
		}
		return p
	})
	return nil
}
