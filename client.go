package chirp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const PER_PAGE = 30

// Client issues authenticated calls against the Chirp REST API. It never
// retries on its own: a silently repeated POST could double-apply a like or
// a follow. Cold starts are the availability prober's problem, not this
// layer's.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialStore
	metrics *Metrics
}

func NewClient(creds CredentialStore, metrics *Metrics) *Client {
	return &Client{
		baseURL: envOr("CHIRP_API_URL", "http://localhost:9090"),
		http:    &http.Client{Timeout: 15 * time.Second},
		creds:   creds,
		metrics: metrics,
	}
}

// do issues one request and classifies the outcome. label is the fixed
// per-endpoint metrics label; path may carry ids and query parameters.
func (c *Client) do(ctx context.Context, method, label, path string, payload, out interface{}) error {
	start := time.Now()
	defer afterRequest(start, method, path)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.creds.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).WithError(err).Warn("Server unreachable")
		c.metrics.UnreachableRequests.WithLabelValues(label).Inc()
		return &RequestError{Kind: KindUnreachable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.UnreachableRequests.WithLabelValues(label).Inc()
		return &RequestError{Kind: KindUnreachable, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := messageFromBody(raw)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("Request rejected")
		c.metrics.BadRequests.WithLabelValues(label).Inc()
		return &RequestError{Kind: KindRejected, Status: resp.StatusCode, Message: message}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			// A response arrived, so this classifies as rejected: the
			// payload is unusable even though the status was a success.
			logger.WithFields(logrus.Fields{
				"method": method,
				"path":   path,
				"status": resp.StatusCode,
			}).WithError(err).Warn("Undecodable response body")
			c.metrics.BadRequests.WithLabelValues(label).Inc()
			return &RequestError{
				Kind:    KindRejected,
				Status:  resp.StatusCode,
				Message: "undecodable response body",
				Err:     err,
			}
		}
	}

	c.metrics.SuccessfulRequests.WithLabelValues(label).Inc()
	return nil
}

// Status performs the lightweight readiness probe.
func (c *Client) Status(ctx context.Context) (bool, error) {
	var status StatusResponse
	if err := c.do(ctx, http.MethodGet, "status", "/status", nil, &status); err != nil {
		return false, err
	}
	return status.Status == "ok", nil
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (string, error) {
	var auth AuthResponse
	if err := c.do(ctx, http.MethodPost, "signup", "/auth/signup", req, &auth); err != nil {
		return "", err
	}
	return auth.Token, nil
}

func (c *Client) LogIn(ctx context.Context, req LogInRequest) (string, error) {
	var auth AuthResponse
	if err := c.do(ctx, http.MethodPost, "login", "/auth/login", req, &auth); err != nil {
		return "", err
	}
	return auth.Token, nil
}

// Posts returns one page of the global feed.
func (c *Client) Posts(ctx context.Context, page, limit int) ([]Post, error) {
	var posts []Post
	path := fmt.Sprintf("/posts?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, "posts", path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FollowingFeed returns one page of posts from followed users.
func (c *Client) FollowingFeed(ctx context.Context, page, limit int) ([]Post, error) {
	var posts []Post
	path := fmt.Sprintf("/feed?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, "feed", path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Me returns the authenticated user's own profile.
func (c *Client) Me(ctx context.Context) (UserProfile, error) {
	var profile UserProfile
	if err := c.do(ctx, http.MethodGet, "me", "/users/me", nil, &profile); err != nil {
		return UserProfile{}, err
	}
	return profile, nil
}

func (c *Client) User(ctx context.Context, userID uint) (UserProfile, error) {
	var profile UserProfile
	path := fmt.Sprintf("/users/%d", userID)
	if err := c.do(ctx, http.MethodGet, "user", path, nil, &profile); err != nil {
		return UserProfile{}, err
	}
	return profile, nil
}

func (c *Client) UserPosts(ctx context.Context, userID uint, page, limit int) ([]Post, error) {
	var posts []Post
	path := fmt.Sprintf("/users/%d/posts?page=%d&limit=%d", userID, page, limit)
	if err := c.do(ctx, http.MethodGet, "user_posts", path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Follow starts following userID and returns the server's message.
func (c *Client) Follow(ctx context.Context, userID uint) (string, error) {
	var resp MessageResponse
	path := fmt.Sprintf("/users/%d/follow", userID)
	if err := c.do(ctx, http.MethodPost, "follow", path, nil, &resp); err != nil {
		return "", err
	}
	c.metrics.FollowRequests.WithLabelValues("follow").Inc()
	return resp.Message, nil
}

// Unfollow stops following userID and returns the server's message.
func (c *Client) Unfollow(ctx context.Context, userID uint) (string, error) {
	var resp MessageResponse
	path := fmt.Sprintf("/users/%d/follow", userID)
	if err := c.do(ctx, http.MethodDelete, "unfollow", path, nil, &resp); err != nil {
		return "", err
	}
	c.metrics.UnfollowRequests.WithLabelValues("unfollow").Inc()
	return resp.Message, nil
}

// ToggleLike flips the like state of postID. The response message says which
// direction the server actually applied.
func (c *Client) ToggleLike(ctx context.Context, postID uint) (string, error) {
	var resp MessageResponse
	path := fmt.Sprintf("/posts/%d/like", postID)
	if err := c.do(ctx, http.MethodPost, "like", path, nil, &resp); err != nil {
		return "", err
	}
	c.metrics.LikeRequests.WithLabelValues("like").Inc()
	return resp.Message, nil
}
