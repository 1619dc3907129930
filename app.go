package chirp

import (
	"context"
	"errors"
)

// Inline messages for the auth screens when the server gives nothing usable.
const GENERIC_AUTH_ERROR = "Something went wrong. Please try again."
const SERVICE_ASLEEP_ERROR = "The service is waking up. Please try again in a minute."

// AuthError carries the inline message the login and signup screens display.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// App wires the engine together for a host runtime: one client, one cache,
// one prober, one credential store.
type App struct {
	Client *Client
	Cache  *FeedCache
	Prober *Prober
	creds  CredentialStore
}

func NewApp(creds CredentialStore) *App {
	metrics := InitMetrics()
	client := NewClient(creds, metrics)
	app := &App{
		Client: client,
		Cache:  NewFeedCache(client),
		Prober: NewProber(client),
		creds:  creds,
	}

	if addr := envOr("METRICS_ADDR", ""); addr != "" {
		go func() {
			if err := metrics.ServeMetrics(addr); err != nil {
				logger.WithError(err).Warn("Metrics listener stopped")
			}
		}()
	}

	return app
}

// LogIn authenticates, commits the credential and returns a reconciler bound
// to the authenticated identity. The prober gates the call so a cold-started
// backend produces a clear "unavailable" message instead of a raw transport
// error.
func (a *App) LogIn(ctx context.Context, username, password string) (*Reconciler, error) {
	if !a.Prober.EnsureAwake(ctx) {
		return nil, &AuthError{Message: SERVICE_ASLEEP_ERROR, Err: ErrUnavailable}
	}

	token, err := a.Client.LogIn(ctx, LogInRequest{Username: username, Password: password})
	if err != nil {
		return nil, authError(err)
	}
	return a.establishSession(ctx, token)
}

// SignUp mirrors LogIn for account creation.
func (a *App) SignUp(ctx context.Context, username, email, password string) (*Reconciler, error) {
	if !a.Prober.EnsureAwake(ctx) {
		return nil, &AuthError{Message: SERVICE_ASLEEP_ERROR, Err: ErrUnavailable}
	}

	token, err := a.Client.SignUp(ctx, SignUpRequest{Username: username, Email: email, Password: password})
	if err != nil {
		return nil, authError(err)
	}
	return a.establishSession(ctx, token)
}

// ResumeSession rebuilds a reconciler from a credential persisted by an
// earlier run. An absent credential means there is nothing to resume.
func (a *App) ResumeSession(ctx context.Context) (*Reconciler, error) {
	if _, ok := a.creds.Token(); !ok {
		return nil, &AuthError{Message: "Not logged in."}
	}
	return a.bootstrapIdentity(ctx)
}

// LogOut destroys the stored credential.
func (a *App) LogOut() error {
	return a.creds.ClearToken()
}

func (a *App) establishSession(ctx context.Context, token string) (*Reconciler, error) {
	if err := a.creds.SetToken(token); err != nil {
		return nil, &AuthError{Message: GENERIC_AUTH_ERROR, Err: err}
	}
	return a.bootstrapIdentity(ctx)
}

// bootstrapIdentity fetches the real authenticated user id. It keys every
// likes-membership check from here on; there is no placeholder fallback.
func (a *App) bootstrapIdentity(ctx context.Context) (*Reconciler, error) {
	me, err := a.Client.Me(ctx)
	if err != nil {
		return nil, authError(err)
	}

	a.Cache.SetScopeUser(ScopeOwn, me.UserID)
	return NewReconciler(a.Client, a.Cache, me.UserID), nil
}

// authError converts a request failure into the inline form the auth screens
// display: the server's own message when it sent one, a generic fallback
// otherwise.
func authError(err error) error {
	var re *RequestError
	if errors.As(err, &re) && re.Kind == KindRejected && re.Message != "" {
		return &AuthError{Message: re.Message, Err: err}
	}
	return &AuthError{Message: GENERIC_AUTH_ERROR, Err: err}
}
