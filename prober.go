package chirp

import (
	"context"
	"sync/atomic"
	"time"
)

// Probe policy defaults. The backend runs on scale-to-zero hosting and can
// need close to a minute to come up from cold.
const (
	DefaultProbeAttempts = 3
	DefaultProbeDelay    = 20 * time.Second
)

// Prober decides whether the backend is ready to accept traffic before the
// auth screens fire their requests. It is the only layer that retries;
// everything after it fails fast.
type Prober struct {
	client   *Client
	attempts int
	delay    time.Duration
	sleep    func(context.Context, time.Duration) error
	probing  atomic.Bool
}

func NewProber(client *Client) *Prober {
	return &Prober{
		client:   client,
		attempts: DefaultProbeAttempts,
		delay:    DefaultProbeDelay,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Probing reports whether EnsureAwake is currently running. The login and
// signup screens use it as their busy indicator.
func (p *Prober) Probing() bool { return p.probing.Load() }

// EnsureAwake returns true as soon as a probe reports ready. A probe that
// fails in transit counts the same as a not-ready answer. Once the attempt
// budget is spent the caller gets an explicit false, never an endless wait.
func (p *Prober) EnsureAwake(ctx context.Context) bool {
	p.probing.Store(true)
	defer p.probing.Store(false)

	for attempt := 1; attempt <= p.attempts; attempt++ {
		p.client.metrics.ProbeAttempts.Inc()
		ready, err := p.client.Status(ctx)
		if err != nil {
			logger.WithError(err).WithField("attempt", attempt).Info("Status probe failed")
		}
		if ready {
			return true
		}
		if attempt == p.attempts {
			break
		}
		if err := p.sleep(ctx, p.delay); err != nil {
			return false
		}
	}

	logger.WithField("attempts", p.attempts).Warn("Service still asleep, giving up")
	return false
}
