// FILE: scribelog/src/internal/retry/retry.go
package retry

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop: attempt count and a doubling, capped backoff
type Policy struct {
	MaxRetries int
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// DefaultPolicy retries for roughly twenty minutes before giving up
var DefaultPolicy = Policy{
	MaxRetries: 50,
	MinBackoff: 100 * time.Millisecond,
	MaxBackoff: 30 * time.Second,
}

// Validate rejects policies that could never deliver or never back off
func (p Policy) Validate() error {
	if p.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", p.MaxRetries)
	}
	if p.MinBackoff <= 0 {
		return fmt.Errorf("min backoff must be positive, got %v", p.MinBackoff)
	}
	if p.MaxBackoff < p.MinBackoff {
		return fmt.Errorf("max backoff %v is below min backoff %v", p.MaxBackoff, p.MinBackoff)
	}
	return nil
}

// Backoff walks the schedule min, 2·min, 4·min ... max without jitter
type Backoff struct {
	eb      *backoff.ExponentialBackOff
	current time.Duration
}

// NewBackoff starts at p.MinBackoff
func NewBackoff(p Policy) *Backoff {
	eb := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.MinBackoff),
		backoff.WithMaxInterval(p.MaxBackoff),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	b := &Backoff{eb: eb}
	b.current = eb.NextBackOff()
	return b
}

// Current is the duration of the next sleep
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Advance moves to the next step and returns it
func (b *Backoff) Advance() time.Duration {
	b.current = b.eb.NextBackOff()
	return b.current
}

// Reset returns to the first step
func (b *Backoff) Reset() {
	b.eb.Reset()
	b.current = b.eb.NextBackOff()
}

// Sleeper suspends the calling goroutine
type Sleeper interface {
	Sleep(d time.Duration)
}

// RealSleeper blocks the calling goroutine
type RealSleeper struct{}

func (RealSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

// State is passed to every attempt
type State struct {
	// Attempt is zero-based
	Attempt int
	// Backoff is the sleep that follows if this attempt fails
	Backoff time.Duration
	LastErr error
}

// Result describes how a retry loop ended
type Result struct {
	Attempts  int
	Succeeded bool
	// LastErr is nil when every failure was a soft rejection
	LastErr error
}

// Retrier runs an attempt function under a Policy
type Retrier struct {
	policy  Policy
	sleeper Sleeper
}

// New validates policy; a nil sleeper means RealSleeper
func New(policy Policy, sleeper Sleeper) (*Retrier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &Retrier{policy: policy, sleeper: sleeper}, nil
}

func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do calls attempt up to MaxRetries times. An attempt returning done=true ends
// the loop with success; otherwise a non-nil error replaces LastErr and the
// loop sleeps for the current backoff before doubling it.
func (r *Retrier) Do(attempt func(st State) (done bool, err error)) Result {
	b := NewBackoff(r.policy)
	var lastErr error

	for i := 0; i < r.policy.MaxRetries; i++ {
		done, err := attempt(State{Attempt: i, Backoff: b.Current(), LastErr: lastErr})
		if done {
			return Result{Attempts: i + 1, Succeeded: true, LastErr: lastErr}
		}
		if err != nil {
			lastErr = err
		}

		r.sleeper.Sleep(b.Current())
		b.Advance()
	}

	return Result{Attempts: r.policy.MaxRetries, LastErr: lastErr}
}
