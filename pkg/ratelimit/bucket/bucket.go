package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	rferrors "github.com/vnykmshr/reactflow/pkg/common/errors"
	"github.com/vnykmshr/reactflow/pkg/scheduling/timer"
)

// Limit is the number of tokens added per second. Use Inf for no limit.
type Limit float64

// Inf is the infinite rate limit; it allows all events.
var Inf = Limit(math.Inf(1))

// Every converts a minimum interval between events to a Limit.
func Every(interval time.Duration) Limit {
	if interval <= 0 {
		return Inf
	}
	return Limit(time.Second) / Limit(interval)
}

// Config holds configuration for a Limiter.
type Config struct {
	// Rate is the number of tokens added per second.
	Rate Limit

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Clock drives refills and waits. If nil, the system clock is used.
	Clock timer.Scheduler

	// InitialTokens is the number of tokens to start with.
	// If negative, starts with full capacity.
	InitialTokens int
}

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      timer.Scheduler
}

// New creates a limiter that starts full.
func New(rate Limit, burst int) (*Limiter, error) {
	return NewWithConfig(Config{Rate: rate, Burst: burst, InitialTokens: -1})
}

// NewWithConfig creates a limiter from config.
func NewWithConfig(config Config) (*Limiter, error) {
	if config.Rate < 0 {
		return nil, rferrors.NewValidationError("bucket", "rate", config.Rate, "rate cannot be negative").
			WithHint("use 0 for a fixed budget or a positive value")
	}
	if config.Burst <= 0 {
		return nil, rferrors.NewValidationError("bucket", "burst", config.Burst, "burst must be positive").
			WithHint("burst determines how many tokens can be consumed instantly")
	}
	if config.Clock == nil {
		config.Clock = timer.System()
	}

	initialTokens := float64(config.InitialTokens)
	if config.InitialTokens < 0 || initialTokens > float64(config.Burst) {
		initialTokens = float64(config.Burst)
	}

	return &Limiter{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     initialTokens,
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}

// Allow reports whether an event may happen now, consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.AllowN(1)
}

// AllowN reports whether n events may happen now.
func (l *Limiter) AllowN(n int) bool {
	_, ok := l.reserve(n, 0)
	return ok
}

// Wait blocks until an event can happen or ctx is done. A token reserved by
// a cancelled wait is returned to the bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	delay, ok := l.reserve(1, math.MaxInt64)
	if !ok {
		return rferrors.NewValidationError("bucket", "rate", l.Limit(), "no tokens will ever become available")
	}
	if delay <= 0 {
		return nil
	}

	ready := make(chan struct{})
	t := l.clock.AfterFunc(delay, func() { close(ready) })
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		t.Stop()
		l.restore(1)
		return ctx.Err()
	}
}

// Delay reports how long until one token is available, zero when one is
// available now.
func (l *Limiter) Delay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.clock.Now())
	if l.tokens >= 1 || l.limit == Inf {
		return 0
	}
	if l.limit == 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(float64(time.Second) * (1 - l.tokens) / float64(l.limit))
}

// Limit returns the rate limit.
func (l *Limiter) Limit() Limit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Burst returns the burst size.
func (l *Limiter) Burst() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burst
}

// Tokens returns the number of tokens currently available.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.clock.Now())
	return l.tokens
}

// reserve takes n tokens if they are available within maxWait and returns
// how long the caller must wait for them.
func (l *Limiter) reserve(n int, maxWait time.Duration) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || l.limit == Inf {
		return 0, true
	}

	l.refill(l.clock.Now())
	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		return 0, true
	}
	if l.limit == 0 {
		return 0, false
	}

	wait := time.Duration(float64(time.Second) * (float64(n) - l.tokens) / float64(l.limit))
	if wait > maxWait {
		return 0, false
	}
	// tokens may go negative; later callers queue behind this reservation
	l.tokens -= float64(n)
	return wait, true
}

func (l *Limiter) restore(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(l.clock.Now())
	l.tokens = math.Min(l.tokens+float64(n), float64(l.burst))
}

// refill adds tokens for the time elapsed since the last update.
func (l *Limiter) refill(now time.Time) {
	if l.limit == Inf {
		l.tokens = float64(l.burst)
		l.lastUpdate = now
		return
	}

	elapsed := now.Sub(l.lastUpdate)
	if elapsed <= 0 {
		return
	}
	l.lastUpdate = now
	if l.limit == 0 {
		return
	}
	l.tokens = math.Min(l.tokens+elapsed.Seconds()*float64(l.limit), float64(l.burst))
}
