package clients

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker open")

// RetryPolicy bounds retries of one vendor HTTP call
type RetryPolicy struct {
	MaxRetries  int
	Initial     time.Duration
	Max         time.Duration
	Factor      float64
	Jitter      float64 // fraction of the delay, 0..1
	RetryStatus map[int]bool
}

// DefaultRetryPolicy retries SP-API throttling and 5xx three times, 2s/4s/8s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Initial:    2 * time.Second,
		Max:        60 * time.Second,
		Factor:     2,
		Jitter:     0.1,
		RetryStatus: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
		},
	}
}

// Attempt issues one HTTP request; it must build a fresh request on each call
type Attempt func(ctx context.Context) (*http.Response, error)

// Retrier replays an Attempt with exponential backoff
type Retrier struct {
	policy RetryPolicy
	wait   func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewRetrier creates a retrier for policy
func NewRetrier(policy RetryPolicy) *Retrier {
	return &Retrier{policy: policy, wait: sleepContext, jitter: rand.Float64}
}

// WithWait replaces the backoff sleep
func (r *Retrier) WithWait(wait func(ctx context.Context, d time.Duration) error) *Retrier {
	r.wait = wait
	return r
}

func (r *Retrier) retryable(status int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return r.policy.RetryStatus[status]
}

// delay is the wait before retry number attempt+1; a Retry-After hint wins
func (r *Retrier) delay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return hint
	}
	d := float64(r.policy.Initial) * math.Pow(r.policy.Factor, float64(attempt))
	if r.policy.Jitter > 0 {
		d *= 1 + r.policy.Jitter*(2*r.jitter()-1)
	}
	if max := float64(r.policy.Max); max > 0 && d > max {
		d = max
	}
	return time.Duration(d)
}

// retryAfter reads a Retry-After header in seconds or HTTP-date form
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

// Do runs fn until it returns a 2xx, a non-retryable outcome, or retries run out.
// The final response is returned with its body open; earlier bodies are drained.
// err is set only when no response is available.
func (r *Retrier) Do(ctx context.Context, fn Attempt) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := fn(ctx)

		status := 0
		if err == nil {
			status = resp.StatusCode
			if status >= 200 && status < 300 {
				return resp, nil
			}
		}
		if attempt >= r.policy.MaxRetries || !r.retryable(status, err) {
			return resp, err
		}

		var hint time.Duration
		if resp != nil {
			hint = retryAfter(resp)
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if werr := r.wait(ctx, r.delay(attempt, hint)); werr != nil {
			return nil, werr
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CircuitBreaker stops calling a vendor after consecutive failures.
// Once cooldown passes a single probe is let through; its outcome closes or reopens the circuit.
type CircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	probing   bool
	now       func() time.Time
}

// NewCircuitBreaker opens after threshold consecutive failures for cooldown
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call may proceed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.failures < cb.threshold {
		return true
	}
	if cb.probing || cb.now().Before(cb.openUntil) {
		return false
	}
	cb.probing = true
	return true
}

// RecordSuccess closes the circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	cb.failures = 0
	cb.probing = false
	cb.mu.Unlock()
}

// RecordFailure counts a failure and opens the circuit at the threshold
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.probing = false
	if cb.failures >= cb.threshold {
		cb.openUntil = cb.now().Add(cb.cooldown)
	}
}
