// Package ratelimit implements an in-process, per-identity token bucket limiter.
//
// Each identity owns one bucket that starts full. Tokens refill continuously at
// requests_per_minute/60 per second up to the burst capacity; a request consumes
// one token or is denied without touching the bucket. State is not shared across
// processes and is lost on restart.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy describes a limiter's sustained rate and burst size.
type Policy struct {
	Name              string `mapstructure:"name"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
}

// RefillRate is the number of tokens added per second.
func (p Policy) RefillRate() rate.Limit {
	if p.RequestsPerMinute <= 0 {
		return 0
	}
	return rate.Limit(float64(p.RequestsPerMinute) / 60.0)
}

var (
	DefaultPolicy = Policy{Name: "default", RequestsPerMinute: 60, Burst: 10}
	AIPolicy      = Policy{Name: "ai", RequestsPerMinute: 10, Burst: 3}
)

type bucket struct {
	limiter    *rate.Limiter
	lastRefill time.Time
}

type Limiter struct {
	mu      sync.Mutex
	policy  Policy
	buckets map[string]*bucket
	now     func() time.Time
}

func New(policy Policy) *Limiter {
	return NewWithClock(policy, time.Now)
}

// NewWithClock is New with an injectable time source.
func NewWithClock(policy Policy, now func() time.Time) *Limiter {
	if policy.Burst <= 0 {
		policy.Burst = 1
	}
	return &Limiter{
		policy:  policy,
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

func (l *Limiter) Policy() Policy {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policy
}

// IsAllowed refills the identity's bucket and tries to take one token.
func (l *Limiter) IsAllowed(identity string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[identity]
	if !ok {
		// A fresh rate.Limiter reports a full bucket on its first observation.
		b = &bucket{limiter: rate.NewLimiter(l.policy.RefillRate(), l.policy.Burst)}
		l.buckets[identity] = b
	}
	b.lastRefill = now
	return b.limiter.AllowN(now, 1)
}

// Tokens reports the identity's current token count; unseen identities are full.
func (l *Limiter) Tokens(identity string) float64 {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[identity]
	if !ok {
		return float64(l.policy.Burst)
	}
	return b.limiter.TokensAt(now)
}

// Cleanup drops buckets that have not been checked within maxAge and
// returns how many were removed.
func (l *Limiter) Cleanup(maxAge time.Duration) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, b := range l.buckets {
		if now.Sub(b.lastRefill) > maxAge {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// SetPolicy applies a new rate and burst to existing and future buckets.
func (l *Limiter) SetPolicy(policy Policy) {
	if policy.Burst <= 0 {
		policy.Burst = 1
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.policy = policy
	for _, b := range l.buckets {
		b.limiter.SetLimitAt(now, policy.RefillRate())
		b.limiter.SetBurstAt(now, policy.Burst)
	}
}
