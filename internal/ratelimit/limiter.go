// Package ratelimit implements the per-client sliding-window limiter. The
// window parameters are a function of the workload class: light conversions
// get a short, generous window, video-grade work a long, tight one.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

// Policy is the per-class window configuration.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies holds the deployed limits.
var DefaultPolicies = map[domain.WorkloadClass]Policy{
	domain.WorkloadLight: {Limit: 40, Window: 300 * time.Second},
	domain.WorkloadHeavy: {Limit: 10, Window: 3000 * time.Second},
}

type bucketKey struct {
	client string
	class  domain.WorkloadClass
}

type bucket struct {
	timestamps []time.Time
}

// Limiter tracks acceptance timestamps per (client, class) bucket.
type Limiter struct {
	mu       sync.Mutex
	policies map[domain.WorkloadClass]Policy
	buckets  map[bucketKey]*bucket
	now      func() time.Time
}

// New builds a limiter with the given policies, falling back to
// DefaultPolicies when nil.
func New(policies map[domain.WorkloadClass]Policy) *Limiter {
	if policies == nil {
		policies = DefaultPolicies
	}
	return &Limiter{
		policies: policies,
		buckets:  make(map[bucketKey]*bucket),
		now:      time.Now,
	}
}

// Allow records an acceptance for the client in the given class if the bucket
// has headroom. On rejection it returns how long the client should wait for
// the oldest timestamp to leave the window. Acceptances are never refunded.
func (l *Limiter) Allow(client string, class domain.WorkloadClass) (bool, time.Duration) {
	policy, ok := l.policies[class]
	if !ok {
		policy = l.policies[domain.WorkloadLight]
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := bucketKey{client: client, class: class}
	b := l.buckets[key]
	if b == nil {
		b = &bucket{}
		l.buckets[key] = b
	}

	// Drop timestamps that have slid out of the window.
	cutoff := now.Add(-policy.Window)
	kept := b.timestamps[:0]
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.timestamps = kept

	if len(b.timestamps) >= policy.Limit {
		retry := b.timestamps[0].Add(policy.Window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return false, retry
	}

	b.timestamps = append(b.timestamps, now)
	return true, 0
}

// Prune drops buckets whose every timestamp has expired. Called from the
// periodic sweep so idle clients do not accumulate.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		policy, ok := l.policies[key.class]
		if !ok {
			policy = l.policies[domain.WorkloadLight]
		}
		cutoff := now.Add(-policy.Window)
		live := false
		for _, ts := range b.timestamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.buckets, key)
		}
	}
}
