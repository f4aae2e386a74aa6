package ratelimit

import (
	"testing"
	"time"

	"github.com/rafey804/flipfilex-sub000/internal/domain"
)

func newTestLimiter(policies map[domain.WorkloadClass]Policy) (*Limiter, *time.Time) {
	l := New(policies)
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(map[domain.WorkloadClass]Policy{
		domain.WorkloadLight: {Limit: 3, Window: time.Minute},
	})

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("1.2.3.4", domain.WorkloadLight); !ok {
			t.Fatalf("request %d rejected below limit", i+1)
		}
	}
	ok, retry := l.Allow("1.2.3.4", domain.WorkloadLight)
	if ok {
		t.Fatalf("request over limit accepted")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("retry hint out of range: %v", retry)
	}
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(map[domain.WorkloadClass]Policy{
		domain.WorkloadLight: {Limit: 2, Window: time.Minute},
	})

	l.Allow("c", domain.WorkloadLight)
	*clock = clock.Add(30 * time.Second)
	l.Allow("c", domain.WorkloadLight)

	if ok, _ := l.Allow("c", domain.WorkloadLight); ok {
		t.Fatalf("bucket at limit should reject")
	}

	// The first timestamp leaves the window; one slot opens.
	*clock = clock.Add(31 * time.Second)
	if ok, _ := l.Allow("c", domain.WorkloadLight); !ok {
		t.Fatalf("slot should reopen after oldest timestamp expires")
	}
	if ok, _ := l.Allow("c", domain.WorkloadLight); ok {
		t.Fatalf("only one slot should have opened")
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[domain.WorkloadClass]Policy{
		domain.WorkloadLight: {Limit: 1, Window: time.Minute},
		domain.WorkloadHeavy: {Limit: 1, Window: time.Minute},
	})

	l.Allow("a", domain.WorkloadLight)
	if ok, _ := l.Allow("a", domain.WorkloadHeavy); !ok {
		t.Fatalf("classes must not share buckets")
	}
	if ok, _ := l.Allow("b", domain.WorkloadLight); !ok {
		t.Fatalf("clients must not share buckets")
	}
}

func TestDefaultPolicies(t *testing.T) {
	l, _ := newTestLimiter(nil)
	for i := 0; i < 40; i++ {
		if ok, _ := l.Allow("client", domain.WorkloadLight); !ok {
			t.Fatalf("light request %d rejected below default limit", i+1)
		}
	}
	if ok, _ := l.Allow("client", domain.WorkloadLight); ok {
		t.Fatalf("41st light request should be rejected")
	}
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow("client", domain.WorkloadHeavy); !ok {
			t.Fatalf("heavy request %d rejected below default limit", i+1)
		}
	}
	if ok, _ := l.Allow("client", domain.WorkloadHeavy); ok {
		t.Fatalf("11th heavy request should be rejected")
	}
}

func TestPrune(t *testing.T) {
	l, clock := newTestLimiter(map[domain.WorkloadClass]Policy{
		domain.WorkloadLight: {Limit: 5, Window: time.Minute},
	})

	l.Allow("idle", domain.WorkloadLight)
	*clock = clock.Add(2 * time.Minute)
	l.Prune()

	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected idle buckets to be pruned, %d remain", n)
	}
}
