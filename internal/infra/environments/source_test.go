package environments

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"warden/internal/domain"
	"warden/internal/usecase"
)

type stubLoader struct {
	mu    sync.Mutex
	loads map[string]int
	docs  map[string][]byte
	errs  map[string]error
	block chan struct{}
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		loads: make(map[string]int),
		docs:  make(map[string][]byte),
		errs:  make(map[string]error),
	}
}

func (l *stubLoader) LoadPolicyDocument(_ context.Context, name string) ([]byte, error) {
	l.mu.Lock()
	l.loads[name]++
	block := l.block
	l.mu.Unlock()
	if block != nil {
		<-block
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.errs[name]; err != nil {
		return nil, err
	}
	return l.docs[name], nil
}

func (l *stubLoader) loadCount(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[name]
}

type nopProvisioner struct{}

func (nopProvisioner) Grant(context.Context, domain.Principal, domain.GrantID, time.Time, time.Time) error {
	return nil
}

func (nopProvisioner) Revoke(context.Context, domain.Principal, domain.GrantID) error {
	return nil
}

func (nopProvisioner) CurrentGrant(context.Context, domain.Principal, domain.GrantID) (*domain.Grant[domain.GrantID], error) {
	return nil, nil
}

func minimalDocument(name string) []byte {
	return []byte(`{
	  "environment": "` + name + `",
	  "systems": [{"name": "s", "groups": [{"name": "g", "privileges": [
	    {"id": "projects/p:roles/viewer", "expiryMinutes": 30,
	     "approval": {"kind": "self"},
	     "acl": [{"allow": "user:a@example.com", "rights": ["request"]}]}
	  ]}]}]
	}`)
}

func provisionerFactory(string) (usecase.Provisioner[domain.GrantID], error) {
	return nopProvisioner{}, nil
}

func TestSource_CachesWithinTTL(t *testing.T) {
	loader := newStubLoader()
	loader.docs["prod"] = minimalDocument("prod")

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	source := NewSource(loader, provisionerFactory, Config{
		Names: []string{"prod"},
		TTL:   time.Minute,
		Now:   func() time.Time { return current },
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, ok := source.EnvironmentPolicy(ctx, "prod"); !ok {
			t.Fatalf("expected policy on access %d", i+1)
		}
	}
	if n := loader.loadCount("prod"); n != 1 {
		t.Fatalf("expected one load within ttl, got %d", n)
	}

	// Past the TTL the next access reloads lazily.
	current = current.Add(2 * time.Minute)
	if _, ok := source.EnvironmentPolicy(ctx, "prod"); !ok {
		t.Fatalf("expected policy after ttl expiry")
	}
	if n := loader.loadCount("prod"); n != 2 {
		t.Fatalf("expected reload after ttl, got %d loads", n)
	}
}

func TestSource_LoadFailureDegradesToEmpty(t *testing.T) {
	loader := newStubLoader()
	loader.errs["prod"] = errors.New("secret store unavailable")
	source := NewSource(loader, provisionerFactory, Config{Names: []string{"prod"}})

	if _, ok := source.EnvironmentPolicy(context.Background(), "prod"); ok {
		t.Fatalf("expected not-ok for failing environment")
	}

	// Failures are not cached; recovery is picked up on the next access.
	loader.mu.Lock()
	delete(loader.errs, "prod")
	loader.docs["prod"] = minimalDocument("prod")
	loader.mu.Unlock()
	if _, ok := source.EnvironmentPolicy(context.Background(), "prod"); !ok {
		t.Fatalf("expected recovery after the loader heals")
	}
}

func TestSource_UnknownEnvironment(t *testing.T) {
	source := NewSource(newStubLoader(), provisionerFactory, Config{Names: []string{"prod"}})
	if _, ok := source.EnvironmentPolicy(context.Background(), "staging"); ok {
		t.Fatalf("expected not-ok for unserved environment")
	}
}

func TestSource_SingleLoadUnderConcurrentAccess(t *testing.T) {
	loader := newStubLoader()
	loader.docs["prod"] = minimalDocument("prod")
	loader.block = make(chan struct{})

	source := NewSource(loader, provisionerFactory, Config{Names: []string{"prod"}, TTL: time.Minute})

	var ready, done sync.WaitGroup
	var okCount atomic.Int32
	for i := 0; i < 8; i++ {
		ready.Add(1)
		done.Add(1)
		go func() {
			ready.Done()
			if _, ok := source.EnvironmentPolicy(context.Background(), "prod"); ok {
				okCount.Add(1)
			}
			done.Done()
		}()
	}
	ready.Wait()
	// Give the goroutines a moment to pile onto the in-flight load, then
	// release it.
	time.Sleep(50 * time.Millisecond)
	close(loader.block)
	done.Wait()

	if n := loader.loadCount("prod"); n != 1 {
		t.Fatalf("expected a single load under concurrency, got %d", n)
	}
	if okCount.Load() != 8 {
		t.Fatalf("expected all callers to observe the policy, got %d", okCount.Load())
	}
}

func TestSource_MismatchedEnvironmentName(t *testing.T) {
	loader := newStubLoader()
	loader.docs["prod"] = minimalDocument("staging")
	source := NewSource(loader, provisionerFactory, Config{Names: []string{"prod"}})
	if _, ok := source.EnvironmentPolicy(context.Background(), "prod"); ok {
		t.Fatalf("expected not-ok for mismatched document name")
	}
}
