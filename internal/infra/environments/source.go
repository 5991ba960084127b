// Package environments lazily loads and caches per-environment policy
// documents and their provisioners. The cache is the only mutable shared
// structure in the service; loaded policies are immutable.
package environments

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"warden/internal/domain"
	"warden/internal/infra/policydoc"
	"warden/internal/usecase"
)

// Loader fetches the raw policy document for one environment, typically
// from a secret store.
type Loader interface {
	LoadPolicyDocument(ctx context.Context, name string) ([]byte, error)
}

// ProvisionerFactory builds the provisioner serving one environment.
type ProvisionerFactory func(name string) (usecase.Provisioner[domain.GrantID], error)

// Entry is one cached environment: its parsed policy, the provisioner
// bound to it, and any lint warnings from parsing.
type Entry struct {
	Policy      domain.EnvironmentPolicy[domain.GrantID]
	Provisioner usecase.Provisioner[domain.GrantID]
	Warnings    []string
}

type Source struct {
	loader       Loader
	provisioners ProvisionerFactory
	names        []string
	ttl          time.Duration
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// cacheEntry is either in flight (ready not yet closed) or settled. The
// per-key in-flight channel gives at-most-one concurrent load per
// environment: late callers wait on the channel instead of re-fetching.
type cacheEntry struct {
	ready     chan struct{}
	value     *Entry
	err       error
	expiresAt time.Time
}

type Config struct {
	// Names is the closed set of environments this deployment serves.
	Names []string
	TTL   time.Duration
	Now   func() time.Time
}

func NewSource(loader Loader, provisioners ProvisionerFactory, cfg Config) *Source {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Source{
		loader:       loader,
		provisioners: provisioners,
		names:        append([]string(nil), cfg.Names...),
		ttl:          ttl,
		now:          now,
		entries:      make(map[string]*cacheEntry),
	}
}

func (s *Source) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *Source) serves(name string) bool {
	for _, n := range s.names {
		if n == name {
			return true
		}
	}
	return false
}

// Get returns the cached environment, loading it if absent or expired.
// A load failure degrades to not-ok (and a logged error) so one broken
// environment does not break enumeration of the others.
func (s *Source) Get(ctx context.Context, name string) (*Entry, bool) {
	if !s.serves(name) {
		return nil, false
	}

	s.mu.Lock()
	entry, ok := s.entries[name]
	if ok {
		select {
		case <-entry.ready:
			if entry.err == nil && s.now().Before(entry.expiresAt) {
				s.mu.Unlock()
				return entry.value, true
			}
			// Expired or failed; fall through to a fresh load.
		default:
			// A load is in flight; wait for it.
			s.mu.Unlock()
			return s.wait(ctx, entry)
		}
	}

	entry = &cacheEntry{ready: make(chan struct{})}
	s.entries[name] = entry
	s.mu.Unlock()

	entry.value, entry.err = s.load(ctx, name)
	s.mu.Lock()
	if entry.err != nil {
		// Do not cache failures; the next access retries.
		delete(s.entries, name)
	} else {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Unlock()
	close(entry.ready)

	if entry.err != nil {
		log.Printf("environment %q failed to load: %v", name, entry.err)
		return nil, false
	}
	return entry.value, true
}

func (s *Source) wait(ctx context.Context, entry *cacheEntry) (*Entry, bool) {
	select {
	case <-entry.ready:
		if entry.err != nil {
			return nil, false
		}
		return entry.value, true
	case <-ctx.Done():
		return nil, false
	}
}

func (s *Source) load(ctx context.Context, name string) (*Entry, error) {
	raw, err := s.loader.LoadPolicyDocument(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load policy document: %w", err)
	}
	policy, warnings, err := policydoc.Parse(raw)
	if err != nil {
		return nil, err
	}
	if policy.Name != name {
		return nil, fmt.Errorf("policy document names environment %q, expected %q", policy.Name, name)
	}
	for _, warning := range warnings {
		log.Printf("environment %q: %s", name, warning)
	}

	provisioner, err := s.provisioners(name)
	if err != nil {
		return nil, fmt.Errorf("build provisioner: %w", err)
	}
	return &Entry{Policy: policy, Provisioner: provisioner, Warnings: warnings}, nil
}

// EnvironmentPolicy returns the parsed policy for the environment.
func (s *Source) EnvironmentPolicy(ctx context.Context, name string) (domain.EnvironmentPolicy[domain.GrantID], bool) {
	entry, ok := s.Get(ctx, name)
	if !ok {
		return domain.EnvironmentPolicy[domain.GrantID]{}, false
	}
	return entry.Policy, true
}

// Provisioner returns the provisioner bound to the environment.
func (s *Source) Provisioner(ctx context.Context, name string) (usecase.Provisioner[domain.GrantID], bool) {
	entry, ok := s.Get(ctx, name)
	if !ok {
		return nil, false
	}
	return entry.Provisioner, true
}
