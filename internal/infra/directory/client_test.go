package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"warden/internal/domain"
)

func testClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL, "test-token")
	c.retryDelay = time.Millisecond
	return c
}

func TestUpsertMembershipRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization header = %q", got)
		}
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := testClient(srv)
	err := client.UpsertMembership(context.Background(), Membership{
		Principal:  "user:alice@example.com",
		Grant:      "projects/prod:roles/viewer",
		StartTime:  time.Now(),
		ExpireTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertMembership: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestUpsertMembershipRetriesNotFoundOnFreshResource(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := testClient(srv).UpsertMembership(context.Background(), Membership{
		Principal: "user:alice@example.com",
		Grant:     "projects/new-project:roles/viewer",
	})
	if err != nil {
		t.Fatalf("UpsertMembership: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestUpsertMembershipGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testClient(srv).UpsertMembership(context.Background(), Membership{})
	if !errors.Is(err, domain.ErrIncompleteOperation) {
		t.Fatalf("err = %v, want ErrIncompleteOperation", err)
	}
	if got := atomic.LoadInt32(&calls); got != maxAttempts {
		t.Errorf("calls = %d, want %d", got, maxAttempts)
	}
}

func TestProvisionerGrantTreatsConflictAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	p := NewProvisioner(testClient(srv))
	err := p.Grant(context.Background(), domain.User("alice@example.com"),
		domain.RoleBindingID("projects/prod", "roles/viewer"),
		time.Now(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
}

func TestProvisionerRevokeAbsentMembership(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProvisioner(testClient(srv))
	err := p.Revoke(context.Background(), domain.User("alice@example.com"),
		domain.RoleBindingID("projects/prod", "roles/viewer"))
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
}

func TestProvisionerCurrentGrant(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := start.Add(2 * time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("principal"); got != "user:alice@example.com" {
			t.Errorf("principal = %q", got)
		}
		json.NewEncoder(w).Encode(Membership{
			Principal:  "user:alice@example.com",
			Grant:      "projects/prod:roles/viewer",
			StartTime:  start,
			ExpireTime: expiry,
		})
	}))
	defer srv.Close()

	p := NewProvisioner(testClient(srv))
	grant, err := p.CurrentGrant(context.Background(), domain.User("alice@example.com"),
		domain.RoleBindingID("projects/prod", "roles/viewer"))
	if err != nil {
		t.Fatalf("CurrentGrant: %v", err)
	}
	if grant == nil {
		t.Fatal("grant is nil")
	}
	if !grant.ExpiryTime.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", grant.ExpiryTime, expiry)
	}
}

func TestProvisionerCurrentGrantNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProvisioner(testClient(srv))
	grant, err := p.CurrentGrant(context.Background(), domain.User("alice@example.com"),
		domain.GroupMembershipID("oncall@example.com"))
	if err != nil {
		t.Fatalf("CurrentGrant: %v", err)
	}
	if grant != nil {
		t.Errorf("grant = %+v, want nil", grant)
	}
}

func TestResolverResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/principals/alice@example.com/groups" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string][]string{
			"groups": {"oncall@example.com", "eng@example.com"},
		})
	}))
	defer srv.Close()

	res := NewResolver(testClient(srv))
	subject, err := res.Resolve(context.Background(), domain.User("alice@example.com"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !subject.Principals.Contains(domain.Group("oncall@example.com")) {
		t.Error("subject is missing group oncall@example.com")
	}
	if !subject.Principals.Contains(domain.User("alice@example.com")) {
		t.Error("subject is missing its own user principal")
	}
}

func TestResolverUnknownUserResolvesToBareSubject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res := NewResolver(testClient(srv))
	subject, err := res.Resolve(context.Background(), domain.User("ghost@example.com"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(subject.Principals) != 1 {
		t.Errorf("principals = %v, want only the user", subject.Principals.Strings())
	}
}
