package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"warden/internal/domain"
)

type fakeInner struct {
	grants   map[string]domain.Grant[domain.GrantID]
	grantErr error
}

func newFakeInner() *fakeInner {
	return &fakeInner{grants: map[string]domain.Grant[domain.GrantID]{}}
}

func (f *fakeInner) key(principal domain.Principal, id domain.GrantID) string {
	return principal.String() + "|" + id.String()
}

func (f *fakeInner) Grant(ctx context.Context, principal domain.Principal, id domain.GrantID, start, expiry time.Time) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grants[f.key(principal, id)] = domain.Grant[domain.GrantID]{
		Principal:  principal,
		Privilege:  id,
		StartTime:  start,
		ExpiryTime: expiry,
	}
	return nil
}

func (f *fakeInner) Revoke(ctx context.Context, principal domain.Principal, id domain.GrantID) error {
	delete(f.grants, f.key(principal, id))
	return nil
}

func (f *fakeInner) CurrentGrant(ctx context.Context, principal domain.Principal, id domain.GrantID) (*domain.Grant[domain.GrantID], error) {
	grant, ok := f.grants[f.key(principal, id)]
	if !ok {
		return nil, nil
	}
	return &grant, nil
}

func TestLedgerProvisionerNoDBDelegatesToInner(t *testing.T) {
	inner := newFakeInner()
	store := newStore(nil)
	ledger := NewLedgerProvisioner(inner, store.Grants)

	alice := domain.User("alice@example.com")
	id := domain.RoleBindingID("projects/prod", "roles/viewer")
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expiry := start.Add(time.Hour)

	if err := ledger.Grant(context.Background(), alice, id, start, expiry); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	grant, err := ledger.CurrentGrant(context.Background(), alice, id)
	if err != nil {
		t.Fatalf("CurrentGrant: %v", err)
	}
	if grant == nil || !grant.ExpiryTime.Equal(expiry) {
		t.Fatalf("grant = %+v, want expiry %v", grant, expiry)
	}
	if err := ledger.Revoke(context.Background(), alice, id); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	grant, err = ledger.CurrentGrant(context.Background(), alice, id)
	if err != nil {
		t.Fatalf("CurrentGrant after revoke: %v", err)
	}
	if grant != nil {
		t.Fatalf("grant = %+v, want nil", grant)
	}
}

func TestLedgerProvisionerInnerFailureAborts(t *testing.T) {
	inner := newFakeInner()
	inner.grantErr = errors.New("directory down")
	ledger := NewLedgerProvisioner(inner, NewGrantRepository(nil))

	err := ledger.Grant(context.Background(), domain.User("alice@example.com"),
		domain.GroupMembershipID("oncall@example.com"),
		time.Now(), time.Now().Add(time.Hour))
	if err == nil {
		t.Fatal("expected error when inner provisioner fails")
	}
}

func TestAuditSinkNoDBDropsEvent(t *testing.T) {
	sink := NewAuditSink(NewAuditEventRepository(nil))
	err := sink.Emit(context.Background(), domain.AuditEvent{
		EventType:    domain.AuditRequestCreated,
		ActivationID: "jit-1",
		Actor:        "user:alice@example.com",
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
}
