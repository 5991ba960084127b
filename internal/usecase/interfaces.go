package usecase

import (
	"context"
	"time"

	"warden/internal/domain"
)

// Provisioner performs the grant/revoke side effect against the underlying
// identity or resource system. Implementations must be idempotent: granting
// an already-present grant updates its expiry (last writer wins), revoking
// an absent grant is not an error.
type Provisioner[T domain.PrivilegeID] interface {
	Grant(ctx context.Context, principal domain.Principal, id T, start, expiry time.Time) error
	Revoke(ctx context.Context, principal domain.Principal, id T) error
	// CurrentGrant returns the principal's grant for the id, including a
	// lapsed one if the backing store still records it, or nil when the
	// principal never held the grant.
	CurrentGrant(ctx context.Context, principal domain.Principal, id T) (*domain.Grant[T], error)
}

// TokenSigner serializes activation requests into signed, self-contained
// bearer tokens and verifies them back. Verification fails closed: any
// signature or expiry problem yields an access-denied error, never a
// request.
type TokenSigner[T domain.PrivilegeID] interface {
	Sign(ctx context.Context, request domain.ActivationRequest[T]) (domain.ActivationToken, error)
	Verify(ctx context.Context, token string) (domain.ActivationRequest[T], error)
}

// SubjectResolver expands a user into the full principal set it can act as
// (the user itself, its groups, its domain).
type SubjectResolver interface {
	Resolve(ctx context.Context, user domain.Principal) (domain.Subject, error)
}

// AuditSink records activation lifecycle events. Emission is best-effort;
// a failing sink must not fail the activation.
type AuditSink interface {
	Emit(ctx context.Context, event domain.AuditEvent) error
}

// Notifier delivers notification payloads built by the core. Delivery
// mechanics (mail, chat) live outside the core.
type Notifier interface {
	Send(ctx context.Context, notification domain.Notification) error
}
