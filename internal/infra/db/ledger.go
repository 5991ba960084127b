package db

import (
	"context"
	"errors"
	"log"
	"time"

	"warden/internal/domain"
	"warden/internal/usecase"
)

// LedgerProvisioner layers a grant ledger over another provisioner. The
// inner provisioner performs the real side effect; the ledger keeps a row
// per principal and privilege so lapsed grants stay visible after the
// directory forgets them.
type LedgerProvisioner struct {
	inner  usecase.Provisioner[domain.GrantID]
	grants *GrantRepository
}

func NewLedgerProvisioner(inner usecase.Provisioner[domain.GrantID], grants *GrantRepository) *LedgerProvisioner {
	return &LedgerProvisioner{inner: inner, grants: grants}
}

func (p *LedgerProvisioner) Grant(ctx context.Context, principal domain.Principal, id domain.GrantID, start, expiry time.Time) error {
	if err := p.inner.Grant(ctx, principal, id, start, expiry); err != nil {
		return err
	}
	if err := p.grants.Upsert(ctx, principal.String(), id.String(), start, expiry); err != nil {
		if errors.Is(err, errDBUnavailable) {
			return nil
		}
		// The side effect landed but the ledger write did not; a retry of
		// the whole grant converges.
		return domain.ErrIncompleteOperation
	}
	return nil
}

func (p *LedgerProvisioner) Revoke(ctx context.Context, principal domain.Principal, id domain.GrantID) error {
	if err := p.inner.Revoke(ctx, principal, id); err != nil {
		return err
	}
	if err := p.grants.Delete(ctx, principal.String(), id.String()); err != nil && !errors.Is(err, errDBUnavailable) {
		return domain.ErrIncompleteOperation
	}
	return nil
}

func (p *LedgerProvisioner) CurrentGrant(ctx context.Context, principal domain.Principal, id domain.GrantID) (*domain.Grant[domain.GrantID], error) {
	model, err := p.grants.Get(ctx, principal.String(), id.String())
	if err != nil {
		if errors.Is(err, errDBUnavailable) {
			return p.inner.CurrentGrant(ctx, principal, id)
		}
		return nil, err
	}
	if model == nil {
		return nil, nil
	}
	return p.grants.toGrant(*model, principal, id), nil
}

// AuditSink persists activation lifecycle events. Emission is best-effort:
// with no database configured events are logged and dropped.
type AuditSink struct {
	events *AuditEventRepository
}

func NewAuditSink(events *AuditEventRepository) *AuditSink {
	return &AuditSink{events: events}
}

func (s *AuditSink) Emit(ctx context.Context, event domain.AuditEvent) error {
	_, err := s.events.Append(ctx, event)
	if errors.Is(err, errDBUnavailable) {
		log.Printf("audit (no db): %s activation=%s actor=%s privilege=%s",
			event.EventType, event.ActivationID, event.Actor, event.Privilege)
		return nil
	}
	return err
}
