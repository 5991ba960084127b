package directory

import (
	"context"
	"errors"
	"time"

	"warden/internal/domain"
)

// Provisioner fulfils grants by writing memberships to the directory.
// Grant is idempotent: re-granting the same privilege replaces the expiry,
// so a retried approval converges instead of failing.
type Provisioner struct {
	client *Client
}

func NewProvisioner(client *Client) *Provisioner {
	return &Provisioner{client: client}
}

func (p *Provisioner) Grant(ctx context.Context, principal domain.Principal, id domain.GrantID, start, expiry time.Time) error {
	err := p.client.UpsertMembership(ctx, Membership{
		Principal:  principal.String(),
		Grant:      id.String(),
		StartTime:  start,
		ExpireTime: expiry,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (p *Provisioner) Revoke(ctx context.Context, principal domain.Principal, id domain.GrantID) error {
	return p.client.DeleteMembership(ctx, principal.String(), id.String())
}

func (p *Provisioner) CurrentGrant(ctx context.Context, principal domain.Principal, id domain.GrantID) (*domain.Grant[domain.GrantID], error) {
	membership, err := p.client.GetMembership(ctx, principal.String(), id.String())
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, nil
	}
	return &domain.Grant[domain.GrantID]{
		Principal:  principal,
		Privilege:  id,
		StartTime:  membership.StartTime,
		ExpiryTime: membership.ExpireTime,
	}, nil
}

// Resolver looks up a user's transitive group memberships so policy
// evaluation sees the same principals the directory enforces.
type Resolver struct {
	client *Client
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) Resolve(ctx context.Context, user domain.Principal) (domain.Subject, error) {
	groups, err := r.client.Groups(ctx, user)
	if err != nil {
		return domain.Subject{}, err
	}
	return domain.NewSubject(user, groups...), nil
}
