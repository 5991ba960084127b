package usecase

import (
	"context"
	"fmt"
	"time"

	"warden/internal/domain"
)

// Catalog computes the requester-privilege view of one environment policy
// for a resolved subject, and answers the authorization questions the
// activation workflow asks.
type Catalog[T domain.PrivilegeID] struct {
	policy      domain.EnvironmentPolicy[T]
	provisioner Provisioner[T]
	now         func() time.Time
}

func NewCatalog[T domain.PrivilegeID](
	policy domain.EnvironmentPolicy[T],
	provisioner Provisioner[T],
	now func() time.Time,
) *Catalog[T] {
	if now == nil {
		now = time.Now
	}
	return &Catalog[T]{policy: policy, provisioner: provisioner, now: now}
}

func (c *Catalog[T]) Policy() domain.EnvironmentPolicy[T] {
	return c.policy
}

func (c *Catalog[T]) Privilege(id T) (domain.Privilege[T], bool) {
	return c.policy.Privilege(id)
}

// PrivilegeListing is the partial-failure-tolerant result of a listing:
// privileges whose live state could not be determined are omitted and
// reported as warnings. Callers must check warnings even on success.
type PrivilegeListing[T domain.PrivilegeID] struct {
	Available []domain.RequesterPrivilege[T]
	Warnings  []string
}

// ListRequesterPrivileges returns every privilege the subject may request,
// with its current status for that subject. A failure to fetch live grant
// state for one privilege degrades to a warning instead of aborting the
// listing.
func (c *Catalog[T]) ListRequesterPrivileges(ctx context.Context, subject domain.Subject) (PrivilegeListing[T], error) {
	var listing PrivilegeListing[T]
	now := c.now()

	for _, privilege := range c.policy.Privileges() {
		allowed, err := privilege.ACL.IsAllowed(subject.Principals, domain.RightRequest)
		if err != nil {
			return PrivilegeListing[T]{}, fmt.Errorf("evaluate acl of %s: %w", privilege.ID, err)
		}
		if !allowed {
			continue
		}

		status := domain.StatusInactive
		var validity *domain.TimeSpan
		grant, err := c.provisioner.CurrentGrant(ctx, subject.User, privilege.ID)
		if err != nil {
			listing.Warnings = append(listing.Warnings, fmt.Sprintf("privilege %s: %v", privilege.ID, err))
			continue
		}
		if grant != nil {
			validity = &domain.TimeSpan{Start: grant.StartTime, End: grant.ExpiryTime}
			if grant.ExpiryTime.After(now) {
				status = domain.StatusActive
			} else {
				status = domain.StatusExpired
			}
		}

		view, err := domain.NewRequesterPrivilege(privilege.ID, privilege.Name, privilege.Approval.Kind, status, validity, now)
		if err != nil {
			listing.Warnings = append(listing.Warnings, fmt.Sprintf("privilege %s: %v", privilege.ID, err))
			continue
		}
		listing.Available = append(listing.Available, view)
	}

	domain.SortRequesterPrivileges(listing.Available)
	return listing, nil
}

// ListReviewers returns the principals holding the review right on the
// privilege's ACL. The subject itself is never included.
func (c *Catalog[T]) ListReviewers(subject domain.Subject, id T) (domain.PrincipalSet, error) {
	privilege, ok := c.policy.Privilege(id)
	if !ok {
		return nil, fmt.Errorf("privilege %s: %w", id, domain.ErrNotFound)
	}
	if privilege.Approval.Kind == domain.ApprovalSelf {
		return domain.NewPrincipalSet(), nil
	}
	reviewers, err := privilege.ACL.AllowedPrincipals(domain.RightReview)
	if err != nil {
		return nil, fmt.Errorf("enumerate reviewers of %s: %w", id, err)
	}
	delete(reviewers, subject.User)
	return reviewers, nil
}

// VerifyUserCanRequest checks that the requesting subject may hold the
// request described by req. It runs at creation and again at approval so
// eligibility changes in between are enforced.
func (c *Catalog[T]) VerifyUserCanRequest(ctx context.Context, subject domain.Subject, req domain.ActivationRequest[T]) error {
	privilege, ok := c.policy.Privilege(req.Privilege)
	if !ok {
		return fmt.Errorf("privilege %s: %w", req.Privilege, domain.ErrNotFound)
	}

	allowed, err := privilege.ACL.IsAllowed(subject.Principals, domain.RightRequest)
	if err != nil {
		return fmt.Errorf("evaluate acl of %s: %w", req.Privilege, err)
	}
	if !allowed {
		return domain.Denied("REQUEST_RIGHT_MISSING")
	}
	if privilege.Approval.Kind != req.ID.Kind {
		return domain.Denied("ACTIVATION_TYPE_MISMATCH")
	}
	if req.Duration() <= 0 {
		return fmt.Errorf("%w: activation window is empty", domain.ErrInvalidRequest)
	}
	if privilege.Expiry > 0 && req.Duration() > privilege.Expiry {
		return fmt.Errorf("%w: duration %s exceeds the privilege maximum %s",
			domain.ErrInvalidRequest, req.Duration(), privilege.Expiry)
	}

	switch privilege.Approval.Kind {
	case domain.ApprovalSelf:
		if len(req.Reviewers) != 0 {
			return fmt.Errorf("%w: self-approval requests must not name reviewers", domain.ErrInvalidRequest)
		}
	default:
		if req.Reviewers.Contains(req.RequestingUser) {
			return fmt.Errorf("%w: the requesting user cannot review its own request", domain.ErrInvalidRequest)
		}
		if n := len(req.Reviewers); n < privilege.Approval.MinReviewers {
			return fmt.Errorf("%w: at least %d reviewers required, got %d",
				domain.ErrInvalidRequest, privilege.Approval.MinReviewers, n)
		}
		if n := len(req.Reviewers); privilege.Approval.MaxReviewers > 0 && n > privilege.Approval.MaxReviewers {
			return fmt.Errorf("%w: at most %d reviewers allowed, got %d",
				domain.ErrInvalidRequest, privilege.Approval.MaxReviewers, n)
		}
	}
	return nil
}

// VerifyUserCanApprove checks that the approving principal may approve the
// request: a declared reviewer, or the requester itself for self-approval.
func (c *Catalog[T]) VerifyUserCanApprove(approver domain.Principal, req domain.ActivationRequest[T]) error {
	if req.ID.Kind == domain.ApprovalSelf {
		if approver != req.RequestingUser {
			return domain.Denied("SELF_APPROVAL_BY_OTHER_USER")
		}
		return nil
	}
	if !req.Reviewers.Contains(approver) {
		return domain.Denied("NOT_A_REVIEWER")
	}
	return nil
}
