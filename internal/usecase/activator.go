package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"warden/internal/domain"
)

// Activator is the activation request state machine: it creates and
// validates requests, signs them into bearer tokens for multi-party
// approval, and finalizes approvals into activations.
type Activator[T domain.PrivilegeID] struct {
	catalog       *Catalog[T]
	provisioner   Provisioner[T]
	signer        TokenSigner[T]
	resolver      SubjectResolver
	justification domain.JustificationPolicy
	environment   string
	audit         AuditSink
	notifier      Notifier
	now           func() time.Time
}

type ActivatorConfig struct {
	// Environment names the policy environment, for audit records.
	Environment string
	Audit       AuditSink
	Notifier    Notifier
	Now         func() time.Time
}

func NewActivator[T domain.PrivilegeID](
	catalog *Catalog[T],
	provisioner Provisioner[T],
	signer TokenSigner[T],
	resolver SubjectResolver,
	justification domain.JustificationPolicy,
	cfg ActivatorConfig,
) *Activator[T] {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Activator[T]{
		catalog:       catalog,
		provisioner:   provisioner,
		signer:        signer,
		resolver:      resolver,
		justification: justification,
		environment:   cfg.Environment,
		audit:         cfg.Audit,
		notifier:      cfg.Notifier,
		now:           now,
	}
}

// CreateRequest validates the inputs against policy and constructs a new
// activation request. No side effect happens here beyond audit and
// notification emission; provisioning waits for approval.
func (a *Activator[T]) CreateRequest(
	ctx context.Context,
	subject domain.Subject,
	privilegeID T,
	reviewers domain.PrincipalSet,
	justification string,
	startTime time.Time,
	duration time.Duration,
) (domain.ActivationRequest[T], error) {
	var zero domain.ActivationRequest[T]
	now := a.now()

	if startTime.Before(now.Add(-domain.MaxStartTimeDrift)) {
		return zero, fmt.Errorf("%w: start time %s is in the past", domain.ErrInvalidRequest, startTime)
	}
	if duration <= 0 {
		return zero, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidRequest)
	}
	if err := a.justification.Check(subject.User, justification); err != nil {
		return zero, err
	}

	privilege, ok := a.catalog.Privilege(privilegeID)
	if !ok {
		return zero, fmt.Errorf("privilege %s: %w", privilegeID, domain.ErrNotFound)
	}
	if reviewers == nil {
		reviewers = domain.NewPrincipalSet()
	}

	// Times carry second precision on the wire; truncate up front so a
	// request equals its token round trip.
	startTime = startTime.UTC().Truncate(time.Second)
	request := domain.ActivationRequest[T]{
		ID:             domain.ActivationID{Kind: privilege.Approval.Kind, ID: uuid.NewString()},
		RequestingUser: subject.User,
		Reviewers:      reviewers,
		Privilege:      privilegeID,
		Justification:  justification,
		StartTime:      startTime,
		EndTime:        startTime.Add(duration.Truncate(time.Second)),
	}

	if err := a.catalog.VerifyUserCanRequest(ctx, subject, request); err != nil {
		return zero, err
	}

	a.emitAudit(ctx, domain.AuditRequestCreated, subject.User, request)
	if request.ID.Kind != domain.ApprovalSelf {
		a.notify(ctx, RequestCreatedNotification(request))
	}
	return request, nil
}

// SignRequest issues the bearer token that carries a pending multi-party
// request to its reviewers. Self-approval requests have no reviewers and
// therefore no token.
func (a *Activator[T]) SignRequest(ctx context.Context, request domain.ActivationRequest[T]) (domain.ActivationToken, error) {
	if request.ID.Kind == domain.ApprovalSelf {
		return domain.ActivationToken{}, fmt.Errorf("%w: self-approval requests are not signed", domain.ErrInvalidRequest)
	}
	return a.signer.Sign(ctx, request)
}

// VerifyToken reconstructs a pending request from its bearer token. Any
// signature or expiry failure surfaces as access denied.
func (a *Activator[T]) VerifyToken(ctx context.Context, token string) (domain.ActivationRequest[T], error) {
	return a.signer.Verify(ctx, token)
}

// Approve finalizes a request: it re-validates the justification and both
// sides' eligibility, provisions the grant, and returns the activation.
// Provisioning is idempotent, so a concurrent or repeated approval of the
// same request converges on the same grant state instead of erroring.
func (a *Activator[T]) Approve(ctx context.Context, approver domain.Subject, request domain.ActivationRequest[T]) (domain.Activation[T], error) {
	var zero domain.Activation[T]
	now := a.now()

	if !now.Before(request.EndTime) {
		return zero, domain.Denied("REQUEST_EXPIRED")
	}
	if err := a.catalog.VerifyUserCanApprove(approver.User, request); err != nil {
		return zero, err
	}
	// The justification policy may have changed since the request was
	// created; re-check it against the current policy.
	if err := a.justification.Check(request.RequestingUser, request.Justification); err != nil {
		return zero, err
	}

	requester, err := a.resolveRequester(ctx, request.RequestingUser)
	if err != nil {
		return zero, fmt.Errorf("resolve requester: %w", err)
	}
	if err := a.catalog.VerifyUserCanRequest(ctx, requester, request); err != nil {
		return zero, err
	}

	if err := a.provisioner.Grant(ctx, request.RequestingUser, request.Privilege, request.StartTime, request.EndTime); err != nil {
		return zero, fmt.Errorf("provision %s for %s: %w", request.Privilege, request.RequestingUser, err)
	}

	if request.ID.Kind == domain.ApprovalSelf {
		a.emitAudit(ctx, domain.AuditRequestSelfApproved, approver.User, request)
		a.notify(ctx, RequestSelfApprovedNotification(request))
	} else {
		a.emitAudit(ctx, domain.AuditRequestApproved, approver.User, request)
		a.notify(ctx, RequestApprovedNotification(request, approver.User))
	}
	return domain.NewActivation(request), nil
}

func (a *Activator[T]) resolveRequester(ctx context.Context, user domain.Principal) (domain.Subject, error) {
	if a.resolver == nil {
		return domain.NewSubject(user), nil
	}
	return a.resolver.Resolve(ctx, user)
}

func (a *Activator[T]) emitAudit(ctx context.Context, eventType string, actor domain.Principal, request domain.ActivationRequest[T]) {
	if a.audit == nil {
		return
	}
	event := domain.AuditEvent{
		EventType:     eventType,
		ActivationID:  request.ID.String(),
		Actor:         actor.String(),
		Privilege:     request.Privilege.String(),
		Environment:   a.environment,
		Justification: request.Justification,
		StartTime:     request.StartTime,
		EndTime:       request.EndTime,
		CreatedAt:     a.now(),
	}
	// Best effort: a failing sink must not fail the activation flow.
	_ = a.audit.Emit(ctx, event)
}

func (a *Activator[T]) notify(ctx context.Context, notification domain.Notification) {
	if a.notifier == nil {
		return
	}
	_ = a.notifier.Send(ctx, notification)
}
