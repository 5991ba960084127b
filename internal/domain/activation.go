package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxStartTimeDrift is how far in the past a request's start time may lie
// at creation.
const MaxStartTimeDrift = time.Minute

// ActivationID uniquely identifies one activation request. The id is
// tagged with the activation kind so ids from different flows are never
// ambiguous.
type ActivationID struct {
	Kind ApprovalKind
	ID   string
}

func (id ActivationID) String() string {
	switch id.Kind {
	case ApprovalPeer:
		return "mpa-" + id.ID
	case ApprovalExternal:
		return "ext-" + id.ID
	default:
		return "jit-" + id.ID
	}
}

func ParseActivationID(s string) (ActivationID, error) {
	prefix, id, ok := strings.Cut(s, "-")
	if !ok || id == "" {
		return ActivationID{}, fmt.Errorf("malformed activation id %q", s)
	}
	switch prefix {
	case "jit":
		return ActivationID{Kind: ApprovalSelf, ID: id}, nil
	case "mpa":
		return ActivationID{Kind: ApprovalPeer, ID: id}, nil
	case "ext":
		return ActivationID{Kind: ApprovalExternal, ID: id}, nil
	default:
		return ActivationID{}, fmt.Errorf("unknown activation id prefix %q", prefix)
	}
}

// ActivationRequest is the workflow entity for elevating one privilege for
// a bounded time window. Once approved it becomes an immutable historical
// record.
type ActivationRequest[T PrivilegeID] struct {
	ID             ActivationID
	RequestingUser Principal
	Reviewers      PrincipalSet
	Privilege      T
	Justification  string
	StartTime      time.Time
	EndTime        time.Time
}

func (r ActivationRequest[T]) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Equal reports field-wise equality, the observable-equivalence relation
// the token round trip must preserve.
func (r ActivationRequest[T]) Equal(other ActivationRequest[T]) bool {
	return r.ID == other.ID &&
		r.RequestingUser == other.RequestingUser &&
		r.Reviewers.Equal(other.Reviewers) &&
		r.Privilege == other.Privilege &&
		r.Justification == other.Justification &&
		r.StartTime.Equal(other.StartTime) &&
		r.EndTime.Equal(other.EndTime)
}

// Activation is the approved, realized outcome of a request. Exactly one
// is produced per successful approval.
type Activation[T PrivilegeID] struct {
	request ActivationRequest[T]
}

func NewActivation[T PrivilegeID](request ActivationRequest[T]) Activation[T] {
	return Activation[T]{request: request}
}

func (a Activation[T]) Request() ActivationRequest[T] {
	return a.request
}

// ActivationToken is a signed, self-contained serialization of a pending
// request. The token is the durable state for multi-party requests; there
// is no server-side pending-request table.
type ActivationToken struct {
	Token      string
	ExpiryTime time.Time
}
