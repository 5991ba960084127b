package domain

import (
	"fmt"
	"time"
)

// PrivilegeID constrains the identifier type the activation workflow is
// parameterized over. Identifiers must be comparable and carry a stable
// string form for tokens and logging.
type PrivilegeID interface {
	comparable
	fmt.Stringer
}

// ApprovalKind is the closed set of activation types a privilege can require.
type ApprovalKind int

const (
	ApprovalSelf ApprovalKind = iota
	ApprovalPeer
	ApprovalExternal
)

func (k ApprovalKind) String() string {
	switch k {
	case ApprovalSelf:
		return "self"
	case ApprovalPeer:
		return "peer"
	case ApprovalExternal:
		return "external"
	default:
		return "unknown"
	}
}

func ParseApprovalKind(s string) (ApprovalKind, error) {
	switch s {
	case "self":
		return ApprovalSelf, nil
	case "peer":
		return ApprovalPeer, nil
	case "external":
		return ApprovalExternal, nil
	default:
		return 0, fmt.Errorf("unknown approval kind %q", s)
	}
}

// ApprovalRequirement describes who must approve an activation. Reviewer
// bounds apply to peer and external approval only.
type ApprovalRequirement struct {
	Kind         ApprovalKind
	MinReviewers int
	MaxReviewers int
}

func SelfApproval() ApprovalRequirement {
	return ApprovalRequirement{Kind: ApprovalSelf}
}

func PeerApproval(minReviewers, maxReviewers int) ApprovalRequirement {
	return ApprovalRequirement{Kind: ApprovalPeer, MinReviewers: minReviewers, MaxReviewers: maxReviewers}
}

func ExternalApproval(minReviewers, maxReviewers int) ApprovalRequirement {
	return ApprovalRequirement{Kind: ApprovalExternal, MinReviewers: minReviewers, MaxReviewers: maxReviewers}
}

// Privilege is a policy-defined grantable capability.
type Privilege[T PrivilegeID] struct {
	ID       T
	Name     string
	ACL      ACL
	Expiry   time.Duration
	Approval ApprovalRequirement
}

type PolicyGroup[T PrivilegeID] struct {
	Name       string
	Privileges []Privilege[T]
}

type PolicySystem[T PrivilegeID] struct {
	Name        string
	Description string
	Groups      []PolicyGroup[T]
}

// EnvironmentPolicy is the parsed access policy of one environment. It is
// immutable after parsing and shared across concurrent requests without
// locking.
type EnvironmentPolicy[T PrivilegeID] struct {
	Name        string
	Description string
	MaxExpiry   time.Duration
	Systems     []PolicySystem[T]
}

// Privileges flattens the policy tree in document order.
func (p EnvironmentPolicy[T]) Privileges() []Privilege[T] {
	var privileges []Privilege[T]
	for _, system := range p.Systems {
		for _, group := range system.Groups {
			privileges = append(privileges, group.Privileges...)
		}
	}
	return privileges
}

func (p EnvironmentPolicy[T]) Privilege(id T) (Privilege[T], bool) {
	for _, system := range p.Systems {
		for _, group := range system.Groups {
			for _, privilege := range group.Privileges {
				if privilege.ID == id {
					return privilege, true
				}
			}
		}
	}
	var zero Privilege[T]
	return zero, false
}

// Grant is a live, time-bounded membership or binding held by a principal.
type Grant[T PrivilegeID] struct {
	Principal  Principal
	Privilege  T
	StartTime  time.Time
	ExpiryTime time.Time
}
