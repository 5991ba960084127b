package domain

import (
	"fmt"
	"sort"
	"time"
)

// PrivilegeStatus is the state of a privilege as seen by one requester.
type PrivilegeStatus int

const (
	StatusInactive PrivilegeStatus = iota
	StatusActive
	StatusExpired
	StatusActivationPending
)

func (s PrivilegeStatus) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	case StatusActivationPending:
		return "activation-pending"
	default:
		return "unknown"
	}
}

// TimeSpan is a half-open validity window.
type TimeSpan struct {
	Start time.Time
	End   time.Time
}

// RequesterPrivilege is a point-in-time view of a privilege for a specific
// requesting subject. Fields are unexported so the status/validity
// invariants hold for every constructed value.
type RequesterPrivilege[T PrivilegeID] struct {
	id             T
	name           string
	activationKind ApprovalKind
	status         PrivilegeStatus
	validity       *TimeSpan
}

// NewRequesterPrivilege constructs a view and enforces the invariants:
// validity is present iff the status is active or expired; an active
// privilege ends strictly in the future and an expired one strictly in
// the past, both relative to now.
func NewRequesterPrivilege[T PrivilegeID](
	id T,
	name string,
	activationKind ApprovalKind,
	status PrivilegeStatus,
	validity *TimeSpan,
	now time.Time,
) (RequesterPrivilege[T], error) {
	var zero RequesterPrivilege[T]
	switch status {
	case StatusActive, StatusExpired:
		if validity == nil {
			return zero, fmt.Errorf("privilege %s: status %s requires a validity span", id, status)
		}
	default:
		if validity != nil {
			return zero, fmt.Errorf("privilege %s: status %s must not carry a validity span", id, status)
		}
	}
	if status == StatusActive && !validity.End.After(now) {
		return zero, fmt.Errorf("privilege %s: active but validity ended at %s", id, validity.End)
	}
	if status == StatusExpired && !validity.End.Before(now) {
		return zero, fmt.Errorf("privilege %s: expired but validity ends at %s", id, validity.End)
	}
	return RequesterPrivilege[T]{
		id:             id,
		name:           name,
		activationKind: activationKind,
		status:         status,
		validity:       validity,
	}, nil
}

func (p RequesterPrivilege[T]) ID() T                        { return p.id }
func (p RequesterPrivilege[T]) Name() string                 { return p.name }
func (p RequesterPrivilege[T]) ActivationKind() ApprovalKind { return p.activationKind }
func (p RequesterPrivilege[T]) Status() PrivilegeStatus      { return p.status }

func (p RequesterPrivilege[T]) Validity() *TimeSpan {
	if p.validity == nil {
		return nil
	}
	span := *p.validity
	return &span
}

// SortRequesterPrivileges orders a listing deterministically: by status,
// then activation kind name, then id, then validity start with nil last.
func SortRequesterPrivileges[T PrivilegeID](privileges []RequesterPrivilege[T]) {
	sort.SliceStable(privileges, func(i, j int) bool {
		a, b := privileges[i], privileges[j]
		if a.status != b.status {
			return a.status < b.status
		}
		if ak, bk := a.activationKind.String(), b.activationKind.String(); ak != bk {
			return ak < bk
		}
		if ai, bi := a.id.String(), b.id.String(); ai != bi {
			return ai < bi
		}
		switch {
		case a.validity == nil && b.validity == nil:
			return false
		case a.validity == nil:
			return false
		case b.validity == nil:
			return true
		default:
			return a.validity.Start.Before(b.validity.Start)
		}
	})
}
