package domain

import "errors"

// AccessRights is a bitmask of rights a policy entry can grant or deny.
type AccessRights uint32

const (
	// RightRequest allows a principal to request activation of a privilege.
	RightRequest AccessRights = 1 << iota
	// RightReview allows a principal to approve another user's request.
	RightReview
)

func (r AccessRights) Intersects(other AccessRights) bool {
	return r&other != 0
}

func (r AccessRights) Contains(other AccessRights) bool {
	return r&other == other
}

type EntryKind int

const (
	EntryAllow EntryKind = iota
	EntryDeny
)

// Entry is one ordered rule of an ACL: an allow or deny of a rights mask
// for a single principal.
type Entry struct {
	Principal Principal
	Rights    AccessRights
	Kind      EntryKind
}

// ACL is an ordered allow/deny rule list. It is immutable once built and
// safe to share across goroutines.
type ACL struct {
	entries []Entry
}

var ErrEmptyRights = errors.New("required rights must not be empty")

func (a ACL) Entries() []Entry {
	entries := make([]Entry, len(a.entries))
	copy(entries, a.entries)
	return entries
}

func (a ACL) IsEmpty() bool {
	return len(a.entries) == 0
}

// IsAllowed evaluates the ACL for a combined subject: allow entries for any
// of the subject's principals accumulate, so a requester may satisfy the
// required mask with rights granted partly to its user identity and partly
// to groups it belongs to. A deny entry for any of the principals that
// intersects the required mask short-circuits to denial.
func (a ACL) IsAllowed(subject PrincipalSet, required AccessRights) (bool, error) {
	if required == 0 {
		return false, ErrEmptyRights
	}
	var accumulated AccessRights
	for _, entry := range a.entries {
		if !subject.Contains(entry.Principal) {
			continue
		}
		switch entry.Kind {
		case EntryDeny:
			if entry.Rights.Intersects(required) {
				return false, nil
			}
		case EntryAllow:
			accumulated |= entry.Rights
		}
	}
	return accumulated.Contains(required), nil
}

// AllowedPrincipals returns the principals that individually satisfy the
// required mask. Unlike IsAllowed, each principal is evaluated against its
// own entries only; rights are never combined across principals. This
// asymmetry is deliberate: subject checks combine, enumeration does not.
func (a ACL) AllowedPrincipals(required AccessRights) (PrincipalSet, error) {
	if required == 0 {
		return nil, ErrEmptyRights
	}
	accumulated := make(map[Principal]AccessRights)
	denied := make(map[Principal]struct{})
	for _, entry := range a.entries {
		if _, ok := denied[entry.Principal]; ok {
			continue
		}
		switch entry.Kind {
		case EntryDeny:
			if entry.Rights.Intersects(required) {
				denied[entry.Principal] = struct{}{}
				delete(accumulated, entry.Principal)
			}
		case EntryAllow:
			accumulated[entry.Principal] |= entry.Rights
		}
	}
	allowed := make(PrincipalSet)
	for principal, rights := range accumulated {
		if rights.Contains(required) {
			allowed.Add(principal)
		}
	}
	return allowed, nil
}

// ACLBuilder accumulates entries in order and produces an immutable ACL.
type ACLBuilder struct {
	entries []Entry
}

func NewACLBuilder() *ACLBuilder {
	return &ACLBuilder{}
}

func (b *ACLBuilder) Allow(principal Principal, rights AccessRights) *ACLBuilder {
	b.entries = append(b.entries, Entry{Principal: principal, Rights: rights, Kind: EntryAllow})
	return b
}

func (b *ACLBuilder) Deny(principal Principal, rights AccessRights) *ACLBuilder {
	b.entries = append(b.entries, Entry{Principal: principal, Rights: rights, Kind: EntryDeny})
	return b
}

func (b *ACLBuilder) Build() ACL {
	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)
	return ACL{entries: entries}
}
