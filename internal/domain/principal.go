package domain

import (
	"fmt"
	"sort"
	"strings"
)

// PrincipalKind distinguishes the identity variants a policy can name.
type PrincipalKind int

const (
	PrincipalUnknown PrincipalKind = iota
	PrincipalUser
	PrincipalGroup
	PrincipalServiceAccount
	PrincipalDomain
)

func (k PrincipalKind) String() string {
	switch k {
	case PrincipalUser:
		return "user"
	case PrincipalGroup:
		return "group"
	case PrincipalServiceAccount:
		return "serviceAccount"
	case PrincipalDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Principal identifies a user, group, service account, or domain wildcard.
// Two principals are equal when their kind and normalized value match, so
// the type is safe to use as a map key.
type Principal struct {
	Kind  PrincipalKind
	Value string
}

func User(email string) Principal {
	return Principal{Kind: PrincipalUser, Value: normalizePrincipalValue(email)}
}

func Group(email string) Principal {
	return Principal{Kind: PrincipalGroup, Value: normalizePrincipalValue(email)}
}

func ServiceAccount(email string) Principal {
	return Principal{Kind: PrincipalServiceAccount, Value: normalizePrincipalValue(email)}
}

func Domain(name string) Principal {
	return Principal{Kind: PrincipalDomain, Value: normalizePrincipalValue(name)}
}

func normalizePrincipalValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func (p Principal) String() string {
	return p.Kind.String() + ":" + p.Value
}

func (p Principal) IsZero() bool {
	return p.Kind == PrincipalUnknown && p.Value == ""
}

// ParsePrincipal parses the "kind:value" form produced by String.
func ParsePrincipal(s string) (Principal, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return Principal{}, fmt.Errorf("malformed principal %q", s)
	}
	switch kind {
	case "user":
		return User(value), nil
	case "group":
		return Group(value), nil
	case "serviceAccount":
		return ServiceAccount(value), nil
	case "domain":
		return Domain(value), nil
	default:
		return Principal{}, fmt.Errorf("unknown principal kind %q", kind)
	}
}

// PrincipalSet is an unordered set of principals.
type PrincipalSet map[Principal]struct{}

func NewPrincipalSet(principals ...Principal) PrincipalSet {
	set := make(PrincipalSet, len(principals))
	for _, p := range principals {
		set[p] = struct{}{}
	}
	return set
}

func (s PrincipalSet) Add(p Principal) {
	s[p] = struct{}{}
}

func (s PrincipalSet) Contains(p Principal) bool {
	_, ok := s[p]
	return ok
}

func (s PrincipalSet) Clone() PrincipalSet {
	clone := make(PrincipalSet, len(s))
	for p := range s {
		clone[p] = struct{}{}
	}
	return clone
}

func (s PrincipalSet) Equal(other PrincipalSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// Sorted returns the members ordered by their string form.
func (s PrincipalSet) Sorted() []Principal {
	ordered := make([]Principal, 0, len(s))
	for p := range s {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})
	return ordered
}

func (s PrincipalSet) Strings() []string {
	ordered := s.Sorted()
	values := make([]string, len(ordered))
	for i, p := range ordered {
		values[i] = p.String()
	}
	return values
}

// Subject is a resolved requesting identity: the end user plus every
// principal it can act as (itself, its groups, its domain).
type Subject struct {
	User       Principal
	Principals PrincipalSet
}

func NewSubject(user Principal, memberships ...Principal) Subject {
	principals := NewPrincipalSet(user)
	for _, m := range memberships {
		principals.Add(m)
	}
	return Subject{User: user, Principals: principals}
}
