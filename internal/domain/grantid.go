package domain

import (
	"fmt"
	"strings"
)

// GrantKind tags the two grantable capability shapes: an IAM role binding
// on a resource, or membership in a group.
type GrantKind int

const (
	GrantRoleBinding GrantKind = iota
	GrantGroupMembership
)

// GrantID is the production privilege identifier: a tagged union over role
// bindings and group memberships. The zero value is not a valid id.
type GrantID struct {
	Kind     GrantKind
	Resource string
	Role     string
	Group    string
}

func RoleBindingID(resource, role string) GrantID {
	return GrantID{Kind: GrantRoleBinding, Resource: resource, Role: role}
}

func GroupMembershipID(group string) GrantID {
	return GrantID{Kind: GrantGroupMembership, Group: strings.ToLower(group)}
}

func (g GrantID) String() string {
	switch g.Kind {
	case GrantGroupMembership:
		return "group:" + g.Group
	default:
		return g.Resource + ":" + g.Role
	}
}

// ParseGrantID parses the form produced by String: "group:<email>" for
// memberships, "<resource>:<role>" for role bindings.
func ParseGrantID(s string) (GrantID, error) {
	if group, ok := strings.CutPrefix(s, "group:"); ok {
		if group == "" {
			return GrantID{}, fmt.Errorf("malformed grant id %q", s)
		}
		return GroupMembershipID(group), nil
	}
	resource, role, ok := strings.Cut(s, ":")
	if !ok || resource == "" || role == "" {
		return GrantID{}, fmt.Errorf("malformed grant id %q", s)
	}
	return RoleBindingID(resource, role), nil
}
