// Package policydoc parses environment policy documents. Parsing is
// lint-tolerant: recoverable problems (unknown rights, excessive
// expiries, empty ACLs) degrade to warnings so one sloppy privilege does
// not take the whole environment offline.
package policydoc

import (
	"encoding/json"
	"fmt"
	"time"

	"warden/internal/domain"
)

const defaultMaxExpiry = 8 * time.Hour

type document struct {
	Environment string       `json:"environment"`
	Description string       `json:"description"`
	MaxExpiryM  int          `json:"maxExpiryMinutes"`
	Systems     []systemNode `json:"systems"`
}

type systemNode struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Groups      []groupNode `json:"groups"`
}

type groupNode struct {
	Name       string          `json:"name"`
	Privileges []privilegeNode `json:"privileges"`
}

type privilegeNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	ExpiryM  int          `json:"expiryMinutes"`
	Approval approvalNode `json:"approval"`
	ACL      []aclNode    `json:"acl"`
}

type approvalNode struct {
	Kind         string `json:"kind"`
	MinReviewers int    `json:"minReviewers"`
	MaxReviewers int    `json:"maxReviewers"`
}

type aclNode struct {
	Allow  string   `json:"allow,omitempty"`
	Deny   string   `json:"deny,omitempty"`
	Rights []string `json:"rights"`
}

// Parse decodes a policy document into an environment policy. Structural
// problems are errors; per-privilege problems become warnings and the
// privilege is skipped.
func Parse(raw []byte) (domain.EnvironmentPolicy[domain.GrantID], []string, error) {
	var zero domain.EnvironmentPolicy[domain.GrantID]
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return zero, nil, fmt.Errorf("decode policy document: %w", err)
	}
	if doc.Environment == "" {
		return zero, nil, fmt.Errorf("policy document is missing the environment name")
	}

	maxExpiry := defaultMaxExpiry
	if doc.MaxExpiryM > 0 {
		maxExpiry = time.Duration(doc.MaxExpiryM) * time.Minute
	}

	var warnings []string
	policy := domain.EnvironmentPolicy[domain.GrantID]{
		Name:        doc.Environment,
		Description: doc.Description,
		MaxExpiry:   maxExpiry,
	}

	seen := make(map[domain.GrantID]struct{})
	for _, systemNode := range doc.Systems {
		system := domain.PolicySystem[domain.GrantID]{
			Name:        systemNode.Name,
			Description: systemNode.Description,
		}
		for _, groupNode := range systemNode.Groups {
			group := domain.PolicyGroup[domain.GrantID]{Name: groupNode.Name}
			for _, node := range groupNode.Privileges {
				privilege, privWarnings, err := parsePrivilege(node, maxExpiry)
				warnings = append(warnings, privWarnings...)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("privilege %q skipped: %v", node.ID, err))
					continue
				}
				if _, dup := seen[privilege.ID]; dup {
					return zero, nil, fmt.Errorf("duplicate privilege id %s", privilege.ID)
				}
				seen[privilege.ID] = struct{}{}
				group.Privileges = append(group.Privileges, privilege)
			}
			system.Groups = append(system.Groups, group)
		}
		policy.Systems = append(policy.Systems, system)
	}
	return policy, warnings, nil
}

func parsePrivilege(node privilegeNode, maxExpiry time.Duration) (domain.Privilege[domain.GrantID], []string, error) {
	var zero domain.Privilege[domain.GrantID]
	var warnings []string

	id, err := domain.ParseGrantID(node.ID)
	if err != nil {
		return zero, nil, err
	}

	kind, err := domain.ParseApprovalKind(node.Approval.Kind)
	if err != nil {
		return zero, nil, err
	}
	approval := domain.ApprovalRequirement{
		Kind:         kind,
		MinReviewers: node.Approval.MinReviewers,
		MaxReviewers: node.Approval.MaxReviewers,
	}
	if kind != domain.ApprovalSelf && approval.MinReviewers < 1 {
		approval.MinReviewers = 1
	}

	expiry := time.Duration(node.ExpiryM) * time.Minute
	if expiry <= 0 {
		warnings = append(warnings, fmt.Sprintf("privilege %s: non-positive expiry, using environment maximum", id))
		expiry = maxExpiry
	}
	if expiry > maxExpiry {
		warnings = append(warnings, fmt.Sprintf("privilege %s: expiry %s clamped to environment maximum %s", id, expiry, maxExpiry))
		expiry = maxExpiry
	}

	builder := domain.NewACLBuilder()
	for _, entry := range node.ACL {
		rights, rightWarnings := parseRights(id, entry.Rights)
		warnings = append(warnings, rightWarnings...)
		if rights == 0 {
			continue
		}
		switch {
		case entry.Allow != "" && entry.Deny != "":
			return zero, nil, fmt.Errorf("acl entry names both allow and deny")
		case entry.Allow != "":
			principal, err := domain.ParsePrincipal(entry.Allow)
			if err != nil {
				return zero, nil, err
			}
			builder.Allow(principal, rights)
		case entry.Deny != "":
			principal, err := domain.ParsePrincipal(entry.Deny)
			if err != nil {
				return zero, nil, err
			}
			builder.Deny(principal, rights)
		default:
			return zero, nil, fmt.Errorf("acl entry names neither allow nor deny")
		}
	}

	acl := builder.Build()
	if acl.IsEmpty() {
		warnings = append(warnings, fmt.Sprintf("privilege %s: empty acl, nobody can request it", id))
	}

	name := node.Name
	if name == "" {
		name = id.String()
	}
	return domain.Privilege[domain.GrantID]{
		ID:       id,
		Name:     name,
		ACL:      acl,
		Expiry:   expiry,
		Approval: approval,
	}, warnings, nil
}

func parseRights(id domain.GrantID, names []string) (domain.AccessRights, []string) {
	var rights domain.AccessRights
	var warnings []string
	for _, name := range names {
		switch name {
		case "request":
			rights |= domain.RightRequest
		case "review":
			rights |= domain.RightReview
		default:
			warnings = append(warnings, fmt.Sprintf("privilege %s: unknown right %q ignored", id, name))
		}
	}
	return rights, warnings
}
