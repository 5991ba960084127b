package domain

import (
	"fmt"
	"regexp"
)

// JustificationPolicy validates the free-text justification attached to an
// activation request. The pattern and hint are deployment configuration.
type JustificationPolicy struct {
	pattern *regexp.Regexp
	hint    string
}

func NewJustificationPolicy(pattern, hint string) (JustificationPolicy, error) {
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return JustificationPolicy{}, fmt.Errorf("compile justification pattern: %w", err)
	}
	return JustificationPolicy{pattern: re, hint: hint}, nil
}

func (p JustificationPolicy) Hint() string {
	return p.hint
}

// Check validates the justification. It runs both at request creation and
// again at approval time so a policy change between the two is enforced.
func (p JustificationPolicy) Check(user Principal, justification string) error {
	if p.pattern == nil {
		return nil
	}
	if !p.pattern.MatchString(justification) {
		if p.hint != "" {
			return fmt.Errorf("%w: %s", ErrInvalidJustification, p.hint)
		}
		return fmt.Errorf("%w: justification does not match the required format", ErrInvalidJustification)
	}
	return nil
}
