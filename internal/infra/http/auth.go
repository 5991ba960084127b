package http

import (
	"net/http"
	"strings"

	"warden/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	userHeader   = "X-Warden-User"
	groupsHeader = "X-Warden-Groups"
)

// requireSubject extracts the caller's identity from the proxy-injected
// headers. The proxy in front of the service authenticates the user; the
// service trusts the headers the same way the rest of the deployment does.
func (s *Server) requireSubject(c *gin.Context) (domain.Subject, bool) {
	user := strings.TrimSpace(c.GetHeader(userHeader))
	if user == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity header")
		return domain.Subject{}, false
	}
	principal, err := domain.ParsePrincipal("user:" + user)
	if err != nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid identity header")
		return domain.Subject{}, false
	}

	var groups []domain.Principal
	if raw := strings.TrimSpace(c.GetHeader(groupsHeader)); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			groups = append(groups, domain.Group(part))
		}
	}

	subject := domain.NewSubject(principal, groups...)
	if s.resolver != nil {
		resolved, err := s.resolver.Resolve(c.Request.Context(), principal)
		if err == nil {
			for p := range resolved.Principals {
				subject.Principals.Add(p)
			}
		}
	}
	return subject, true
}
