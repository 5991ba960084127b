package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"warden/internal/domain"
	"warden/internal/infra/token"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type privilegeResponse struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	ActivationKind string        `json:"activation_kind"`
	Status         string        `json:"status"`
	Validity       *spanResponse `json:"validity,omitempty"`
}

type spanResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type listPrivilegesResponse struct {
	Environment string              `json:"environment"`
	Privileges  []privilegeResponse `json:"privileges"`
	Warnings    []string            `json:"warnings,omitempty"`
}

type createRequestBody struct {
	Privilege       string   `json:"privilege"`
	Reviewers       []string `json:"reviewers,omitempty"`
	Justification   string   `json:"justification"`
	StartTime       string   `json:"start_time,omitempty"`
	DurationMinutes int      `json:"duration_minutes"`
}

type requestResponse struct {
	ActivationID  string   `json:"activation_id"`
	Status        string   `json:"status"`
	Privilege     string   `json:"privilege"`
	Requester     string   `json:"requester"`
	Reviewers     []string `json:"reviewers,omitempty"`
	Justification string   `json:"justification"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	Token         string   `json:"token,omitempty"`
	TokenExpiry   string   `json:"token_expiry,omitempty"`
}

type approveRequestBody struct {
	Token string `json:"token"`
}

type auditEventResponse struct {
	EventType     string `json:"event_type"`
	ActivationID  string `json:"activation_id"`
	Actor         string `json:"actor"`
	Privilege     string `json:"privilege"`
	Justification string `json:"justification"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	CreatedAt     string `json:"created_at"`
}

func (s *Server) handleHealth(c *gin.Context) {
	dbMode := "no-db"
	if s.store != nil && s.store.Available() {
		dbMode = "db"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
}

func (s *Server) handleListEnvironments(c *gin.Context) {
	if _, ok := s.requireSubject(c); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"environments": s.environments.Names()})
}

func (s *Server) handleListPrivileges(c *gin.Context) {
	subject, ok := s.requireSubject(c)
	if !ok {
		return
	}
	env := c.Param("env")
	catalog, _, ok := s.catalogFor(c, env)
	if !ok {
		return
	}
	listing, err := catalog.ListRequesterPrivileges(c.Request.Context(), subject)
	if err != nil {
		writeError(c, err)
		return
	}
	out := listPrivilegesResponse{
		Environment: env,
		Privileges:  make([]privilegeResponse, 0, len(listing.Available)),
		Warnings:    listing.Warnings,
	}
	for _, p := range listing.Available {
		resp := privilegeResponse{
			ID:             p.ID().String(),
			Name:           p.Name(),
			ActivationKind: p.ActivationKind().String(),
			Status:         p.Status().String(),
		}
		if span := p.Validity(); span != nil {
			resp.Validity = &spanResponse{
				Start: span.Start.UTC().Format(time.RFC3339),
				End:   span.End.UTC().Format(time.RFC3339),
			}
		}
		out.Privileges = append(out.Privileges, resp)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListReviewers(c *gin.Context) {
	subject, ok := s.requireSubject(c)
	if !ok {
		return
	}
	catalog, _, ok := s.catalogFor(c, c.Param("env"))
	if !ok {
		return
	}
	id, err := domain.ParseGrantID(c.Query("privilege"))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PRIVILEGE", "invalid privilege id")
		return
	}
	reviewers, err := catalog.ListReviewers(subject, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewers": reviewers.Strings()})
}

func (s *Server) handleCreateRequest(c *gin.Context) {
	subject, ok := s.requireSubject(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, subject) {
		return
	}
	env := c.Param("env")
	catalog, entry, ok := s.catalogFor(c, env)
	if !ok {
		return
	}

	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	id, err := domain.ParseGrantID(body.Privilege)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PRIVILEGE", "invalid privilege id")
		return
	}
	reviewers := domain.NewPrincipalSet()
	for _, raw := range body.Reviewers {
		principal, err := parseReviewer(raw)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_REVIEWER", "invalid reviewer "+raw)
			return
		}
		reviewers.Add(principal)
	}
	startTime := s.now()
	if body.StartTime != "" {
		startTime, err = time.Parse(time.RFC3339, body.StartTime)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_START_TIME", "start_time must be RFC 3339")
			return
		}
	}

	activator := s.activatorFor(catalog, entry, env)
	request, err := activator.CreateRequest(
		c.Request.Context(),
		subject,
		id,
		reviewers,
		body.Justification,
		startTime,
		time.Duration(body.DurationMinutes)*time.Minute,
	)
	if err != nil {
		writeError(c, err)
		return
	}

	if request.ID.Kind == domain.ApprovalSelf {
		activation, err := activator.Approve(c.Request.Context(), subject, request)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, buildRequestResponse(activation.Request(), "active"))
		return
	}

	signed, err := activator.SignRequest(c.Request.Context(), request)
	if err != nil {
		writeError(c, err)
		return
	}
	out := buildRequestResponse(request, "pending")
	out.Token = token.Obfuscate(signed.Token)
	out.TokenExpiry = signed.ExpiryTime.UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleInspectRequest(c *gin.Context) {
	if _, ok := s.requireSubject(c); !ok {
		return
	}
	catalog, entry, ok := s.catalogFor(c, c.Param("env"))
	if !ok {
		return
	}
	raw := c.Query("token")
	if raw == "" {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_TOKEN", "token is required")
		return
	}
	activator := s.activatorFor(catalog, entry, c.Param("env"))
	request, err := activator.VerifyToken(c.Request.Context(), token.Deobfuscate(raw))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildRequestResponse(request, "pending"))
}

func (s *Server) handleApproveRequest(c *gin.Context) {
	subject, ok := s.requireSubject(c)
	if !ok {
		return
	}
	env := c.Param("env")
	catalog, entry, ok := s.catalogFor(c, env)
	if !ok {
		return
	}
	var body approveRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if body.Token == "" {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_TOKEN", "token is required")
		return
	}

	activator := s.activatorFor(catalog, entry, env)
	request, err := activator.VerifyToken(c.Request.Context(), token.Deobfuscate(body.Token))
	if err != nil {
		writeError(c, err)
		return
	}
	activation, err := activator.Approve(c.Request.Context(), subject, request)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildRequestResponse(activation.Request(), "active"))
}

func (s *Server) handleListAudit(c *gin.Context) {
	if _, ok := s.requireSubject(c); !ok {
		return
	}
	if s.store == nil || !s.store.Available() {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "audit trail requires a database")
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	events, err := s.store.AuditEvents.ListByEnvironment(c.Request.Context(), c.Param("env"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, auditEventResponse{
			EventType:     event.EventType,
			ActivationID:  event.ActivationID,
			Actor:         event.Actor,
			Privilege:     event.Privilege,
			Justification: event.Justification,
			StartTime:     event.StartTime.UTC().Format(time.RFC3339),
			EndTime:       event.EndTime.UTC().Format(time.RFC3339),
			CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func buildRequestResponse(request domain.ActivationRequest[domain.GrantID], status string) requestResponse {
	return requestResponse{
		ActivationID:  request.ID.String(),
		Status:        status,
		Privilege:     request.Privilege.String(),
		Requester:     request.RequestingUser.String(),
		Reviewers:     request.Reviewers.Strings(),
		Justification: request.Justification,
		StartTime:     request.StartTime.UTC().Format(time.RFC3339),
		EndTime:       request.EndTime.UTC().Format(time.RFC3339),
	}
}

// parseReviewer accepts either a full principal like "user:bob@example.com"
// or a bare email, which defaults to a user principal.
func parseReviewer(raw string) (domain.Principal, error) {
	if principal, err := domain.ParsePrincipal(raw); err == nil {
		return principal, nil
	}
	return domain.ParsePrincipal("user:" + raw)
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidJustification):
		status, code = http.StatusBadRequest, "INVALID_JUSTIFICATION"
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, domain.ErrAccessDenied):
		status, code = http.StatusForbidden, "ACCESS_DENIED"
		if denied, ok := domain.IsDeniedError(err); ok {
			code = denied.Code
		}
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, code = http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrIncompleteOperation):
		status, code = http.StatusBadGateway, "INCOMPLETE_OPERATION"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
	c.Abort()
}
