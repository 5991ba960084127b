package domain

import "time"

const (
	AuditRequestCreated      = "activation.request.created"
	AuditRequestApproved     = "activation.request.approved"
	AuditRequestSelfApproved = "activation.request.self-approved"
)

// AuditEvent records one activation lifecycle transition.
type AuditEvent struct {
	EventType     string
	ActivationID  string
	Actor         string
	Privilege     string
	Environment   string
	Justification string
	StartTime     time.Time
	EndTime       time.Time
	CreatedAt     time.Time
}
