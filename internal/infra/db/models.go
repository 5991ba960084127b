package db

import "time"

type AuditEventModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	EventType     string    `gorm:"index;not null"`
	ActivationID  string    `gorm:"index;not null"`
	Actor         string    `gorm:"index;not null"`
	Privilege     string    `gorm:"not null"`
	Environment   string    `gorm:"index;not null"`
	Justification string    `gorm:"not null"`
	StartTime     time.Time `gorm:"not null"`
	EndTime       time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"index;not null"`
}

func (AuditEventModel) TableName() string { return "audit_events" }

type GrantModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	Principal  string    `gorm:"uniqueIndex:idx_grants_principal_privilege;not null"`
	Privilege  string    `gorm:"uniqueIndex:idx_grants_principal_privilege;not null"`
	StartTime  time.Time `gorm:"not null"`
	ExpiryTime time.Time `gorm:"index;not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (GrantModel) TableName() string { return "grants" }
