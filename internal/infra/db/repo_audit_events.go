package db

import (
	"context"
	"errors"
	"time"

	"warden/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r.db == nil {
		return domain.AuditEvent{}, errDBUnavailable
	}
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	event.CreatedAt = event.CreatedAt.Truncate(time.Microsecond)

	model := auditEventModelFromDomain(uuid.NewString(), event)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEvent{}, err
	}
	return event, nil
}

func (r *AuditEventRepository) ListByActivation(ctx context.Context, activationID string) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditEventModel
	if err := r.db.WithContext(ctx).
		Where("activation_id = ?", activationID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		out = append(out, auditEventFromModel(model))
	}
	return out, nil
}

func (r *AuditEventRepository) ListByEnvironment(ctx context.Context, environment string, limit int) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []AuditEventModel
	if err := r.db.WithContext(ctx).
		Where("environment = ?", environment).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		out = append(out, auditEventFromModel(model))
	}
	return out, nil
}

func auditEventModelFromDomain(id string, event domain.AuditEvent) AuditEventModel {
	return AuditEventModel{
		ID:            id,
		EventType:     event.EventType,
		ActivationID:  event.ActivationID,
		Actor:         event.Actor,
		Privilege:     event.Privilege,
		Environment:   event.Environment,
		Justification: event.Justification,
		StartTime:     event.StartTime.UTC(),
		EndTime:       event.EndTime.UTC(),
		CreatedAt:     event.CreatedAt,
	}
}

func auditEventFromModel(model AuditEventModel) domain.AuditEvent {
	return domain.AuditEvent{
		EventType:     model.EventType,
		ActivationID:  model.ActivationID,
		Actor:         model.Actor,
		Privilege:     model.Privilege,
		Environment:   model.Environment,
		Justification: model.Justification,
		StartTime:     model.StartTime.UTC(),
		EndTime:       model.EndTime.UTC(),
		CreatedAt:     model.CreatedAt.UTC(),
	}
}
