package db

import (
	"context"
	"errors"
	"time"

	"warden/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Upsert records a grant, replacing the window of an existing row for the
// same principal and privilege. Last writer wins on the expiry.
func (r *GrantRepository) Upsert(ctx context.Context, principal, privilege string, start, expiry time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := GrantModel{
		ID:         uuid.NewString(),
		Principal:  principal,
		Privilege:  privilege,
		StartTime:  start.UTC(),
		ExpiryTime: expiry.UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}, {Name: "privilege"}},
		DoUpdates: clause.AssignmentColumns([]string{"start_time", "expiry_time", "updated_at"}),
	}).Create(&model).Error
}

// Delete removes a grant row. Deleting an absent row is not an error.
func (r *GrantRepository) Delete(ctx context.Context, principal, privilege string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).
		Where("principal = ? AND privilege = ?", principal, privilege).
		Delete(&GrantModel{}).Error
}

// Get returns the grant row for the pair, nil when none was ever recorded.
// Lapsed grants stay in the ledger so callers can distinguish expired from
// never-held.
func (r *GrantRepository) Get(ctx context.Context, principal, privilege string) (*GrantModel, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model GrantModel
	err := r.db.WithContext(ctx).
		Where("principal = ? AND privilege = ?", principal, privilege).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// ListActive returns the grants whose window covers the given instant.
func (r *GrantRepository) ListActive(ctx context.Context, at time.Time) ([]GrantModel, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []GrantModel
	if err := r.db.WithContext(ctx).
		Where("start_time <= ? AND expiry_time > ?", at.UTC(), at.UTC()).
		Order("expiry_time ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

func (r *GrantRepository) toGrant(model GrantModel, principal domain.Principal, id domain.GrantID) *domain.Grant[domain.GrantID] {
	return &domain.Grant[domain.GrantID]{
		Principal:  principal,
		Privilege:  id,
		StartTime:  model.StartTime.UTC(),
		ExpiryTime: model.ExpiryTime.UTC(),
	}
}
