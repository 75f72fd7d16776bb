package repository

import (
	"context"

	"dao-governance-scorer/internal/entity"
	"dao-governance-scorer/internal/scoring/dto"

	"gorm.io/gorm"
)

// AlertRepository defines the interface for alert history queries.
type AlertRepository interface {
	FindByParam(ctx context.Context, param dto.AlertParam) ([]entity.ProposalAlert, error)
}

// NewAlertRepository creates a new GORM-based alert repository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

type alertRepository struct {
	db *gorm.DB
}

// FindByParam returns stored alerts, newest first.
func (r *alertRepository) FindByParam(ctx context.Context, param dto.AlertParam) ([]entity.ProposalAlert, error) {
	var alerts []entity.ProposalAlert
	q := r.db.WithContext(ctx)
	if param.Severity != "" {
		q = q.Where("severity = ?", string(param.Severity))
	}
	if param.ProposalID != "" {
		q = q.Where("proposal_id = ?", param.ProposalID)
	}
	if param.Limit > 0 {
		q = q.Limit(param.Limit)
	}
	if err := q.Order("triggered_at desc, id desc").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}
