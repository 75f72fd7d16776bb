package repository

import (
	"context"
	"fmt"

	"dao-governance-scorer/internal/entity"

	"gorm.io/gorm"
)

// EvaluationRepository defines the interface for evaluation history data operations.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *entity.ProposalEvaluation, alerts []entity.ProposalAlert) error
	FindLatestPerProposal(ctx context.Context) ([]entity.ProposalEvaluation, error)
	FindByProposalID(ctx context.Context, proposalID string, limit int) ([]entity.ProposalEvaluation, error)
}

// NewEvaluationRepository creates a new GORM-based evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

type evaluationRepository struct {
	db *gorm.DB
}

// Create stores one evaluation pass and the alerts it produced atomically.
// evaluation may be nil when the proposal could not be scored but still raised alerts.
func (r *evaluationRepository) Create(ctx context.Context, evaluation *entity.ProposalEvaluation, alerts []entity.ProposalAlert) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if evaluation != nil {
			if err := tx.Create(evaluation).Error; err != nil {
				return fmt.Errorf("insert proposal_evaluations error: %w", err)
			}
		}
		if len(alerts) == 0 {
			return nil
		}
		if err := tx.Create(&alerts).Error; err != nil {
			return fmt.Errorf("insert proposal_alerts error: %w", err)
		}
		return nil
	})
}

// FindLatestPerProposal returns the most recent evaluation of every proposal.
func (r *evaluationRepository) FindLatestPerProposal(ctx context.Context) ([]entity.ProposalEvaluation, error) {
	var evaluations []entity.ProposalEvaluation
	err := r.db.WithContext(ctx).Raw(`
	SELECT DISTINCT ON (proposal_id) *
	FROM proposal_evaluations
	ORDER BY proposal_id, scored_at DESC, id DESC
`).Scan(&evaluations).Error
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}

// FindByProposalID returns the evaluation history of one proposal, newest first.
func (r *evaluationRepository) FindByProposalID(ctx context.Context, proposalID string, limit int) ([]entity.ProposalEvaluation, error) {
	var evaluations []entity.ProposalEvaluation
	q := r.db.WithContext(ctx).Where("proposal_id = ?", proposalID).Order("scored_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}
