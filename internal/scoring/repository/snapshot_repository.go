package repository

import (
	"context"
	"time"

	"dao-governance-scorer/internal/entity"
	"dao-governance-scorer/internal/governance"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRepository defines the interface for the latest-signals-per-proposal store.
type SnapshotRepository interface {
	Upsert(ctx context.Context, snapshot *entity.ProposalSignalSnapshot) error
	FindOpen(ctx context.Context, now time.Time) ([]entity.ProposalSignalSnapshot, error)
}

// NewSnapshotRepository creates a new GORM-based snapshot repository.
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

type snapshotRepository struct {
	db *gorm.DB
}

// Upsert replaces the stored signals of a proposal.
func (r *snapshotRepository) Upsert(ctx context.Context, snapshot *entity.ProposalSignalSnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dao", "status", "deadline", "signals", "updated_at"}),
	}).Create(snapshot).Error
}

// FindOpen returns proposals still accepting votes: not in a closed status and
// with no deadline or a deadline after now.
func (r *snapshotRepository) FindOpen(ctx context.Context, now time.Time) ([]entity.ProposalSignalSnapshot, error) {
	closed := make([]string, 0, len(governance.ClosedStatuses))
	for _, s := range governance.ClosedStatuses {
		closed = append(closed, string(s))
	}

	var snapshots []entity.ProposalSignalSnapshot
	err := r.db.WithContext(ctx).
		Where("LOWER(COALESCE(status, '')) NOT IN ?", closed).
		Where("deadline IS NULL OR deadline > ?", now).
		Order("proposal_id").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
