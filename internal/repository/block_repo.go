package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amoradev/amora-backend/internal/db"
)

// BlockRepository provides data access methods for the Block model.
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new repository bound to the given DB connection.
func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// CreateBlock records blocker -> blocked. Blocking twice is a no-op.
func (r *BlockRepository) CreateBlock(ctx context.Context, blockerID, blockedID uint64) error {
	block := db.Block{BlockerID: blockerID, BlockedID: blockedID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&block).Error
}

// ListBlockedIDs returns every id the blocker has blocked.
// Feeds the discovery exclusion set. Only the blocker->blocked
// direction is filtered; see DESIGN.md for the directionality
// decision.
func (r *BlockRepository) ListBlockedIDs(ctx context.Context, blockerID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocker_id = ?", blockerID).
		Pluck("blocked_id", &ids).Error
	return ids, err
}
