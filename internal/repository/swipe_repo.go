package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/db"
)

// SwipeRepository provides data access methods for the Swipe model.
// It encapsulates all queries on the directed like/pass edges.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// CreateSwipe inserts a swipe for the ordered pair (swiper, swiped).
//
// Behavior:
//   - The composite PK on (swiper_id, swiped_id) makes a second swipe
//     on the same ordered pair fail with gorm.ErrDuplicatedKey; callers
//     surface that as a Conflict instead of overwriting.
//
// Example:
//
//	repo.CreateSwipe(ctx, &db.Swipe{SwiperID: 1, SwipedID: 2, Direction: db.SwipeRight})
func (r *SwipeRepository) CreateSwipe(ctx context.Context, swipe *db.Swipe) error {
	return r.db.WithContext(ctx).Create(swipe).Error
}

// HasRightSwipe reports whether swiper has right-swiped swiped.
// Used for the reverse lookup of mutual-like detection.
func (r *SwipeRepository) HasRightSwipe(ctx context.Context, swiperID, swipedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ? AND swiped_id = ? AND direction = ?", swiperID, swipedID, db.SwipeRight).
		Count(&count).Error
	return count > 0, err
}

// ListSwipedIDs returns every id the swiper has already decided on,
// regardless of direction. Feeds the discovery exclusion set.
func (r *SwipeRepository) ListSwipedIDs(ctx context.Context, swiperID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ?", swiperID).
		Pluck("swiped_id", &ids).Error
	return ids, err
}

// CountRightSwipesReceived returns how many users right-swiped the
// given recipient. DB fallback behind the Redis like counter.
func (r *SwipeRepository) CountRightSwipesReceived(ctx context.Context, swipedID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiped_id = ? AND direction = ?", swipedID, db.SwipeRight).
		Count(&count).Error
	return count, err
}
