package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amoradev/amora-backend/internal/db"
)

// RatingRepository provides data access methods for the Rating model.
// One row per user; mutated only by the rating step of a right swipe.
type RatingRepository struct {
	db *gorm.DB
}

// NewRatingRepository creates a new repository bound to the given DB connection.
func NewRatingRepository(database *gorm.DB) *RatingRepository {
	return &RatingRepository{db: database}
}

// GetRating returns a user's rating row, or gorm.ErrRecordNotFound.
func (r *RatingRepository) GetRating(ctx context.Context, userID uint64) (*db.Rating, error) {
	var rating db.Rating
	if err := r.db.WithContext(ctx).First(&rating, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}

// GetPairForUpdate loads both parties' rating rows inside the given
// transaction, locking them in ascending user-id order so concurrent
// swipes touching the same users cannot deadlock or lose updates.
//
// The FOR UPDATE clause is applied only on MySQL; SQLite serializes
// writers on its own and rejects the syntax.
//
// Returns (nil, nil, nil) with ok=false if either row is missing, in
// which case the caller skips the rating update entirely.
func (r *RatingRepository) GetPairForUpdate(
	tx *gorm.DB,
	userA, userB uint64,
) (a, b *db.Rating, ok bool, err error) {
	first, second := userA, userB
	if second < first {
		first, second = second, first
	}

	load := func(id uint64) (*db.Rating, error) {
		q := tx
		if tx.Dialector.Name() == "mysql" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var rating db.Rating
		if err := q.First(&rating, "user_id = ?", id).Error; err != nil {
			return nil, err
		}
		return &rating, nil
	}

	firstRow, err := load(first)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}
	secondRow, err := load(second)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, false, nil
		}
		return nil, nil, false, err
	}

	if first == userA {
		return firstRow, secondRow, true, nil
	}
	return secondRow, firstRow, true, nil
}

// SaveRating persists the full triple for a user inside the given
// transaction.
func (r *RatingRepository) SaveRating(tx *gorm.DB, rating *db.Rating) error {
	return tx.Model(&db.Rating{}).
		Where("user_id = ?", rating.UserID).
		Updates(map[string]any{
			"rating":     rating.Rating,
			"deviation":  rating.Deviation,
			"volatility": rating.Volatility,
		}).Error
}

// DB exposes the underlying handle for transaction scoping by the
// swipe coordinator.
func (r *RatingRepository) DB() *gorm.DB { return r.db }
