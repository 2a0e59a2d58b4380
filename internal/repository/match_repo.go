package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/db"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateMatch inserts the match for an unordered pair.
//
// Behavior:
//   - The pair is canonicalized (lower id first) and carries a unique
//     index, so two users can never hold more than one match.
//   - If a concurrent reciprocal swipe already created the row, the
//     existing match is returned instead of an error: match creation
//     is idempotent in effect.
func (r *MatchRepository) CreateMatch(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	u1, u2 := userA, userB
	if u2 < u1 {
		u1, u2 = u2, u1
	}

	match := db.Match{User1ID: u1, User2ID: u2}
	err := r.db.WithContext(ctx).Create(&match).Error
	if err == nil {
		return &match, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.GetMatchByPair(ctx, u1, u2)
	}
	return nil, err
}

// GetMatch returns a match by id.
func (r *MatchRepository) GetMatch(ctx context.Context, id uint64) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// GetMatchByPair returns the match for a canonicalized pair.
func (r *MatchRepository) GetMatchByPair(ctx context.Context, u1, u2 uint64) (*db.Match, error) {
	if u2 < u1 {
		u1, u2 = u2, u1
	}
	var match db.Match
	if err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&match).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// ListMatchesByUser returns every match the user participates in,
// newest first.
func (r *MatchRepository) ListMatchesByUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// ListMatchedUserIDs returns the counterpart ids of every match the
// user participates in. Feeds the discovery exclusion set.
func (r *MatchRepository) ListMatchedUserIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	matches, err := r.ListMatchesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if m.User1ID == userID {
			ids = append(ids, m.User2ID)
		} else {
			ids = append(ids, m.User1ID)
		}
	}
	return ids, nil
}
