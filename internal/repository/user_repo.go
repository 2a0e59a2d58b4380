package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/db"
)

// UserRepository provides data access methods for the User model.
// It is the candidate-pool side of the engine: point lookups plus the
// filtered range query discovery scores from.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetUser returns a user by id.
func (r *UserRepository) GetUser(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUserWithRating inserts a user and their default Glicko-2 rating
// in one transaction, so a user can never exist without a rating row.
func (r *UserRepository) CreateUserWithRating(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		rating := db.Rating{UserID: user.ID}
		return tx.Create(&rating).Error
	})
}

// UpdateUser applies the given column updates and refreshes the
// last-active timestamp as a side effect (profile activity counts as
// being active).
func (r *UserRepository) UpdateUser(ctx context.Context, id uint64, updates map[string]any) (*db.User, error) {
	updates["last_active_at"] = time.Now().UTC()
	if err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetUser(ctx, id)
}

// ListCandidates returns up to poolCap users outside the excluded id
// set, optionally restricted to the given genders.
//
// Behavior:
//   - excludedIDs always contains the requester's own id.
//   - genders == nil means the requester accepts everyone (the "all"
//     sentinel); no gender condition is applied.
//   - Age and distance windows are applied by the scorer, not here:
//     they depend on per-candidate computation.
func (r *UserRepository) ListCandidates(
	ctx context.Context,
	excludedIDs []uint64,
	genders []string,
	poolCap int,
) ([]db.User, error) {
	query := r.db.WithContext(ctx).Model(&db.User{})

	if len(excludedIDs) > 0 {
		query = query.Where("id NOT IN ?", excludedIDs)
	}
	if len(genders) > 0 {
		query = query.Where("gender IN ?", genders)
	}

	var candidates []db.User
	if err := query.Limit(poolCap).Find(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

// AcceptedGenders parses a user's comma-separated gender preference.
// Returns nil when the preference contains the "all" sentinel (or is
// empty), meaning the gender filter should be skipped.
func AcceptedGenders(prefGenders string) []string {
	if strings.TrimSpace(prefGenders) == "" {
		return nil
	}
	var genders []string
	for _, g := range strings.Split(prefGenders, ",") {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if g == db.PrefGenderAll {
			return nil
		}
		genders = append(genders, g)
	}
	return genders
}
