package discovery

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/app"
	"github.com/amoradev/amora-backend/internal/db"
	svcErr "github.com/amoradev/amora-backend/internal/errors"
	"github.com/amoradev/amora-backend/internal/repository"
	"github.com/amoradev/amora-backend/internal/utils/geo"
)

// Composite score weights, summing to 1.0.
const (
	weightRanking   = 0.30
	weightDistance  = 0.40
	weightActivity  = 0.20
	weightInterests = 0.10
)

// maxRatingDiff normalizes the rating-proximity term.
const maxRatingDiff = 1000.0

// activityDecayHours is the window over which the activity term decays
// linearly to zero (one week).
const activityDecayHours = 168.0

// Fallback preference bounds applied when a row predates the column
// defaults.
const (
	fallbackAgeMin     = 18
	fallbackAgeMax     = 55
	fallbackDistanceKm = 50
)

// ScoredProfile is one ranked discovery candidate.
type ScoredProfile struct {
	User     db.User  `json:"user"`
	Score    float64  `json:"score"`
	Age      int      `json:"age"`
	Distance *float64 `json:"distance,omitempty"`
}

// Service ranks and filters the pool of discoverable candidates for a
// requesting user. Read-only: discovery never mutates state.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	ratings  *repository.RatingRepository
	swipes   *repository.SwipeRepository
	matches  *repository.MatchRepository
	blocks   *repository.BlockRepository
	limit    int
	poolCap  int
}

// NewService creates a discovery service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, defaultLimit, poolCap int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if poolCap <= 0 {
		poolCap = 500
	}
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		ratings:  repository.NewRatingRepository(appCtx.DB),
		swipes:   repository.NewSwipeRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		blocks:   repository.NewBlockRepository(appCtx.DB),
		limit:    defaultLimit,
		poolCap:  poolCap,
	}
}

// Discover returns up to limit candidates for the requester, ranked by
// composite score.
//
// Pipeline:
//  1. Load the requester and their rating (missing requester fails with
//     NotFound; a missing rating only zeroes the ranking term).
//  2. Build the exclusion set: already swiped, matched, blocked, self.
//  3. Pull up to poolCap candidates honoring the gender preference.
//  4. Apply the age window, then the distance window for candidates
//     with coordinates (boundary-inclusive).
//  5. Score survivors and stable-sort descending.
//
// Missing optional data on a candidate degrades that candidate's score
// terms to zero instead of failing the request.
func (s *Service) Discover(ctx context.Context, requesterID uint64, limit int) ([]ScoredProfile, error) {
	if limit <= 0 {
		limit = s.limit
	}

	requester, err := s.userRepo.GetUser(ctx, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.NotFound("requester not found")
		}
		return nil, err
	}

	var requesterRating *db.Rating
	if rr, err := s.ratings.GetRating(ctx, requesterID); err == nil {
		requesterRating = rr
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	excluded, err := s.exclusionSet(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	genders := repository.AcceptedGenders(requester.PrefGenders)
	candidates, err := s.userRepo.ListCandidates(ctx, excluded, genders, s.poolCap)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	minAge, maxAge := requester.PrefAgeMin, requester.PrefAgeMax
	if minAge <= 0 {
		minAge = fallbackAgeMin
	}
	if maxAge <= 0 {
		maxAge = fallbackAgeMax
	}
	maxDistance := requester.PrefDistanceKm
	if maxDistance <= 0 {
		maxDistance = fallbackDistanceKm
	}

	scored := make([]ScoredProfile, 0, len(candidates))
	for _, candidate := range candidates {
		age := ageAt(candidate.Birthdate, now)
		if age < minAge || age > maxAge {
			continue
		}

		var distance *float64
		if requester.LocationLat != nil && requester.LocationLon != nil &&
			candidate.LocationLat != nil && candidate.LocationLon != nil {
			d := geo.DistanceKm(
				*requester.LocationLat, *requester.LocationLon,
				*candidate.LocationLat, *candidate.LocationLon,
			)
			// Boundary-inclusive: a candidate at exactly the preferred
			// distance survives.
			if d > float64(maxDistance) {
				continue
			}
			distance = &d
		}

		score := s.compositeScore(ctx, requesterRating, &candidate, distance, maxDistance, now)
		scored = append(scored, ScoredProfile{
			User:     candidate,
			Score:    score,
			Age:      age,
			Distance: distance,
		})
	}

	// Stable keeps query order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// exclusionSet gathers every id the requester must never see again:
// swiped, matched, blocked, and the requester themselves.
func (s *Service) exclusionSet(ctx context.Context, requesterID uint64) ([]uint64, error) {
	swiped, err := s.swipes.ListSwipedIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	matched, err := s.matches.ListMatchedUserIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blocks.ListBlockedIDs(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(swiped)+len(matched)+len(blocked)+1)
	excluded := make([]uint64, 0, len(seen))
	for _, ids := range [][]uint64{swiped, matched, blocked, {requesterID}} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			excluded = append(excluded, id)
		}
	}
	return excluded, nil
}

// compositeScore sums the weighted sub-signals. Each term is clamped to
// [0,1] before weighting; a missing signal contributes zero.
func (s *Service) compositeScore(
	ctx context.Context,
	requesterRating *db.Rating,
	candidate *db.User,
	distance *float64,
	maxDistance int,
	now time.Time,
) float64 {
	var score float64

	// 1. Rating proximity.
	if requesterRating != nil {
		if candidateRating, err := s.ratings.GetRating(ctx, candidate.ID); err == nil {
			diff := requesterRating.Rating - candidateRating.Rating
			if diff < 0 {
				diff = -diff
			}
			score += weightRanking * clampUnit(1-diff/maxRatingDiff)
		}
	}

	// 2. Distance.
	if distance != nil {
		score += weightDistance * clampUnit(1-*distance/float64(maxDistance))
	}

	// 3. Activity recency, decaying linearly over a week.
	if !candidate.LastActiveAt.IsZero() {
		hours := now.Sub(candidate.LastActiveAt).Hours()
		score += weightActivity * clampUnit(1-hours/activityDecayHours)
	}

	// 4. Interest overlap is not computed yet; every candidate gets the
	// neutral midpoint so the term ranks nobody up or down.
	score += weightInterests * 0.5

	return score
}

// ageAt computes whole years between birthdate and now.
func ageAt(birthdate, now time.Time) int {
	const yearHours = 365.25 * 24
	return int(now.Sub(birthdate).Hours() / yearHours)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
