package swipe

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/app"
	"github.com/amoradev/amora-backend/internal/db"
	svcErr "github.com/amoradev/amora-backend/internal/errors"
	"github.com/amoradev/amora-backend/internal/glicko"
	"github.com/amoradev/amora-backend/internal/repository"
)

// Result is the outcome of recording one swipe.
type Result struct {
	Swipe   db.Swipe  `json:"swipe"`
	Match   *db.Match `json:"match,omitempty"`
	IsMatch bool      `json:"isMatch"`
}

// Service drives the swipe state transition: persist the swipe, run the
// rating feedback loop on likes, detect mutual likes, and create the
// match exactly once per pair.
type Service struct {
	appCtx  *app.AppContext
	swipes  *repository.SwipeRepository
	ratings *repository.RatingRepository
	matches *repository.MatchRepository
}

// NewService creates a swipe service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		swipes:  repository.NewSwipeRepository(appCtx.DB),
		ratings: repository.NewRatingRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
	}
}

// RecordSwipe persists a swipe and runs the post-swipe pipeline.
//
// Behavior:
//   - A second swipe on the same ordered pair is rejected with Conflict.
//   - On a right swipe, both parties' ratings are updated from each
//     other's pre-update snapshots inside one transaction: the swiper
//     as the winner, the swiped as the loser. The update is skipped if
//     either rating row is missing.
//   - A match is created iff the reverse right swipe already exists.
//     Creation is race-safe: the unordered pair is unique in storage.
func (s *Service) RecordSwipe(ctx context.Context, swiperID, swipedID uint64, direction string) (*Result, error) {
	if swiperID == swipedID {
		return nil, svcErr.InvalidArgument("cannot swipe on yourself")
	}
	if direction != db.SwipeLeft && direction != db.SwipeRight {
		return nil, svcErr.InvalidArgument("direction must be left or right")
	}

	s.appCtx.Logger.Debug("RecordSwipe called", "swiper", swiperID, "swiped", swipedID, "direction", direction)

	swipe := db.Swipe{SwiperID: swiperID, SwipedID: swipedID, Direction: direction}
	if err := s.swipes.CreateSwipe(ctx, &swipe); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("pair already swiped")
		}
		return nil, err
	}

	result := &Result{Swipe: swipe}
	if direction != db.SwipeRight {
		return result, nil
	}

	if err := s.applyRatingFeedback(ctx, swiperID, swipedID); err != nil {
		return nil, err
	}

	// Received-likes counter, best effort with TTL refresh.
	key := s.appCtx.RedisCache.KeyForLikeCount(swipedID)
	if _, err := s.appCtx.RedisCache.Incr(ctx, key); err == nil {
		_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()
	}

	mutual, err := s.swipes.HasRightSwipe(ctx, swipedID, swiperID)
	if err != nil {
		return nil, err
	}
	if mutual {
		match, err := s.matches.CreateMatch(ctx, swiperID, swipedID)
		if err != nil {
			return nil, err
		}
		result.Match = match
		result.IsMatch = true
		s.appCtx.Logger.Info("match created", "match_id", match.ID, "user1", match.User1ID, "user2", match.User2ID)
	}

	return result, nil
}

// applyRatingFeedback updates both Glicko-2 triples for a right swipe.
// The swiper takes the win, the swiped the loss, and both updates read
// the counterpart's pre-update snapshot, so the two calls commute.
func (s *Service) applyRatingFeedback(ctx context.Context, swiperID, swipedID uint64) error {
	return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swiperRow, swipedRow, ok, err := s.ratings.GetPairForUpdate(tx, swiperID, swipedID)
		if err != nil {
			return err
		}
		if !ok {
			// Either party has no rating row; skip the update.
			return nil
		}

		swiperBefore := toGlicko(swiperRow)
		swipedBefore := toGlicko(swipedRow)

		swiperAfter := glicko.Update(swiperBefore, swipedBefore, glicko.Win)
		swipedAfter := glicko.Update(swipedBefore, swiperBefore, glicko.Loss)

		fromGlicko(swiperRow, swiperAfter)
		fromGlicko(swipedRow, swipedAfter)

		if err := s.ratings.SaveRating(tx, swiperRow); err != nil {
			return err
		}
		return s.ratings.SaveRating(tx, swipedRow)
	})
}

// CountLikesReceived returns how many users right-swiped the recipient.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:received:userID).
//  2. On cache miss, falls back to the DB count.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikesReceived(ctx context.Context, userID uint64) (int64, error) {
	if cached, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, userID); err == nil && ok {
		return cached, nil
	}

	count, err := s.swipes.CountRightSwipesReceived(ctx, userID)
	if err != nil {
		return 0, err
	}

	_ = s.appCtx.RedisCache.Set(ctx, s.appCtx.RedisCache.KeyForLikeCount(userID), strconv.FormatInt(count, 10), time.Hour)

	return count, nil
}

func toGlicko(row *db.Rating) glicko.Rating {
	return glicko.Rating{Rating: row.Rating, Deviation: row.Deviation, Volatility: row.Volatility}
}

func fromGlicko(row *db.Rating, r glicko.Rating) {
	row.Rating = r.Rating
	row.Deviation = r.Deviation
	row.Volatility = r.Volatility
}
