package discovery_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/app"
	"github.com/amoradev/amora-backend/internal/cache"
	"github.com/amoradev/amora-backend/internal/config"
	"github.com/amoradev/amora-backend/internal/db"
	svcErr "github.com/amoradev/amora-backend/internal/errors"
	"github.com/amoradev/amora-backend/internal/service/discovery"
	"github.com/amoradev/amora-backend/internal/utils/geo"
)

const (
	madridLat = 40.4168
	madridLon = -3.7038
)

// setupService spins up an empty in-memory SQLite DB plus a miniredis
// and wires a discovery Service over them. Tests seed their own users.
func setupService(t *testing.T) (*discovery.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger)
	return discovery.NewService(appCtx, 20, 500), dbase
}

type userSpec struct {
	id       uint64
	gender   string
	age      int
	birth    time.Time // overrides age when set
	lat, lon *float64
	active   time.Time
	prefs    string
	maxKm    int
	rating   float64
}

func seedUser(t *testing.T, gdb *gorm.DB, spec userSpec) {
	t.Helper()

	if spec.prefs == "" {
		spec.prefs = db.PrefGenderAll
	}
	if spec.maxKm == 0 {
		spec.maxKm = 50
	}
	if spec.active.IsZero() {
		spec.active = time.Now().UTC()
	}
	if spec.rating == 0 {
		spec.rating = 1500
	}

	birthdate := spec.birth
	if birthdate.IsZero() {
		birthdate = time.Now().AddDate(-spec.age, 0, -30)
	}

	user := db.User{
		ID:             spec.id,
		Email:          fmt.Sprintf("u%d@test.com", spec.id),
		PasswordHash:   "x",
		Name:           fmt.Sprintf("user%d", spec.id),
		Birthdate:      birthdate,
		Gender:         spec.gender,
		LocationLat:    spec.lat,
		LocationLon:    spec.lon,
		LastActiveAt:   spec.active,
		PrefGenders:    spec.prefs,
		PrefAgeMin:     18,
		PrefAgeMax:     55,
		PrefDistanceKm: spec.maxKm,
	}
	require.NoError(t, gdb.Create(&user).Error)
	require.NoError(t, gdb.Create(&db.Rating{
		UserID: spec.id, Rating: spec.rating, Deviation: 350, Volatility: 0.06,
	}).Error)
}

func coords(lat, lon float64) (*float64, *float64) {
	return &lat, &lon
}

func resultIDs(profiles []discovery.ScoredProfile) []uint64 {
	ids := make([]uint64, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.User.ID)
	}
	return ids
}

func TestDiscover_RequesterNotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Discover(context.Background(), 404, 10)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestDiscover_ExcludesSwipedMatchedBlockedAndSelf(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female"})
	for id := uint64(2); id <= 6; id++ {
		seedUser(t, gdb, userSpec{id: id, gender: "female", age: 30, lat: lat, lon: lon})
	}

	// 2: already swiped (even a pass), 3: matched, 4: blocked
	require.NoError(t, gdb.Create(&db.Swipe{SwiperID: 1, SwipedID: 2, Direction: db.SwipeLeft}).Error)
	require.NoError(t, gdb.Create(&db.Match{User1ID: 1, User2ID: 3}).Error)
	require.NoError(t, gdb.Create(&db.Block{BlockerID: 1, BlockedID: 4}).Error)

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{5, 6}, resultIDs(profiles))
}

func TestDiscover_GenderPreference(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female"})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: lat, lon: lon})
	seedUser(t, gdb, userSpec{id: 3, gender: "male", age: 30, lat: lat, lon: lon})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, resultIDs(profiles))
}

func TestDiscover_AllSentinelSkipsGenderFilter(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "all"})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: lat, lon: lon})
	seedUser(t, gdb, userSpec{id: 3, gender: "male", age: 30, lat: lat, lon: lon})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, resultIDs(profiles))
}

func TestDiscover_AgeWindow(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female"})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: lat, lon: lon})
	seedUser(t, gdb, userSpec{id: 3, gender: "female", age: 17, lat: lat, lon: lon})
	seedUser(t, gdb, userSpec{id: 4, gender: "female", age: 60, lat: lat, lon: lon})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, resultIDs(profiles))
}

// TestDiscover_AgeWindowEdges pins the window down to the year: a
// candidate at exactly the min or max preferred age survives, one year
// outside does not.
func TestDiscover_AgeWindowEdges(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	// birthdates in whole scoring years (365.25 days each), so the
	// computed age lands exactly on the window edges
	const yearHours = 365.25 * 24
	now := time.Now().UTC()
	turned18 := now.Add(-time.Duration(18*yearHours) * time.Hour)
	almost18 := turned18.Add(72 * time.Hour)
	turned55 := now.Add(-time.Duration(55*yearHours) * time.Hour)
	turned56 := now.Add(-time.Duration(56*yearHours) * time.Hour)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female"})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", birth: turned18, lat: lat, lon: lon})
	seedUser(t, gdb, userSpec{id: 3, gender: "female", birth: almost18, lat: lat, lon: lon})
	seedUser(t, gdb, userSpec{id: 4, gender: "female", birth: turned55, lat: lat, lon: lon})
	seedUser(t, gdb, userSpec{id: 5, gender: "female", birth: turned56, lat: lat, lon: lon})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 4}, resultIDs(profiles))
}

func TestDiscover_DistanceWindow(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	// ~0.45 deg of latitude is ~50 km; 1 deg is ~111 km
	nearLat, nearLon := coords(madridLat+0.40, madridLon)
	farLat, farLon := coords(madridLat+1.0, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female", maxKm: 50})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: nearLat, lon: nearLon})
	seedUser(t, gdb, userSpec{id: 3, gender: "female", age: 30, lat: farLat, lon: farLon})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, resultIDs(profiles))

	require.NotNil(t, profiles[0].Distance)
	assert.InDelta(t, 44.5, *profiles[0].Distance, 1.0)
}

// TestDiscover_DistanceWindowEdge straddles the 50 km preference by a
// few dozen metres on each side: just inside survives, just outside is
// cut. The preconditions re-derive both distances so the test fails
// loudly if the seeded offsets ever stop bracketing the edge.
func TestDiscover_DistanceWindowEdge(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	// pure-latitude offsets: 0.4494 deg ≈ 49.97 km, 0.4500 deg ≈ 50.04 km
	nearLat, nearLon := coords(madridLat+0.4494, madridLon)
	farLat, farLon := coords(madridLat+0.4500, madridLon)

	dNear := geo.DistanceKm(madridLat, madridLon, *nearLat, *nearLon)
	dFar := geo.DistanceKm(madridLat, madridLon, *farLat, *farLon)
	require.Greater(t, dNear, 49.9)
	require.Less(t, dNear, 50.0)
	require.Greater(t, dFar, 50.0)
	require.Less(t, dFar, 50.1)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female", maxKm: 50})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: nearLat, lon: nearLon})
	seedUser(t, gdb, userSpec{id: 3, gender: "female", age: 30, lat: farLat, lon: farLon})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, resultIDs(profiles))

	require.NotNil(t, profiles[0].Distance)
	assert.InDelta(t, 50.0, *profiles[0].Distance, 0.1)
}

func TestDiscover_MissingCoordinatesSkipDistanceFilter(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female", maxKm: 50})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30}) // never shared a location

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, resultIDs(profiles))
	assert.Nil(t, profiles[0].Distance)
}

func TestDiscover_CloserCandidateRanksHigher(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)
	active := time.Now().UTC()

	nearLat, nearLon := coords(madridLat+0.05, madridLon)
	farLat, farLon := coords(madridLat+0.35, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female"})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: farLat, lon: farLon, active: active})
	seedUser(t, gdb, userSpec{id: 3, gender: "female", age: 30, lat: nearLat, lon: nearLon, active: active})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, uint64(3), profiles[0].User.ID)
	assert.Greater(t, profiles[0].Score, profiles[1].Score)
}

func TestDiscover_RecentActivityRanksHigher(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female"})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: lat, lon: lon,
		active: time.Now().UTC().Add(-200 * time.Hour)})
	seedUser(t, gdb, userSpec{id: 3, gender: "female", age: 30, lat: lat, lon: lon,
		active: time.Now().UTC()})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, uint64(3), profiles[0].User.ID)
}

func TestDiscover_SimilarRatingRanksHigher(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)
	active := time.Now().UTC()

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female", rating: 1500})
	seedUser(t, gdb, userSpec{id: 2, gender: "female", age: 30, lat: lat, lon: lon, active: active, rating: 2400})
	seedUser(t, gdb, userSpec{id: 3, gender: "female", age: 30, lat: lat, lon: lon, active: active, rating: 1520})

	profiles, err := svc.Discover(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, uint64(3), profiles[0].User.ID)
}

func TestDiscover_LimitTruncates(t *testing.T) {
	svc, gdb := setupService(t)
	lat, lon := coords(madridLat, madridLon)

	seedUser(t, gdb, userSpec{id: 1, gender: "male", age: 30, lat: lat, lon: lon, prefs: "female"})
	for id := uint64(2); id <= 6; id++ {
		seedUser(t, gdb, userSpec{id: id, gender: "female", age: 30, lat: lat, lon: lon})
	}

	profiles, err := svc.Discover(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}
