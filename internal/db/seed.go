package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo users,
// ratings, and swipe traffic.
//
// Behavior:
//  1. Clears all engine tables.
//  2. Creates 20 users (10 male, 10 female) with hashed passwords,
//     default ratings, and coordinates scattered around Madrid.
//  3. Generates ~100 random swipes with ~70% likes; every 3rd decision
//     seeds the reciprocal like so mutual pairs and matches exist.
func SeedTestData(gdb *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "matches", "swipes", "blocks", "ratings", "users"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	log.Println("Cleared existing data")

	// --- Seed Users (10 male, 10 female) around Madrid ---
	const madridLat, madridLon = 40.4168, -3.7038
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender, prefGender := "male", "female"
		if i > 10 {
			gender, prefGender = "female", "male"
		}

		lat := madridLat + (r.Float64()-0.5)*0.4
		lon := madridLon + (r.Float64()-0.5)*0.4

		user := User{
			Email:          fmt.Sprintf("user%d@example.com", i),
			PasswordHash:   string(hash),
			Name:           fmt.Sprintf("User %d", i),
			Birthdate:      time.Now().AddDate(-20-r.Intn(15), 0, 0),
			Gender:         gender,
			Bio:            "Seeded demo profile",
			LocationLat:    &lat,
			LocationLon:    &lon,
			LastActiveAt:   time.Now().Add(-time.Duration(r.Intn(300)) * time.Hour),
			PrefGenders:    prefGender,
			PrefAgeMin:     18,
			PrefAgeMax:     55,
			PrefDistanceKm: 50,
		}

		if err := gdb.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		if err := gdb.Create(&Rating{UserID: user.ID}).Error; err != nil {
			return fmt.Errorf("failed to seed rating: %w", err)
		}
	}
	log.Println("Seeded 20 users with ratings.")

	// --- Seed Swipes ---
	var users []User
	if err := gdb.Find(&users).Error; err != nil {
		return err
	}

	counter := 0
	for _, actor := range users {
		for j := 0; j < 8; j++ {
			target := users[r.Intn(len(users))]
			if target.ID == actor.ID || target.Gender == actor.Gender {
				continue
			}

			direction := SwipeLeft
			if r.Intn(100) < 70 {
				direction = SwipeRight
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				direction = SwipeRight
				recip := Swipe{SwiperID: target.ID, SwipedID: actor.ID, Direction: SwipeRight}
				gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&recip)
			}

			swipe := Swipe{SwiperID: actor.ID, SwipedID: target.ID, Direction: direction}
			if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}

			counter++
		}
	}

	// --- Materialize matches for mutual right-swipe pairs ---
	var rights []Swipe
	if err := gdb.Where("direction = ?", SwipeRight).Find(&rights).Error; err != nil {
		return err
	}
	liked := make(map[[2]uint64]bool, len(rights))
	for _, s := range rights {
		liked[[2]uint64{s.SwiperID, s.SwipedID}] = true
	}
	for _, s := range rights {
		if s.SwiperID < s.SwipedID && liked[[2]uint64{s.SwipedID, s.SwiperID}] {
			match := Match{User1ID: s.SwiperID, User2ID: s.SwipedID}
			gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
		}
	}

	return nil
}

// SeedMinimalTestData wipes the DB and inserts a small deterministic
// dataset: three users with ratings, one one-way like, and one pass.
func SeedMinimalTestData(gdb *gorm.DB) error {
	for _, table := range []string{"messages", "matches", "swipes", "blocks", "ratings", "users"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}

	lat, lon := 40.4168, -3.7038
	users := []User{
		{ID: 1, Email: "u1@test.com", PasswordHash: "x", Name: "user1", Gender: "male",
			Birthdate: time.Now().AddDate(-30, 0, 0), PrefGenders: "female",
			PrefAgeMin: 18, PrefAgeMax: 55, PrefDistanceKm: 50,
			LocationLat: &lat, LocationLon: &lon, LastActiveAt: time.Now()},
		{ID: 2, Email: "u2@test.com", PasswordHash: "x", Name: "user2", Gender: "female",
			Birthdate: time.Now().AddDate(-28, 0, 0), PrefGenders: "male",
			PrefAgeMin: 18, PrefAgeMax: 55, PrefDistanceKm: 50,
			LocationLat: &lat, LocationLon: &lon, LastActiveAt: time.Now()},
		{ID: 3, Email: "u3@test.com", PasswordHash: "x", Name: "user3", Gender: "female",
			Birthdate: time.Now().AddDate(-26, 0, 0), PrefGenders: "male",
			PrefAgeMin: 18, PrefAgeMax: 55, PrefDistanceKm: 50,
			LocationLat: &lat, LocationLon: &lon, LastActiveAt: time.Now()},
	}
	if err := gdb.Create(&users).Error; err != nil {
		return err
	}

	for _, u := range users {
		if err := gdb.Create(&Rating{UserID: u.ID}).Error; err != nil {
			return err
		}
	}

	swipes := []Swipe{
		{SwiperID: 2, SwipedID: 1, Direction: SwipeRight}, // user2 → user1 (like, one-way)
		{SwiperID: 3, SwipedID: 1, Direction: SwipeLeft},  // user3 → user1 (pass)
	}
	return gdb.Create(&swipes).Error
}
