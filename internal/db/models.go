package db

import (
	"time"
)

// PrefGenderAll is the gender preference sentinel: a user whose
// PrefGenders contains it skips the gender filter in discovery.
const PrefGenderAll = "all"

// Swipe directions as stored in the swipes table.
const (
	SwipeLeft  = "left"
	SwipeRight = "right"
)

// User table. Location and preferences drive the discovery filters;
// LastActiveAt feeds the activity term of the composite score.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Birthdate    time.Time `gorm:"not null" json:"birthdate"`
	Gender       string    `gorm:"size:16;not null" json:"gender"`
	Bio          string    `gorm:"type:text" json:"bio,omitempty"`

	// Optional coordinate; nil means the user never shared a location
	// and is exempt from distance filtering.
	LocationLat *float64 `json:"locationLat,omitempty"`
	LocationLon *float64 `json:"locationLon,omitempty"`

	IsVerified   bool      `gorm:"default:false" json:"isVerified"`
	LastActiveAt time.Time `json:"lastActiveAt"`

	// PrefGenders is a comma-separated list ("female", "male,female",
	// or the "all" sentinel).
	PrefGenders    string `gorm:"size:64;default:all" json:"prefGenders"`
	PrefAgeMin     int    `gorm:"default:18" json:"prefAgeMin"`
	PrefAgeMax     int    `gorm:"default:55" json:"prefAgeMax"`
	PrefDistanceKm int    `gorm:"default:50" json:"prefDistanceKm"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Rating holds a user's Glicko-2 triple, one row per user.
// Created with the user at registration, mutated only by the rating
// step of a right swipe.
type Rating struct {
	UserID     uint64    `gorm:"primaryKey" json:"userId"`
	Rating     float64   `gorm:"not null;default:1500" json:"rating"`
	Deviation  float64   `gorm:"not null;default:350" json:"deviation"`
	Volatility float64   `gorm:"not null;default:0.06" json:"volatility"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Swipe is a directed edge from swiper to swiped.
//
// Composite PK: (SwiperID, SwipedID)
//   - At most one swipe per ordered pair; a second attempt is rejected
//     with a conflict rather than overwritten.
//
// Index:
//   - idx_swiped_direction(swiped_id, direction)
//     Optimizes the reverse lookup used for mutual-like detection and
//     the received-likes count.
type Swipe struct {
	SwiperID  uint64    `gorm:"primaryKey" json:"swiperId"`
	SwipedID  uint64    `gorm:"primaryKey;index:idx_swiped_direction,priority:1" json:"swipedId"`
	Direction string    `gorm:"size:8;not null;index:idx_swiped_direction,priority:2" json:"direction"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Match is an undirected pair. Rows are canonicalized so that
// User1ID < User2ID, and the pair carries a unique index: a couple can
// never accumulate more than one match, even under concurrent
// reciprocal swipes.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	User1ID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1;index" json:"user1Id"`
	User2ID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index" json:"user2Id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// Message belongs to exactly one match; ordered by creation time
// within it.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID   uint64    `gorm:"not null;index:idx_match_created,priority:1" json:"matchId"`
	SenderID  uint64    `gorm:"not null" json:"senderId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_match_created,priority:2" json:"createdAt"`
}

// Block is a directed edge; discovery excludes blocked ids from the
// blocker's pool.
type Block struct {
	BlockerID uint64    `gorm:"primaryKey" json:"blockerId"`
	BlockedID uint64    `gorm:"primaryKey" json:"blockedId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
