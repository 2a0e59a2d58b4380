package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/amoradev/amora-backend/internal/app"
	"github.com/amoradev/amora-backend/internal/db"
	svcErr "github.com/amoradev/amora-backend/internal/errors"
	"github.com/amoradev/amora-backend/internal/repository"
	"github.com/amoradev/amora-backend/internal/service/chat"
	"github.com/amoradev/amora-backend/internal/service/discovery"
	"github.com/amoradev/amora-backend/internal/service/swipe"
)

// Handlers bundles the HTTP endpoints over the engine services.
type Handlers struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	matches   *repository.MatchRepository
	blocks    *repository.BlockRepository
	discovery *discovery.Service
	swipes    *swipe.Service
	chat      *chat.Service
}

// NewHandlers creates the handler set with dependencies from AppContext.
func NewHandlers(
	appCtx *app.AppContext,
	discoverySvc *discovery.Service,
	swipeSvc *swipe.Service,
	chatSvc *chat.Service,
) *Handlers {
	return &Handlers{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		matches:   repository.NewMatchRepository(appCtx.DB),
		blocks:    repository.NewBlockRepository(appCtx.DB),
		discovery: discoverySvc,
		swipes:    swipeSvc,
		chat:      chatSvc,
	}
}

type registerRequest struct {
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	Name           string   `json:"name"`
	Birthdate      string   `json:"birthdate"` // YYYY-MM-DD
	Gender         string   `json:"gender"`
	Bio            string   `json:"bio"`
	LocationLat    *float64 `json:"locationLat"`
	LocationLon    *float64 `json:"locationLon"`
	PrefGenders    string   `json:"prefGenders"`
	PrefAgeMin     int      `json:"prefAgeMin"`
	PrefAgeMax     int      `json:"prefAgeMax"`
	PrefDistanceKm int      `json:"prefDistanceKm"`
}

// Register creates a user and their default rating in one step.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, svcErr.InvalidArgument("malformed json body"))
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Gender == "" {
		writeError(w, svcErr.InvalidArgument("email, password, name and gender are required"))
		return
	}
	birthdate, err := time.Parse("2006-01-02", req.Birthdate)
	if err != nil {
		writeError(w, svcErr.InvalidArgument("birthdate must be YYYY-MM-DD"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, err)
		return
	}

	user := db.User{
		Email:          req.Email,
		PasswordHash:   string(hash),
		Name:           req.Name,
		Birthdate:      birthdate,
		Gender:         req.Gender,
		Bio:            req.Bio,
		LocationLat:    req.LocationLat,
		LocationLon:    req.LocationLon,
		PrefGenders:    req.PrefGenders,
		PrefAgeMin:     req.PrefAgeMin,
		PrefAgeMax:     req.PrefAgeMax,
		PrefDistanceKm: req.PrefDistanceKm,
		LastActiveAt:   time.Now().UTC(),
	}
	if user.PrefGenders == "" {
		user.PrefGenders = db.PrefGenderAll
	}

	if err := h.users.CreateUserWithRating(r.Context(), &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeError(w, svcErr.Conflict("email already registered"))
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// Me returns the authenticated user's own profile.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetProfile returns another user's profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, svcErr.InvalidArgument("id must be a valid uint64"))
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile applies partial updates to the caller's profile and
// refreshes their last-active timestamp.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           *string  `json:"name"`
		Bio            *string  `json:"bio"`
		LocationLat    *float64 `json:"locationLat"`
		LocationLon    *float64 `json:"locationLon"`
		PrefGenders    *string  `json:"prefGenders"`
		PrefAgeMin     *int     `json:"prefAgeMin"`
		PrefAgeMax     *int     `json:"prefAgeMax"`
		PrefDistanceKm *int     `json:"prefDistanceKm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, svcErr.InvalidArgument("malformed json body"))
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.LocationLat != nil {
		updates["location_lat"] = *req.LocationLat
	}
	if req.LocationLon != nil {
		updates["location_lon"] = *req.LocationLon
	}
	if req.PrefGenders != nil {
		updates["pref_genders"] = *req.PrefGenders
	}
	if req.PrefAgeMin != nil {
		updates["pref_age_min"] = *req.PrefAgeMin
	}
	if req.PrefAgeMax != nil {
		updates["pref_age_max"] = *req.PrefAgeMax
	}
	if req.PrefDistanceKm != nil {
		updates["pref_distance_km"] = *req.PrefDistanceKm
	}

	user, err := h.users.UpdateUser(r.Context(), UserIDFromContext(r.Context()), updates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Discover returns the ranked candidate list for the caller.
func (h *Handlers) Discover(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, svcErr.InvalidArgument("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	profiles, err := h.discovery.Discover(r.Context(), UserIDFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// PostSwipe records a swipe for the caller and reports whether it
// completed a match.
func (h *Handlers) PostSwipe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SwipedID  uint64 `json:"swipedId"`
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, svcErr.InvalidArgument("malformed json body"))
		return
	}

	result, err := h.swipes.RecordSwipe(r.Context(), UserIDFromContext(r.Context()), req.SwipedID, req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type matchResponse struct {
	db.Match
	OtherUser *db.User `json:"otherUser,omitempty"`
}

// ListMatches returns the caller's matches, newest first, enriched
// with the counterpart profile.
func (h *Handlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())

	matches, err := h.matches.ListMatchesByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	enriched := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		otherID := m.User1ID
		if otherID == userID {
			otherID = m.User2ID
		}
		resp := matchResponse{Match: m}
		if other, err := h.users.GetUser(r.Context(), otherID); err == nil {
			resp.OtherUser = other
		}
		enriched = append(enriched, resp)
	}
	writeJSON(w, http.StatusOK, enriched)
}

type messagesResponse struct {
	Messages  []db.Message `json:"messages"`
	NextToken *string      `json:"nextPaginationToken,omitempty"`
}

// ListMessages returns a match's message history in creation order.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.ParseUint(mux.Vars(r)["match_id"], 10, 64)
	if err != nil {
		writeError(w, svcErr.InvalidArgument("match_id must be a valid uint64"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			writeError(w, svcErr.InvalidArgument("limit must be a non-negative integer"))
			return
		}
	}
	var token *string
	if v := r.URL.Query().Get("pagination_token"); v != "" {
		token = &v
	}

	messages, nextToken, err := h.chat.History(r.Context(), UserIDFromContext(r.Context()), matchID, token, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: messages, NextToken: nextToken})
}

// LikesCount returns how many users right-swiped the caller.
func (h *Handlers) LikesCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.swipes.CountLikesReceived(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// PostBlock records a block edge from the caller.
func (h *Handlers) PostBlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BlockedID uint64 `json:"blockedId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, svcErr.InvalidArgument("malformed json body"))
		return
	}
	blockerID := UserIDFromContext(r.Context())
	if req.BlockedID == 0 || req.BlockedID == blockerID {
		writeError(w, svcErr.InvalidArgument("blockedId must reference another user"))
		return
	}

	if err := h.blocks.CreateBlock(r.Context(), blockerID, req.BlockedID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"blocked": true})
}
