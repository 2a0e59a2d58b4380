package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the REST endpoints and the live channel. Everything
// except registration and the WebSocket endpoint sits behind the
// session middleware.
func NewRouter(h *Handlers, wsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/register", h.Register).Methods(http.MethodPost)
	r.Handle("/ws", wsHandler)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware)

	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
	api.HandleFunc("/profiles/me", h.UpdateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/profiles/{id}", h.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/discovery", h.Discover).Methods(http.MethodGet)
	api.HandleFunc("/swipes", h.PostSwipe).Methods(http.MethodPost)
	api.HandleFunc("/matches", h.ListMatches).Methods(http.MethodGet)
	api.HandleFunc("/matches/{match_id}/messages", h.ListMessages).Methods(http.MethodGet)
	api.HandleFunc("/likes/count", h.LikesCount).Methods(http.MethodGet)
	api.HandleFunc("/blocks", h.PostBlock).Methods(http.MethodPost)

	return r
}
