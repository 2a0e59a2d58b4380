package server

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/amoradev/amora-backend/internal/config"
)

// StartHTTPServer boots the HTTP server with the given handler.
// ReadHeaderTimeout guards against slow-header clients; no write
// timeout because WebSocket connections are long-lived.
func StartHTTPServer(cfg *config.Config, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv.Serve(lis)
}
