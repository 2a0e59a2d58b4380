package server

import (
	"encoding/json"
	"net/http"

	svcErr "github.com/amoradev/amora-backend/internal/errors"
	"github.com/amoradev/amora-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "err", err)
	}
}

// writeError maps the error to an HTTP status via the central mapper.
// Internal errors are logged but not leaked to the client.
func writeError(w http.ResponseWriter, err error) {
	status := svcErr.HTTPStatus(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
		msg = "internal error"
	}

	writeJSON(w, status, errorResponse{Error: msg})
}
