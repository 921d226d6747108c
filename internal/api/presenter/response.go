package presenter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/internal/core"
	"github.com/darmiel/fxrelay/internal/service"
)

type MessageResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type ErrorResponse struct {
	StatusCode    int    `json:"statusCode"`
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Message(w http.ResponseWriter, r *http.Request, msg string, status int) {
	JSON(w, r, MessageResponse{
		StatusCode: status,
		Message:    msg,
	}, status)
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	JSON(w, r, ErrorResponse{
		StatusCode:    status,
		Error:         msg,
		CorrelationID: core.CorrelationID(r.Context()),
	}, status)
}

// Err renders err with the status of a wrapped service.HTTPError.
// Any other error is rendered as an internal error without its message.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	var httpError service.HTTPError
	if errors.As(err, &httpError) {
		Error(w, r, httpError.Error(), httpError.StatusCode)
		return
	}
	Error(w, r, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
