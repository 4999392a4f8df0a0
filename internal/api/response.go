package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/raine/bookrelist/internal/book"
	"github.com/raine/bookrelist/internal/marketplace"
	"github.com/raine/bookrelist/internal/service"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps service errors to status codes. Unknown errors are logged
// and answered with 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case service.IsValidation(err):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Buch nicht gefunden")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeErrorMessage(w, http.StatusInternalServerError, err.Error())
	}
}

// resultResponse is a marketplace result, optionally with the updated book.
type resultResponse struct {
	marketplace.Result
	Book *bookResponse `json:"book,omitempty"`
}

func resultStatus(res marketplace.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.Kind == marketplace.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeResult(w http.ResponseWriter, rec *book.Record, res marketplace.Result) {
	out := resultResponse{Result: res}
	if rec != nil {
		v := newBookResponse(rec)
		out.Book = &v
	}
	writeJSON(w, resultStatus(res), out)
}
