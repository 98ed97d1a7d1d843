package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/MikhailRaia/codekeeper/internal/model"
	"github.com/MikhailRaia/codekeeper/internal/pool"
	"github.com/MikhailRaia/codekeeper/internal/service"
	"github.com/MikhailRaia/codekeeper/internal/validation"
)

const maxBodyBytes = 1 << 20

var buffers = pool.New(64, func() *bytes.Buffer { return new(bytes.Buffer) })

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type mappingResponse struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"shortCode"`
	TargetURL string    `json:"targetURL"`
	ShortURL  string    `json:"shortURL"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *Handler) toResponse(m model.URLMapping) mappingResponse {
	return mappingResponse{
		ID:        m.ID,
		ShortCode: m.ShortCode,
		TargetURL: m.TargetURL,
		ShortURL:  shortURL(h.opts.BaseURL, m.ShortCode),
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func shortURL(baseURL, code string) string {
	joined, err := url.JoinPath(baseURL, code)
	if err != nil {
		return baseURL + "/" + code
	}
	return joined
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	buf := buffers.Get()
	defer buffers.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// decodeJSON reads a single JSON object into dst. A malformed body is
// reported as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.NewError("body", "request body is empty")
		}
		return validation.NewError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// writeError maps service errors onto HTTP statuses. Unknown errors are
// logged and answered with an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, service.ErrCodeTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrEmailTaken):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFoundOrUnauthorized), errors.Is(err, service.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Invalid URL"})
	default:
		logFailure(r, err, "Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func logFailure(r *http.Request, err error, msg string) {
	log.Error().
		Err(err).
		Str("request_id", chimiddleware.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Msg(msg)
}
