package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikhailRaia/codekeeper/internal/middleware"
	"github.com/MikhailRaia/codekeeper/internal/service"
)

type listResponse struct {
	Codes []mappingResponse `json:"codes"`
}

type updateResponse struct {
	Message string          `json:"message"`
	Updated mappingResponse `json:"updated"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (h *Handler) handleShorten(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var in service.ShortenInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.mappings.Shorten(r.Context(), userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(m))
}

func (h *Handler) handleListCodes(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	mappings, err := h.mappings.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := listResponse{Codes: make([]mappingResponse, 0, len(mappings))}
	for _, m := range mappings {
		resp.Codes = append(resp.Codes, h.toResponse(m))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, idParam)

	var in service.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.mappings.Update(r.Context(), id, userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updateResponse{
		Message: "Short code updated",
		Updated: h.toResponse(m),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	id := chi.URLParam(r, idParam)

	if err := h.mappings.Delete(r.Context(), id, userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true})
}

func (h *Handler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, idParam)

	target, err := h.mappings.Resolve(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}
