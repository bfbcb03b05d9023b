package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tablebuilder/internal/domain"
)

// ListRowsResponse is one page of rows.
type ListRowsResponse struct {
	Rows          []domain.Row `json:"rows"`
	TotalSize     int64        `json:"total_size"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

func (h *Handler) insertRow(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		h.writeError(w, r, err)
		return
	}
	if fields == nil {
		h.writeError(w, r, domain.ErrValidation("row body must be a JSON object"))
		return
	}
	row, err := h.tables.InsertRow(r.Context(), chi.URLParam(r, "tableName"), fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *Handler) listRows(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, total, err := h.tables.ListRows(r.Context(), chi.URLParam(r, "tableName"), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.Row{}
	}
	writeJSON(w, http.StatusOK, ListRowsResponse{
		Rows:          rows,
		TotalSize:     total,
		NextPageToken: page.Next(total),
	})
}
