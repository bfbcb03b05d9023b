package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tablebuilder/internal/domain"
)

// CreateTableRequest is the body of POST /v1/tables.
type CreateTableRequest struct {
	Name    string              `json:"name"`
	Columns []domain.ColumnSpec `json:"columns"`
}

// UpdateTableRequest is the body of PUT /v1/tables/{tableName}. It carries
// the complete desired column set.
type UpdateTableRequest struct {
	Columns []domain.ColumnSpec `json:"columns"`
}

// ListTablesResponse is one page of table definitions.
type ListTablesResponse struct {
	Tables        []domain.TableDefinition `json:"tables"`
	TotalSize     int64                    `json:"total_size"`
	NextPageToken string                   `json:"next_page_token,omitempty"`
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defs, total, err := h.tables.ListTables(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListTablesResponse{
		Tables:        defs,
		TotalSize:     total,
		NextPageToken: page.Next(total),
	})
}

func (h *Handler) createTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := requiredString("name", req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	def, err := h.tables.CreateTable(r.Context(), req.Name, req.Columns)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/tables/"+def.Name)
	writeJSON(w, http.StatusCreated, def)
}

func (h *Handler) getTable(w http.ResponseWriter, r *http.Request) {
	def, err := h.tables.GetTable(r.Context(), chi.URLParam(r, "tableName"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *Handler) updateTable(w http.ResponseWriter, r *http.Request) {
	var req UpdateTableRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	def, err := h.tables.UpdateTable(r.Context(), chi.URLParam(r, "tableName"), req.Columns)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *Handler) deleteTable(w http.ResponseWriter, r *http.Request) {
	if err := h.tables.DeleteTable(r.Context(), chi.URLParam(r, "tableName")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) checkDrift(w http.ResponseWriter, r *http.Request) {
	report, err := h.tables.CheckDrift(r.Context(), chi.URLParam(r, "tableName"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) checkAllDrift(w http.ResponseWriter, r *http.Request) {
	reports, err := h.tables.CheckAllDrift(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
