package api

import (
	"net/http"
	"time"

	"tablebuilder/internal/domain"
)

// ListAuditResponse is one page of audit entries, newest first.
type ListAuditResponse struct {
	Entries       []domain.AuditEntry `json:"entries"`
	TotalSize     int64               `json:"total_size"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	filter := domain.AuditFilter{
		PrincipalName: optionalQuery(r, "principal_name"),
		Action:        optionalQuery(r, "action"),
		TableName:     optionalQuery(r, "table_name"),
		Status:        optionalQuery(r, "status"),
		Page:          page,
	}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.writeError(w, r, domain.ErrValidation("since must be an RFC 3339 timestamp, got %q", s))
			return
		}
		filter.Since = &since
	}

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, ListAuditResponse{
		Entries:       entries,
		TotalSize:     total,
		NextPageToken: page.Next(total),
	})
}
