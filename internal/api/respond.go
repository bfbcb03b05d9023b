package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"tablebuilder/internal/domain"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Error is the JSON error body returned by every endpoint.
type Error struct {
	Code       int      `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	body := Error{Code: status, Message: err.Error()}

	var violations domain.RowValidationErrors
	if errors.As(err, &violations) {
		body.Message = "row does not match the table columns"
		for _, v := range violations {
			body.Violations = append(body.Violations, v.Error())
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, body)
}

// decodeBody decodes a JSON request body into dst. Numbers are kept as
// json.Number so integer values are not rounded through float64.
func decodeBody(r *http.Request, dst any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return domain.ErrValidation("read request body: %v", err)
	}
	if len(data) > maxBodyBytes {
		return domain.ErrValidation("request body exceeds %d bytes", maxBodyBytes)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrValidation("invalid JSON body: %v", err)
	}
	if dec.More() {
		return domain.ErrValidation("invalid JSON body: trailing data")
	}
	return nil
}

// pageFromQuery extracts a PageRequest from optional max_results/page_token params.
func pageFromQuery(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	p := domain.PageRequest{PageToken: q.Get("page_token")}
	if s := q.Get("max_results"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return p, domain.ErrValidation("max_results must be a non-negative integer, got %q", s)
		}
		p.MaxResults = n
	}
	return p, nil
}

func optionalQuery(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

func requiredString(name, v string) error {
	if v == "" {
		return domain.ErrValidation("%s is required", name)
	}
	return nil
}
