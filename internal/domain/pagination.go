package domain

import (
	"encoding/base64"
	"strconv"
)

// Page size bounds for list operations.
const (
	DefaultMaxResults = 100
	MaxMaxResults     = 1000
)

// PageRequest holds pagination parameters for list operations.
type PageRequest struct {
	MaxResults int
	PageToken  string // base64-encoded offset
}

// Offset decodes the page token. Empty or malformed tokens start at 0.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	raw, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Limit returns the page size clamped to [1, MaxMaxResults].
func (p PageRequest) Limit() int {
	switch {
	case p.MaxResults <= 0:
		return DefaultMaxResults
	case p.MaxResults > MaxMaxResults:
		return MaxMaxResults
	}
	return p.MaxResults
}

// Next returns the token of the page after p, or "" when total is exhausted.
func (p PageRequest) Next(total int64) string {
	next := p.Offset() + p.Limit()
	if int64(next) >= total {
		return ""
	}
	return EncodePageToken(next)
}

// EncodePageToken turns an offset into an opaque token.
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}
