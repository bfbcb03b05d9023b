package domain

import "time"

// Audit actions recorded for table lifecycle calls.
const (
	ActionCreateTable = "CREATE_TABLE"
	ActionUpdateTable = "UPDATE_TABLE"
	ActionDeleteTable = "DELETE_TABLE"
)

// Audit statuses.
const (
	AuditAllowed = "ALLOWED"
	AuditDenied  = "DENIED"
	AuditError   = "ERROR"
)

// AuditEntry represents a single audit log record.
type AuditEntry struct {
	ID            string    `json:"id"`
	PrincipalName string    `json:"principal_name"`
	Action        string    `json:"action"`
	TableName     string    `json:"table_name"`
	Status        string    `json:"status"` // "ALLOWED", "DENIED", "ERROR"
	Detail        *string   `json:"detail,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	DurationMs    *int64    `json:"duration_ms,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditFilter holds filter parameters for querying audit logs.
type AuditFilter struct {
	PrincipalName *string
	Action        *string
	TableName     *string
	Status        *string
	Since         *time.Time
	Page          PageRequest
}
