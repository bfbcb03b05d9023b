package dbstore

import (
	"database/sql"
	"time"
)

type DynamicTable struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DynamicColumn struct {
	ID         string
	TableID    string
	Name       string
	ColumnType string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AuditLog struct {
	ID            string
	PrincipalName string
	Action        string
	TableName     string
	Status        string
	Detail        sql.NullString
	ErrorMessage  sql.NullString
	DurationMs    sql.NullInt64
	CreatedAt     time.Time
}
