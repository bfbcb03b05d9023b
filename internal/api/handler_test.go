package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "tablebuilder/internal/db"
	"tablebuilder/internal/db/repository"
	"tablebuilder/internal/ddl"
	"tablebuilder/internal/domain"
	"tablebuilder/internal/engine"
	"tablebuilder/internal/service/table"
	"tablebuilder/internal/testutil"
)

// setupTestServer wires the API on a real SQLite metastore that doubles as
// the data store.
func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)

	dialect := ddl.SQLiteDialect{}
	auditRepo := repository.NewAuditRepo(writeDB)
	reg := table.NewRegistry(
		repository.NewTableRepo(writeDB),
		engine.NewExecutor(writeDB, dialect, true, nil),
		engine.NewRowStore(writeDB, readDB, dialect),
		auditRepo,
		nil,
	)
	require.NoError(t, reg.Load(context.Background()))

	r := chi.NewRouter()
	r.Route("/v1", NewHandler(reg, auditRepo, nil).Routes)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(domain.WithPrincipal(req.Context(), domain.ContextPrincipal{Name: "alice", Type: "user"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func columnTypes(def domain.TableDefinition) map[string]domain.ColumnType {
	return def.ColumnMap()
}

func TestTableLifecycle(t *testing.T) {
	srv := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{
		Name:    "people",
		Columns: []domain.ColumnSpec{{Name: "name", Type: "text"}, {Name: "age", Type: "Integer"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/v1/tables/people", rec.Header().Get("Location"))
	created := decodeResponse[domain.TableDefinition](t, rec)
	assert.Equal(t, map[string]domain.ColumnType{"name": domain.ColumnText, "age": domain.ColumnInteger}, columnTypes(created))

	rec = doRequest(t, srv, http.MethodGet, "/v1/tables/people", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeResponse[domain.TableDefinition](t, rec)
	assert.Equal(t, created.ID, got.ID)

	rec = doRequest(t, srv, http.MethodPut, "/v1/tables/people", UpdateTableRequest{
		Columns: []domain.ColumnSpec{{Name: "name", Type: "text"}, {Name: "active", Type: "boolean"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeResponse[domain.TableDefinition](t, rec)
	assert.Equal(t, map[string]domain.ColumnType{"name": domain.ColumnText, "active": domain.ColumnBoolean}, columnTypes(updated))

	rec = doRequest(t, srv, http.MethodGet, "/v1/tables/people/drift", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeResponse[table.DriftReport](t, rec)
	assert.True(t, report.InSync)

	rec = doRequest(t, srv, http.MethodDelete, "/v1/tables/people", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/tables/people", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	apiErr := decodeResponse[Error](t, rec)
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.Contains(t, apiErr.Message, "not found")
}

func TestCreateTable_Errors(t *testing.T) {
	srv := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{Name: "taken"})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantErr    string
	}{
		{name: "missing_name", body: CreateTableRequest{}, wantStatus: http.StatusBadRequest, wantErr: "name is required"},
		{name: "bad_table_name", body: CreateTableRequest{Name: "Bad-Name"}, wantStatus: http.StatusBadRequest, wantErr: "invalid table name"},
		{name: "reserved_table", body: CreateTableRequest{Name: "audit_log"}, wantStatus: http.StatusBadRequest, wantErr: "reserved"},
		{
			name:       "id_column",
			body:       CreateTableRequest{Name: "t", Columns: []domain.ColumnSpec{{Name: "id", Type: "integer"}}},
			wantStatus: http.StatusBadRequest,
			wantErr:    "row identity column",
		},
		{
			name:       "unknown_type",
			body:       CreateTableRequest{Name: "t", Columns: []domain.ColumnSpec{{Name: "a", Type: "float"}}},
			wantStatus: http.StatusBadRequest,
			wantErr:    "unknown column type",
		},
		{name: "duplicate_table", body: CreateTableRequest{Name: "taken"}, wantStatus: http.StatusConflict, wantErr: "already exists"},
		{name: "malformed_json", body: `{"name":`, wantStatus: http.StatusBadRequest, wantErr: "invalid JSON body"},
		{name: "unknown_field", body: `{"name":"t","colums":[]}`, wantStatus: http.StatusBadRequest, wantErr: "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/v1/tables", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			apiErr := decodeResponse[Error](t, rec)
			assert.Contains(t, apiErr.Message, tt.wantErr)
		})
	}
}

func TestUpdateTable_NotFound(t *testing.T) {
	srv := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodPut, "/v1/tables/ghost", UpdateTableRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/v1/tables/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTables_Pagination(t *testing.T) {
	srv := setupTestServer(t)
	for _, name := range []string{"c", "a", "b"} {
		rec := doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{Name: name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/v1/tables?max_results=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeResponse[ListTablesResponse](t, rec)
	require.Len(t, first.Tables, 2)
	assert.Equal(t, "a", first.Tables[0].Name)
	assert.Equal(t, "b", first.Tables[1].Name)
	assert.Equal(t, int64(3), first.TotalSize)
	require.NotEmpty(t, first.NextPageToken)

	rec = doRequest(t, srv, http.MethodGet, "/v1/tables?max_results=2&page_token="+first.NextPageToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeResponse[ListTablesResponse](t, rec)
	require.Len(t, second.Tables, 1)
	assert.Equal(t, "c", second.Tables[0].Name)
	assert.Empty(t, second.NextPageToken)

	rec = doRequest(t, srv, http.MethodGet, "/v1/tables?max_results=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRows(t *testing.T) {
	srv := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{
		Name: "items",
		Columns: []domain.ColumnSpec{
			{Name: "title", Type: "text"},
			{Name: "qty", Type: "integer"},
			{Name: "done", Type: "boolean"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/v1/tables/items/rows", `{"title":"pen","qty":9007199254740993,"done":"yes"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":1,"title":"pen","qty":9007199254740993,"done":true}`, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPost, "/v1/tables/items/rows", map[string]any{"title": "cup", "qty": 2, "done": false})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, "/v1/tables/items/rows?max_results=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Rows          []map[string]any `json:"rows"`
		TotalSize     int64            `json:"total_size"`
		NextPageToken string           `json:"next_page_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "pen", page.Rows[0]["title"])
	assert.Equal(t, int64(2), page.TotalSize)
	assert.NotEmpty(t, page.NextPageToken)
}

func TestInsertRow_Errors(t *testing.T) {
	srv := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{
		Name:    "items",
		Columns: []domain.ColumnSpec{{Name: "qty", Type: "integer"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name           string
		path           string
		body           any
		wantStatus     int
		wantViolations []string
	}{
		{name: "unknown_table", path: "/v1/tables/ghost/rows", body: `{}`, wantStatus: http.StatusNotFound},
		{name: "not_an_object", path: "/v1/tables/items/rows", body: `null`, wantStatus: http.StatusBadRequest},
		{
			name:           "missing_and_unknown",
			path:           "/v1/tables/items/rows",
			body:           `{"extra":1}`,
			wantStatus:     http.StatusBadRequest,
			wantViolations: []string{"missing_column", "unknown_column"},
		},
		{
			name:           "type_mismatch",
			path:           "/v1/tables/items/rows",
			body:           `{"qty":"many"}`,
			wantStatus:     http.StatusBadRequest,
			wantViolations: []string{"type_mismatch"},
		},
		{
			name:           "identity_supplied",
			path:           "/v1/tables/items/rows",
			body:           `{"id":5,"qty":1}`,
			wantStatus:     http.StatusBadRequest,
			wantViolations: []string{"identity column"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			apiErr := decodeResponse[Error](t, rec)
			require.Len(t, apiErr.Violations, len(tt.wantViolations))
			for i, want := range tt.wantViolations {
				assert.Contains(t, apiErr.Violations[i], want)
			}
		})
	}
}

func TestListAudit(t *testing.T) {
	srv := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{Name: "a"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{Name: "a"})
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = doRequest(t, srv, http.MethodDelete, "/v1/tables/a", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeResponse[ListAuditResponse](t, rec)
	require.Len(t, all.Entries, 3)
	for _, e := range all.Entries {
		assert.Equal(t, "alice", e.PrincipalName)
		assert.Equal(t, "a", e.TableName)
	}

	rec = doRequest(t, srv, http.MethodGet, "/v1/audit?status=ERROR", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	failed := decodeResponse[ListAuditResponse](t, rec)
	require.Len(t, failed.Entries, 1)
	assert.Equal(t, domain.ActionCreateTable, failed.Entries[0].Action)

	rec = doRequest(t, srv, http.MethodGet, "/v1/audit?action=DELETE_TABLE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse[ListAuditResponse](t, rec).Entries, 1)

	rec = doRequest(t, srv, http.MethodGet, "/v1/audit?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckAllDrift(t *testing.T) {
	srv := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/v1/tables", CreateTableRequest{Name: "a"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/v1/drift", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Reports []table.DriftReport `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reports, 1)
	assert.True(t, body.Reports[0].InSync)
}

func TestHTTPStatusFromDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not_found", err: domain.ErrNotFound("x"), want: http.StatusNotFound},
		{name: "access_denied", err: domain.ErrAccessDenied("x"), want: http.StatusForbidden},
		{name: "validation", err: domain.ErrValidation("x"), want: http.StatusBadRequest},
		{name: "conflict", err: domain.ErrConflict("x"), want: http.StatusConflict},
		{name: "invalid_identifier", err: &domain.InvalidIdentifierError{Kind: domain.TableName}, want: http.StatusBadRequest},
		{name: "unknown_type", err: &domain.UnknownTypeError{Type: "float"}, want: http.StatusBadRequest},
		{
			name: "row_violations",
			err:  domain.RowValidationErrors{{Column: "a", Reason: domain.MissingColumn}},
			want: http.StatusBadRequest,
		},
		{name: "schema_apply", err: &domain.SchemaApplyError{Op: "create", Err: errors.New("boom")}, want: http.StatusInternalServerError},
		{name: "deadline", err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httpStatusFromDomainError(tt.err))
		})
	}
}

func TestHandler_ServiceErrorIsLoggedAndMapped(t *testing.T) {
	audit := &testutil.MockAuditRepo{
		ListFn: func(context.Context, domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
			return nil, 0, errors.New("database is locked")
		},
	}
	r := chi.NewRouter()
	r.Route("/v1", NewHandler(nil, audit, nil).Routes)

	rec := doRequest(t, r, http.MethodGet, "/v1/audit", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}
