package declarative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebuilder/internal/domain"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tables  []TableResource
		wantErr []string
	}{
		{
			name: "valid",
			tables: []TableResource{
				{Name: "orders", Spec: TableSpec{Columns: []domain.ColumnSpec{{Name: "qty", Type: "integer"}}}},
				{Name: "empty"},
			},
		},
		{
			name:    "bad_table_name",
			tables:  []TableResource{{Name: "Orders", Source: "a.yaml"}},
			wantErr: []string{"a.yaml: table[Orders]", "lowercase"},
		},
		{
			name:    "reserved_table_name",
			tables:  []TableResource{{Name: "dynamic_columns"}},
			wantErr: []string{"reserved"},
		},
		{
			name: "duplicate_table",
			tables: []TableResource{
				{Name: "t", Source: "a.yaml"},
				{Name: "t", Source: "b.yaml"},
			},
			wantErr: []string{"b.yaml: table[t]", "already declared in a.yaml"},
		},
		{
			name: "bad_column_type",
			tables: []TableResource{
				{Name: "t", Spec: TableSpec{Columns: []domain.ColumnSpec{{Name: "a", Type: "float"}}}},
			},
			wantErr: []string{"unknown column type"},
		},
		{
			name: "duplicate_column",
			tables: []TableResource{
				{Name: "t", Spec: TableSpec{Columns: []domain.ColumnSpec{{Name: "a", Type: "text"}, {Name: "a", Type: "text"}}}},
			},
			wantErr: []string{"duplicate column"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&DesiredState{Tables: tt.tables})
			if len(tt.wantErr) == 0 {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			for _, want := range tt.wantErr {
				assert.Contains(t, errs[0].Error(), want)
			}
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	errs := Validate(&DesiredState{Tables: []TableResource{
		{Name: "1bad"},
		{Name: "ok", Spec: TableSpec{Columns: []domain.ColumnSpec{{Name: "id", Type: "integer"}}}},
	}})
	assert.Len(t, errs, 2)
}
