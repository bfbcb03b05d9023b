package declarative

import "tablebuilder/internal/domain"

// APIVersion is the only apiVersion accepted in manifests.
const APIVersion = "tablebuilder/v1"

// Document kinds.
const (
	DocKindTable     = "Table"
	DocKindTableList = "TableList"
)

// Document is the generic envelope parsed first to determine Kind.
type Document struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
}

// ObjectMeta holds common metadata for named resources.
type ObjectMeta struct {
	Name               string `yaml:"name"`
	DeletionProtection bool   `yaml:"deletion_protection,omitempty"`
}

// TableDoc declares a single table.
type TableDoc struct {
	APIVersion string     `yaml:"apiVersion"`
	Kind       string     `yaml:"kind"`
	Metadata   ObjectMeta `yaml:"metadata"`
	Spec       TableSpec  `yaml:"spec"`
}

// TableListDoc declares several tables in one document.
type TableListDoc struct {
	APIVersion string          `yaml:"apiVersion"`
	Kind       string          `yaml:"kind"`
	Tables     []TableListItem `yaml:"tables"`
}

// TableListItem is one entry of a TableListDoc.
type TableListItem struct {
	Name               string              `yaml:"name"`
	DeletionProtection bool                `yaml:"deletion_protection,omitempty"`
	Columns            []domain.ColumnSpec `yaml:"columns"`
}

// TableSpec is the desired column set of a table, in declaration order.
type TableSpec struct {
	Columns []domain.ColumnSpec `yaml:"columns"`
}

// TableResource is a table declared somewhere in the config directory.
type TableResource struct {
	Name string
	// DeletionProtection refuses plans that remove or retype its columns.
	DeletionProtection bool
	Spec               TableSpec
	// Source is the manifest path relative to the config directory.
	Source string
}

// DesiredState is the full set of resources declared in a config directory.
type DesiredState struct {
	Tables []TableResource
}
