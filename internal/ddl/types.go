package ddl

import (
	"fmt"

	"tablebuilder/internal/domain"
)

// TextMaxLength is the maximum length of a text column value.
const TextMaxLength = 255

// PhysicalKind is the storage class of a physical column.
type PhysicalKind int

// Physical kinds.
const (
	KindString PhysicalKind = iota + 1
	KindInt64
	KindBool
)

func (k PhysicalKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt64:
		return "int64"
	case KindBool:
		return "bool"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// PhysicalTypeSpec is the store-independent description of a physical column type.
type PhysicalTypeSpec struct {
	Kind   PhysicalKind
	Length int // maximum length for KindString, zero otherwise
}

// Equal reports whether two specs describe the same physical type.
func (s PhysicalTypeSpec) Equal(o PhysicalTypeSpec) bool {
	return s.Kind == o.Kind && s.Length == o.Length
}

func (s PhysicalTypeSpec) String() string {
	if s.Length > 0 {
		return fmt.Sprintf("%s(%d)", s.Kind, s.Length)
	}
	return s.Kind.String()
}

// PhysicalType maps a logical column type to its physical representation.
// Unknown tags fail closed with *domain.UnknownTypeError.
func PhysicalType(t domain.ColumnType) (PhysicalTypeSpec, error) {
	switch t {
	case domain.ColumnText:
		return PhysicalTypeSpec{Kind: KindString, Length: TextMaxLength}, nil
	case domain.ColumnInteger:
		return PhysicalTypeSpec{Kind: KindInt64}, nil
	case domain.ColumnBoolean:
		return PhysicalTypeSpec{Kind: KindBool}, nil
	}
	return PhysicalTypeSpec{}, &domain.UnknownTypeError{Type: string(t)}
}

// SameType reports whether two logical types share a physical representation.
func SameType(a, b domain.ColumnType) (bool, error) {
	pa, err := PhysicalType(a)
	if err != nil {
		return false, err
	}
	pb, err := PhysicalType(b)
	if err != nil {
		return false, err
	}
	return pa.Equal(pb), nil
}
