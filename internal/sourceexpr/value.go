package sourceexpr

import (
	"fmt"
	"strings"

	"github.com/t86sim/t86/internal/dbginfo"
)

// ValueKind distinguishes the shapes a TypedValue can take.
type ValueKind int

const (
	KindInteger ValueKind = iota
	KindFloat
	KindChar
	KindPointer
	KindArray
	KindStruct
)

// Location is where a TypedValue's raw bits live, carried along so
// assignment can write back without re-resolving the identifier.
type Location struct {
	HasLocation bool
	Loc         []dbginfo.LocOp
}

// TypedValue is the result of evaluating an expression: a reinterpreted,
// typed view of the raw bits found at some location.
type TypedValue struct {
	Kind     ValueKind
	Int      int64
	Float    float64
	Char     byte
	PtrType  *dbginfo.TypeInfo // pointee type
	PtrValue uint64

	ArrayElem *dbginfo.TypeInfo
	ArrayBase uint64
	Elements  []TypedValue

	StructName   string
	StructSize   uint64
	StructFields map[string]TypedValue
	FieldOrder   []string

	Location
}

func (v TypedValue) String() string {
	switch v.Kind {
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindChar:
		return fmt.Sprintf("%q", v.Char)
	case KindPointer:
		name := "?"
		if v.PtrType != nil {
			name = v.PtrType.Name
		}
		return fmt.Sprintf("%s* = %d", name, v.PtrValue)
	case KindArray:
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			parts[i] = e.String()
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	case KindStruct:
		parts := make([]string, 0, len(v.FieldOrder))
		for _, name := range v.FieldOrder {
			parts = append(parts, fmt.Sprintf("%s: %s", name, v.StructFields[name]))
		}
		return fmt.Sprintf("%s = { %s }", v.StructName, strings.Join(parts, ", "))
	default:
		return "<invalid>"
	}
}

// IsZero reports whether a value is numerically zero, the rule Div/Mod use
// to detect division by zero.
func (v TypedValue) IsZero() bool {
	switch v.Kind {
	case KindInteger:
		return v.Int == 0
	case KindFloat:
		return v.Float == 0
	case KindChar:
		return v.Char == 0
	default:
		return false
	}
}
