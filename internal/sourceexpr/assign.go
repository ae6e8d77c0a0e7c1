package sourceexpr

import (
	"fmt"

	"github.com/t86sim/t86/internal/alu"
	"github.com/t86sim/t86/internal/dbginfo"
)

// Writer is the live-state surface an assignment needs on top of Machine:
// writing a named register or a memory word.
type Writer interface {
	Machine
	SetNamedRegister(name string, v int64) error
	SetMemory(addr int64, vals []int64) error
}

// Assign writes rhs into lhs's location. lhs must carry a location
// (HasLocation); primitives and pointers write back their raw bits
// directly, arrays and structs recurse field by field after checking the
// two values have the same shape.
func Assign(w Writer, lhs, rhs TypedValue) error {
	if !lhs.HasLocation {
		return fmt.Errorf("sourceexpr: left-hand side of assignment has no location")
	}
	switch lhs.Kind {
	case KindInteger, KindChar:
		raw, err := rawBitsForAssign(lhs.Kind, rhs)
		if err != nil {
			return err
		}
		return writeRaw(w, lhs.Loc, raw)
	case KindFloat:
		if rhs.Kind != KindFloat {
			return fmt.Errorf("sourceexpr: cannot assign a non-float value to a float")
		}
		return writeRaw(w, lhs.Loc, alu.PunInt(rhs.Float))
	case KindPointer:
		if rhs.Kind != KindPointer {
			return fmt.Errorf("sourceexpr: cannot assign a non-pointer value to a pointer")
		}
		return writeRaw(w, lhs.Loc, int64(rhs.PtrValue))
	case KindArray:
		if rhs.Kind != KindArray || len(rhs.Elements) != len(lhs.Elements) {
			return fmt.Errorf("sourceexpr: array assignment requires matching element counts")
		}
		for i := range lhs.Elements {
			if err := Assign(w, lhs.Elements[i], rhs.Elements[i]); err != nil {
				return err
			}
		}
		return nil
	case KindStruct:
		if rhs.Kind != KindStruct || rhs.StructName != lhs.StructName {
			return fmt.Errorf("sourceexpr: struct assignment requires matching types")
		}
		for _, name := range lhs.FieldOrder {
			rf, ok := rhs.StructFields[name]
			if !ok {
				return fmt.Errorf("sourceexpr: right-hand side is missing field %q", name)
			}
			if err := Assign(w, lhs.StructFields[name], rf); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("sourceexpr: assignment to this value kind is not supported")
	}
}

func rawBitsForAssign(kind ValueKind, rhs TypedValue) (int64, error) {
	switch rhs.Kind {
	case KindInteger:
		return rhs.Int, nil
	case KindChar:
		return int64(rhs.Char), nil
	default:
		return 0, fmt.Errorf("sourceexpr: cannot assign this value's type")
	}
}

func writeRaw(w Writer, loc []dbginfo.LocOp, raw int64) error {
	inReg, reg, addr, err := dbginfo.Resolve(loc, w)
	if err != nil {
		return err
	}
	if inReg {
		return w.SetNamedRegister(reg, raw)
	}
	return w.SetMemory(addr, []int64{raw})
}
