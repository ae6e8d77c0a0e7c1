package sourceexpr

import (
	"fmt"
	"strings"

	"github.com/t86sim/t86/internal/alu"
	"github.com/t86sim/t86/internal/dbginfo"
)

// Machine is the live-state surface an evaluator needs: register and
// frame-base access for resolving location expressions, memory access for
// reading the values those locations name, and the current program
// counter for scoping identifier lookup. *debugclient.Native satisfies
// this structurally.
type Machine interface {
	dbginfo.Machine
	ReadMemory(addr int64, count int) ([]int64, error)
	GetIP() int64
}

// Evaluator walks a parsed expression against a program's debugging
// information and a live machine, producing a TypedValue.
type Evaluator struct {
	Info       *dbginfo.Info
	Machine    Machine
	Evaluated  []TypedValue // the `$N` list a debugger REPL supplies
}

// NewEvaluator builds an evaluator over info and m, with evaluated as the
// list `$N` expressions reference.
func NewEvaluator(info *dbginfo.Info, m Machine, evaluated []TypedValue) *Evaluator {
	return &Evaluator{Info: info, Machine: m, Evaluated: evaluated}
}

// Eval evaluates e and returns its value.
func (ev *Evaluator) Eval(e Expr) (TypedValue, error) {
	switch n := e.(type) {
	case Integer:
		return TypedValue{Kind: KindInteger, Int: n.Value}, nil
	case Float:
		return TypedValue{Kind: KindFloat, Float: n.Value}, nil
	case Char:
		return TypedValue{Kind: KindChar, Char: n.Value}, nil
	case EvaluatedExpr:
		if n.Index < 0 || n.Index >= len(ev.Evaluated) {
			return TypedValue{}, fmt.Errorf("sourceexpr: no expression $%d", n.Index)
		}
		return ev.Evaluated[n.Index], nil
	case Identifier:
		return ev.evalIdentifier(n)
	case UnaryOp:
		return ev.evalUnary(n)
	case BinaryOp:
		return ev.evalBinary(n)
	case ArrayAccess:
		return ev.evalArrayAccess(n)
	case MemberAccess:
		base, err := ev.Eval(n.Base)
		if err != nil {
			return TypedValue{}, err
		}
		return accessMember(base, n.Member)
	case MemberDerefAccess:
		base, err := ev.Eval(n.Base)
		if err != nil {
			return TypedValue{}, err
		}
		deref, err := ev.dereference(base)
		if err != nil {
			return TypedValue{}, err
		}
		return accessMember(deref, n.Member)
	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unhandled expression node %T", e)
	}
}

func (ev *Evaluator) evalIdentifier(id Identifier) (TypedValue, error) {
	pc := uint64(ev.Machine.GetIP())
	loc, ok := ev.Info.VariableLocation(pc, id.Name)
	if !ok {
		return TypedValue{}, fmt.Errorf("sourceexpr: not enough debug info about variable %q", id.Name)
	}
	typ, err := ev.Info.VariableType(pc, id.Name)
	if err != nil {
		return TypedValue{}, fmt.Errorf("sourceexpr: not enough debug info about variable %q: %w", id.Name, err)
	}
	return ev.evalTypeAndLocation(loc, typ)
}

// evalTypeAndLocation reinterprets the raw bits at loc according to typ,
// recursing into struct fields and array elements.
func (ev *Evaluator) evalTypeAndLocation(loc []dbginfo.LocOp, typ *dbginfo.TypeInfo) (TypedValue, error) {
	switch typ.Kind {
	case dbginfo.TypePrimitive:
		raw, err := ev.rawValueAt(loc)
		if err != nil {
			return TypedValue{}, err
		}
		v := reinterpretPrimitive(typ, raw)
		v.HasLocation = true
		v.Loc = loc
		return v, nil

	case dbginfo.TypePointer:
		raw, err := ev.rawValueAt(loc)
		if err != nil {
			return TypedValue{}, err
		}
		return TypedValue{
			Kind: KindPointer, PtrType: typ.Pointee, PtrValue: uint64(raw),
			Location: Location{HasLocation: true, Loc: loc},
		}, nil

	case dbginfo.TypeStructured:
		fields := map[string]TypedValue{}
		var order []string
		for _, f := range typ.Fields {
			memberLoc := []dbginfo.LocOp{
				{Kind: dbginfo.LocOpPush, PushValue: pushAsOffsetLocation(loc, ev.Machine)},
				{Kind: dbginfo.LocOpPush, PushValue: dbginfo.Location{Kind: dbginfo.LocOffset, Offset: f.Offset}},
				{Kind: dbginfo.LocOpAdd},
			}
			fv, err := ev.evalTypeAndLocation(memberLoc, f.Type)
			if err != nil {
				return TypedValue{}, err
			}
			fields[f.Name] = fv
			order = append(order, f.Name)
		}
		return TypedValue{
			Kind: KindStruct, StructName: typ.Name, StructSize: typ.Size,
			StructFields: fields, FieldOrder: order,
			Location: Location{HasLocation: true, Loc: loc},
		}, nil

	case dbginfo.TypeArray:
		_, _, base, err := dbginfo.Resolve(loc, ev.Machine)
		if err != nil {
			return TypedValue{}, fmt.Errorf("sourceexpr: array stored in a register is not supported: %w", err)
		}
		var elems []TypedValue
		for i := uint64(0); i < typ.Count; i++ {
			elemAddr := base + int64(i*typ.Elem.Size)
			elemLoc := []dbginfo.LocOp{{Kind: dbginfo.LocOpPush, PushValue: dbginfo.Location{Kind: dbginfo.LocOffset, Offset: elemAddr}}}
			ev2, err := ev.evalTypeAndLocation(elemLoc, typ.Elem)
			if err != nil {
				return TypedValue{}, err
			}
			elems = append(elems, ev2)
		}
		return TypedValue{
			Kind: KindArray, ArrayElem: typ.Elem, ArrayBase: uint64(base), Elements: elems,
			Location: Location{HasLocation: true, Loc: loc},
		}, nil

	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unsupported type kind %v", typ.Kind)
	}
}

// pushAsOffsetLocation resolves loc to a plain numeric offset location, so
// a struct field's member-location program can add a byte offset to it
// regardless of whether loc itself was a register or a computed address.
func pushAsOffsetLocation(loc []dbginfo.LocOp, m Machine) dbginfo.Location {
	inReg, reg, addr, err := dbginfo.Resolve(loc, m)
	if err == nil && inReg {
		return dbginfo.Location{Kind: dbginfo.LocRegister, Register: reg}
	}
	return dbginfo.Location{Kind: dbginfo.LocOffset, Offset: addr}
}

func (ev *Evaluator) rawValueAt(loc []dbginfo.LocOp) (int64, error) {
	inReg, reg, addr, err := dbginfo.Resolve(loc, ev.Machine)
	if err != nil {
		return 0, err
	}
	if inReg {
		return ev.Machine.GetNamedRegister(reg)
	}
	vals, err := ev.Machine.ReadMemory(addr, 1)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("sourceexpr: read of address %d returned no data", addr)
	}
	return vals[0], nil
}

func reinterpretPrimitive(typ *dbginfo.TypeInfo, raw int64) TypedValue {
	name := strings.ToLower(typ.Name)
	switch {
	case strings.Contains(name, "float") || strings.Contains(name, "double"):
		return TypedValue{Kind: KindFloat, Float: alu.PunFloat(raw)}
	case strings.Contains(name, "char"):
		return TypedValue{Kind: KindChar, Char: byte(raw)}
	default:
		return TypedValue{Kind: KindInteger, Int: raw}
	}
}

func (ev *Evaluator) dereference(v TypedValue) (TypedValue, error) {
	if v.Kind != KindPointer {
		return TypedValue{}, fmt.Errorf("sourceexpr: can only dereference a pointer")
	}
	if v.PtrType == nil {
		return TypedValue{}, fmt.Errorf("sourceexpr: not enough type information to dereference")
	}
	loc := []dbginfo.LocOp{{Kind: dbginfo.LocOpPush, PushValue: dbginfo.Location{Kind: dbginfo.LocOffset, Offset: int64(v.PtrValue)}}}
	return ev.evalTypeAndLocation(loc, v.PtrType)
}

func (ev *Evaluator) evalUnary(u UnaryOp) (TypedValue, error) {
	target, err := ev.Eval(u.Target)
	if err != nil {
		return TypedValue{}, err
	}
	switch u.Op {
	case "*":
		return ev.dereference(target)
	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unknown unary operator %q", u.Op)
	}
}

func (ev *Evaluator) evalArrayAccess(a ArrayAccess) (TypedValue, error) {
	arr, err := ev.Eval(a.Array)
	if err != nil {
		return TypedValue{}, err
	}
	idx, err := ev.Eval(a.Index)
	if err != nil {
		return TypedValue{}, err
	}
	if arr.Kind == KindPointer {
		sum, err := addValues(arr, idx)
		if err != nil {
			return TypedValue{}, err
		}
		return ev.dereference(sum)
	}
	if arr.Kind == KindArray {
		if idx.Kind != KindInteger {
			return TypedValue{}, fmt.Errorf("sourceexpr: array index must be an integer")
		}
		if idx.Int < 0 || int(idx.Int) >= len(arr.Elements) {
			return TypedValue{}, fmt.Errorf("sourceexpr: out of bounds access: %d >= %d", idx.Int, len(arr.Elements))
		}
		return arr.Elements[idx.Int], nil
	}
	return TypedValue{}, fmt.Errorf("sourceexpr: can only index arrays or pointers")
}

func accessMember(base TypedValue, member string) (TypedValue, error) {
	if base.Kind != KindStruct {
		return TypedValue{}, fmt.Errorf("sourceexpr: member access can only be used on a structured value")
	}
	v, ok := base.StructFields[member]
	if !ok {
		return TypedValue{}, fmt.Errorf("sourceexpr: %q has no member %q", base.StructName, member)
	}
	return v, nil
}
