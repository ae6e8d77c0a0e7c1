package sourceexpr

import (
	"fmt"

	"github.com/t86sim/t86/internal/dbginfo"
)

func (ev *Evaluator) evalBinary(b BinaryOp) (TypedValue, error) {
	left, err := ev.Eval(b.Left)
	if err != nil {
		return TypedValue{}, err
	}
	right, err := ev.Eval(b.Right)
	if err != nil {
		return TypedValue{}, err
	}
	switch b.Op {
	case OpAdd:
		return addValues(left, right)
	case OpSub:
		return subValues(left, right)
	case OpMul:
		return arithmeticOp(left, right, func(a, b float64) float64 { return a * b })
	case OpDiv:
		if right.IsZero() {
			return TypedValue{}, fmt.Errorf("sourceexpr: division by zero")
		}
		return arithmeticOp(left, right, func(a, b float64) float64 { return a / b })
	case OpMod:
		if right.IsZero() {
			return TypedValue{}, fmt.Errorf("sourceexpr: modulus by zero")
		}
		return intOnlyOp(left, right, func(a, b int64) int64 { return a % b })
	case OpEq:
		return compareValues(left, right, func(a, b float64) bool { return a == b })
	case OpNeq:
		return compareValues(left, right, func(a, b float64) bool { return a != b })
	case OpLess:
		return compareValues(left, right, func(a, b float64) bool { return a < b })
	case OpLeq:
		return compareValues(left, right, func(a, b float64) bool { return a <= b })
	case OpGreater:
		return compareValues(left, right, func(a, b float64) bool { return a > b })
	case OpGeq:
		return compareValues(left, right, func(a, b float64) bool { return a >= b })
	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unknown binary operator")
	}
}

// addValues implements the promotion table: Int+Int->Int, Float+Float->
// Float, Char+Char->Int, Int+Pointer/Pointer+Int scales the integer by the
// pointee's size.
func addValues(left, right TypedValue) (TypedValue, error) {
	switch {
	case left.Kind == KindInteger && right.Kind == KindInteger:
		return TypedValue{Kind: KindInteger, Int: left.Int + right.Int}, nil
	case left.Kind == KindFloat && right.Kind == KindFloat:
		return TypedValue{Kind: KindFloat, Float: left.Float + right.Float}, nil
	case left.Kind == KindChar && right.Kind == KindChar:
		return TypedValue{Kind: KindInteger, Int: int64(left.Char) + int64(right.Char)}, nil
	case left.Kind == KindInteger && right.Kind == KindPointer:
		size := elemSize(right.PtrType)
		return TypedValue{Kind: KindPointer, PtrType: right.PtrType, PtrValue: right.PtrValue + uint64(left.Int)*size}, nil
	case left.Kind == KindPointer && right.Kind == KindInteger:
		size := elemSize(left.PtrType)
		return TypedValue{Kind: KindPointer, PtrType: left.PtrType, PtrValue: left.PtrValue + uint64(right.Int)*size}, nil
	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unsupported types for operator '+'")
	}
}

// subValues implements Int-Int->Int, Float-Float->Float, Pointer-Int->
// Pointer, Pointer-Pointer->Int (only when pointing to the same type).
func subValues(left, right TypedValue) (TypedValue, error) {
	switch {
	case left.Kind == KindInteger && right.Kind == KindInteger:
		return TypedValue{Kind: KindInteger, Int: left.Int - right.Int}, nil
	case left.Kind == KindFloat && right.Kind == KindFloat:
		return TypedValue{Kind: KindFloat, Float: left.Float - right.Float}, nil
	case left.Kind == KindPointer && right.Kind == KindInteger:
		size := elemSize(left.PtrType)
		return TypedValue{Kind: KindPointer, PtrType: left.PtrType, PtrValue: left.PtrValue - uint64(right.Int)*size}, nil
	case left.Kind == KindPointer && right.Kind == KindPointer:
		if !sameType(left.PtrType, right.PtrType) {
			return TypedValue{}, fmt.Errorf("sourceexpr: only pointers to the same type can be subtracted")
		}
		return TypedValue{Kind: KindInteger, Int: int64(left.PtrValue) - int64(right.PtrValue)}, nil
	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unsupported types for operator '-'")
	}
}

func elemSize(t *dbginfo.TypeInfo) uint64 {
	if t == nil || t.Size == 0 {
		return 1
	}
	return t.Size
}

func sameType(a, b *dbginfo.TypeInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind == b.Kind && a.Name == b.Name && a.Size == b.Size
}

// arithmeticOp implements Int op Int->Int, Float op Float->Float, Char op
// Char->Int via a shared floating-point operation, truncated back for the
// integer/char cases.
func arithmeticOp(left, right TypedValue, op func(a, b float64) float64) (TypedValue, error) {
	switch {
	case left.Kind == KindInteger && right.Kind == KindInteger:
		return TypedValue{Kind: KindInteger, Int: int64(op(float64(left.Int), float64(right.Int)))}, nil
	case left.Kind == KindFloat && right.Kind == KindFloat:
		return TypedValue{Kind: KindFloat, Float: op(left.Float, right.Float)}, nil
	case left.Kind == KindChar && right.Kind == KindChar:
		return TypedValue{Kind: KindInteger, Int: int64(op(float64(left.Char), float64(right.Char)))}, nil
	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unsupported types for binary operator")
	}
}

func intOnlyOp(left, right TypedValue, op func(a, b int64) int64) (TypedValue, error) {
	switch {
	case left.Kind == KindInteger && right.Kind == KindInteger:
		return TypedValue{Kind: KindInteger, Int: op(left.Int, right.Int)}, nil
	case left.Kind == KindChar && right.Kind == KindChar:
		return TypedValue{Kind: KindInteger, Int: op(int64(left.Char), int64(right.Char))}, nil
	default:
		return TypedValue{}, fmt.Errorf("sourceexpr: unsupported types for operator '%%'")
	}
}

// compareValues implements comparison across Int/Float/Char/Pointer,
// always producing an Integer (0 or 1).
func compareValues(left, right TypedValue, op func(a, b float64) bool) (TypedValue, error) {
	toFloat := func(v TypedValue) (float64, bool) {
		switch v.Kind {
		case KindInteger:
			return float64(v.Int), true
		case KindFloat:
			return v.Float, true
		case KindChar:
			return float64(v.Char), true
		case KindPointer:
			return float64(v.PtrValue), true
		default:
			return 0, false
		}
	}
	lf, ok1 := toFloat(left)
	rf, ok2 := toFloat(right)
	if !ok1 || !ok2 {
		return TypedValue{}, fmt.Errorf("sourceexpr: unsupported types for comparison operator")
	}
	var result int64
	if op(lf, rf) {
		result = 1
	}
	return TypedValue{Kind: KindInteger, Int: result}, nil
}
