package sourceexpr

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	e, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return e
}

func TestParsePrecedence(t *testing.T) {
	e := mustParse(t, "1 + 2 * 3")
	add, ok := e.(BinaryOp)
	if !ok || add.Op != OpAdd {
		t.Fatalf("top node = %+v, want an Add", e)
	}
	mul, ok := add.Right.(BinaryOp)
	if !ok || mul.Op != OpMul {
		t.Fatalf("right node = %+v, want a Mul", add.Right)
	}
}

func TestParseComparisonAndEquality(t *testing.T) {
	e := mustParse(t, "a < b == c")
	eq, ok := e.(BinaryOp)
	if !ok || eq.Op != OpEq {
		t.Fatalf("top node = %+v, want Eq", e)
	}
	if _, ok := eq.Left.(BinaryOp); !ok {
		t.Fatalf("left of == should be a comparison: %+v", eq.Left)
	}
}

func TestParseUnaryDereference(t *testing.T) {
	e := mustParse(t, "*p")
	u, ok := e.(UnaryOp)
	if !ok || u.Op != "*" {
		t.Fatalf("node = %+v, want a dereference", e)
	}
	if _, ok := u.Target.(Identifier); !ok {
		t.Fatalf("target = %+v, want Identifier", u.Target)
	}
}

func TestParsePostfixChain(t *testing.T) {
	e := mustParse(t, "p->next.value[0]")
	aa, ok := e.(ArrayAccess)
	if !ok {
		t.Fatalf("top node = %+v, want ArrayAccess", e)
	}
	ma, ok := aa.Array.(MemberAccess)
	if !ok || ma.Member != "value" {
		t.Fatalf("array base = %+v, want MemberAccess(value)", aa.Array)
	}
	mda, ok := ma.Base.(MemberDerefAccess)
	if !ok || mda.Member != "next" {
		t.Fatalf("member base = %+v, want MemberDerefAccess(next)", ma.Base)
	}
}

func TestParseEvaluatedExprReference(t *testing.T) {
	e := mustParse(t, "$3 + 1")
	add, ok := e.(BinaryOp)
	if !ok {
		t.Fatalf("node = %+v, want BinaryOp", e)
	}
	ee, ok := add.Left.(EvaluatedExpr)
	if !ok || ee.Index != 3 {
		t.Fatalf("left = %+v, want EvaluatedExpr(3)", add.Left)
	}
}

func TestParseParenthesesOverridePrecedence(t *testing.T) {
	e := mustParse(t, "(1 + 2) * 3")
	mul, ok := e.(BinaryOp)
	if !ok || mul.Op != OpMul {
		t.Fatalf("top node = %+v, want Mul", e)
	}
	if _, ok := mul.Left.(BinaryOp); !ok {
		t.Fatalf("left = %+v, want BinaryOp", mul.Left)
	}
}

func TestParseErrorReportsLocation(t *testing.T) {
	_, err := Parse(strings.NewReader("1 +"))
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T, want *ParseError: %v", err, err)
	}
	if perr.Row != 0 || perr.Col != 4 {
		t.Fatalf("error at %d:%d, want 0:4 (end of input)", perr.Row, perr.Col)
	}
}

func TestParseTrailingInputIsAnError(t *testing.T) {
	_, err := Parse(strings.NewReader("1 2"))
	if err == nil {
		t.Fatalf("expected an error for trailing input")
	}
}
