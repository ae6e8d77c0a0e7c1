package dbginfo

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Info {
	t.Helper()
	info, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return info
}

func TestParseDebugLine(t *testing.T) {
	info := mustParse(t, ".debug_line\n1:0\n2:4\n2:8\n")
	addr, ok := info.LineToAddr(1)
	if !ok || addr != 0 {
		t.Fatalf("LineToAddr(1) = %d, %v", addr, ok)
	}
	lines := info.Lines.Lines(8)
	if len(lines) != 1 || lines[0] != 2 {
		t.Fatalf("Lines(8) = %v", lines)
	}
}

func TestParseDebugInfoFunctionAndVariable(t *testing.T) {
	src := ".debug_info\n" +
		"DIE_compilation_unit: {\n" +
		"  DIE_function: {\n" +
		"    ATTR_name: main,\n" +
		"    ATTR_begin_addr: 0,\n" +
		"    ATTR_end_addr: 20,\n" +
		"    DIE_variable: {\n" +
		"      ATTR_name: x,\n" +
		"      ATTR_type: 1,\n" +
		"      ATTR_location: `BASE_REG_OFFSET -8`\n" +
		"    }\n" +
		"  },\n" +
		"  DIE_primitive_type: {\n" +
		"    ATTR_id: 1,\n" +
		"    ATTR_name: int,\n" +
		"    ATTR_size: 8\n" +
		"  }\n" +
		"}\n"
	info := mustParse(t, src)

	addr, ok := info.AddrFunctionByName("main")
	if !ok || addr != 0 {
		t.Fatalf("AddrFunctionByName(main) = %d, %v", addr, ok)
	}
	name, ok := info.FunctionNameByAddress(10)
	if !ok || name != "main" {
		t.Fatalf("FunctionNameByAddress(10) = %q, %v", name, ok)
	}

	loc, ok := info.VariableLocation(10, "x")
	if !ok || len(loc) != 1 || loc[0].Kind != LocOpFrameBaseOffset || loc[0].FrameOffset != -8 {
		t.Fatalf("VariableLocation(x) = %+v, %v", loc, ok)
	}

	typ, err := info.VariableType(10, "x")
	if err != nil {
		t.Fatalf("VariableType: %v", err)
	}
	if typ.Kind != TypePrimitive || typ.Name != "int" || typ.Size != 8 {
		t.Fatalf("VariableType = %+v", typ)
	}
}

func TestParseDebugInfoStructuredType(t *testing.T) {
	src := ".debug_info\n" +
		"DIE_structured_type: {\n" +
		"  ATTR_id: 2,\n" +
		"  ATTR_name: Point,\n" +
		"  ATTR_size: 16,\n" +
		"  ATTR_members: { 0:1, 8:1 },\n" +
		"  DIE_variable: { ATTR_name: x, ATTR_begin_addr: 0 },\n" +
		"  DIE_variable: { ATTR_name: y, ATTR_begin_addr: 8 }\n" +
		"},\n" +
		"DIE_primitive_type: { ATTR_id: 1, ATTR_name: int, ATTR_size: 8 }\n"
	info := mustParse(t, src)

	typ, err := info.ReconstructType(2)
	if err != nil {
		t.Fatalf("ReconstructType: %v", err)
	}
	if typ.Kind != TypeStructured || typ.Name != "Point" || len(typ.Fields) != 2 {
		t.Fatalf("ReconstructType(2) = %+v", typ)
	}
	if typ.Fields[0].Name != "x" || typ.Fields[1].Name != "y" {
		t.Fatalf("fields = %+v", typ.Fields)
	}
}

func TestParseDebugInfoPointerAndArray(t *testing.T) {
	src := ".debug_info\n" +
		"DIE_pointer_type: { ATTR_id: 3, ATTR_type: 1 },\n" +
		"DIE_array_type: { ATTR_id: 4, ATTR_type: 1, ATTR_count: 5 },\n" +
		"DIE_primitive_type: { ATTR_id: 1, ATTR_name: int, ATTR_size: 8 }\n"
	info := mustParse(t, src)

	ptr, err := info.ReconstructType(3)
	if err != nil {
		t.Fatalf("ReconstructType(ptr): %v", err)
	}
	if ptr.Kind != TypePointer || ptr.Pointee.Name != "int" || ptr.Size != 8 {
		t.Fatalf("pointer type = %+v", ptr)
	}

	arr, err := info.ReconstructType(4)
	if err != nil {
		t.Fatalf("ReconstructType(arr): %v", err)
	}
	if arr.Kind != TypeArray || arr.Count != 5 || arr.Elem.Name != "int" || arr.Size != 40 {
		t.Fatalf("array type = %+v", arr)
	}
}

func TestParseDebugSourceMustBeLastAndRaw(t *testing.T) {
	info := mustParse(t, ".debug_line\n1:0\n.debug_source\nline one\nline two\n")
	line, ok := info.Source.Line(2)
	if !ok || line != "line two" {
		t.Fatalf("Source.Line(2) = %q, %v", line, ok)
	}
}

func TestParseSkipsUnknownSections(t *testing.T) {
	info := mustParse(t, ".weird\nsome junk ; here\n.debug_line\n1:0\n")
	if _, ok := info.LineToAddr(1); !ok {
		t.Fatalf("expected debug_line to still parse after an unknown section")
	}
}

func TestParseLocExprBracketForm(t *testing.T) {
	src := ".debug_info\n" +
		"DIE_function: {\n" +
		"  ATTR_name: f,\n" +
		"  ATTR_begin_addr: 0,\n" +
		"  ATTR_end_addr: 10,\n" +
		"  DIE_variable: {\n" +
		"    ATTR_name: g,\n" +
		"    ATTR_location: [PUSH R0; PUSH 4; ADD]\n" +
		"  }\n" +
		"}\n"
	info := mustParse(t, src)
	v := info.Top.FindVariable(0, "g")
	if v == nil {
		t.Fatalf("variable g not found")
	}
	if len(v.Attrs.Loc) != 3 {
		t.Fatalf("Loc = %+v", v.Attrs.Loc)
	}
	if v.Attrs.Loc[0].PushValue.Register != "R0" {
		t.Fatalf("first push = %+v", v.Attrs.Loc[0])
	}
}

func TestParseErrorReportsLocation(t *testing.T) {
	_, err := Parse(strings.NewReader(".debug_info\nDIE_bogus: {}\n"))
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T, want *ParseError: %v", err, err)
	}
	if !strings.Contains(perr.Msg, "DIE_bogus") {
		t.Fatalf("Msg = %q, want it to mention DIE_bogus", perr.Msg)
	}
}
