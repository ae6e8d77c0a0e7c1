package dbginfo

import (
	"fmt"
	"sort"
	"strings"
)

// LineMapping maps source line numbers to instruction addresses, the way a
// compiler's line table ties generated code back to the line that produced
// it.
type LineMapping map[int64]uint64

// Address returns the address mapped to line, if any.
func (lm LineMapping) Address(line int64) (uint64, bool) {
	a, ok := lm[line]
	return a, ok
}

// Lines returns every source line that maps to addr, ascending.
func (lm LineMapping) Lines(addr uint64) []int64 {
	var lines []int64
	for l, a := range lm {
		if a == addr {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })
	return lines
}

// SourceFile is a line-indexed cache of a program's source text.
type SourceFile struct {
	lines []string
}

// NewSourceFile splits raw source text into a 1-indexed line cache.
func NewSourceFile(text string) SourceFile {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return SourceFile{}
	}
	return SourceFile{lines: strings.Split(text, "\n")}
}

// Line returns source line n (1-indexed).
func (s SourceFile) Line(n int64) (string, bool) {
	if n < 1 || int(n) > len(s.lines) {
		return "", false
	}
	return s.lines[n-1], true
}

// Lines returns up to amount lines starting at line idx (1-indexed).
func (s SourceFile) Lines(idx, amount int64) []string {
	if idx < 1 {
		idx = 1
	}
	start := int(idx) - 1
	if start >= len(s.lines) {
		return nil
	}
	end := start + int(amount)
	if end > len(s.lines) {
		end = len(s.lines)
	}
	return append([]string(nil), s.lines[start:end]...)
}

// Info ties together a program's debugging information: its DIE tree, its
// line/address mapping, and its cached source text.
type Info struct {
	Top   *DIE
	Lines LineMapping
	Source SourceFile
}

// AddrToLine returns the lowest source line mapped to addr.
func (info *Info) AddrToLine(addr uint64) (int64, bool) {
	lines := info.Lines.Lines(addr)
	if len(lines) == 0 {
		return 0, false
	}
	return lines[0], true
}

// LineToAddr returns the address mapped to line.
func (info *Info) LineToAddr(line int64) (uint64, bool) {
	return info.Lines.Address(line)
}

// FunctionNameByAddress returns the name of the function containing addr.
func (info *Info) FunctionNameByAddress(addr uint64) (string, bool) {
	return info.Top.FunctionByAddr(addr)
}

// AddrFunctionByName returns the entry address of the function named name.
func (info *Info) AddrFunctionByName(name string) (uint64, bool) {
	return info.Top.FunctionByName(name)
}

// VariableLocation returns the location expression of the innermost
// variable named name visible at addr.
func (info *Info) VariableLocation(addr uint64, name string) ([]LocOp, bool) {
	v := info.Top.FindVariable(addr, name)
	if v == nil || !v.Attrs.HasLoc {
		return nil, false
	}
	return v.Attrs.Loc, true
}

// VariableType returns the reconstructed type of the innermost variable
// named name visible at addr.
func (info *Info) VariableType(addr uint64, name string) (*TypeInfo, error) {
	v := info.Top.FindVariable(addr, name)
	if v == nil {
		return nil, fmt.Errorf("dbginfo: no variable %q visible at address %d", name, addr)
	}
	if !v.Attrs.HasType {
		return nil, fmt.Errorf("dbginfo: variable %q has no type information", name)
	}
	return info.ReconstructType(v.Attrs.Type)
}

// TypeKind distinguishes the shapes a reconstructed type can take.
type TypeKind int

const (
	TypePrimitive TypeKind = iota
	TypeStructured
	TypePointer
	TypeArray
)

// Field is one named, offset-located member of a structured type.
type Field struct {
	Name   string
	Offset int64
	Type   *TypeInfo
}

// TypeInfo is the reconstructed, self-contained description of a type: a
// primitive has just a name and size, a structured type carries named
// fields, a pointer carries its pointee, an array its element type and
// element count.
type TypeInfo struct {
	Kind    TypeKind
	Name    string
	Size    uint64
	Fields  []Field
	Pointee *TypeInfo
	Elem    *TypeInfo
	Count   uint64
}

// ReconstructType walks the type DIE registered under id and builds its
// TypeInfo, recursing into member/pointee/element types.
func (info *Info) ReconstructType(id int64) (*TypeInfo, error) {
	return info.reconstructType(id, map[int64]bool{})
}

func (info *Info) reconstructType(id int64, seen map[int64]bool) (*TypeInfo, error) {
	die := info.Top.TypeByID(id)
	if die == nil {
		return nil, fmt.Errorf("dbginfo: no type registered under id %d", id)
	}
	if seen[id] {
		return nil, fmt.Errorf("dbginfo: type %d is recursively defined", id)
	}
	seen[id] = true
	defer delete(seen, id)

	switch die.Tag {
	case TagPrimitiveType:
		return &TypeInfo{Kind: TypePrimitive, Name: die.Attrs.Name, Size: die.Attrs.Size}, nil

	case TagStructuredType:
		t := &TypeInfo{Kind: TypeStructured, Name: die.Attrs.Name, Size: die.Attrs.Size}
		named := map[int64]string{}
		for i := range die.Children {
			c := &die.Children[i]
			if c.Tag == TagVariable && c.Attrs.HasName && c.Attrs.HasBegin {
				named[int64(c.Attrs.Begin)] = c.Attrs.Name
			}
		}
		for _, m := range die.Attrs.Members {
			ft, err := info.reconstructType(m.Type, seen)
			if err != nil {
				return nil, err
			}
			name, ok := named[m.Offset]
			if !ok {
				name = fmt.Sprintf("field_%d", m.Offset)
			}
			t.Fields = append(t.Fields, Field{Name: name, Offset: m.Offset, Type: ft})
		}
		sort.Slice(t.Fields, func(i, j int) bool { return t.Fields[i].Offset < t.Fields[j].Offset })
		return t, nil

	case TagPointerType:
		if !die.Attrs.HasType {
			return nil, fmt.Errorf("dbginfo: pointer type %d has no pointee type", id)
		}
		pointee, err := info.reconstructType(die.Attrs.Type, seen)
		if err != nil {
			return nil, err
		}
		size := die.Attrs.Size
		if size == 0 {
			size = 8
		}
		return &TypeInfo{Kind: TypePointer, Name: die.Attrs.Name, Size: size, Pointee: pointee}, nil

	case TagArrayType:
		if !die.Attrs.HasType {
			return nil, fmt.Errorf("dbginfo: array type %d has no element type", id)
		}
		elem, err := info.reconstructType(die.Attrs.Type, seen)
		if err != nil {
			return nil, err
		}
		count := die.Attrs.Count
		size := count * elem.Size
		return &TypeInfo{Kind: TypeArray, Name: die.Attrs.Name, Size: size, Elem: elem, Count: count}, nil

	default:
		return nil, fmt.Errorf("dbginfo: DIE %v is not a type", die.Tag)
	}
}
