// Package dbginfo holds the debugging-information side of a T86 program: a
// DIE tree describing functions, scopes, variables and types, a line/address
// mapping, and the cached source text, plus the parser that reads all three
// out of a program's .debug_info/.debug_line/.debug_source sections.
package dbginfo

// Tag classifies one DIE node, mirroring a debug-info compiler's notion of a
// "debugging information entry" tag.
type Tag int

const (
	TagInvalid Tag = iota
	TagCompilationUnit
	TagFunction
	TagScope
	TagVariable
	TagPrimitiveType
	TagStructuredType
	// TagPointerType and TagArrayType have no counterpart in primitive/
	// structured types; they exist so a variable's declared type can name a
	// pointee or element type by id instead of only a flat size+members.
	TagPointerType
	TagArrayType
)

func (t Tag) String() string {
	switch t {
	case TagCompilationUnit:
		return "compilation_unit"
	case TagFunction:
		return "function"
	case TagScope:
		return "scope"
	case TagVariable:
		return "variable"
	case TagPrimitiveType:
		return "primitive_type"
	case TagStructuredType:
		return "structured_type"
	case TagPointerType:
		return "pointer_type"
	case TagArrayType:
		return "array_type"
	default:
		return "invalid"
	}
}

// Member records one structured-type field: its byte offset from the
// struct's base and the type id of the field.
type Member struct {
	Offset int64
	Type   int64
}

// Attrs holds every attribute a DIE may carry. Not every tag uses every
// field; which ones are meaningful is a function of Tag, the same way a
// DWARF consumer only looks at the attributes its tag defines.
type Attrs struct {
	HasName   bool
	Name      string
	HasType   bool
	Type      int64 // type id, resolved against the owning Info's type table
	HasBegin  bool
	Begin     uint64
	HasEnd    bool
	End       uint64
	HasSize   bool
	Size      uint64
	HasLoc    bool
	Loc       []LocOp
	HasMembers bool
	Members   []Member
	// HasCount and Count describe an array type's element count; zero
	// means unbounded/unknown, matching a flexible-array-member convention.
	HasCount bool
	Count    uint64
}

// DIE is one node of the debugging-information tree: a tag, its attributes,
// and its children (an inner scope's locals, a struct's own nested types,
// and so on).
type DIE struct {
	Tag      Tag
	Attrs    Attrs
	Children []DIE
	// ID is the type id this DIE is registered under when it describes a
	// type (primitive_type/structured_type/pointer_type/array_type). Zero
	// for DIEs that aren't types.
	ID int64
}

// Walk calls fn for this DIE and every descendant, depth first, stopping
// early if fn returns false.
func (d *DIE) Walk(fn func(*DIE) bool) bool {
	if !fn(d) {
		return false
	}
	for i := range d.Children {
		if !d.Children[i].Walk(fn) {
			return false
		}
	}
	return true
}

// ContainsAddr reports whether addr falls within the DIE's [Begin, End)
// range. DIEs without both a begin and end address (types, for instance)
// never contain an address.
func (d *DIE) ContainsAddr(addr uint64) bool {
	if !d.Attrs.HasBegin || !d.Attrs.HasEnd {
		return false
	}
	return addr >= d.Attrs.Begin && addr < d.Attrs.End
}

// FindFunction returns the innermost function DIE whose range contains
// addr, or nil.
func (d *DIE) FindFunction(addr uint64) *DIE {
	var found *DIE
	d.Walk(func(n *DIE) bool {
		if n.Tag == TagFunction && n.ContainsAddr(addr) {
			found = n
		}
		return true
	})
	return found
}

// FindScopes returns every scope (including the enclosing function, if any)
// whose range contains addr, ordered outermost first. Variable lookup walks
// this list in reverse to find the innermost binding.
func (d *DIE) FindScopes(addr uint64) []*DIE {
	var scopes []*DIE
	var visit func(n *DIE)
	visit = func(n *DIE) {
		if (n.Tag == TagFunction || n.Tag == TagScope) && n.ContainsAddr(addr) {
			scopes = append(scopes, n)
		}
		for i := range n.Children {
			visit(&n.Children[i])
		}
	}
	visit(d)
	return scopes
}

// FindVariable resolves name to the innermost matching variable DIE visible
// at addr: it walks FindScopes in reverse (innermost first) and returns the
// first variable child with a matching name.
func (d *DIE) FindVariable(addr uint64, name string) *DIE {
	scopes := d.FindScopes(addr)
	for i := len(scopes) - 1; i >= 0; i-- {
		for j := range scopes[i].Children {
			c := &scopes[i].Children[j]
			if c.Tag == TagVariable && c.Attrs.HasName && c.Attrs.Name == name {
				return c
			}
		}
	}
	return nil
}

// FunctionByName returns the address of the function named name, if any
// top-level or nested DIE declares it.
func (d *DIE) FunctionByName(name string) (uint64, bool) {
	var addr uint64
	var ok bool
	d.Walk(func(n *DIE) bool {
		if n.Tag == TagFunction && n.Attrs.HasName && n.Attrs.Name == name && n.Attrs.HasBegin {
			addr, ok = n.Attrs.Begin, true
			return false
		}
		return true
	})
	return addr, ok
}

// FunctionByAddr returns the name of the function whose range contains addr.
func (d *DIE) FunctionByAddr(addr uint64) (string, bool) {
	fn := d.FindFunction(addr)
	if fn == nil || !fn.Attrs.HasName {
		return "", false
	}
	return fn.Attrs.Name, true
}

// TypeByID walks the tree for the type DIE registered under id.
func (d *DIE) TypeByID(id int64) *DIE {
	var found *DIE
	d.Walk(func(n *DIE) bool {
		switch n.Tag {
		case TagPrimitiveType, TagStructuredType, TagPointerType, TagArrayType:
			if n.ID == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}
