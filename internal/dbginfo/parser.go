package dbginfo

import (
	"io"
	"strings"
)

// Parser reads the textual .debug_line/.debug_info/.debug_source sections
// of a program file into an Info.
type Parser struct {
	lex *lexer
	cur token
}

// Parse reads every debug section present in r. Missing sections leave the
// corresponding Info field at its zero value: a program assembled without
// debug info is legal, it just can't be source-stepped.
func Parse(r io.Reader) (*Info, error) {
	p := &Parser{lex: newLexer(r)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parse()
}

func (p *Parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) errHere(format string, args ...any) error {
	return errAt(p.cur.row, p.cur.col, format, args...)
}

func (p *Parser) expect(kind tokenKind, what string) error {
	if p.cur.kind != kind {
		return p.errHere("expected %s", what)
	}
	return nil
}

func (p *Parser) parse() (*Info, error) {
	info := &Info{Top: &DIE{Tag: TagInvalid}}
	for p.cur.kind != tkEnd {
		if p.cur.kind != tkDot {
			return nil, p.errHere("expected section beginning with '.'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tkID {
			return nil, p.errHere("expected section name")
		}
		name := p.cur.id

		if name == "debug_source" {
			text := p.lex.rawMode()
			info.Source = NewSourceFile(strings.TrimPrefix(text, "\n"))
			return info, nil
		}

		if err := p.advance(); err != nil {
			return nil, err
		}

		switch name {
		case "debug_line":
			lm, err := p.parseDebugLine()
			if err != nil {
				return nil, err
			}
			info.Lines = lm
		case "debug_info":
			die, err := p.parseDebugInfo()
			if err != nil {
				return nil, err
			}
			info.Top = die
		default:
			p.lex.ignore = true
			for p.cur.kind != tkDot && p.cur.kind != tkEnd {
				if err := p.advance(); err != nil {
					p.lex.ignore = false
					return nil, err
				}
			}
			p.lex.ignore = false
		}
	}
	return info, nil
}

// parseDebugLine reads "row:addr" pairs until the next section or EOF.
func (p *Parser) parseDebugLine() (LineMapping, error) {
	lm := LineMapping{}
	for p.cur.kind != tkDot && p.cur.kind != tkEnd {
		if err := p.expect(tkNum, "a line entry in the form 'row:address'"); err != nil {
			return nil, err
		}
		line := p.cur.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tkDoubledot, "a line entry in the form 'row:address'"); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tkNum, "a line entry in the form 'row:address'"); err != nil {
			return nil, err
		}
		addr := p.cur.num
		lm[line] = uint64(addr)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return lm, nil
}

var dieTagByName = map[string]Tag{
	"DIE_compilation_unit": TagCompilationUnit,
	"DIE_function":         TagFunction,
	"DIE_scope":            TagScope,
	"DIE_variable":         TagVariable,
	"DIE_primitive_type":   TagPrimitiveType,
	"DIE_structured_type":  TagStructuredType,
	"DIE_pointer_type":     TagPointerType,
	"DIE_array_type":       TagArrayType,
}

func (p *Parser) parseDebugInfo() (*DIE, error) {
	top := &DIE{Tag: TagInvalid}
	for p.cur.kind != tkDot && p.cur.kind != tkEnd {
		if err := p.expect(tkID, "a DIE tag name"); err != nil {
			return nil, err
		}
		name := p.cur.id
		if err := p.advance(); err != nil {
			return nil, err
		}
		die, err := p.parseDIE(name)
		if err != nil {
			return nil, err
		}
		top.Children = append(top.Children, *die)
		if p.cur.kind == tkComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if len(top.Children) == 1 {
		return &top.Children[0], nil
	}
	return top, nil
}

func (p *Parser) parseDIE(name string) (*DIE, error) {
	tag, ok := dieTagByName[name]
	if !ok {
		return nil, p.errHere("unknown DIE tag %q", name)
	}
	if err := p.expect(tkDoubledot, "':' after DIE tag name"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(tkLBrace, "'{' after DIE tag"); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	die := &DIE{Tag: tag}
	for p.cur.kind != tkRBrace {
		if err := p.expect(tkID, "an ATTR or DIE entry"); err != nil {
			return nil, err
		}
		id := p.cur.id
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch {
		case hasPrefix(id, "ATTR"):
			if err := p.parseAttr(die, id); err != nil {
				return nil, err
			}
		case hasPrefix(id, "DIE"):
			child, err := p.parseDIE(id)
			if err != nil {
				return nil, err
			}
			die.Children = append(die.Children, *child)
		default:
			return nil, p.errHere("expected an ATTR_ or DIE_ entry, got %q", id)
		}
		if p.cur.kind == tkComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.cur.kind != tkRBrace {
			return nil, p.errHere("expected ',' or '}'")
		}
	}
	return die, p.advance()
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (p *Parser) parseAttr(die *DIE, name string) error {
	if err := p.expect(tkDoubledot, "':' after attribute name"); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	switch name {
	case "ATTR_name":
		if p.cur.kind != tkID && p.cur.kind != tkString {
			return p.errHere("ATTR_name should have a string as its value")
		}
		die.Attrs.HasName = true
		if p.cur.kind == tkID {
			die.Attrs.Name = p.cur.id
		} else {
			die.Attrs.Name = p.cur.str
		}
		return p.advance()
	case "ATTR_type":
		if err := p.expect(tkNum, "ATTR_type should have a number as its value"); err != nil {
			return err
		}
		die.Attrs.HasType = true
		die.Attrs.Type = p.cur.num
		return p.advance()
	case "ATTR_id":
		if err := p.expect(tkNum, "ATTR_id should have a number as its value"); err != nil {
			return err
		}
		die.ID = p.cur.num
		return p.advance()
	case "ATTR_begin_addr":
		if err := p.expect(tkNum, "ATTR_begin_addr should have a number as its value"); err != nil {
			return err
		}
		die.Attrs.HasBegin = true
		die.Attrs.Begin = uint64(p.cur.num)
		return p.advance()
	case "ATTR_end_addr":
		if err := p.expect(tkNum, "ATTR_end_addr should have a number as its value"); err != nil {
			return err
		}
		die.Attrs.HasEnd = true
		die.Attrs.End = uint64(p.cur.num)
		return p.advance()
	case "ATTR_size":
		if err := p.expect(tkNum, "ATTR_size should have a number as its value"); err != nil {
			return err
		}
		die.Attrs.HasSize = true
		die.Attrs.Size = uint64(p.cur.num)
		return p.advance()
	case "ATTR_count":
		if err := p.expect(tkNum, "ATTR_count should have a number as its value"); err != nil {
			return err
		}
		die.Attrs.HasCount = true
		die.Attrs.Count = uint64(p.cur.num)
		return p.advance()
	case "ATTR_members":
		if err := p.expect(tkLBrace, "'{' after ATTR_members"); err != nil {
			return err
		}
		if err := p.advance(); err != nil {
			return err
		}
		members, err := p.parseMembers()
		if err != nil {
			return err
		}
		die.Attrs.HasMembers = true
		die.Attrs.Members = members
		return nil
	case "ATTR_location":
		loc, err := p.parseLocExpr()
		if err != nil {
			return err
		}
		die.Attrs.HasLoc = true
		die.Attrs.Loc = loc
		return nil
	default:
		return p.errHere("unknown DIE attribute %q", name)
	}
}

func (p *Parser) parseMembers() ([]Member, error) {
	var members []Member
	for p.cur.kind != tkRBrace {
		if err := p.expect(tkNum, "an entry in the form 'offset:type_id'"); err != nil {
			return nil, err
		}
		offset := p.cur.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tkDoubledot, "an entry in the form 'offset:type_id'"); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(tkNum, "an entry in the form 'offset:type_id'"); err != nil {
			return nil, err
		}
		typ := p.cur.num
		members = append(members, Member{Offset: offset, Type: typ})
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tkComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.cur.kind != tkRBrace {
			return nil, p.errHere("expected ',' or '}'")
		}
	}
	return members, p.advance()
}

func (p *Parser) parseOperand() (Location, error) {
	switch p.cur.kind {
	case tkNum:
		v := p.cur.num
		return Location{Kind: LocOffset, Offset: v}, p.advance()
	case tkID:
		name := p.cur.id
		return Location{Kind: LocRegister, Register: name}, p.advance()
	default:
		return Location{}, p.errHere("unexpected token in location operand")
	}
}

func (p *Parser) parseOneLocOp() (LocOp, error) {
	if p.cur.kind != tkID {
		return LocOp{}, p.errHere("unexpected token when parsing a location expression")
	}
	id := p.cur.id
	if err := p.advance(); err != nil {
		return LocOp{}, err
	}
	switch id {
	case "BASE_REG_OFFSET":
		if err := p.expect(tkNum, "BASE_REG_OFFSET takes a number operand"); err != nil {
			return LocOp{}, err
		}
		off := p.cur.num
		return LocOp{Kind: LocOpFrameBaseOffset, FrameOffset: off}, p.advance()
	case "PUSH":
		loc, err := p.parseOperand()
		if err != nil {
			return LocOp{}, err
		}
		return LocOp{Kind: LocOpPush, PushValue: loc}, nil
	case "ADD":
		return LocOp{Kind: LocOpAdd}, nil
	default:
		return LocOp{}, p.errHere("unknown location instruction %q", id)
	}
}

func (p *Parser) parseLocExpr() ([]LocOp, error) {
	var ops []LocOp
	switch p.cur.kind {
	case tkBacktick:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tkBacktick {
			op, err := p.parseOneLocOp()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
		return ops, p.advance() // eat closing '`'
	case tkLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		for p.cur.kind != tkRBracket {
			op, err := p.parseOneLocOp()
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
			if p.cur.kind == tkSemicolon {
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else if p.cur.kind != tkRBracket {
				return nil, p.errHere("expected ';' to separate location instructions")
			}
		}
		return ops, p.advance()
	default:
		return nil, p.errHere("expected '`' or '[' to begin a location expression")
	}
}
