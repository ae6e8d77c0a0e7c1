package asmparser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/t86sim/t86/internal/isa"
)

// Program is the result of parsing a T86 assembly source file: the
// instruction stream laid out by its .text section, and the packed word
// values laid out by its .data section.
type Program struct {
	Text []isa.Instruction
	Data []int64
}

// Parser turns a token stream into a Program, one recursive-descent
// production per grammar rule, the same shape as the original parser's
// Section/Text/Data/Instruction/Operand split.
type Parser struct {
	lex  *lexer
	cur  token
	prev token
}

// Parse reads a whole assembly source from r.
func Parse(r io.Reader) (*Program, error) {
	p := &Parser{lex: newLexer(bufReader(r))}
	if err := p.advance(); err != nil {
		return nil, err
	}
	prog := &Program{}
	if err := p.parseSections(prog); err != nil {
		return nil, err
	}
	return prog, nil
}

func bufReader(r io.Reader) *bufio.Reader { return bufio.NewReader(r) }

func (p *Parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.prev = p.cur
	p.cur = tok
	return nil
}

// advancePrev returns the token that was current before advancing, the
// same GetNextPrev idiom the original parser leans on to consume an
// identifier and look one token ahead in the same call.
func (p *Parser) advancePrev() (token, error) {
	cur := p.cur
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return cur, nil
}

func (p *Parser) errHere(format string, args ...any) error {
	return errAt(p.cur.row, p.cur.col, format, args...)
}

func (p *Parser) expect(k TokenKind, what string) error {
	if p.cur.kind != k {
		return p.errHere("expected %s", what)
	}
	return nil
}

func (p *Parser) parseSections(prog *Program) error {
	for p.cur.kind == tokDot {
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.expect(tokID, "a section name"); err != nil {
			return err
		}
		name := p.cur.id
		if err := p.advance(); err != nil {
			return err
		}
		switch name {
		case "text":
			if err := p.parseText(prog); err != nil {
				return err
			}
		case "data":
			if err := p.parseData(prog); err != nil {
				return err
			}
		default:
			// Unrecognised sections are skipped, not rejected: scan forward
			// to the next section header or end of file.
			for p.cur.kind != tokDot && p.cur.kind != tokEnd {
				if err := p.advance(); err != nil {
					return err
				}
			}
		}
	}
	if p.cur.kind != tokEnd {
		return p.errHere("expected a section header or end of file")
	}
	return nil
}

func (p *Parser) parseText(prog *Program) error {
	for p.cur.kind == tokNum || p.cur.kind == tokID {
		ins, err := p.parseInstruction()
		if err != nil {
			return err
		}
		prog.Text = append(prog.Text, ins)
		if p.cur.kind == tokSemicolon {
			if err := p.advance(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Parser) parseData(prog *Program) error {
	for p.cur.kind == tokString || p.cur.kind == tokNum {
		if p.cur.kind == tokString {
			for _, c := range p.cur.str {
				prog.Data = append(prog.Data, int64(c))
			}
			prog.Data = append(prog.Data, 0)
		} else {
			prog.Data = append(prog.Data, p.cur.num)
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// parseInstruction reads one mnemonic and its operands. A leading bare
// number (an optional address label) is consumed and discarded.
func (p *Parser) parseInstruction() (isa.Instruction, error) {
	if p.cur.kind == tokNum {
		if _, err := p.advancePrev(); err != nil {
			return isa.Instruction{}, err
		}
	}
	if err := p.expect(tokID, "an instruction mnemonic"); err != nil {
		return isa.Instruction{}, err
	}
	name, err := p.advancePrev()
	if err != nil {
		return isa.Instruction{}, err
	}
	return p.buildInstruction(name)
}

func (p *Parser) requireComma() error {
	if p.cur.kind != tokComma {
		return p.errHere("expected comma to separate operands")
	}
	return p.advance()
}

func (p *Parser) getRegister(name string) (isa.Register, error) {
	switch name {
	case "BP":
		return isa.StackBasePointer, nil
	case "SP":
		return isa.StackPointer, nil
	case "IP":
		return isa.ProgramCounter, nil
	}
	if !strings.HasPrefix(name, "R") {
		return 0, p.errHere("registers must begin with R, unless IP, BP or SP, got %q", name)
	}
	n, err := parseUintSuffix(name[1:])
	if err != nil {
		return 0, p.errHere("malformed register name %q: %v", name, err)
	}
	return isa.Register(n), nil
}

func (p *Parser) getFloatRegister(name string) (isa.FloatRegister, error) {
	if !strings.HasPrefix(name, "FR") {
		return 0, p.errHere("float registers must begin with FR, got %q", name)
	}
	n, err := parseUintSuffix(name[2:])
	if err != nil {
		return 0, p.errHere("malformed float register name %q: %v", name, err)
	}
	return isa.FloatRegister(n), nil
}

func parseUintSuffix(s string) (uint64, error) {
	var n uint64
	if s == "" {
		return 0, fmt.Errorf("empty register index")
	}
	for _, c := range s {
		if !isDigit(c) {
			return 0, fmt.Errorf("non-digit %q in register index", c)
		}
		n = n*10 + uint64(c-'0')
	}
	return n, nil
}

// operand implements the grammar's full Operand production: a bare
// identifier (register, optionally +imm), a bare immediate, or a
// bracketed memory-dereference expression covering all sixteen
// register/immediate/scale shapes.
func (p *Parser) operand() (isa.Operand, error) {
	switch p.cur.kind {
	case tokID:
		name := p.cur.id
		if strings.HasPrefix(name, "FR") {
			fr, err := p.getFloatRegister(name)
			if err != nil {
				return isa.Operand{}, err
			}
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			return isa.FReg(fr), nil
		}
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		reg, err := p.getRegister(name)
		if err != nil {
			return isa.Operand{}, err
		}
		if p.cur.kind == tokPlus {
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			if err := p.expect(tokNum, "a number after 'Reg +'"); err != nil {
				return isa.Operand{}, err
			}
			off := p.cur.num
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			return isa.RegImm(reg, off), nil
		}
		return isa.Reg(reg), nil
	case tokNum:
		if p.cur.isFloat {
			v := p.cur.fnum
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			return isa.FloatImm(v), nil
		}
		v := p.cur.num
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		return isa.Imm(v), nil
	case tokLBracket:
		return p.memOperand()
	}
	return isa.Operand{}, p.errHere("expected an operand")
}

func (p *Parser) memOperand() (isa.Operand, error) {
	if err := p.advance(); err != nil { // consume '['
		return isa.Operand{}, err
	}

	if p.cur.kind == tokNum {
		v := p.cur.num
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		if err := p.expect(tokRBracket, "']' to close [Imm]"); err != nil {
			return isa.Operand{}, err
		}
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		return isa.MemImm(v), nil
	}

	if err := p.expect(tokID, "a register name inside '[...]'"); err != nil {
		return isa.Operand{}, err
	}
	name := p.cur.id
	reg, err := p.getRegister(name)
	if err != nil {
		return isa.Operand{}, err
	}
	if err := p.advance(); err != nil {
		return isa.Operand{}, err
	}

	switch p.cur.kind {
	case tokRBracket:
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		return isa.MemReg(reg), nil

	case tokTimes:
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		if err := p.expect(tokNum, "a scale immediate after '*'"); err != nil {
			return isa.Operand{}, err
		}
		scale := p.cur.num
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		if err := p.expect(tokRBracket, "']' to close [Reg*Imm]"); err != nil {
			return isa.Operand{}, err
		}
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		return isa.MemRegScaled(reg, scale), nil

	case tokPlus:
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		return p.memOperandAfterPlus(reg)
	}
	return isa.Operand{}, p.errHere("expected ']', '*' or '+' after a register in a memory operand")
}

// memOperandAfterPlus continues [Reg+...]: the thing after '+' is either
// another register (possibly itself scaled) or an immediate (possibly
// followed by '+Reg' and a further scale).
func (p *Parser) memOperandAfterPlus(base isa.Register) (isa.Operand, error) {
	if p.cur.kind == tokID {
		name := p.cur.id
		reg2, err := p.getRegister(name)
		if err != nil {
			return isa.Operand{}, err
		}
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		switch p.cur.kind {
		case tokRBracket:
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			return isa.MemRegReg(base, reg2), nil
		case tokTimes:
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			if err := p.expect(tokNum, "a scale immediate after '*'"); err != nil {
				return isa.Operand{}, err
			}
			scale := p.cur.num
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			if err := p.expect(tokRBracket, "']' to close [Reg+Reg*Imm]"); err != nil {
				return isa.Operand{}, err
			}
			if err := p.advance(); err != nil {
				return isa.Operand{}, err
			}
			return isa.MemRegRegScaled(base, reg2, scale), nil
		}
		return isa.Operand{}, p.errHere("expected ']' or '*' after '[Reg+Reg'")
	}

	if p.cur.kind != tokNum {
		return isa.Operand{}, p.errHere("expected a register or an immediate after '[Reg+'")
	}
	offset := p.cur.num
	if err := p.advance(); err != nil {
		return isa.Operand{}, err
	}
	if p.cur.kind == tokRBracket {
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		return isa.MemRegImm(base, offset), nil
	}
	if p.cur.kind != tokPlus {
		return isa.Operand{}, p.errHere("expected ']' or '+Reg' after '[Reg+Imm'")
	}
	if err := p.advance(); err != nil {
		return isa.Operand{}, err
	}
	if err := p.expect(tokID, "a register after '[Reg+Imm+'"); err != nil {
		return isa.Operand{}, err
	}
	reg2, err := p.getRegister(p.cur.id)
	if err != nil {
		return isa.Operand{}, err
	}
	if err := p.advance(); err != nil {
		return isa.Operand{}, err
	}
	if p.cur.kind == tokRBracket {
		if err := p.advance(); err != nil {
			return isa.Operand{}, err
		}
		return isa.MemRegImmReg(base, offset, reg2), nil
	}
	if err := p.expect(tokTimes, "'*' or ']' after '[Reg+Imm+Reg'"); err != nil {
		return isa.Operand{}, err
	}
	if err := p.advance(); err != nil {
		return isa.Operand{}, err
	}
	if err := p.expect(tokNum, "a scale immediate after '*'"); err != nil {
		return isa.Operand{}, err
	}
	scale := p.cur.num
	if err := p.advance(); err != nil {
		return isa.Operand{}, err
	}
	if err := p.expect(tokRBracket, "']' to close [Reg+Imm+Reg*Imm]"); err != nil {
		return isa.Operand{}, err
	}
	if err := p.advance(); err != nil {
		return isa.Operand{}, err
	}
	return isa.MemRegImmRegScaled(base, offset, reg2, scale), nil
}
