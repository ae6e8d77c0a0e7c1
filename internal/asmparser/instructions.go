package asmparser

import "github.com/t86sim/t86/internal/isa"

var jccMnemonics = map[string]isa.Type{
	"JZ": isa.JZ, "JNZ": isa.JNZ, "JE": isa.JE, "JNE": isa.JNE,
	"JG": isa.JG, "JGE": isa.JGE, "JL": isa.JL, "JLE": isa.JLE,
	"JA": isa.JA, "JAE": isa.JAE, "JB": isa.JB, "JBE": isa.JBE,
	"JO": isa.JO, "JNO": isa.JNO, "JS": isa.JS, "JNS": isa.JNS,
}

// buildInstruction mirrors the original parser's Instruction(): one branch
// per mnemonic, built from whatever Operand()s that mnemonic's shape needs.
// CLF, FADD/FSUB/FMUL/FDIV and EXT/NRW are real branches here rather than
// the original's unimplemented stubs.
func (p *Parser) buildInstruction(name token) (isa.Instruction, error) {
	mnem := name.id

	if op, ok := jccMnemonics[mnem]; ok {
		target, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		cond, _ := isa.CondFor(op)
		return isa.Instruction{Op: op, A: target, Cond: cond}, nil
	}

	switch mnem {
	case "MOV":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		from, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.MOV, A: dest, B: from}, nil

	case "LEA":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if dest.Kind != isa.KindReg {
			return isa.Instruction{}, p.errHere("LEA destination must be a bare register")
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		addr, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.LEA, A: dest, B: addr}, nil

	case "ADD", "SUB", "MUL", "DIV", "IMUL", "IDIV", "MOD", "AND", "OR", "XOR", "LSH", "RSH":
		return p.binaryArith(binaryArithTypeByName[mnem])

	case "INC", "DEC", "NEG", "NOT":
		return p.unaryArith(unaryArithTypeByName[mnem])

	case "FADD", "FSUB", "FMUL", "FDIV":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if dest.Kind != isa.KindFReg {
			return isa.Instruction{}, p.errHere("%s destination must be a float register", mnem)
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		from, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: floatArithTypeByName[mnem], A: dest, B: from}, nil

	case "CMP":
		a, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		b, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.CMP, A: a, B: b}, nil

	case "FCMP":
		a, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if a.Kind != isa.KindFReg {
			return isa.Instruction{}, p.errHere("FCMP destination must be a float register")
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		b, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if b.Kind != isa.KindFReg && b.Kind != isa.KindFImm {
			return isa.Instruction{}, p.errHere("FCMP must have a float register or float value as its second operand")
		}
		return isa.Instruction{Op: isa.FCMP, A: a, B: b}, nil

	case "CLF":
		return isa.Instruction{Op: isa.CLF}, nil

	case "JMP":
		target, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.JMP, A: target}, nil

	case "LOOP":
		reg, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if reg.Kind != isa.KindReg {
			return isa.Instruction{}, p.errHere("LOOP's first operand must be a bare register")
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		addr, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.LOOP, A: reg, B: addr}, nil

	case "CALL":
		target, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.CALL, A: target}, nil

	case "RET":
		return isa.Instruction{Op: isa.RET}, nil

	case "PUSH":
		val, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.PUSH, A: val}, nil

	case "FPUSH":
		val, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.FPUSH, A: val}, nil

	case "POP":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if dest.Kind != isa.KindReg {
			return isa.Instruction{}, p.errHere("POP destination must be a bare register")
		}
		return isa.Instruction{Op: isa.POP, A: dest}, nil

	case "FPOP":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if dest.Kind != isa.KindFReg {
			return isa.Instruction{}, p.errHere("FPOP destination must be a float register")
		}
		return isa.Instruction{Op: isa.FPOP, A: dest}, nil

	case "PUTCHAR":
		val, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.PUTCHAR, A: val}, nil

	case "PUTNUM":
		val, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.PUTNUM, A: val}, nil

	case "GETCHAR":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if dest.Kind != isa.KindReg {
			return isa.Instruction{}, p.errHere("GETCHAR destination must be a bare register")
		}
		return isa.Instruction{Op: isa.GETCHAR, A: dest}, nil

	case "EXT":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if dest.Kind != isa.KindFReg {
			return isa.Instruction{}, p.errHere("EXT destination must be a float register")
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		src, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if src.Kind != isa.KindReg {
			return isa.Instruction{}, p.errHere("EXT source must be a bare register")
		}
		return isa.Instruction{Op: isa.EXT, A: dest, B: src}, nil

	case "NRW":
		dest, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if dest.Kind != isa.KindReg {
			return isa.Instruction{}, p.errHere("NRW destination must be a bare register")
		}
		if err := p.requireComma(); err != nil {
			return isa.Instruction{}, err
		}
		src, err := p.operand()
		if err != nil {
			return isa.Instruction{}, err
		}
		if src.Kind != isa.KindFReg {
			return isa.Instruction{}, p.errHere("NRW source must be a float register")
		}
		return isa.Instruction{Op: isa.NRW, A: dest, B: src}, nil

	case "NOP":
		return isa.Instruction{Op: isa.NOP}, nil

	case "HALT":
		return isa.Instruction{Op: isa.HALT}, nil

	case "BREAK":
		return isa.Instruction{Op: isa.BREAK}, nil

	case "DBG":
		if err := p.expect(tokString, "a quoted message after DBG"); err != nil {
			return isa.Instruction{}, err
		}
		msg := p.cur.str
		if err := p.advance(); err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: isa.DBG, NameHint: msg}, nil

	default:
		return isa.Instruction{}, p.errHere("unknown instruction %q", mnem)
	}
}

var binaryArithTypeByName = map[string]isa.Type{
	"ADD": isa.ADD, "SUB": isa.SUB, "MUL": isa.MUL, "DIV": isa.DIV,
	"IMUL": isa.IMUL, "IDIV": isa.IDIV, "MOD": isa.MOD,
	"AND": isa.AND, "OR": isa.OR, "XOR": isa.XOR, "LSH": isa.LSH, "RSH": isa.RSH,
}

var unaryArithTypeByName = map[string]isa.Type{
	"INC": isa.INC, "DEC": isa.DEC, "NEG": isa.NEG, "NOT": isa.NOT,
}

var floatArithTypeByName = map[string]isa.Type{
	"FADD": isa.FADD, "FSUB": isa.FSUB, "FMUL": isa.FMUL, "FDIV": isa.FDIV,
}

// binaryArith parses the two-operand accumulate form "OP dest, from": dest
// must be a bare register, matching binaryArithProduces reading ins.A.Reg1
// as the destination when the instruction isn't RISC-style.
func (p *Parser) binaryArith(op isa.Type) (isa.Instruction, error) {
	dest, err := p.operand()
	if err != nil {
		return isa.Instruction{}, err
	}
	if dest.Kind != isa.KindReg {
		return isa.Instruction{}, p.errHere("destination must be a bare register")
	}
	if err := p.requireComma(); err != nil {
		return isa.Instruction{}, err
	}
	from, err := p.operand()
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.Instruction{Op: op, A: dest, B: from}, nil
}

func (p *Parser) unaryArith(op isa.Type) (isa.Instruction, error) {
	dest, err := p.operand()
	if err != nil {
		return isa.Instruction{}, err
	}
	if dest.Kind != isa.KindReg {
		return isa.Instruction{}, p.errHere("operand must be a bare register")
	}
	return isa.Instruction{Op: op, A: dest}, nil
}
