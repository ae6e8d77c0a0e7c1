package sourceexpr

import (
	"io"
)

// Parser turns source text into an Expr AST following the grammar
// `expr := equality`, `equality := comparison (('=='|'!=') comparison)*`,
// `comparison := term (('<'|'<='|'>'|'>=') term)*`,
// `term := factor (('+'|'-') factor)*`,
// `factor := unary (('*'|'/'|'%') unary)*`,
// `unary := '*' postfix | postfix`,
// `postfix := primary ('[' expr ']' | '.' IDENT | '->' IDENT)*`,
// `primary := INT | FLOAT | IDENT | '$' INT | '(' expr ')'`.
type Parser struct {
	lex *lexer
	cur token
}

// Parse parses a single expression from r. Trailing input after the
// expression is an error: a debugger expression is the whole input.
func Parse(r io.Reader) (Expr, error) {
	p := &Parser{lex: newLexer(r)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tkEnd {
		return nil, p.errHere("unexpected trailing input")
	}
	return e, nil
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

func (p *Parser) expr() (Expr, error) {
	return p.equality()
}

func (p *Parser) equality() (Expr, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tkEq || p.cur.kind == tkNeq {
		op := OpEq
		if p.cur.kind == tkNeq {
			op = OpNeq
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) comparison() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOp
		switch p.cur.kind {
		case tkLess:
			op = OpLess
		case tkLeq:
			op = OpLeq
		case tkGreater:
			op = OpGreater
		case tkGeq:
			op = OpGeq
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) term() (Expr, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tkPlus || p.cur.kind == tkMinus {
		op := OpAdd
		if p.cur.kind == tkMinus {
			op = OpSub
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) factor() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinOp
		switch p.cur.kind {
		case tkTimes:
			op = OpMul
		case tkSlash:
			op = OpDiv
		case tkMod:
			op = OpMod
		default:
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = BinaryOp{Op: op, Left: left, Right: right}
	}
}

func (p *Parser) unary() (Expr, error) {
	if p.cur.kind == tkTimes {
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.postfix()
		if err != nil {
			return nil, err
		}
		return UnaryOp{Op: "*", Target: target}, nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.kind {
		case tkLBracket:
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if p.cur.kind != tkRBracket {
				return nil, p.errHere("expected ']'")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			e = ArrayAccess{Array: e, Index: idx}
		case tkDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tkID {
				return nil, p.errHere("expected a member name after '.'")
			}
			e = MemberAccess{Base: e, Member: p.cur.id}
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tkArrow:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tkID {
				return nil, p.errHere("expected a member name after '->'")
			}
			e = MemberDerefAccess{Base: e, Member: p.cur.id}
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			return e, nil
		}
	}
}

func (p *Parser) primary() (Expr, error) {
	switch p.cur.kind {
	case tkNum:
		v := p.cur.num
		return Integer{Value: v}, p.advance()
	case tkFloat:
		v := p.cur.fnum
		return Float{Value: v}, p.advance()
	case tkDollar:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind != tkNum {
			return nil, p.errHere("expected a number after '$'")
		}
		idx := int(p.cur.num)
		return EvaluatedExpr{Index: idx}, p.advance()
	case tkID:
		name := p.cur.id
		return Identifier{Name: name}, p.advance()
	case tkLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tkRParen {
			return nil, p.errHere("expected ')'")
		}
		return e, p.advance()
	default:
		return nil, p.errHere("expected a number, identifier or '('")
	}
}
