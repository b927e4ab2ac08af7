package template

import (
	gerrors "github.com/garden-io/garden-sub017/errors"
)

// parser is a recursive-descent parser over one `${ ... }` token stream
// (spec.md §4.1 "Grammar"):
//
//	ternary     -> coalesce ( '?' ternary ':' ternary )?
//	coalesce    -> logicalOr ( '??' logicalOr )*
//	logicalOr   -> logicalAnd ( '||' logicalAnd )*
//	logicalAnd  -> equality ( '&&' equality )*
//	equality    -> comparison ( ('==' | '!=') comparison )*
//	comparison  -> additive ( ('<' | '<=' | '>' | '>=') additive )*
//	additive    -> multiplicative ( ('+' | '-') multiplicative )*
//	multiplicative -> unary ( ('*' | '/' | '%') unary )*
//	unary       -> ('!' | '-')? postfix
//	postfix     -> primary ( '.' ident | '[' ternary ']' )*   (only after a lookup)
//	primary     -> number | string | true | false | null | ident | ident '(' args ')' | '(' ternary ')' | array | object
type parser struct {
	toks []token
	pos  int
	base int
}

func parseExpr(src string, base int) (Node, error) {
	toks, err := lex(src, base)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, base: base}
	n, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected trailing token %q", p.peek().text)
	}
	return n, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return gerrors.Build(gerrors.Mark(gerrors.Newf(format, args...), gerrors.ErrTemplate)).
		WithContext("offset", itoa(p.peek().pos)).
		Err()
}

func (p *parser) peek() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) (token, error) {
	if p.peek().kind != k {
		return token{}, p.errorf("expected %s, found %q", what, p.peek().text)
	}
	return p.advance(), nil
}

func (p *parser) parseTernary() (Node, error) {
	cond, err := p.parseCoalesce()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokQuestion {
		return cond, nil
	}
	pos := p.advance().pos
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon, "':'"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &TernaryNode{Cond: cond, Then: then, Else: els, pos: pos}, nil
}

func (p *parser) parseCoalesce() (Node, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokQuestionQuestion {
		pos := p.advance().pos
		right, err := p.parseLogicalOr()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: "??", Left: left, Right: right, pos: pos}
	}
	return left, nil
}

func (p *parser) parseLogicalOr() (Node, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOrOr {
		pos := p.advance().pos
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: "||", Left: left, Right: right, pos: pos}
	}
	return left, nil
}

func (p *parser) parseLogicalAnd() (Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAndAnd {
		pos := p.advance().pos
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: "&&", Left: left, Right: right, pos: pos}
	}
	return left, nil
}

func (p *parser) parseEquality() (Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokEqEq || p.peek().kind == tokNotEq {
		op := p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op.text, Left: left, Right: right, pos: op.pos}
	}
	return left, nil
}

func (p *parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokLt || p.peek().kind == tokLtEq || p.peek().kind == tokGt || p.peek().kind == tokGtEq {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op.text, Left: left, Right: right, pos: op.pos}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPlus || p.peek().kind == tokMinus {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op.text, Left: left, Right: right, pos: op.pos}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokStar || p.peek().kind == tokSlash || p.peek().kind == tokPercent {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op.text, Left: left, Right: right, pos: op.pos}
	}
	return left, nil
}

func (p *parser) parseUnary() (Node, error) {
	if p.peek().kind == tokBang || p.peek().kind == tokMinus {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: op.text, Operand: operand, pos: op.pos}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	// Only a LookupNode can chain further `.ident`/`[idx]` accessors, which
	// extend its path; an accessor after anything else (a call, a literal,
	// a parenthesized/array/object expression) is a parse error.
	lookup, isLookup := n.(*LookupNode)

	for {
		if !isLookup && (p.peek().kind == tokDot || p.peek().kind == tokLBracket) {
			return nil, p.errorf("accessor %q is only supported after a context lookup", p.peek().text)
		}
		switch p.peek().kind {
		case tokDot:
			p.advance()
			name, err := p.expect(tokIdent, "field name")
			if err != nil {
				return nil, err
			}
			lookup.Path = append(lookup.Path, PathSegment{Name: name.text})
		case tokLBracket:
			p.advance()
			idx, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket, "']'"); err != nil {
				return nil, err
			}
			lookup.Path = append(lookup.Path, PathSegment{Index: idx})
		default:
			return n, nil
		}
	}
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.advance()
		return &LiteralNode{Value: t.num, pos: t.pos}, nil
	case tokString:
		p.advance()
		return &LiteralNode{Value: t.text, pos: t.pos}, nil
	case tokTrue:
		p.advance()
		return &LiteralNode{Value: true, pos: t.pos}, nil
	case tokFalse:
		p.advance()
		return &LiteralNode{Value: false, pos: t.pos}, nil
	case tokNull:
		p.advance()
		return &LiteralNode{Value: nil, pos: t.pos}, nil
	case tokIdent:
		return p.parseIdentOrCall()
	case tokLParen:
		p.advance()
		n, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return n, nil
	case tokLBracket:
		return p.parseArray()
	case tokLBrace:
		return p.parseObject()
	}
	return nil, p.errorf("unexpected token %q", t.text)
}

func (p *parser) parseIdentOrCall() (Node, error) {
	name := p.advance()
	if p.peek().kind == tokLParen {
		p.advance()
		var args []Node
		for p.peek().kind != tokRParen {
			arg, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return &CallNode{Name: name.text, Args: args, pos: name.pos}, nil
	}
	return &LookupNode{Path: []PathSegment{{Name: name.text}}, pos: name.pos}, nil
}

func (p *parser) parseArray() (Node, error) {
	pos := p.advance().pos // '['
	var elems []Node
	for p.peek().kind != tokRBracket {
		e, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRBracket, "']'"); err != nil {
		return nil, err
	}
	return &ArrayNode{Elements: elems, pos: pos}, nil
}

func (p *parser) parseObject() (Node, error) {
	pos := p.advance().pos // '{'
	var keys []string
	var vals []Node
	for p.peek().kind != tokRBrace {
		var key string
		switch p.peek().kind {
		case tokIdent:
			key = p.advance().text
		case tokString:
			key = p.advance().text
		default:
			return nil, p.errorf("expected object key, found %q", p.peek().text)
		}
		if _, err := p.expect(tokColon, "':'"); err != nil {
			return nil, err
		}
		v, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		vals = append(vals, v)
		if p.peek().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(tokRBrace, "'}'"); err != nil {
		return nil, err
	}
	return &ObjectNode{Keys: keys, Values: vals, pos: pos}, nil
}

// Parse parses a whole template string (literal text interleaved with
// `${ ... }` spans) into a single Node. A string with no `${` at all
// parses to a LiteralNode holding the original string unchanged. A string
// consisting of exactly one interpolation parses to that interpolation's
// inner Node directly (see TemplateNode's doc comment).
func Parse(src string) (Node, error) {
	parts, onlyExpr, err := splitTemplate(src)
	if err != nil {
		return nil, err
	}
	if onlyExpr != nil {
		return onlyExpr, nil
	}
	if len(parts) == 1 {
		if lit, ok := parts[0].(*LiteralNode); ok {
			return lit, nil
		}
	}
	return &TemplateNode{Parts: parts, pos: 0}, nil
}

// splitTemplate walks src looking for `${ ... }` spans, tracking nested
// braces/brackets/parens/strings so a `}` inside a nested string or
// collection literal does not end the span early. It returns the
// literal/expr parts in order, plus onlyExpr set when src is exactly one
// interpolation with no surrounding literal text.
func splitTemplate(src string) (parts []Node, onlyExpr Node, err error) {
	i := 0
	var sawLiteral bool
	for i < len(src) {
		start := i
		for i < len(src) && !(src[i] == '$' && i+1 < len(src) && src[i+1] == '{') {
			i++
		}
		if i > start {
			parts = append(parts, &LiteralNode{Value: src[start:i], pos: start})
			sawLiteral = true
		}
		if i >= len(src) {
			break
		}
		exprStart := i + 2
		depth := 1
		j := exprStart
		inString := byte(0)
		for j < len(src) && depth > 0 {
			c := src[j]
			switch {
			case inString != 0:
				if c == '\\' {
					j++
				} else if c == inString {
					inString = 0
				}
			case c == '"' || c == '\'':
				inString = c
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					continue
				}
			}
			j++
		}
		if depth != 0 {
			return nil, nil, gerrors.Build(gerrors.Mark(gerrors.Newf("unterminated ${ interpolation"), gerrors.ErrTemplate)).
				WithContext("offset", itoa(start)).
				Err()
		}
		exprSrc := src[exprStart:j]
		node, perr := parseExpr(exprSrc, exprStart)
		if perr != nil {
			return nil, nil, perr
		}
		parts = append(parts, node)
		i = j + 1
	}
	if len(parts) == 1 && !sawLiteral {
		if _, isLit := parts[0].(*LiteralNode); !isLit {
			onlyExpr = parts[0]
		}
	}
	if len(parts) == 0 {
		parts = append(parts, &LiteralNode{Value: "", pos: 0})
	}
	return parts, onlyExpr, nil
}
