package queryir

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/geograph/internal/ir"
)

// ParseFilter parses a top-level filter such as
//
//	[age >= 18 AND name <> "Bob"]{skip=10 limit=5}
//
// The where and pagination parts are both optional and may appear in
// either order. An empty or blank text yields an empty Filter.
func ParseFilter(text string) (Filter, error) {
	p := &parser{src: text}
	var f Filter

	for {
		p.skipSpace()
		if p.eof() {
			return f, nil
		}
		switch p.peek() {
		case '[':
			if f.Where != nil {
				return Filter{}, p.fail(ir.CodeInvalidFilter, "duplicate where expression")
			}
			w, err := p.parseWhere()
			if err != nil {
				return Filter{}, err
			}
			f.Where = w
		case '{':
			if f.Pagination != nil {
				return Filter{}, p.fail(ir.CodeInvalidFilter, "duplicate pagination expression")
			}
			pg, err := p.parsePagination()
			if err != nil {
				return Filter{}, err
			}
			f.Pagination = pg
		default:
			return Filter{}, p.fail(ir.CodeInvalidFilter, "expected '[' or '{', found %q", p.peek())
		}
	}
}

// ParseRelationPath parses a relation path such as
//
//	friends@f[age > 30].?livesIn-worksIn{limit=1}
func ParseRelationPath(text string) (Path, error) {
	p := &parser{src: text}
	var path Path

	for {
		hop, err := p.parseHop()
		if err != nil {
			return Path{}, err
		}
		path.Hops = append(path.Hops, hop)

		p.skipSpace()
		if p.eof() {
			return path, nil
		}
		if p.peek() != '.' {
			return Path{}, p.fail(ir.CodeInvalidFilter, "expected '.' between hops, found %q", p.peek())
		}
		p.pos++
	}
}

// parser is a hand-written recursive descent parser over one input text.
type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', ',':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) fail(code ir.ErrorCode, format string, args ...any) error {
	return ir.Invalid(code, format, args...).
		With("input", p.src).
		With("offset", strconv.Itoa(p.pos))
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// IsIdentifier reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func IsIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

// ident consumes an identifier; it returns "" when none starts here.
func (p *parser) ident() string {
	start := p.pos
	if p.eof() || !isIdentStart(p.peek()) {
		return ""
	}
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// keyword consumes kw (case-insensitive) when it appears as a whole word.
func (p *parser) keyword(kw string) bool {
	end := p.pos + len(kw)
	if end > len(p.src) || !strings.EqualFold(p.src[p.pos:end], kw) {
		return false
	}
	if end < len(p.src) && isIdentPart(p.src[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *parser) parseWhere() (*Where, error) {
	p.pos++ // '['
	w := &Where{}

	for {
		p.skipSpace()
		term, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		w.Terms = append(w.Terms, term)

		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return w, nil
		}
		switch {
		case p.keyword("AND"):
			w.Joins = append(w.Joins, And)
		case p.keyword("OR"):
			w.Joins = append(w.Joins, Or)
		case p.eof():
			return nil, p.fail(ir.CodeInvalidFilter, "unterminated where expression")
		default:
			return nil, p.fail(ir.CodeInvalidFilter, "expected AND, OR or ']'")
		}
	}
}

func (p *parser) parsePredicate() (Predicate, error) {
	prop := p.ident()
	if prop == "" {
		return nil, p.fail(ir.CodeInvalidFilter, "expected property name")
	}
	p.skipSpace()

	if p.keyword("IS") {
		p.skipSpace()
		negated := p.keyword("NOT")
		p.skipSpace()
		if !p.keyword("NULL") {
			return nil, p.fail(ir.CodeInvalidFilter, "expected NULL after IS")
		}
		return NullCheck{Property: prop, Negated: negated}, nil
	}

	op, ok := p.parseOp()
	if !ok {
		return nil, p.fail(ir.CodeInvalidFilter, "expected comparison operator after %q", prop)
	}
	p.skipSpace()

	value, isNull, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if isNull {
		switch op {
		case OpEq:
			return NullCheck{Property: prop}, nil
		case OpNe:
			return NullCheck{Property: prop, Negated: true}, nil
		default:
			return nil, p.fail(ir.CodeInvalidFilter, "null only compares with = or <>")
		}
	}
	return Comparison{Property: prop, Op: op, Value: value}, nil
}

func (p *parser) parseOp() (Op, bool) {
	// Two-character operators first so "<=" is not read as "<".
	for _, op := range []Op{OpNe, OpLte, OpGte, OpEq, OpLt, OpGt} {
		if strings.HasPrefix(p.src[p.pos:], string(op)) {
			p.pos += len(op)
			return op, true
		}
	}
	return "", false
}

// parseValue reads a quoted string or a bare token.
func (p *parser) parseValue() (value any, isNull bool, err error) {
	if p.eof() {
		return nil, false, p.fail(ir.CodeInvalidFilter, "expected value")
	}
	if c := p.peek(); c == '"' || c == '\'' {
		s, err := p.quoted(c)
		if err != nil {
			return nil, false, err
		}
		return norm.NFC.String(s), false, nil
	}

	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ']' {
			break
		}
		p.pos++
	}
	token := p.src[start:p.pos]
	if token == "" {
		return nil, false, p.fail(ir.CodeInvalidFilter, "expected value")
	}
	return typedToken(token)
}

func typedToken(token string) (any, bool, error) {
	if strings.EqualFold(token, "null") {
		return nil, true, nil
	}
	if strings.EqualFold(token, "true") {
		return true, false, nil
	}
	if strings.EqualFold(token, "false") {
		return false, false, nil
	}
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return n, false, nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, false, nil
	}
	return norm.NFC.String(token), false, nil
}

// quoted consumes a string delimited by quote and resolves escapes.
func (p *parser) quoted(quote byte) (string, error) {
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.eof() {
				return "", p.fail(ir.CodeInvalidFilter, "unterminated escape")
			}
			switch esc := p.peek(); esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(esc)
			}
			p.pos++
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.fail(ir.CodeInvalidFilter, "unterminated string")
}

func (p *parser) parsePagination() (*Pagination, error) {
	p.pos++ // '{'
	pg := &Pagination{}

	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return pg, nil
		}
		if p.eof() {
			return nil, p.fail(ir.CodeInvalidFilter, "unterminated pagination expression")
		}

		var target **int
		switch {
		case p.keyword("skip"):
			target = &pg.Skip
		case p.keyword("limit"):
			target = &pg.Limit
		default:
			return nil, p.fail(ir.CodeInvalidFilter, "expected skip or limit")
		}
		if *target != nil {
			return nil, p.fail(ir.CodeInvalidFilter, "duplicate pagination bound")
		}

		p.skipSpace()
		if p.peek() != '=' {
			return nil, p.fail(ir.CodeInvalidFilter, "expected '=' in pagination")
		}
		p.pos++
		p.skipSpace()

		start := p.pos
		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.pos++
		}
		n, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return nil, p.fail(ir.CodeInvalidFilter, "pagination bound must be a non-negative integer")
		}
		*target = &n
	}
}

func (p *parser) parseHop() (Hop, error) {
	var hop Hop

	p.skipSpace()
	if p.peek() == '?' {
		hop.Optional = true
		p.pos++
	}

	for {
		t := p.ident()
		if t == "" {
			return Hop{}, p.fail(ir.CodeMissingRelationType, "hop is missing a relationship type")
		}
		hop.Types = append(hop.Types, t)
		if p.peek() != '-' {
			break
		}
		p.pos++
	}

	if p.peek() == '@' {
		p.pos++
		hop.Variable = p.ident()
		if hop.Variable == "" {
			return Hop{}, p.fail(ir.CodeInvalidVariable, "expected variable name after '@'")
		}
	}

	for {
		switch p.peek() {
		case '[':
			if hop.Where != nil {
				return Hop{}, p.fail(ir.CodeInvalidFilter, "duplicate where expression")
			}
			w, err := p.parseWhere()
			if err != nil {
				return Hop{}, err
			}
			hop.Where = w
		case '{':
			if hop.Pagination != nil {
				return Hop{}, p.fail(ir.CodeInvalidFilter, "duplicate pagination expression")
			}
			pg, err := p.parsePagination()
			if err != nil {
				return Hop{}, err
			}
			hop.Pagination = pg
		default:
			return hop, nil
		}
	}
}
