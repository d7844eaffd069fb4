package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser needs one to
// read streams whose /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from the token stream of a Lexer, with one
// token of lookahead for "n g R" references.
type Parser struct {
	lexer    *Lexer
	cur      *Token
	peek     *Token
	err      error
	resolver ReferenceResolver
}

// NewParser returns a parser reading from r.
func NewParser(r io.Reader) *Parser {
	p := &Parser{lexer: NewLexer(r)}
	p.advance()
	p.advance()
	return p
}

// SetReferenceResolver installs the resolver used for indirect stream
// lengths.
func (p *Parser) SetReferenceResolver(r ReferenceResolver) {
	p.resolver = r
}

// advance shifts the lookahead. After the stream keyword, and after the ID
// operator of an inline image, the lexer is left positioned on raw data,
// so no further token is read.
func (p *Parser) advance() {
	p.cur = p.peek
	if p.isKeyword("stream") || p.isKeyword("ID") {
		p.peek = nil
		return
	}
	tok, err := p.lexer.NextToken()
	if err != nil {
		p.err = err
		tok = &Token{Type: TokenEOF, Pos: p.lexer.Pos()}
	}
	p.peek = tok
}

func (p *Parser) skipComments() {
	for p.cur != nil && p.cur.Type == TokenComment {
		p.advance()
	}
}

func (p *Parser) isKeyword(kw string) bool {
	return p.cur != nil && p.cur.Type == TokenKeyword && string(p.cur.Value) == kw
}

// ParseObject parses the next direct object or reference. It returns
// io.EOF at end of input.
func (p *Parser) ParseObject() (Object, error) {
	p.skipComments()
	if p.err != nil {
		return nil, p.err
	}
	if p.cur == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}

	tok := p.cur
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			p.advance()
			return Null{}, nil
		case "true":
			p.advance()
			return Bool(true), nil
		case "false":
			p.advance()
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	case TokenInteger:
		return p.parseNumber()
	case TokenReal:
		f, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q at offset %d", tok.Value, tok.Pos)
		}
		p.advance()
		return Real(f), nil
	case TokenString:
		p.advance()
		return String(tok.Value), nil
	case TokenHexString:
		digits := tok.Value
		if len(digits)%2 == 1 {
			digits = append(digits, '0')
		}
		b := make([]byte, len(digits)/2)
		if _, err := hex.Decode(b, digits); err != nil {
			return nil, fmt.Errorf("invalid hex string at offset %d: %w", tok.Pos, err)
		}
		p.advance()
		return String(b), nil
	case TokenName:
		p.advance()
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	}
	return nil, fmt.Errorf("unexpected token %q at offset %d", tok.Value, tok.Pos)
}

func (p *Parser) parseNumber() (Object, error) {
	tok := p.cur
	n, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(tok.Value), 64)
		if ferr != nil {
			return nil, fmt.Errorf("invalid number %q at offset %d", tok.Value, tok.Pos)
		}
		p.advance()
		return Real(f), nil
	}

	if p.peek != nil && p.peek.Type == TokenInteger {
		gen, err := strconv.ParseInt(string(p.peek.Value), 10, 64)
		if err == nil {
			p.advance()
			if p.peek != nil && p.peek.Type == TokenIndirectRef {
				p.advance()
				p.advance()
				return IndirectRef{Number: int(n), Generation: int(gen)}, nil
			}
			// The second integer is the start of the next object.
			return Int(n), nil
		}
	}
	p.advance()
	return Int(n), nil
}

func (p *Parser) parseArray() (Object, error) {
	p.advance()
	arr := Array{}
	for {
		p.skipComments()
		if p.cur == nil || p.cur.Type == TokenEOF {
			return nil, fmt.Errorf("unterminated array")
		}
		if p.cur.Type == TokenArrayEnd {
			p.advance()
			return arr, nil
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", len(arr), err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	p.advance()
	dict := Dict{}
	for {
		p.skipComments()
		if p.cur == nil || p.cur.Type == TokenEOF {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if p.cur.Type == TokenDictEnd {
			p.advance()
			return dict, nil
		}
		if p.cur.Type != TokenName {
			return nil, fmt.Errorf("dictionary key must be a name, got %q at offset %d", p.cur.Value, p.cur.Pos)
		}
		key := string(p.cur.Value)
		p.advance()

		val, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		// A null value is equivalent to the key being absent.
		if _, isNull := val.(Null); !isNull {
			dict[key] = val
		}
	}
}

// ParseIndirectObject parses "n g obj <object> endobj", including the
// stream form.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	p.skipComments()
	num, err := p.expectInt("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.expectInt("generation number")
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("obj") {
		return nil, fmt.Errorf("object %d %d: expected obj keyword", num, gen)
	}
	p.advance()

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	if p.isKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d %d: stream keyword after %s", num, gen, obj.Type())
		}
		if obj, err = p.parseStream(dict); err != nil {
			return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
		}
	}

	switch {
	case p.isKeyword("endobj"):
		p.advance()
	case p.cur == nil || p.cur.Type == TokenEOF:
		// Tolerate a missing endobj at the end of the input.
	default:
		return nil, fmt.Errorf("object %d %d: expected endobj, got %q", num, gen, p.cur.Value)
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

func (p *Parser) expectInt(what string) (int, error) {
	if p.cur == nil || p.cur.Type != TokenInteger {
		return 0, fmt.Errorf("expected %s", what)
	}
	n, err := strconv.Atoi(string(p.cur.Value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, p.cur.Value)
	}
	p.advance()
	return n, nil
}

func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	length, err := p.streamLength(dict)
	if err != nil {
		return nil, err
	}
	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("stream keyword not followed by EOL: %w", err)
	}
	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, err
	}

	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "endstream" {
		return nil, fmt.Errorf("expected endstream after %d bytes, got %q", length, tok.Value)
	}

	p.cur, p.peek = nil, nil
	p.advance()
	p.advance()
	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict Dict) (int, error) {
	var length Object = dict.Get("Length")
	if ref, ok := length.(IndirectRef); ok {
		if p.resolver == nil {
			return 0, fmt.Errorf("stream /Length %s needs a reference resolver", ref)
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return 0, fmt.Errorf("resolve stream /Length: %w", err)
		}
		length = resolved
	}
	n, ok := length.(Int)
	if !ok {
		return 0, fmt.Errorf("stream /Length is %v, want integer", length)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative stream /Length %d", n)
	}
	return int(n), nil
}

// ParseOperand parses the next object of a content stream. When the input
// is positioned on an operator instead, the operator is returned and obj
// is nil. The ID operator of an inline image is returned without being
// consumed; call ReadInlineImageData next.
func (p *Parser) ParseOperand() (obj Object, operator string, err error) {
	p.skipComments()
	if p.err != nil {
		return nil, "", p.err
	}
	if p.cur != nil && p.cur.Type == TokenKeyword {
		switch kw := string(p.cur.Value); kw {
		case "null", "true", "false":
		case "ID":
			return nil, kw, nil
		default:
			p.advance()
			return nil, kw, nil
		}
	}
	obj, err = p.ParseObject()
	return obj, "", err
}

// ReadInlineImageData reads the raw bytes between the ID and EI operators
// of an inline image. EI only counts when whitespace surrounds it.
func (p *Parser) ReadInlineImageData() ([]byte, error) {
	if !p.isKeyword("ID") {
		return nil, fmt.Errorf("inline image data must follow ID")
	}
	l := p.lexer
	if b, err := l.peek(); err == nil && isWhitespace(b) {
		l.readByte()
	}

	var data []byte
	for {
		chunk, err := l.ReadUntil([]byte("EI"))
		data = append(data, chunk...)
		if err != nil {
			return nil, fmt.Errorf("inline image has no EI")
		}
		n := len(data) - 2
		if n > 0 && !isWhitespace(data[n-1]) {
			continue
		}
		if next, err := l.peek(); err == nil && !isWhitespace(next) && !isDelimiter(next) {
			continue
		}
		if n > 0 {
			n--
		}
		p.cur, p.peek = nil, nil
		p.advance()
		p.advance()
		return bytes.Clone(data[:n]), nil
	}
}
