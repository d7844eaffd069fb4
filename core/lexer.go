package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// TokenType is the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // obj, endobj, stream, true, null, content operators
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

// Token is one lexical token. Value holds decoded bytes for strings and
// names and the raw text otherwise.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

// Lexer splits PDF syntax into tokens.
type Lexer struct {
	r   *bufio.Reader
	pos int64
}

// NewLexer returns a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(r)}
}

// Pos returns the offset of the next unread byte.
func (l *Lexer) Pos() int64 { return l.pos }

// NextToken returns the next token, or a TokenEOF token at end of input.
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipWhitespace(); err != nil && err != io.EOF {
		return nil, err
	}
	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	start := l.pos
	switch b {
	case '%':
		return l.readComment()
	case '[':
		l.readByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case ']':
		l.readByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if next, err := l.r.Peek(2); err == nil && next[1] == '<' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if next, err := l.r.Peek(2); err == nil && next[1] == '>' {
			l.readByte()
			l.readByte()
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at offset %d", start)
	case '/':
		return l.readName()
	case ')', '{', '}':
		return nil, fmt.Errorf("unexpected %q at offset %d", b, start)
	}

	if isDigit(b) || b == '-' || b == '+' || b == '.' {
		return l.readNumber()
	}
	return l.readKeyword()
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.r.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

func (l *Lexer) peek() (byte, error) {
	p, err := l.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (l *Lexer) skipWhitespace() error {
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		if !isWhitespace(b) {
			return nil
		}
		l.readByte()
	}
}

func (l *Lexer) readComment() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if b == '\r' || b == '\n' {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}
	return &Token{Type: TokenComment, Value: buf.Bytes(), Pos: start}, nil
}

func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.readByte() // (

	var buf bytes.Buffer
	depth := 1
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated string at offset %d: %w", start, err)
		}
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
		case '\r':
			// EOL inside a literal string reads as a single LF.
			if next, err := l.peek(); err == nil && next == '\n' {
				l.readByte()
			}
			b = '\n'
		case '\\':
			if err := l.readEscape(&buf); err != nil {
				return nil, err
			}
			continue
		}
		buf.WriteByte(b)
	}
}

func (l *Lexer) readEscape(buf *bytes.Buffer) error {
	c, err := l.readByte()
	if err != nil {
		return err
	}
	switch c {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '\r':
		if next, err := l.peek(); err == nil && next == '\n' {
			l.readByte()
		}
	case '\n':
	default:
		if !isOctalDigit(c) {
			buf.WriteByte(c)
			return nil
		}
		v := c - '0'
		for i := 0; i < 2; i++ {
			next, err := l.peek()
			if err != nil || !isOctalDigit(next) {
				break
			}
			l.readByte()
			v = v*8 + (next - '0')
		}
		buf.WriteByte(v)
	}
	return nil
}

// readHexString returns the hex digits with whitespace removed; the
// parser converts them to bytes.
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.readByte() // <

	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string at offset %d: %w", start, err)
		}
		if b == '>' {
			return &Token{Type: TokenHexString, Value: buf.Bytes(), Pos: start}, nil
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, fmt.Errorf("invalid hex digit %q at offset %d", b, l.pos-1)
		}
		buf.WriteByte(b)
	}
}

func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.readByte() // /

	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()
		if b == '#' {
			if hex, err := l.r.Peek(2); err == nil && isHexDigit(hex[0]) && isHexDigit(hex[1]) {
				l.readByte()
				l.readByte()
				b = hexValue(hex[0])<<4 | hexValue(hex[1])
			}
		}
		buf.WriteByte(b)
	}
	return &Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

func (l *Lexer) readNumber() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	isReal := false
scan:
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case isDigit(b):
		case b == '.' && !isReal:
			isReal = true
		case (b == '-' || b == '+') && buf.Len() == 0:
		default:
			break scan
		}
		l.readByte()
		buf.WriteByte(b)
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return &Token{Type: typ, Value: buf.Bytes(), Pos: start}, nil
}

// readKeyword reads a run of regular characters. Content stream operators
// such as T* and ' arrive here too.
func (l *Lexer) readKeyword() (*Token, error) {
	start := l.pos
	var buf bytes.Buffer
	for {
		b, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.readByte()
		buf.WriteByte(b)
	}
	if buf.Len() == 1 && buf.Bytes()[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: buf.Bytes(), Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: buf.Bytes(), Pos: start}, nil
}

// SkipStreamEOL consumes the end-of-line marker after the stream keyword:
// CRLF, LF, or a lone CR as written by some producers.
func (l *Lexer) SkipStreamEOL() error {
	b, err := l.peek()
	if err != nil {
		return err
	}
	switch b {
	case '\n':
		l.readByte()
	case '\r':
		l.readByte()
		if next, err := l.peek(); err == nil && next == '\n' {
			l.readByte()
		}
	case ' ':
		// Tolerate "stream \n".
		l.readByte()
		return l.SkipStreamEOL()
	}
	return nil
}

// ReadBytes reads exactly n raw bytes.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	read, err := io.ReadFull(l.r, data)
	l.pos += int64(read)
	if err != nil {
		return data[:read], fmt.Errorf("read %d of %d stream bytes: %w", read, n, err)
	}
	return data, nil
}

// ReadUntil reads raw bytes up to and including the first occurrence of
// marker. It is used to skip inline image data in content streams.
func (l *Lexer) ReadUntil(marker []byte) ([]byte, error) {
	var buf bytes.Buffer
	for {
		b, err := l.readByte()
		if err != nil {
			return buf.Bytes(), err
		}
		buf.WriteByte(b)
		if bytes.HasSuffix(buf.Bytes(), marker) {
			return buf.Bytes(), nil
		}
	}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}
