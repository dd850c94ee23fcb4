package lexer

import "unicode/utf8"

// Scanner performs lexical analysis on s-expression source.
type Scanner struct {
	source []byte
	cursor int
}

// NewScanner creates a new scanner for the given source.
func NewScanner(source []byte) *Scanner {
	return &Scanner{source: source}
}

// Reset re-initializes the scanner with new source for reuse.
func (s *Scanner) Reset(source []byte) {
	s.source = source
	s.cursor = 0
}

// Next returns the next token from the source, including whitespace and
// comments.
func (s *Scanner) Next() Token {
	if s.cursor >= len(s.source) {
		return Token{Kind: KindEOF, Offset: uint32(s.cursor)}
	}

	start := s.cursor
	ch := s.source[s.cursor]

	switch {
	case isSpace(ch):
		for s.cursor < len(s.source) && isSpace(s.source[s.cursor]) {
			s.cursor++
		}
		return s.token(KindWhitespace, start)
	case ch == ';':
		for s.cursor < len(s.source) && s.source[s.cursor] != '\n' {
			s.cursor++
		}
		return s.token(KindComment, start)
	case ch == '(':
		s.cursor++
		return s.token(KindLParen, start)
	case ch == ')':
		s.cursor++
		return s.token(KindRParen, start)
	case isSymbolChar(ch):
		for s.cursor < len(s.source) && isSymbolChar(s.source[s.cursor]) {
			s.cursor++
		}
		kind := KindSymbol
		if looksNumeric(s.source[start:s.cursor]) {
			kind = KindNumber
		}
		return s.token(kind, start)
	}

	// Consume a whole rune so the error span covers the character.
	_, size := utf8.DecodeRune(s.source[s.cursor:])
	s.cursor += size
	return s.token(KindError, start)
}

func (s *Scanner) token(kind Kind, start int) Token {
	return Token{Kind: kind, Offset: uint32(start), Length: uint32(s.cursor - start)}
}

// Tokenize returns all tokens of src except whitespace and comments. The last
// token is either KindEOF or the first KindError.
func Tokenize(src []byte) []Token {
	s := NewScanner(src)
	var toks []Token
	for {
		tok := s.Next()
		switch tok.Kind {
		case KindWhitespace, KindComment:
			continue
		}
		toks = append(toks, tok)
		if tok.Kind == KindEOF || tok.Kind == KindError {
			return toks
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isSymbolChar(ch byte) bool {
	if isAlpha(ch) || isDigit(ch) {
		return true
	}
	switch ch {
	case '-', '!', '$', '%', '&', '*', '+', '.', '/', ':', '<', '=', '>', '?', '@', '^', '_', '~':
		return true
	}
	return false
}

// looksNumeric matches ^[-+]?\.?[0-9].
func looksNumeric(lit []byte) bool {
	i := 0
	if i < len(lit) && (lit[i] == '-' || lit[i] == '+') {
		i++
	}
	if i < len(lit) && lit[i] == '.' {
		i++
	}
	return i < len(lit) && isDigit(lit[i])
}

// Position converts a byte offset into a 1-based line and column.
func Position(src []byte, offset int) (line, column int) {
	if offset > len(src) {
		offset = len(src)
	}
	line, column = 1, 1
	for _, ch := range src[:offset] {
		if ch == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
