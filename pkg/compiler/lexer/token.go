package lexer

// Kind represents the type of token identified by the scanner.
type Kind uint8

const (
	KindEOF Kind = iota
	KindError
	KindWhitespace
	KindComment
	KindSymbol
	KindNumber
	KindLParen // (
	KindRParen // )
)

var kindNames = [...]string{
	KindEOF:        "end of input",
	KindError:      "error",
	KindWhitespace: "whitespace",
	KindComment:    "comment",
	KindSymbol:     "symbol",
	KindNumber:     "number",
	KindLParen:     "'('",
	KindRParen:     "')'",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token represents a lexical unit pointing back to the source.
type Token struct {
	Kind   Kind
	Offset uint32
	Length uint32
}

// End returns the offset just past the token.
func (t Token) End() int {
	return int(t.Offset + t.Length)
}

// Text returns the source text of the token.
func (t Token) Text(src []byte) string {
	return string(src[t.Offset : t.Offset+t.Length])
}
