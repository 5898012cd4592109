package fingerprint

// Kind classifies a token.
type Kind int

// Token kinds produced by Tokenize.
const (
	Word        Kind = iota // identifier or keyword, lower-cased
	QuotedIdent             // "Identifier", case preserved
	Number                  // 42, 3.14, 1e10, 0xff
	String                  // 'text' or $$text$$
	Param                   // ?, $1, :name
	Punct                   // operators and punctuation
)

// Token is one lexical unit of a statement.
type Token struct {
	Kind  Kind
	Text  string
	Depth int // paren nesting depth at the token; "(" carries the outer depth
}

// IsLiteral reports whether the token is a value that fingerprinting masks.
func (t Token) IsLiteral() bool {
	return t.Kind == Number || t.Kind == String || t.Kind == Param
}

// Is reports whether the token is the given keyword or punctuation.
func (t Token) Is(text string) bool {
	return (t.Kind == Word || t.Kind == Punct) && t.Text == text
}

type lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

func newLexer(input string) *lexer {
	l := &lexer{input: input}
	l.readChar()
	return l
}

func (l *lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		l.readPos = len(l.input) + 1
		return
	}
	l.ch = l.input[l.readPos]
	l.pos = l.readPos
	l.readPos++
}

func (l *lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.input)
}

// Tokenize splits SQL text into tokens, dropping whitespace and comments.
// It never fails: unterminated strings and comments run to the end of input
// and unknown bytes become single-byte punctuation.
func Tokenize(text string) []Token {
	l := newLexer(text)
	tokens := make([]Token, 0, len(text)/4)
	depth := 0
	for {
		tok, ok := l.next()
		if !ok {
			return tokens
		}
		switch {
		case tok.Kind == Punct && tok.Text == "(":
			tok.Depth = depth
			depth++
		case tok.Kind == Punct && tok.Text == ")":
			if depth > 0 {
				depth--
			}
			tok.Depth = depth
		default:
			tok.Depth = depth
		}
		tokens = append(tokens, tok)
	}
}

func (l *lexer) next() (Token, bool) {
	l.skipWhitespaceAndComments()
	if l.eof() {
		return Token{}, false
	}

	switch ch := l.ch; {
	case ch == '\'':
		return Token{Kind: String, Text: l.readQuoted('\'')}, true
	case ch == '"':
		return Token{Kind: QuotedIdent, Text: l.readQuoted('"')}, true
	case ch == '`':
		return Token{Kind: QuotedIdent, Text: l.readQuoted('`')}, true
	case ch == '$' && (l.peekChar() == '$' || isLetter(l.peekChar())) && l.dollarQuoted():
		return Token{Kind: String, Text: l.readDollarQuoted()}, true
	case ch == '$' && isDigit(l.peekChar()):
		l.readChar()
		start := l.pos
		for isDigit(l.ch) {
			l.readChar()
		}
		return Token{Kind: Param, Text: "$" + l.input[start:l.pos]}, true
	case ch == ':' && isIdentStart(l.peekChar()):
		l.readChar()
		return Token{Kind: Param, Text: ":" + l.readIdentifier()}, true
	case ch == '?':
		l.readChar()
		return Token{Kind: Param, Text: "?"}, true
	case isDigit(ch) || (ch == '.' && isDigit(l.peekChar())):
		return Token{Kind: Number, Text: l.readNumber()}, true
	case isIdentStart(ch):
		return Token{Kind: Word, Text: lower(l.readIdentifier())}, true
	default:
		return Token{Kind: Punct, Text: l.readPunct()}, true
	}
}

func (l *lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v' {
			l.readChar()
		}
		switch {
		case l.ch == '-' && l.peekChar() == '-', l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && !l.eof() {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !l.eof() {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
		default:
			return
		}
	}
}

// readQuoted reads a literal or identifier closed by quote, where a doubled
// quote is an escaped quote. Backslash escapes are honored in strings.
func (l *lexer) readQuoted(quote byte) string {
	start := l.pos
	l.readChar()
	for !l.eof() {
		switch {
		case l.ch == '\\' && quote == '\'':
			l.readChar()
			l.readChar()
		case l.ch == quote && l.peekChar() == quote:
			l.readChar()
			l.readChar()
		case l.ch == quote:
			l.readChar()
			return l.input[start:l.pos]
		default:
			l.readChar()
		}
	}
	return l.input[start:]
}

// dollarQuoted reports whether a $tag$ opener starts at the current position.
func (l *lexer) dollarQuoted() bool {
	i := l.pos + 1
	for i < len(l.input) && (isLetter(l.input[i]) || isDigit(l.input[i]) || l.input[i] == '_') {
		i++
	}
	return i < len(l.input) && l.input[i] == '$'
}

func (l *lexer) readDollarQuoted() string {
	start := l.pos
	l.readChar()
	for l.ch != '$' {
		l.readChar()
	}
	l.readChar()
	tag := l.input[start:l.pos]
	for !l.eof() {
		if l.ch == '$' && len(l.input)-l.pos >= len(tag) && l.input[l.pos:l.pos+len(tag)] == tag {
			for range len(tag) {
				l.readChar()
			}
			return l.input[start:l.pos]
		}
		l.readChar()
	}
	return l.input[start:]
}

func (l *lexer) readIdentifier() string {
	start := l.pos
	for isIdentStart(l.ch) || isDigit(l.ch) || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *lexer) readNumber() string {
	start := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHex(l.ch) {
			l.readChar()
		}
		return l.input[start:l.pos]
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

var twoCharOps = map[string]struct{}{
	"<=": {}, ">=": {}, "<>": {}, "!=": {}, "||": {}, "::": {}, "->": {}, "=>": {},
}

func (l *lexer) readPunct() string {
	if l.readPos < len(l.input) {
		pair := l.input[l.pos : l.pos+2]
		if _, ok := twoCharOps[pair]; ok {
			l.readChar()
			l.readChar()
			return pair
		}
	}
	s := l.input[l.pos : l.pos+1]
	l.readChar()
	return s
}

// Non-ASCII bytes are treated as identifier characters so that UTF-8
// identifiers stay in one token.
func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= 0x80
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHex(ch byte) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

// lower folds ASCII letters only, leaving multi-byte runes untouched.
func lower(s string) string {
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
