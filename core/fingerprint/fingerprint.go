// Package fingerprint normalizes SQL text so that statements differing only
// in literal values, case, whitespace or comments share one identity.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Placeholder replaces every masked literal.
const Placeholder = "?"

// Fingerprint returns the normalized form of a statement.
// It is pure and total: any input yields a string, and an input with no
// tokens yields its trimmed text.
func Fingerprint(text string) string {
	return FromTokens(Tokenize(text), text)
}

// FromTokens renders an already tokenized statement. raw is returned trimmed
// when tokens is empty.
func FromTokens(tokens []Token, raw string) string {
	if len(tokens) == 0 {
		return strings.TrimSpace(raw)
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	prev := ""
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		text := tok.Text
		if tok.IsLiteral() {
			text = Placeholder
		}
		// -5 and +5 are one literal where the sign cannot be a binary operator.
		if signedNumber(tokens, i) {
			text = Placeholder
			i++
		}

		// (?, ?, ?) collapses to (?) so IN lists of any length match.
		if tok.Is("(") {
			if end, ok := literalList(tokens, i); ok {
				writeToken(&sb, prev, "(")
				writeToken(&sb, "(", Placeholder)
				writeToken(&sb, Placeholder, ")")
				prev = ")"
				i = end
				continue
			}
		}

		writeToken(&sb, prev, text)
		prev = text
	}
	return sb.String()
}

// Short returns a stable 16 hex digit digest of a fingerprint, suitable as a
// compact subject identifier.
func Short(fp string) string {
	sum := sha256.Sum256([]byte(fp))
	return hex.EncodeToString(sum[:8])
}

// literalList reports whether tokens[open] starts a parenthesized list made
// only of literals and commas, returning the index of the closing paren.
func literalList(tokens []Token, open int) (int, bool) {
	sawLiteral := false
	for j := open + 1; j < len(tokens); j++ {
		switch {
		case tokens[j].IsLiteral():
			sawLiteral = true
		case tokens[j].Is(","):
		case tokens[j].Is("-") && j+1 < len(tokens) && tokens[j+1].Kind == Number:
		case tokens[j].Is(")"):
			return j, sawLiteral
		default:
			return 0, false
		}
	}
	return 0, false
}

// signLeaders are keywords after which a sign is unary.
var signLeaders = map[string]bool{
	"select": true, "where": true, "and": true, "or": true, "not": true,
	"in": true, "between": true, "when": true, "then": true, "else": true,
	"values": true, "set": true, "like": true, "is": true, "on": true,
	"having": true, "limit": true, "offset": true, "return": true, "by": true,
	"case": true, "interval": true,
}

// signedNumber reports whether tokens[i] is a unary sign applied to the
// number that follows it.
func signedNumber(tokens []Token, i int) bool {
	tok := tokens[i]
	if tok.Kind != Punct || (tok.Text != "-" && tok.Text != "+") {
		return false
	}
	if i+1 >= len(tokens) || tokens[i+1].Kind != Number {
		return false
	}
	if i == 0 {
		return true
	}
	prev := tokens[i-1]
	switch prev.Kind {
	case Punct:
		return prev.Text != ")"
	case Word:
		return signLeaders[prev.Text]
	}
	return false
}

func writeToken(sb *strings.Builder, prev, text string) {
	if sb.Len() > 0 && needsSpace(prev, text) {
		sb.WriteByte(' ')
	}
	sb.WriteString(text)
}

func needsSpace(prev, next string) bool {
	switch {
	case prev == "(" || prev == "." || prev == "::":
		return false
	case next == ")" || next == "," || next == "." || next == ";" || next == "::":
		return false
	}
	return true
}
