// Package cssvalue parses the computed style values the extraction engine
// needs to understand: colors, lengths, shadows and gradients.
package cssvalue

import (
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Token is a lexed component value.
type Token struct {
	Type css.TokenType
	Data string
}

// Tokenize splits a property value into tokens. Comments are dropped.
func Tokenize(value string) []Token {
	l := css.NewLexer(parse.NewInputString(value))
	var out []Token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return out
		case css.CommentToken:
			continue
		}
		out = append(out, Token{Type: tt, Data: string(data)})
	}
}

// SplitTopLevel cuts tokens at commas that are not nested inside a function or parentheses.
func SplitTopLevel(tokens []Token) [][]Token {
	var (
		out   [][]Token
		cur   []Token
		depth int
	)
	for _, t := range tokens {
		switch t.Type {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				out = append(out, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	return append(out, cur)
}

// Significant drops whitespace tokens.
func Significant(tokens []Token) []Token {
	out := tokens[:0:0]
	for _, t := range tokens {
		if t.Type != css.WhitespaceToken {
			out = append(out, t)
		}
	}
	return out
}

// Join renders tokens back into source text.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Data)
	}
	return strings.TrimSpace(b.String())
}

// Dimension is a number with an optional unit ("%" for percentages).
type Dimension struct {
	Value float64
	Unit  string
}

// ParseDimension reads a Number, Percentage or Dimension token.
func ParseDimension(t Token) (Dimension, bool) {
	switch t.Type {
	case css.NumberToken:
		v, err := strconv.ParseFloat(t.Data, 64)
		return Dimension{Value: v}, err == nil
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(t.Data, "%"), 64)
		return Dimension{Value: v, Unit: "%"}, err == nil
	case css.DimensionToken:
		i := len(t.Data)
		for i > 0 {
			c := t.Data[i-1]
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				i--
				continue
			}
			break
		}
		v, err := strconv.ParseFloat(t.Data[:i], 64)
		return Dimension{Value: v, Unit: strings.ToLower(t.Data[i:])}, err == nil
	}
	return Dimension{}, false
}
