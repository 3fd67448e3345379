package cssvalue

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// Shadow is one box-shadow layer; lengths are in px and Color keeps its source text.
type Shadow struct {
	OffsetX float64
	OffsetY float64
	Blur    float64
	Spread  float64
	Color   string
	Inset   bool
}

// ParseShadows splits a box-shadow list into layers. "none" yields nil.
// Layers that cannot be read are skipped.
func ParseShadows(raw string) []Shadow {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, "none") {
		return nil
	}
	var out []Shadow
	for _, layer := range SplitTopLevel(Tokenize(v)) {
		if s, ok := parseShadow(Significant(layer)); ok {
			out = append(out, s)
		}
	}
	return out
}

func parseShadow(toks []Token) (Shadow, bool) {
	var (
		s       Shadow
		lengths []float64
		color   []Token
		depth   int
	)
	for _, t := range toks {
		if depth > 0 || t.Type == css.FunctionToken {
			color = append(color, t)
			switch t.Type {
			case css.FunctionToken:
				depth++
			case css.RightParenthesisToken:
				depth--
			}
			continue
		}
		switch t.Type {
		case css.IdentToken:
			if strings.EqualFold(t.Data, "inset") {
				s.Inset = true
				continue
			}
			color = append(color, t)
		case css.HashToken:
			color = append(color, t)
		default:
			d, ok := ParseDimension(t)
			if !ok {
				return Shadow{}, false
			}
			lengths = append(lengths, ToPx(d, 16))
		}
	}
	if len(lengths) < 2 || len(lengths) > 4 {
		return Shadow{}, false
	}
	s.OffsetX, s.OffsetY = lengths[0], lengths[1]
	if len(lengths) > 2 {
		s.Blur = lengths[2]
	}
	if len(lengths) > 3 {
		s.Spread = lengths[3]
	}
	s.Color = joinColor(color)
	return s, true
}

func joinColor(toks []Token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && t.Type != css.RightParenthesisToken && toks[i-1].Type != css.FunctionToken {
			b.WriteByte(' ')
		}
		b.WriteString(t.Data)
	}
	return b.String()
}

// ToPx converts an absolute length to px. em and rem use fontSize; unknown units pass through.
func ToPx(d Dimension, fontSize float64) float64 {
	switch d.Unit {
	case "pt":
		return d.Value * 96 / 72
	case "pc":
		return d.Value * 16
	case "in":
		return d.Value * 96
	case "cm":
		return d.Value * 96 / 2.54
	case "mm":
		return d.Value * 96 / 25.4
	case "em", "rem":
		return d.Value * fontSize
	}
	return d.Value
}
