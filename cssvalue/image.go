package cssvalue

import (
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// LayerKind classifies one background-image layer.
type LayerKind int

const (
	LayerURL LayerKind = iota
	LayerGradient
	LayerOther // image-set(), element(), cross-fade() and friends
)

// Layer is one comma separated entry of background-image.
type Layer struct {
	Kind  LayerKind
	Value string // url target or the full gradient text
}

// ImageLayers splits a background-image value, topmost layer first.
func ImageLayers(value string) []Layer {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, "none") {
		return nil
	}
	var out []Layer
	for _, part := range SplitTopLevel(Tokenize(v)) {
		toks := Significant(part)
		if len(toks) == 0 {
			continue
		}
		switch t := toks[0]; {
		case t.Type == css.URLToken:
			out = append(out, Layer{Kind: LayerURL, Value: unquoteURL(t.Data)})
		case t.Type == css.FunctionToken && strings.EqualFold(t.Data, "url("):
			target := ""
			if len(toks) > 1 && toks[1].Type == css.StringToken {
				target = strings.Trim(toks[1].Data, `"'`)
			}
			out = append(out, Layer{Kind: LayerURL, Value: target})
		case t.Type == css.FunctionToken && strings.HasSuffix(strings.ToLower(t.Data), "gradient("):
			out = append(out, Layer{Kind: LayerGradient, Value: Join(part)})
		default:
			out = append(out, Layer{Kind: LayerOther, Value: Join(part)})
		}
	}
	return out
}

func unquoteURL(tok string) string {
	s := strings.TrimSpace(tok)
	if len(s) >= 5 && strings.EqualFold(s[:4], "url(") {
		s = s[4 : len(s)-1]
	}
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
