package cssvalue

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/image/colornames"
)

// ColorStatus tells how a color value was understood.
type ColorStatus int

const (
	ColorOK      ColorStatus = iota
	ColorNone                // transparent, zero alpha or empty: nothing to paint
	ColorInvalid             // present but unparseable
)

// ParseColor understands hex (3/4/6/8 digits), rgb()/rgba() and hsl()/hsla()
// in comma or space+slash syntax, named colors and the transparent keyword.
func ParseColor(raw string) (color.NRGBA, ColorStatus) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "", "transparent", "none":
		return color.NRGBA{}, ColorNone
	}
	toks := Significant(Tokenize(v))
	if len(toks) == 0 {
		return color.NRGBA{}, ColorNone
	}
	var (
		c  color.NRGBA
		ok bool
	)
	switch t := toks[0]; t.Type {
	case css.HashToken:
		if len(toks) == 1 {
			c, ok = parseHex(strings.TrimPrefix(t.Data, "#"))
		}
	case css.IdentToken:
		if len(toks) == 1 {
			var rgba color.RGBA
			rgba, ok = colornames.Map[t.Data]
			c = color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: 0xff}
		}
	case css.FunctionToken:
		c, ok = parseColorFunc(strings.TrimSuffix(t.Data, "("), toks[1:])
	}
	if !ok {
		return color.NRGBA{}, ColorInvalid
	}
	if c.A == 0 {
		return c, ColorNone
	}
	return c, ColorOK
}

func parseHex(h string) (color.NRGBA, bool) {
	for _, r := range h {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return color.NRGBA{}, false
		}
	}
	nib := func(i int) uint8 {
		n, _ := strconv.ParseUint(h[i:i+1], 16, 8)
		return uint8(n * 17)
	}
	byt := func(i int) uint8 {
		n, _ := strconv.ParseUint(h[i:i+2], 16, 8)
		return uint8(n)
	}
	switch len(h) {
	case 3:
		return color.NRGBA{R: nib(0), G: nib(1), B: nib(2), A: 0xff}, true
	case 4:
		return color.NRGBA{R: nib(0), G: nib(1), B: nib(2), A: nib(3)}, true
	case 6:
		return color.NRGBA{R: byt(0), G: byt(2), B: byt(4), A: 0xff}, true
	case 8:
		return color.NRGBA{R: byt(0), G: byt(2), B: byt(4), A: byt(6)}, true
	}
	return color.NRGBA{}, false
}

// parseColorFunc reads the arguments after "rgb(" or "hsl(" up to the closing parenthesis.
func parseColorFunc(name string, args []Token) (color.NRGBA, bool) {
	var (
		parts  []Dimension
		alpha  = Dimension{Value: 1}
		slash  bool
		closed bool
	)
	for _, t := range args {
		switch t.Type {
		case css.CommaToken:
			continue
		case css.DelimToken:
			if t.Data != "/" {
				return color.NRGBA{}, false
			}
			slash = true
			continue
		case css.RightParenthesisToken:
			closed = true
		default:
			d, ok := ParseDimension(t)
			if !ok {
				if t.Type == css.IdentToken && t.Data == "none" {
					d = Dimension{}
				} else {
					return color.NRGBA{}, false
				}
			}
			if slash {
				alpha = d
			} else {
				parts = append(parts, d)
			}
			continue
		}
		break
	}
	if !closed {
		return color.NRGBA{}, false
	}
	if len(parts) == 4 && !slash {
		alpha = parts[3]
		parts = parts[:3]
	}
	if len(parts) != 3 {
		return color.NRGBA{}, false
	}
	a := alpha.Value
	if alpha.Unit == "%" {
		a /= 100
	}
	a8 := clamp8(a * 255)

	switch name {
	case "rgb", "rgba":
		ch := func(d Dimension) uint8 {
			if d.Unit == "%" {
				return clamp8(d.Value * 2.55)
			}
			return clamp8(d.Value)
		}
		return color.NRGBA{R: ch(parts[0]), G: ch(parts[1]), B: ch(parts[2]), A: a8}, true
	case "hsl", "hsla":
		h := math.Mod(parts[0].Value, 360)
		if h < 0 {
			h += 360
		}
		r, g, b := hslToRGB(h/360, parts[1].Value/100, parts[2].Value/100)
		return color.NRGBA{R: clamp8(r * 255), G: clamp8(g * 255), B: clamp8(b * 255), A: a8}, true
	}
	return color.NRGBA{}, false
}

func hslToRGB(h, s, l float64) (float64, float64, float64) {
	s = math.Min(math.Max(s, 0), 1)
	l = math.Min(math.Max(l, 0), 1)
	if s == 0 {
		return l, l, l
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hue := func(t float64) float64 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		switch {
		case t < 1.0/6:
			return p + (q-p)*6*t
		case t < 0.5:
			return q
		case t < 2.0/3:
			return p + (q-p)*(2.0/3-t)*6
		}
		return p
	}
	return hue(h + 1.0/3), hue(h), hue(h - 1.0/3)
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
