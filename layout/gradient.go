package layout

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/ByLCY/vellum/cssvalue"
)

// GradientMode selects how gradient backgrounds are exported.
type GradientMode int

const (
	// GradientSolid 用按位置加权的平均色替代渐变。
	GradientSolid GradientMode = iota
	// GradientRaster rasterizes the gradient region into an image.
	GradientRaster
)

func (m GradientMode) String() string {
	if m == GradientRaster {
		return "raster"
	}
	return "solid"
}

// ParseGradientMode accepts "solid" or "raster"; anything else is solid.
func ParseGradientMode(s string) GradientMode {
	if strings.EqualFold(strings.TrimSpace(s), "raster") {
		return GradientRaster
	}
	return GradientSolid
}

func stopColor(raw string) color.NRGBA {
	c, status := cssvalue.ParseColor(raw)
	switch status {
	case cssvalue.ColorNone:
		return color.NRGBA{}
	case cssvalue.ColorInvalid:
		return color.NRGBA{A: 0xff}
	}
	return c
}

// DominantColor averages a gradient into one color. Each span between
// consecutive stops contributes the mean of its two colors weighted by its
// length, and the edges before the first and after the last stop contribute
// those stops' colors. Channels are averaged premultiplied so transparent
// stops do not darken the result. ok=false when the result is fully transparent.
func DominantColor(g *cssvalue.Gradient) (hex string, ok bool) {
	if g == nil || len(g.Stops) == 0 {
		return "", false
	}
	var r, gr, b, a, total float64
	add := func(c color.NRGBA, w float64) {
		if w <= 0 {
			return
		}
		alpha := float64(c.A) / 255
		r += float64(c.R) * alpha * w
		gr += float64(c.G) * alpha * w
		b += float64(c.B) * alpha * w
		a += alpha * w
		total += w
	}
	stops := g.Stops
	first, last := stops[0], stops[len(stops)-1]
	add(stopColor(first.Color), first.Pos)
	for i := 1; i < len(stops); i++ {
		w := stops[i].Pos - stops[i-1].Pos
		add(stopColor(stops[i-1].Color), w/2)
		add(stopColor(stops[i].Color), w/2)
	}
	add(stopColor(last.Color), 1-last.Pos)
	if total == 0 {
		// 所有色标重合时退化为简单平均。
		for _, s := range stops {
			add(stopColor(s.Color), 1)
		}
	}
	if a == 0 {
		return "", false
	}
	out := color.NRGBA{
		R: uint8(math.Round(r / a)),
		G: uint8(math.Round(gr / a)),
		B: uint8(math.Round(b / a)),
		A: uint8(math.Round(a / total * 255)),
	}
	if out.A == 0 {
		return "", false
	}
	return hexOf(out), true
}

// gradientSVG renders g as an SVG document of w by h pixels so it can be
// rasterized. Conic gradients have no SVG equivalent and return false.
func gradientSVG(g *cssvalue.Gradient, w, h int) (string, bool) {
	var def string
	switch g.Kind {
	case cssvalue.LinearGradient:
		rad := g.Angle * math.Pi / 180
		dx, dy := math.Sin(rad)/2, -math.Cos(rad)/2
		def = fmt.Sprintf(`<linearGradient id="g" x1="%.4f" y1="%.4f" x2="%.4f" y2="%.4f"%s>`,
			0.5-dx, 0.5-dy, 0.5+dx, 0.5+dy, spreadAttr(g))
	case cssvalue.RadialGradient:
		def = fmt.Sprintf(`<radialGradient id="g" cx="0.5" cy="0.5" r="0.5"%s>`, spreadAttr(g))
	default:
		return "", false
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d"><defs>`, w, h, w, h)
	sb.WriteString(def)
	for _, s := range g.Stops {
		c := stopColor(s.Color)
		fmt.Fprintf(&sb, `<stop offset="%.4f" stop-color="#%02x%02x%02x" stop-opacity="%.3f"/>`,
			s.Pos, c.R, c.G, c.B, float64(c.A)/255)
	}
	if g.Kind == cssvalue.LinearGradient {
		sb.WriteString(`</linearGradient>`)
	} else {
		sb.WriteString(`</radialGradient>`)
	}
	fmt.Fprintf(&sb, `</defs><rect x="0" y="0" width="%d" height="%d" fill="url(#g)"/></svg>`, w, h)
	return sb.String(), true
}

func spreadAttr(g *cssvalue.Gradient) string {
	if g.Repeating {
		return ` spreadMethod="repeat"`
	}
	return ""
}
