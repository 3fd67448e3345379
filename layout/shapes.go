package layout

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2/css"

	"github.com/ByLCY/vellum/cssvalue"
	"github.com/ByLCY/vellum/visual"
)

// minStrokePx 以下的边框视为舍入噪声。
const minStrokePx = 0.5

// extractBox emits the shape and background images of one box node, bottom first:
// the filled/stroked shape, then url() layers from the bottom-most up.
func (p *pass) extractBox(n *visual.Node, step PaintStep) []Item {
	s := n.Style
	if n.Box.W < 1 || n.Box.H < 1 || s.Invisible() {
		return nil
	}
	p.noteDecorative(n)

	fill, hasFill := ColorToHex(s.BackgroundColor)
	layers := cssvalue.ImageLayers(s.BackgroundImage)
	var images []Item
	for i := len(layers) - 1; i >= 0; i-- {
		switch l := layers[i]; l.Kind {
		case cssvalue.LayerGradient:
			if it, solid, ok := p.gradientLayer(n, l.Value, step); ok {
				if it != nil {
					images = append(images, it)
				} else if !hasFill || i == 0 {
					fill, hasFill = solid, true
				}
			}
		case cssvalue.LayerURL:
			if l.Value == "" {
				continue
			}
			img, err := p.loadImage(l.Value, n.Box)
			if err != nil {
				p.warnf(n.ID, "background image %q skipped: %v", l.Value, err)
				continue
			}
			images = append(images, p.newImageItem("bg", n.Box, img, step, l.Value))
		default:
			p.diag.markDecorative(n.ID)
		}
	}

	var out []Item
	if shape := p.shapeFor(n, fill, hasFill, step); shape != nil {
		out = append(out, shape)
	}
	return append(out, images...)
}

// shapeFor builds the rect/circle primitive, or nil when there is nothing to paint.
func (p *pass) shapeFor(n *visual.Node, fill string, hasFill bool, step PaintStep) *ShapeItem {
	s := n.Style
	strokeW := ParsePx(firstField(s.BorderWidth))
	borderStyle := strings.ToLower(firstField(s.BorderStyle))
	stroke, hasStroke := "", false
	if strokeW >= minStrokePx && borderStyle != "" && borderStyle != "none" && borderStyle != "hidden" {
		stroke, hasStroke = ColorToHex(firstColor(s.BorderColor))
	}
	if !hasStroke {
		strokeW, borderStyle = 0, ""
	}
	if !hasFill && !hasStroke {
		return nil
	}
	r := Measure(n.Box, p.tree.Width, p.tree.Height)
	item := &ShapeItem{
		Header:        Header{ID: p.nextID("shape", PositionKey(r)), PaintIndex: step.Index, Rect: r},
		Kind:          ShapeRect,
		FillColor:     fill,
		StrokeColor:   stroke,
		StrokeWidthPx: strokeW,
		BorderStyle:   borderStyle,
		Opacity:       step.Opacity,
	}
	radii := s.Radii()
	if isCircle(radii) {
		item.Kind = ShapeCircle
	} else {
		item.CornerRadiusPx = cornerRadius(radii[0], n.Box)
	}
	item.Shadow = p.shadowFor(n)
	return item
}

// isCircle reports whether every corner radius is a percentage of at least 45.
func isCircle(radii [4]string) bool {
	for _, r := range radii {
		l := ParseLength(firstField(r))
		if l.Unit != UnitPercent || l.Value < 45 {
			return false
		}
	}
	return true
}

func cornerRadius(raw string, b visual.Box) float64 {
	short := min(b.W, b.H)
	l := ParseLength(firstField(raw))
	px := l.Px(16, short)
	return max(0, min(px, short/2))
}

// shadowFor keeps only the first box-shadow layer. Inset shadows are dropped
// with a warning.
func (p *pass) shadowFor(n *visual.Node) *Shadow {
	layers := cssvalue.ParseShadows(n.Style.BoxShadow)
	if len(layers) == 0 {
		return nil
	}
	first := layers[0]
	if first.Inset {
		p.diag.warn("inset box-shadow is not exportable and was dropped")
		p.log.Debug("inset shadow dropped", nodeField(n.ID))
		return nil
	}
	c, ok := ColorToHex(first.Color)
	if first.Color == "" {
		c, ok = ColorToHex(n.Style.Color)
	}
	if !ok {
		return nil
	}
	return &Shadow{OffsetX: first.OffsetX, OffsetY: first.OffsetY, Blur: first.Blur, Spread: first.Spread, Color: c}
}

// gradientLayer applies the gradient fallback. In raster mode it returns an
// image item; in solid mode it returns the dominant color. ok=false when the
// gradient cannot be used at all.
func (p *pass) gradientLayer(n *visual.Node, value string, step PaintStep) (Item, string, bool) {
	line := max(n.Box.W, n.Box.H)
	g, err := cssvalue.ParseGradient(value, line)
	if err != nil {
		p.warnf(n.ID, "gradient could not be read: %v", err)
		return nil, "", false
	}
	if p.opts.GradientMode == GradientRaster {
		w, h := rasterSize(n.Box)
		if markup, ok := gradientSVG(g, w, h); ok {
			img, err := p.cached(fmt.Sprintf("gradient:%dx%d:%s", w, h, value), func() (*cachedImage, error) {
				return rasterizeMarkup([]byte(markup), w, h)
			})
			if err == nil {
				p.diag.fallback = true
				p.diag.warn("gradient replaced with raster fallback")
				return p.newImageItem("gradient", n.Box, img, step, "gradient"), "", true
			}
			p.log.Debug("gradient raster failed, using solid color", nodeField(n.ID))
		}
	}
	hex, ok := DominantColor(g)
	if !ok {
		return nil, "", false
	}
	p.diag.warn("gradient replaced with solid fallback")
	return nil, hex, true
}

// noteDecorative records nodes that use layers the encoders cannot reproduce.
func (p *pass) noteDecorative(n *visual.Node) {
	s := n.Style
	switch {
	case declared(s.TextShadow), declared(s.Filter), declared(s.Mask), declared(s.ClipPath):
	case declared(s.MixBlendMode) && !strings.EqualFold(s.MixBlendMode, "normal"):
	case outlineVisible(s.Outline):
	default:
		return
	}
	p.diag.markDecorative(n.ID)
}

func outlineVisible(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if !declared(v) {
		return false
	}
	for _, f := range strings.Fields(v) {
		if f == "none" || f == "hidden" {
			return false
		}
		if l := ParseLength(f); l.Unit != UnitNone && l.Value == 0 {
			return false
		}
	}
	return true
}

// firstField returns the first whitespace separated value of a shorthand.
func firstField(v string) string {
	if f := strings.Fields(v); len(f) > 0 {
		return f[0]
	}
	return ""
}

// firstColor returns the first color of a possibly four-sided border-color.
func firstColor(v string) string {
	var (
		out   []cssvalue.Token
		depth int
	)
	for _, t := range cssvalue.Tokenize(strings.TrimSpace(v)) {
		if t.Type == css.WhitespaceToken && depth == 0 && len(out) > 0 {
			break
		}
		switch t.Type {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
		}
		out = append(out, t)
	}
	return cssvalue.Join(out)
}
