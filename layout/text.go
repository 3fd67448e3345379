package layout

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ByLCY/vellum/visual"
)

// runStyle 是父节点上读取一次、由其所有文本行共享的样式。
type runStyle struct {
	color      string
	visible    bool
	fontSize   float64
	weight     int
	italic     bool
	family     string
	align      string
	lineHeight float64
	preserve   bool // white-space 保留空白
}

func (p *pass) styleFor(leaf *visual.Node) *runStyle {
	if st, ok := p.styles[leaf.Parent]; ok {
		return st
	}
	s := p.tree.StyleOf(leaf.ID)
	st := &runStyle{
		fontSize: ParsePx(s.FontSize),
		weight:   parseWeight(s.FontWeight),
		italic:   s.FontStyle == "italic" || s.FontStyle == "oblique",
		family:   MapFont(s.FontFamily),
		align:    normalizeAlign(s.TextAlign),
		preserve: preservesSpace(s.WhiteSpace),
	}
	if st.fontSize <= 0 {
		st.fontSize = 16
	}
	st.lineHeight = ResolveLineHeight(s.LineHeight, st.fontSize)
	st.color, st.visible = ColorToHex(s.Color)
	if s.Invisible() {
		st.visible = false
	}
	p.styles[leaf.Parent] = st
	return st
}

func preservesSpace(v string) bool {
	switch strings.TrimSpace(v) {
	case "pre", "pre-wrap", "break-spaces":
		return true
	}
	return false
}

// collapseSpace folds whitespace runs into single spaces the way normal
// white-space handling renders them.
func collapseSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func parseWeight(v string) int {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "normal":
		return 400
	case "bold", "bolder":
		return 700
	case "lighter":
		return 300
	}
	w, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || w <= 0 {
		return 400
	}
	return min(w, 1000)
}

func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "-webkit-center":
		return "center"
	case "right", "end", "-webkit-right":
		return "right"
	case "justify":
		return "justify"
	default:
		return "left"
	}
}

// extractText splits one text leaf into single-line runs. Each scan starts at
// the next non-space rune and bisects for the longest range that still lies on
// one visual line.
func (p *pass) extractText(leaf *visual.Node, step PaintStep) ([]Item, error) {
	if _, ok := p.visited[leaf.ID]; ok {
		return nil, nil
	}
	p.visited[leaf.ID] = struct{}{}
	st := p.styleFor(leaf)
	if !st.visible {
		return nil, nil
	}
	runes := []rune(leaf.Text)
	var out []Item
	for start := 0; start < len(runes); {
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
		if start >= len(runes) {
			break
		}
		end, err := p.lineEnd(leaf.ID, start, len(runes))
		if err != nil {
			return out, err
		}
		// the space before a wrap belongs to the line but is not painted
		last := end
		for last > start && unicode.IsSpace(runes[last-1]) {
			last--
		}
		text := string(runes[start:last])
		if !st.preserve {
			text = collapseSpace(text)
		}
		rects, err := p.geo.RangeRects(p.ctx, leaf.ID, start, last)
		if err != nil {
			return out, fmt.Errorf("文本节点 %d 区间 [%d,%d): %w", leaf.ID, start, last, err)
		}
		start = end
		b, ok := unionBoxes(rects)
		if !ok || text == "" {
			continue
		}
		r := Measure(b, p.tree.Width, p.tree.Height)
		key := PositionKey(r)
		if _, dup := p.seen[key]; dup {
			continue
		}
		p.seen[key] = struct{}{}
		out = append(out, &TextRun{
			Header:       Header{ID: p.nextID("text", key), PaintIndex: step.Index, Rect: r},
			Text:         text,
			Color:        st.color,
			FontSizePx:   st.fontSize,
			Weight:       st.weight,
			Italic:       st.italic,
			Family:       st.family,
			Align:        st.align,
			LineHeightPx: st.lineHeight,
			Opacity:      step.Opacity,
		})
	}
	return out, nil
}

// lineEnd returns the largest end in (start, n] whose range occupies at most one line.
func (p *pass) lineEnd(id visual.NodeID, start, n int) (int, error) {
	single := func(end int) (bool, error) {
		if err := p.ctx.Err(); err != nil {
			return false, err
		}
		rects, err := p.geo.RangeRects(p.ctx, id, start, end)
		if err != nil {
			return false, fmt.Errorf("文本节点 %d 区间 [%d,%d): %w", id, start, end, err)
		}
		return countLines(rects) <= 1, nil
	}
	ok, err := single(n)
	if err != nil || ok {
		return n, err
	}
	// single(lo) holds, single(hi) does not.
	lo, hi := start+1, n
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		ok, err := single(mid)
		if err != nil {
			return lo, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// countLines groups non-empty rects whose vertical extents overlap by at least
// half of the smaller height into one line.
func countLines(rects []visual.Box) int {
	boxes := make([]visual.Box, 0, len(rects))
	for _, r := range rects {
		if !r.Empty() {
			boxes = append(boxes, r)
		}
	}
	sort.SliceStable(boxes, func(i, j int) bool { return boxes[i].Y < boxes[j].Y })
	var lines []visual.Box
	for _, b := range boxes {
		merged := false
		for i, ln := range lines {
			overlap := math.Min(ln.Bottom(), b.Bottom()) - math.Max(ln.Y, b.Y)
			if overlap >= math.Min(ln.H, b.H)/2 {
				lines[i] = ln.Union(b)
				merged = true
				break
			}
		}
		if !merged {
			lines = append(lines, b)
		}
	}
	return len(lines)
}

func unionBoxes(rects []visual.Box) (visual.Box, bool) {
	var out visual.Box
	found := false
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		if !found {
			out, found = r, true
			continue
		}
		out = out.Union(r)
	}
	return out, found && !out.Empty()
}

// mergeAdjacentRuns joins consecutive runs with identical style that sit on
// the same line no further apart than gapEm font sizes. A negative gapEm
// disables merging. Runs separated by a shape or image are never merged.
func mergeAdjacentRuns(items []Item, gapEm, pageW, pageH float64) []Item {
	if gapEm < 0 || len(items) < 2 {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		cur, ok := it.(*TextRun)
		if !ok || len(out) == 0 {
			out = append(out, it)
			continue
		}
		prev, ok := out[len(out)-1].(*TextRun)
		if !ok || !sameRunStyle(prev, cur) {
			out = append(out, it)
			continue
		}
		gap := cur.Rect.X - prev.Rect.Right()
		sameLine := math.Abs(cur.Rect.Y-prev.Rect.Y) < 1 && math.Abs(cur.Rect.H-prev.Rect.H) < 1
		if !sameLine || gap < -1 || gap > gapEm*prev.FontSizePx {
			out = append(out, it)
			continue
		}
		joined := *prev
		sep := ""
		if gap > prev.FontSizePx*0.15 {
			sep = " "
		}
		joined.Text = prev.Text + sep + cur.Text
		b := visual.Box{X: prev.Rect.X, Y: prev.Rect.Y, W: prev.Rect.W, H: prev.Rect.H}.
			Union(visual.Box{X: cur.Rect.X, Y: cur.Rect.Y, W: cur.Rect.W, H: cur.Rect.H})
		joined.Rect = Measure(b, pageW, pageH)
		out[len(out)-1] = &joined
	}
	return dedupRuns(out)
}

func sameRunStyle(a, b *TextRun) bool {
	return a.Color == b.Color && a.FontSizePx == b.FontSizePx && a.Weight == b.Weight &&
		a.Italic == b.Italic && a.Family == b.Family && a.Opacity == b.Opacity
}

// dedupRuns drops text runs whose PositionKey was already seen; merging can
// make two unions collide.
func dedupRuns(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if tr, ok := it.(*TextRun); ok {
			key := PositionKey(tr.Rect)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, it)
	}
	return out
}
