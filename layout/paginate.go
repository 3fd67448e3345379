package layout

import (
	"sort"
)

// PaginateOptions 描述虚拟页面尺寸与分页策略，单位均为 px。
type PaginateOptions struct {
	PageWidth     float64
	PageHeight    float64
	ContentHeight float64
	MarginPx      float64 // 底部预留
	MaxPages      int     // <=0 不限制
	SinglePage    bool
}

// Pagination is the result of Paginate. Dropped counts items cut by MaxPages.
type Pagination struct {
	Pages   []Page
	Scale   float64
	Dropped int
}

// Paginate splits paint-ordered items into pages without ever splitting an
// item. In single-page mode everything is scaled down to fit one page.
// The input items are not modified.
func Paginate(items []Item, opts PaginateOptions) Pagination {
	if opts.SinglePage {
		scale := SinglePageScale(opts.ContentHeight, opts.PageHeight)
		acc := &pageAccumulator{}
		for i, it := range items {
			acc.append(scaleItem(it, scale), i)
		}
		sort.Stable(byPaint{acc})
		page := Page{Index: 0, Width: opts.PageWidth, Height: opts.PageHeight, Items: acc.items}
		return Pagination{Pages: []Page{page}, Scale: scale}
	}

	type ordered struct {
		item Item
		seq  int
	}
	sorted := make([]ordered, len(items))
	for i, it := range items {
		sorted[i] = ordered{item: it, seq: i}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return HeaderOf(sorted[i].item).Rect.Y < HeaderOf(sorted[j].item).Rect.Y
	})

	pc := newPageCollector(opts.PageWidth, opts.PageHeight, opts.MarginPx)
	for _, o := range sorted {
		r := HeaderOf(o.item).Rect
		pc.ensureSpace(r)
		pc.curr().append(shiftItem(o.item, pc.top, opts.PageHeight), o.seq)
	}

	pages := pc.pages()
	out := Pagination{Pages: pages, Scale: 1}
	if opts.MaxPages > 0 && len(pages) > opts.MaxPages {
		for _, p := range pages[opts.MaxPages:] {
			out.Dropped += len(p.Items)
		}
		out.Pages = pages[:opts.MaxPages]
	}
	return out
}

// SinglePageScale returns pageH/contentH capped at 1.
func SinglePageScale(contentH, pageH float64) float64 {
	if contentH <= pageH || contentH <= 0 || pageH <= 0 {
		return 1
	}
	return pageH / contentH
}

type pageAccumulator struct {
	items []Item
	seqs  []int
}

func (p *pageAccumulator) append(it Item, seq int) {
	p.items = append(p.items, it)
	p.seqs = append(p.seqs, seq)
}

func (p *pageAccumulator) empty() bool { return len(p.items) == 0 }

type pageCollector struct {
	width   float64
	height  float64
	margin  float64
	top     float64 // 当前页在虚拟页面坐标中的顶部
	accs    []*pageAccumulator
	current int
}

func newPageCollector(width, height, margin float64) *pageCollector {
	pc := &pageCollector{width: width, height: height, margin: margin}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	return pc.accs[pc.current]
}

// ensureSpace closes the current page when r would cross its bottom limit and
// the page already holds something.
func (pc *pageCollector) ensureSpace(r Rect) {
	if r.Bottom() <= pc.top+pc.height-pc.margin || pc.curr().empty() {
		return
	}
	pc.pageBreak(r.Y)
}

// pageBreak advances by whole pages; an item that straddles the old boundary
// starts the new page so it is never clipped at the top.
func (pc *pageCollector) pageBreak(itemTop float64) {
	next := pc.top + pc.height
	for pc.height > 0 && itemTop >= next+pc.height {
		next += pc.height
	}
	pc.top = min(next, itemTop)
	pc.newPage()
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, 0, len(pc.accs))
	for _, acc := range pc.accs {
		if acc.empty() && len(out) > 0 {
			continue
		}
		sort.Stable(byPaint{acc})
		out = append(out, Page{Index: len(out), Width: pc.width, Height: pc.height, Items: acc.items})
	}
	return out
}

// byPaint orders a page by paintIndex, then extraction order.
type byPaint struct{ *pageAccumulator }

func (b byPaint) Len() int { return len(b.items) }
func (b byPaint) Less(i, j int) bool {
	pi, pj := HeaderOf(b.items[i]).PaintIndex, HeaderOf(b.items[j]).PaintIndex
	if pi != pj {
		return pi < pj
	}
	return b.seqs[i] < b.seqs[j]
}
func (b byPaint) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.seqs[i], b.seqs[j] = b.seqs[j], b.seqs[i]
}

// cloneItem returns a shallow copy; Shadow is copied too so scaling never
// touches the caller's items.
func cloneItem(it Item) Item {
	switch v := it.(type) {
	case *TextRun:
		c := *v
		return &c
	case *ShapeItem:
		c := *v
		if v.Shadow != nil {
			sh := *v.Shadow
			c.Shadow = &sh
		}
		return &c
	case *ImageItem:
		c := *v
		return &c
	}
	return it
}

func shiftItem(it Item, top, pageH float64) Item {
	c := cloneItem(it)
	h := HeaderOf(c)
	h.Rect.Y -= top
	h.Rect.YPercent = AbsoluteToPercent(h.Rect.Y, pageH)
	return c
}

// scaleItem multiplies every geometric field by s, percentages included.
func scaleItem(it Item, s float64) Item {
	c := cloneItem(it)
	if s == 1 {
		return c
	}
	h := HeaderOf(c)
	r := &h.Rect
	r.X, r.Y, r.W, r.H = r.X*s, r.Y*s, r.W*s, r.H*s
	r.XPercent, r.YPercent = round3(r.XPercent*s), round3(r.YPercent*s)
	r.WPercent, r.HPercent = round3(r.WPercent*s), round3(r.HPercent*s)
	switch v := c.(type) {
	case *TextRun:
		v.FontSizePx *= s
		v.LineHeightPx *= s
	case *ShapeItem:
		v.StrokeWidthPx *= s
		v.CornerRadiusPx *= s
		if v.Shadow != nil {
			v.Shadow.OffsetX *= s
			v.Shadow.OffsetY *= s
			v.Shadow.Blur *= s
			v.Shadow.Spread *= s
		}
	case *ImageItem:
	}
	return c
}
