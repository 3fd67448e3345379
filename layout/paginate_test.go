package layout

import (
	"testing"
)

func block(paint int, y, h float64) *ShapeItem {
	return &ShapeItem{
		Header:    Header{ID: "b", PaintIndex: paint, Rect: Measure(box(0, y, 200, h), 600, 800)},
		Kind:      ShapeRect,
		FillColor: "#cccccc",
		Opacity:   1,
	}
}

// TestPaginateMovesOverflowingBlock 第三块越过 pageTop+pageHeight-margin，整块移到第二页。
func TestPaginateMovesOverflowingBlock(t *testing.T) {
	items := []Item{block(1, 0, 100), block(2, 300, 100), block(3, 700, 100)}
	pg := Paginate(items, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 800, MarginPx: 12})
	if len(pg.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pg.Pages))
	}
	if len(pg.Pages[0].Items) != 2 || len(pg.Pages[1].Items) != 1 {
		t.Fatalf("unexpected distribution %d/%d", len(pg.Pages[0].Items), len(pg.Pages[1].Items))
	}
	moved := HeaderOf(pg.Pages[1].Items[0])
	if moved.PaintIndex != 3 || moved.Rect.Y != 0 || moved.Rect.YPercent != 0 {
		t.Fatalf("moved block not rewritten: %+v", moved)
	}
	if HeaderOf(items[2]).Rect.Y != 700 {
		t.Fatalf("input item was mutated")
	}
}

func TestPaginateFitsWithinMargin(t *testing.T) {
	items := []Item{block(1, 0, 100), block(2, 300, 100), block(3, 600, 100)}
	pg := Paginate(items, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 800, MarginPx: 12})
	if len(pg.Pages) != 1 || len(pg.Pages[0].Items) != 3 {
		t.Fatalf("bottom 700 <= 788 should stay on page 1, got %d pages", len(pg.Pages))
	}
}

// TestPaginateNeverSplits 每个图元只是平移，宽高保持不变。
func TestPaginateNeverSplits(t *testing.T) {
	var items []Item
	for i := 0; i < 30; i++ {
		items = append(items, block(i, float64(i*90), 80))
	}
	pg := Paginate(items, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 2700, MarginPx: 12})
	total := 0
	for _, p := range pg.Pages {
		for _, it := range p.Items {
			h := HeaderOf(it)
			orig := HeaderOf(items[h.PaintIndex]).Rect
			if h.Rect.W != orig.W || h.Rect.H != orig.H || h.Rect.X != orig.X {
				t.Fatalf("item %d resized: %+v vs %+v", h.PaintIndex, h.Rect, orig)
			}
			if h.Rect.Y < 0 || h.Rect.Bottom() > 800 {
				t.Fatalf("item %d misplaced on page %d: y=%g", h.PaintIndex, p.Index, h.Rect.Y)
			}
			total++
		}
	}
	if total != len(items) {
		t.Fatalf("lost items: %d of %d", total, len(items))
	}
}

func TestPaginateOversizeItemSitsAlone(t *testing.T) {
	items := []Item{block(1, 0, 50), block(2, 100, 1500), block(3, 1700, 50)}
	pg := Paginate(items, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 1750, MarginPx: 0})
	if len(pg.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pg.Pages))
	}
	tall := HeaderOf(pg.Pages[1].Items[0])
	if len(pg.Pages[1].Items) != 1 || tall.PaintIndex != 2 || tall.Rect.Y != 0 || tall.Rect.H != 1500 {
		t.Fatalf("tall item should sit alone, unsplit: %+v", tall)
	}
	if last := HeaderOf(pg.Pages[2].Items[0]); last.Rect.Y < 0 {
		t.Fatalf("last item y=%g", last.Rect.Y)
	}
}

func TestPaginateSortsPageByPaintIndex(t *testing.T) {
	items := []Item{block(5, 10, 20), block(1, 50, 20), block(3, 0, 20)}
	pg := Paginate(items, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 800})
	var got []int
	for _, it := range pg.Pages[0].Items {
		got = append(got, HeaderOf(it).PaintIndex)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Fatalf("page not in paint order: %v", got)
	}
}

func TestPaginateMaxPages(t *testing.T) {
	items := []Item{block(1, 0, 700), block(2, 800, 700), block(3, 1600, 700)}
	pg := Paginate(items, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 2400, MaxPages: 2})
	if len(pg.Pages) != 2 || pg.Dropped != 1 {
		t.Fatalf("expected 2 pages and 1 dropped, got %d/%d", len(pg.Pages), pg.Dropped)
	}
}

func TestPaginateEmptyStillHasPage(t *testing.T) {
	pg := Paginate(nil, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 800})
	if len(pg.Pages) != 1 {
		t.Fatalf("expected one empty page, got %d", len(pg.Pages))
	}
}

// TestSinglePageHalves 内容 1600、页面 800 时所有 y 减半，尺寸不增大。
func TestSinglePageHalves(t *testing.T) {
	text := &TextRun{Header: Header{PaintIndex: 2, Rect: Measure(box(40, 1200, 300, 20), 600, 800)}, Text: "x", FontSizePx: 16, LineHeightPx: 20}
	shape := block(1, 400, 100)
	shape.StrokeWidthPx = 2
	shape.Shadow = &Shadow{OffsetX: 4, OffsetY: 4, Blur: 8, Color: "#000000"}
	items := []Item{shape, text}
	pg := Paginate(items, PaginateOptions{PageWidth: 600, PageHeight: 800, ContentHeight: 1600, SinglePage: true})
	if pg.Scale != 0.5 || len(pg.Pages) != 1 {
		t.Fatalf("scale %g pages %d", pg.Scale, len(pg.Pages))
	}
	for i, it := range pg.Pages[0].Items {
		before := HeaderOf(items[i]).Rect
		after := HeaderOf(it).Rect
		if after.Y != before.Y/2 || after.W > before.W || after.H > before.H {
			t.Fatalf("item %d not scaled: %+v -> %+v", i, before, after)
		}
	}
	scaled := pg.Pages[0].Items[1].(*TextRun)
	if scaled.FontSizePx != 8 || scaled.Rect.YPercent != 75 {
		t.Fatalf("text not scaled: %+v", scaled)
	}
	if shape.Shadow.Blur != 8 {
		t.Fatalf("input shadow mutated")
	}
}

func TestSinglePageScaleNeverUpscales(t *testing.T) {
	for _, tc := range []struct{ content, page float64 }{{400, 800}, {800, 800}, {0, 800}, {3000, 800}} {
		if s := SinglePageScale(tc.content, tc.page); s > 1 || s <= 0 {
			t.Fatalf("scale(%g,%g) = %g", tc.content, tc.page, s)
		}
	}
}
