package layout

import (
	"context"
	"testing"

	"github.com/ByLCY/vellum/visual"
)

var bodyText = visual.Style{Color: "rgb(51, 51, 51)", FontSize: "16px", FontFamily: "Helvetica, sans-serif", FontWeight: "400", LineHeight: "normal"}

func textRuns(items []Item) []*TextRun {
	var out []*TextRun
	for _, it := range items {
		if tr, ok := it.(*TextRun); ok {
			out = append(out, tr)
		}
	}
	return out
}

// TestExtractTextFindsWrapBoundary 通过二分找到折行位置，不依赖任何行信息。
func TestExtractTextFindsWrapBoundary(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	para := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Tag: "p", Box: box(0, 0, 120, 40), Style: bodyText})
	leaf := b.Add(para, visual.Node{Kind: visual.KindText, Text: "Hello world again", Box: box(0, 0, 120, 40)})
	snap := &visual.Snapshot{Tree: *b.Tree(), Lines: map[visual.NodeID][]visual.Line{
		leaf: {
			{Start: 0, End: 12, Box: box(0, 0, 120, 20)},
			{Start: 12, End: 17, Box: box(0, 20, 50, 20)},
		},
	}}
	p := newPass(context.Background(), &snap.Tree, BuildOptions{Geometry: snap})
	items, err := p.extractText(snap.Node(leaf), PaintStep{Node: leaf, Index: 7, Opacity: 1})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	runs := textRuns(items)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Text != "Hello world" || runs[1].Text != "again" {
		t.Fatalf("unexpected texts %q / %q", runs[0].Text, runs[1].Text)
	}
	// the trailing space before the wrap is not part of the first run's box
	if runs[0].Rect.W != 110 || runs[1].Rect.Y != 20 || runs[1].Rect.W != 50 {
		t.Fatalf("unexpected rects %+v / %+v", runs[0].Rect, runs[1].Rect)
	}
	if runs[0].PaintIndex != 7 || runs[0].Family != FamilySans || runs[0].Color != "#333333" {
		t.Fatalf("style not applied: %+v", runs[0])
	}
	if runs[0].LineHeightPx != 16*1.2 || runs[0].Weight != 400 {
		t.Fatalf("line metrics wrong: %+v", runs[0])
	}
}

func TestExtractTextThreeLines(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	para := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 0, 100, 60), Style: bodyText})
	leaf := b.Add(para, visual.Node{Kind: visual.KindText, Text: "aaaa bbbb cccc", Box: box(0, 0, 100, 60)})
	snap := &visual.Snapshot{Tree: *b.Tree(), Lines: map[visual.NodeID][]visual.Line{
		leaf: {
			{Start: 0, End: 5, Box: box(0, 0, 50, 20)},
			{Start: 5, End: 10, Box: box(0, 20, 50, 20)},
			{Start: 10, End: 14, Box: box(0, 40, 40, 20)},
		},
	}}
	p := newPass(context.Background(), &snap.Tree, BuildOptions{Geometry: snap})
	items, err := p.extractText(snap.Node(leaf), PaintStep{Node: leaf, Opacity: 1})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	runs := textRuns(items)
	want := []string{"aaaa", "bbbb", "cccc"}
	if len(runs) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(runs))
	}
	for i, w := range want {
		if runs[i].Text != w || runs[i].Rect.Y != float64(i*20) {
			t.Fatalf("run %d = %q at y=%g", i, runs[i].Text, runs[i].Rect.Y)
		}
	}
}

// TestExtractTextDedup 祖先与后代暴露同一几何时只保留一份文本。
func TestExtractTextDedup(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	a := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(10, 10, 50, 20), Style: bodyText})
	b.Add(a, visual.Node{Kind: visual.KindText, Text: "Title", Box: box(10.2, 10.4, 49.7, 19.6)})
	overlay := bodyText
	overlay.Position, overlay.ZIndex = "absolute", "1"
	c := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(10, 10, 50, 20), Style: overlay})
	b.Add(c, visual.Node{Kind: visual.KindText, Text: "Title", Box: box(10, 10, 50, 20)})
	b.Add(c, visual.Node{Kind: visual.KindText, Text: "   ", Box: box(60, 10, 5, 20)})

	doc, err := Build(context.Background(), b.Tree(), BuildOptions{RunMergeGapEm: -1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var runs []*TextRun
	for _, pg := range doc.Pages {
		runs = append(runs, textRuns(pg.Items)...)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run after dedup, got %d", len(runs))
	}
	assertDistinctKeys(t, doc)
}

func assertDistinctKeys(t *testing.T, doc *Document) {
	t.Helper()
	seen := map[string]bool{}
	for _, pg := range doc.Pages {
		for _, tr := range textRuns(pg.Items) {
			key := PositionKey(Rect{X: tr.Rect.X, Y: tr.Rect.Y + float64(pg.Index)*doc.Height, W: tr.Rect.W, H: tr.Rect.H})
			if seen[key] {
				t.Fatalf("duplicate text key %s", key)
			}
			seen[key] = true
		}
	}
}

func TestExtractTextSkipsInvisible(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	hidden := bodyText
	hidden.Visibility = "hidden"
	h := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 0, 50, 20), Style: hidden})
	leaf := b.Add(h, visual.Node{Kind: visual.KindText, Text: "secret", Box: box(0, 0, 50, 20)})
	clear := bodyText
	clear.Color = "transparent"
	c := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 30, 50, 20), Style: clear})
	leaf2 := b.Add(c, visual.Node{Kind: visual.KindText, Text: "ghost", Box: box(0, 30, 50, 20)})

	tree := b.Tree()
	p := newPass(context.Background(), tree, BuildOptions{})
	for _, id := range []visual.NodeID{leaf, leaf2} {
		items, err := p.extractText(tree.Node(id), PaintStep{Node: id, Opacity: 1})
		if err != nil || len(items) != 0 {
			t.Fatalf("node %d: expected nothing, got %d items (err=%v)", id, len(items), err)
		}
	}
}

func TestStyleReadOncePerParent(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	para := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 0, 200, 20), Style: bodyText})
	l1 := b.Add(para, visual.Node{Kind: visual.KindText, Text: "one", Box: box(0, 0, 30, 20)})
	l2 := b.Add(para, visual.Node{Kind: visual.KindText, Text: "two", Box: box(40, 0, 30, 20)})
	tree := b.Tree()
	p := newPass(context.Background(), tree, BuildOptions{})
	if p.styleFor(tree.Node(l1)) != p.styleFor(tree.Node(l2)) || len(p.styles) != 1 {
		t.Fatalf("style should be cached per parent")
	}
}

func TestMergeAdjacentRuns(t *testing.T) {
	mk := func(text string, x, w float64) *TextRun {
		return &TextRun{
			Header: Header{Rect: Measure(box(x, 0, w, 20), 800, 600)},
			Text:   text, Color: "#000000", FontSizePx: 16, Weight: 400, Family: FamilySans, Opacity: 1,
		}
	}
	items := []Item{mk("Hello", 0, 50), mk("world", 54, 50)}
	merged := mergeAdjacentRuns(items, 0.3, 800, 600)
	if len(merged) != 1 {
		t.Fatalf("expected merge, got %d items", len(merged))
	}
	if tr := merged[0].(*TextRun); tr.Text != "Hello world" || tr.Rect.W != 104 {
		t.Fatalf("unexpected merge result %q w=%g", tr.Text, tr.Rect.W)
	}

	far := []Item{mk("Hello", 0, 50), mk("world", 60, 50)}
	if got := mergeAdjacentRuns(far, 0.3, 800, 600); len(got) != 2 {
		t.Fatalf("gap above threshold should not merge")
	}
	off := []Item{mk("Hello", 0, 50), mk("world", 54, 50)}
	if got := mergeAdjacentRuns(off, -1, 800, 600); len(got) != 2 {
		t.Fatalf("negative threshold disables merging")
	}
	bold := mk("world", 54, 50)
	bold.Weight = 700
	if got := mergeAdjacentRuns([]Item{mk("Hello", 0, 50), bold}, 0.3, 800, 600); len(got) != 2 {
		t.Fatalf("different styles must not merge")
	}
}

func TestCountLines(t *testing.T) {
	rects := []visual.Box{box(0, 0, 10, 20), box(10, 2, 10, 16), box(0, 0, 0, 0), box(0, 22, 10, 20)}
	if n := countLines(rects); n != 2 {
		t.Fatalf("expected 2 lines, got %d", n)
	}
	if n := countLines(nil); n != 0 {
		t.Fatalf("expected 0 lines, got %d", n)
	}
}

func TestExtractTextCollapsesWhitespace(t *testing.T) {
	for _, tc := range []struct {
		whiteSpace, want string
	}{
		{"normal", "Hello world"},
		{"pre", "Hello \n   world"},
	} {
		st := bodyText
		st.WhiteSpace = tc.whiteSpace
		b := visual.NewBuilder(800, 600, visual.Style{})
		para := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 0, 200, 20), Style: st})
		leaf := b.Add(para, visual.Node{Kind: visual.KindText, Text: "  Hello \n   world  ", Box: box(0, 0, 200, 20)})
		tree := b.Tree()
		p := newPass(context.Background(), tree, BuildOptions{})
		items, err := p.extractText(tree.Node(leaf), PaintStep{Node: leaf, Opacity: 1})
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		runs := textRuns(items)
		if len(runs) != 1 || runs[0].Text != tc.want {
			t.Fatalf("%s: unexpected runs %+v", tc.whiteSpace, runs)
		}
	}
}
