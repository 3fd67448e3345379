package layout

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/vellum/visual"
)

func fill(color string) visual.Style { return visual.Style{BackgroundColor: color} }

func allItems(doc *Document) []Item {
	var out []Item
	for _, p := range doc.Pages {
		out = append(out, p.Items...)
	}
	return out
}

func TestBuildStructuralErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Build(ctx, nil, BuildOptions{}); !errors.Is(err, ErrNoTree) {
		t.Fatalf("nil tree: %v", err)
	}
	if _, err := Build(ctx, &visual.Tree{Width: 10, Height: 10}, BuildOptions{}); !errors.Is(err, ErrNoTree) {
		t.Fatalf("empty arena: %v", err)
	}
	zero := visual.NewBuilder(0, 600, visual.Style{}).Tree()
	if _, err := Build(ctx, zero, BuildOptions{}); !errors.Is(err, ErrPageSize) {
		t.Fatalf("zero page: %v", err)
	}
	gone := visual.NewBuilder(800, 600, visual.Style{Display: "none"}).Tree()
	if _, err := Build(ctx, gone, BuildOptions{}); !errors.Is(err, ErrEmptyRoot) {
		t.Fatalf("removed root: %v", err)
	}
	clear := visual.NewBuilder(800, 600, visual.Style{Opacity: "0"}).Tree()
	if _, err := Build(ctx, clear, BuildOptions{}); !errors.Is(err, ErrEmptyRoot) {
		t.Fatalf("transparent root: %v", err)
	}
}

// TestBuildEmptyRootStillHasPage 没有任何图元时仍返回一页。
func TestBuildEmptyRootStillHasPage(t *testing.T) {
	doc, err := Build(context.Background(), visual.NewBuilder(800, 600, visual.Style{}).Tree(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(doc.Pages) != 1 || doc.Title != "Untitled" || doc.Diagnostics.Warnings == nil {
		t.Fatalf("unexpected document %+v", doc)
	}
}

// TestBuildPaintsLowerZFirst z=5 先声明、z=1 后声明且相互重叠，导出顺序应为 z=1 在下。
func TestBuildPaintsLowerZFirst(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	top := fill("blue")
	top.Position, top.ZIndex = "absolute", "5"
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 0, 100, 100), Style: top})
	bottom := fill("red")
	bottom.Position, bottom.ZIndex = "absolute", "1"
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(50, 50, 100, 100), Style: bottom})

	doc, err := Build(context.Background(), b.Tree(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	items := allItems(doc)
	if len(items) != 2 {
		t.Fatalf("expected 2 shapes, got %d", len(items))
	}
	if items[0].(*ShapeItem).FillColor != "#ff0000" || items[1].(*ShapeItem).FillColor != "#0000ff" {
		t.Fatalf("z=1 should be painted first")
	}
}

func TestBuildMultiPage(t *testing.T) {
	b := visual.NewBuilder(600, 800, visual.Style{})
	for _, y := range []float64{0, 300, 700} {
		p := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, y, 200, 100), Style: bodyText})
		b.Add(p, visual.Node{Kind: visual.KindText, Text: "block", Box: box(0, y, 200, 100)})
	}
	doc, err := Build(context.Background(), b.Tree(), BuildOptions{MarginPx: 12})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(doc.Pages) != 2 || len(doc.Pages[0].Items) != 2 || len(doc.Pages[1].Items) != 1 {
		t.Fatalf("unexpected pagination: %d pages", len(doc.Pages))
	}
	if y := HeaderOf(doc.Pages[1].Items[0]).Rect.Y; y != 0 {
		t.Fatalf("third block y=%g, want 0", y)
	}
	if doc.Scale != 1 {
		t.Fatalf("multi-page scale %g", doc.Scale)
	}
}

func TestBuildSinglePage(t *testing.T) {
	b := visual.NewBuilder(600, 800, visual.Style{})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 100, 200, 100), Style: fill("red")})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 1500, 200, 100), Style: fill("blue")})
	doc, err := Build(context.Background(), b.Tree(), BuildOptions{SinglePage: true, Title: "Deck"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(doc.Pages) != 1 || doc.Scale != 0.5 || doc.Title != "Deck" {
		t.Fatalf("unexpected single page doc: pages=%d scale=%g title=%q", len(doc.Pages), doc.Scale, doc.Title)
	}
	items := doc.Pages[0].Items
	if HeaderOf(items[0]).Rect.Y != 50 || HeaderOf(items[1]).Rect.Y != 750 || HeaderOf(items[1]).Rect.H != 50 {
		t.Fatalf("geometry not halved: %+v / %+v", HeaderOf(items[0]).Rect, HeaderOf(items[1]).Rect)
	}
}

func TestBuildDropsOffPageItems(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(-500, 10, 100, 100), Style: fill("red")})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(900, 10, 100, 100), Style: fill("red")})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(-20, 10, 100, 100), Style: fill("blue")})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 900, 100, 100), Style: fill("green")})
	doc, err := Build(context.Background(), b.Tree(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	items := allItems(doc)
	if len(items) != 2 {
		t.Fatalf("expected the partly visible and the below-fold shape, got %d items", len(items))
	}
	joined := strings.Join(doc.Diagnostics.Warnings, "\n")
	if !strings.Contains(joined, "2 element(s) outside the page were dropped") {
		t.Fatalf("missing off-page warning in %q", joined)
	}
}

// TestBuildSinglePageWithoutContentHeight 快照缺少 contentHeight 时按图元最低边缩放。
func TestBuildSinglePageWithoutContentHeight(t *testing.T) {
	b := visual.NewBuilder(600, 800, visual.Style{})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 1500, 200, 100), Style: fill("blue")})
	tree := b.Tree()
	tree.ContentHeight = 0
	doc, err := Build(context.Background(), tree, BuildOptions{SinglePage: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if doc.Scale != 0.5 {
		t.Fatalf("scale = %g, want 0.5", doc.Scale)
	}
	r := HeaderOf(doc.Pages[0].Items[0]).Rect
	if r.Bottom() > doc.Height {
		t.Fatalf("item left the page: %+v (page height %g)", r, doc.Height)
	}
}

func TestBuildDiagnostics(t *testing.T) {
	b := visual.NewBuilder(800, 600, visual.Style{})
	for i := 0; i < 3; i++ {
		st := fill("white")
		st.Filter = "blur(2px)"
		b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, float64(i*700), 100, 100), Style: st})
	}
	grad := visual.Style{BackgroundImage: "linear-gradient(red, blue)"}
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(200, 0, 100, 100), Style: grad})

	doc, err := Build(context.Background(), b.Tree(), BuildOptions{MaxPages: 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	joined := strings.Join(doc.Diagnostics.Warnings, "\n")
	for _, want := range []string{
		"3 element(s) use unsupported decorative layers",
		"gradient replaced with solid fallback",
		"1 element(s) beyond the 2 page limit were dropped",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing warning %q in %q", want, joined)
		}
	}
	// a solid fallback is only a warning, no raster was produced
	if doc.Diagnostics.FallbackUsed || len(doc.Pages) != 2 {
		t.Fatalf("unexpected diagnostics %+v pages=%d", doc.Diagnostics, len(doc.Pages))
	}
}

func buildSample(t *testing.T) *Document {
	t.Helper()
	b := visual.NewBuilder(800, 600, fill("#fafafa"))
	card := fill("#ffffff")
	card.BoxShadow = "rgba(0, 0, 0, 0.2) 0px 2px 4px 0px"
	card.Position, card.ZIndex = "relative", "2"
	c := b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(40, 40, 300, 200), Style: card})
	h := b.Add(c, visual.Node{Kind: visual.KindBox, Box: box(60, 60, 200, 24), Style: bodyText})
	b.Add(h, visual.Node{Kind: visual.KindText, Text: "Quarterly report", Box: box(60, 60, 180, 24)})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 500, 800, 100), Style: fill("rgb(20, 20, 20)")})
	doc, err := Build(context.Background(), b.Tree(), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

func TestBuildDeterministic(t *testing.T) {
	first, err := json.Marshal(buildSample(t))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, _ := json.Marshal(buildSample(t))
		if string(again) != string(first) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := visual.NewBuilder(800, 600, visual.Style{})
	b.Add(b.Root(), visual.Node{Kind: visual.KindBox, Box: box(0, 0, 10, 10), Style: fill("red")})
	if _, err := Build(ctx, b.Tree(), BuildOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWriteDebugJSON(t *testing.T) {
	doc := buildSample(t)
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteDebugJSON(doc, path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{`"type": "shape"`, `"type": "text"`, `"text": "Quarterly report"`, `"paintIndex"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("debug json missing %s", want)
		}
	}
}
