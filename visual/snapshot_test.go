package visual

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
)

const sampleSnapshot = `{
  "title": "Deck",
  "width": 800, "height": 600, "contentHeight": 600,
  "root": 0,
  "nodes": [
    {"id": 0, "parent": -1, "children": [1], "kind": "box", "tag": "body", "box": {"x":0,"y":0,"w":800,"h":600}, "style": {"color": "rgb(0, 0, 0)"}},
    {"id": 1, "parent": 0, "children": [2], "kind": "box", "tag": "p", "box": {"x":10,"y":10,"w":200,"h":40}, "style": {"fontSize": "16px"}},
    {"id": 2, "parent": 1, "kind": "text", "text": "hello world", "box": {"x":10,"y":10,"w":100,"h":40}}
  ],
  "lines": {"2": [
    {"start": 0, "end": 6, "box": {"x":10,"y":10,"w":60,"h":20}},
    {"start": 6, "end": 11, "box": {"x":10,"y":30,"w":50,"h":20}}
  ]}
}`

func TestDecodeSnapshot(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleSnapshot))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Title != "Deck" || len(s.Nodes) != 3 {
		t.Fatalf("unexpected tree: title=%q nodes=%d", s.Title, len(s.Nodes))
	}
	if s.Nodes[2].Kind != KindText {
		t.Fatalf("node 2 kind = %v, want text", s.Nodes[2].Kind)
	}
	if got := s.StyleOf(2).FontSize; got != "16px" {
		t.Fatalf("text leaf should inherit parent style, got font size %q", got)
	}
}

func TestDecodeRejectsBrokenArena(t *testing.T) {
	broken := `{"width":10,"height":10,"root":0,"nodes":[{"id":0,"parent":-1,"children":[4]}]}`
	if _, err := Decode(strings.NewReader(broken)); err == nil {
		t.Fatalf("expected error for dangling child")
	}
	if _, err := Decode(strings.NewReader(`{"nodes":[{"kind":"blob"}]}`)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestSnapshotRangeRects(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleSnapshot))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ctx := context.Background()

	boxes, err := s.RangeRects(ctx, 2, 0, 5)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("expected a single box for the first word, got %d", len(boxes))
	}
	if math.Abs(boxes[0].W-50) > 1e-9 || boxes[0].X != 10 {
		t.Fatalf("unexpected first word box: %+v", boxes[0])
	}

	boxes, err = s.RangeRects(ctx, 2, 3, 9)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("range crossing a wrap should give 2 boxes, got %d", len(boxes))
	}
	if boxes[1].Y != 30 {
		t.Fatalf("second box should sit on the second line, got %+v", boxes[1])
	}

	if _, err := s.RangeRects(ctx, 1, 0, 1); err == nil {
		t.Fatalf("expected error for non-text node")
	}
}

func TestSnapshotRoundTripKeepsLines(t *testing.T) {
	s, err := Decode(strings.NewReader(sampleSnapshot))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode again: %v", err)
	}
	if len(again.Lines[2]) != 2 {
		t.Fatalf("lines lost in round trip: %+v", again.Lines)
	}
}

func TestBuilderTracksContentHeight(t *testing.T) {
	b := NewBuilder(800, 600, Style{})
	b.Add(b.Root(), Node{Box: Box{Y: 500, W: 10, H: 400}})
	tree := b.Tree()
	if tree.ContentHeight != 900 {
		t.Fatalf("content height = %g, want 900", tree.ContentHeight)
	}
	if err := tree.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
