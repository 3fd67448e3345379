package visual

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

// Geometry answers client-rect queries for character ranges of text leaves.
// Offsets count runes of Node.Text, end is exclusive.
type Geometry interface {
	RangeRects(ctx context.Context, id NodeID, start, end int) ([]Box, error)
}

// Line 记录文本叶子中一行字符的范围及其盒子。
type Line struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Box   Box `json:"box"`
}

// Snapshot is a serialized rendering pass: the tree plus per-line geometry of
// every text leaf. It answers range queries offline by slicing line boxes
// proportionally to the character count.
type Snapshot struct {
	Tree
	Lines map[NodeID][]Line `json:"lines,omitempty"`
}

var _ Geometry = (*Snapshot)(nil)

// Decode reads a JSON snapshot and validates its arena.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("解码快照失败: %w", err)
	}
	if err := s.Tree.Validate(); err != nil {
		return nil, fmt.Errorf("快照无效: %w", err)
	}
	return &s, nil
}

// Encode writes the snapshot as indented JSON.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// RangeRects implements Geometry.
func (s *Snapshot) RangeRects(_ context.Context, id NodeID, start, end int) ([]Box, error) {
	n := s.Node(id)
	if n == nil {
		return nil, fmt.Errorf("节点 %d 超出范围", id)
	}
	if n.Kind != KindText {
		return nil, fmt.Errorf("节点 %d 不是文本叶子", id)
	}
	lines := s.Lines[id]
	if len(lines) == 0 {
		lines = []Line{{Start: 0, End: utf8.RuneCountInString(n.Text), Box: n.Box}}
	}
	var out []Box
	for _, ln := range lines {
		if ln.End <= ln.Start {
			continue
		}
		from := max(start, ln.Start)
		to := min(end, ln.End)
		if to <= from {
			continue
		}
		span := float64(ln.End - ln.Start)
		x0 := ln.Box.X + ln.Box.W*float64(from-ln.Start)/span
		x1 := ln.Box.X + ln.Box.W*float64(to-ln.Start)/span
		out = append(out, Box{X: x0, Y: ln.Box.Y, W: x1 - x0, H: ln.Box.H})
	}
	return out, nil
}
