package layout

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ByLCY/vellum/visual"
)

// StackingContext groups a subtree whose paint order is independent of the
// surrounding document order. Parent and Children index PaintOrder.Contexts.
type StackingContext struct {
	Node          visual.NodeID `json:"node"`
	ZIndex        int           `json:"zIndex"`
	DocumentOrder int           `json:"documentOrder"`
	Parent        int           `json:"parent"`
	Children      []int         `json:"children,omitempty"`

	entries []paintEntry
}

// paintEntry is either a plain member node or a child context.
type paintEntry struct {
	node  visual.NodeID
	ctx   int // -1 for plain members
	z     int
	order int
}

func (e paintEntry) group() int {
	switch {
	case e.z < 0:
		return 0
	case e.z == 0:
		return 1
	default:
		return 2
	}
}

// PaintStep is one visited node. Index is its paintIndex, Opacity the product
// of its own and all ancestor opacities.
type PaintStep struct {
	Node    visual.NodeID `json:"node"`
	Index   int           `json:"index"`
	Opacity float64       `json:"opacity"`
}

// PaintOrder is the flattened bottom-to-top visit order.
type PaintOrder struct {
	Steps    []PaintStep       `json:"steps"`
	Contexts []StackingContext `json:"contexts"`
}

// ResolvePaintOrder builds the stacking-context tree for t and flattens it.
// Subtrees under display:none or zero opacity are not visited.
func ResolvePaintOrder(t *visual.Tree) *PaintOrder {
	r := &paintResolver{tree: t, opacity: make([]float64, len(t.Nodes))}
	root := t.Node(t.Root)
	if root == nil {
		return &PaintOrder{}
	}
	rootOpacity := ParseOpacity(root.Style.Opacity)
	if root.Style.Removed() || rootOpacity <= 0 {
		return &PaintOrder{}
	}
	r.opacity[t.Root] = rootOpacity
	r.counter = 1
	rc := r.newContext(t.Root, -1, 0, 0)
	r.collect(t.Root, rc, rootOpacity)

	out := &PaintOrder{}
	out.emit(t.Root, r.opacity[t.Root])
	r.flatten(rc, out)
	out.Contexts = r.contexts
	return out
}

func (o *PaintOrder) emit(id visual.NodeID, opacity float64) {
	o.Steps = append(o.Steps, PaintStep{Node: id, Index: len(o.Steps), Opacity: opacity})
}

type paintResolver struct {
	tree     *visual.Tree
	contexts []StackingContext
	opacity  []float64
	counter  int
}

func (r *paintResolver) newContext(id visual.NodeID, parent, z, order int) int {
	idx := len(r.contexts)
	r.contexts = append(r.contexts, StackingContext{Node: id, ZIndex: z, DocumentOrder: order, Parent: parent})
	if parent >= 0 {
		r.contexts[parent].Children = append(r.contexts[parent].Children, idx)
	}
	return idx
}

// collect walks the children of id in document order and attaches each to
// the nearest context, opening new contexts where the style asks for one.
func (r *paintResolver) collect(id visual.NodeID, ctx int, opacity float64) {
	n := r.tree.Node(id)
	for _, cid := range n.Children {
		c := r.tree.Node(cid)
		if c == nil || c.Style.Removed() {
			continue
		}
		op := opacity
		if c.Kind != visual.KindText {
			op *= ParseOpacity(c.Style.Opacity)
		}
		if op <= 0 {
			continue
		}
		r.opacity[cid] = op
		order := r.counter
		r.counter++
		if c.Kind != visual.KindText && FormsStackingContext(c.Style) {
			z := ParseZIndex(c.Style.ZIndex)
			child := r.newContext(cid, ctx, z, order)
			r.contexts[ctx].entries = append(r.contexts[ctx].entries, paintEntry{node: cid, ctx: child, z: z, order: order})
			r.collect(cid, child, op)
			continue
		}
		r.contexts[ctx].entries = append(r.contexts[ctx].entries, paintEntry{node: cid, ctx: -1, order: order})
		r.collect(cid, ctx, op)
	}
}

// flatten emits entries grouped negative, zero, positive; within a group by
// ascending z then document order. A child context is emitted and then its
// own subtree before moving on.
func (r *paintResolver) flatten(ctx int, out *PaintOrder) {
	entries := r.contexts[ctx].entries
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.group() != b.group() {
			return a.group() < b.group()
		}
		if a.z != b.z {
			return a.z < b.z
		}
		return a.order < b.order
	})
	for _, e := range entries {
		out.emit(e.node, r.opacity[e.node])
		if e.ctx >= 0 {
			r.flatten(e.ctx, out)
		}
	}
}

// FormsStackingContext reports whether a non-root node opens its own context.
func FormsStackingContext(s visual.Style) bool {
	pos := strings.ToLower(strings.TrimSpace(s.Position))
	switch pos {
	case "fixed", "sticky":
		return true
	case "", "static":
	default:
		if !zIndexAuto(s.ZIndex) {
			return true
		}
	}
	if ParseOpacity(s.Opacity) < 1 {
		return true
	}
	for _, v := range []string{s.Transform, s.Filter, s.ClipPath, s.Mask} {
		if declared(v) {
			return true
		}
	}
	if declared(s.MixBlendMode) && !strings.EqualFold(strings.TrimSpace(s.MixBlendMode), "normal") {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(s.Isolation), "isolate") {
		return true
	}
	if containsAny(s.Contain, "layout", "paint", "strict", "content") {
		return true
	}
	return containsAny(s.WillChange, "transform", "opacity", "filter", "clip-path", "mask", "isolation", "mix-blend-mode", "z-index")
}

// ParseZIndex reads a z-index; auto and garbage both map to 0.
func ParseZIndex(v string) int {
	if zIndexAuto(v) {
		return 0
	}
	z, _ := strconv.Atoi(strings.TrimSpace(v))
	return z
}

// ParseOpacity reads an opacity clamped to [0,1]; missing or malformed means opaque.
func ParseOpacity(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 1
	}
	scale := 1.0
	if p, ok := strings.CutSuffix(v, "%"); ok {
		v, scale = p, 100
	}
	op := ParseNumber(v, scale) / scale
	return min(max(op, 0), 1)
}

func zIndexAuto(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "auto") {
		return true
	}
	_, err := strconv.Atoi(v)
	return err != nil
}

func declared(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "none") && !strings.EqualFold(v, "auto")
}

func containsAny(v string, words ...string) bool {
	for _, f := range strings.FieldsFunc(strings.ToLower(v), func(r rune) bool { return r == ' ' || r == ',' }) {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}
