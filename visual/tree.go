// Package visual describes the rendered component tree handed over by a
// rendering host: an arena of nodes addressed by stable integer ids, each with
// a resolved box in device pixels and a snapshot of its computed style.
package visual

import (
	"fmt"
	"strings"
)

// NodeID 是节点在 Tree.Nodes 中的下标，一次提取过程内保持稳定。
type NodeID int

// NoNode marks the absent parent of the root.
const NoNode NodeID = -1

// Kind 区分节点类别。
type Kind int

const (
	KindBox    Kind = iota // 普通盒子
	KindText               // 文本叶子，样式取自父节点
	KindImage              // 位图引用（img / picture）
	KindVector             // 内联矢量图（svg）
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVector:
		return "vector"
	default:
		return "box"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(data []byte) error {
	switch strings.ToLower(string(data)) {
	case "", "box":
		*k = KindBox
	case "text":
		*k = KindText
	case "image", "img":
		*k = KindImage
	case "vector", "svg":
		*k = KindVector
	default:
		return fmt.Errorf("未知节点类型 %q", string(data))
	}
	return nil
}

// Box 为设备像素下的绝对矩形（相对于虚拟页面左上角）。
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (b Box) Right() float64  { return b.X + b.W }
func (b Box) Bottom() float64 { return b.Y + b.H }

// Empty reports a box without area.
func (b Box) Empty() bool { return b.W <= 0 || b.H <= 0 }

// Union returns the smallest box covering both.
func (b Box) Union(o Box) Box {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	x := min(b.X, o.X)
	y := min(b.Y, o.Y)
	return Box{X: x, Y: y, W: max(b.Right(), o.Right()) - x, H: max(b.Bottom(), o.Bottom()) - y}
}

// Node 是只读的视觉节点。
type Node struct {
	ID       NodeID   `json:"id"`
	Parent   NodeID   `json:"parent"`
	Children []NodeID `json:"children,omitempty"`
	Kind     Kind     `json:"kind"`
	Tag      string   `json:"tag,omitempty"`
	Box      Box      `json:"box"`
	Style    Style    `json:"style"`

	Text     string `json:"text,omitempty"`     // KindText
	Src      string `json:"src,omitempty"`      // KindImage
	Markup   string `json:"markup,omitempty"`   // KindVector, serialized svg
	NaturalW int    `json:"naturalW,omitempty"` // KindImage
	NaturalH int    `json:"naturalH,omitempty"`
}

// Tree is the arena produced by one rendering pass.
type Tree struct {
	Title         string  `json:"title,omitempty"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	ContentHeight float64 `json:"contentHeight"`
	Root          NodeID  `json:"root"`
	Nodes         []Node  `json:"nodes"`
}

// Node returns the node with the given id or nil when out of range.
func (t *Tree) Node(id NodeID) *Node {
	if t == nil || id < 0 || int(id) >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[id]
}

// StyleOf returns the style that applies to id; text leaves inherit from their parent.
func (t *Tree) StyleOf(id NodeID) Style {
	n := t.Node(id)
	if n == nil {
		return Style{}
	}
	if n.Kind == KindText {
		if p := t.Node(n.Parent); p != nil {
			return p.Style
		}
	}
	return n.Style
}

// Validate checks that ids match their positions and that links stay inside the arena.
func (t *Tree) Validate() error {
	if t == nil || len(t.Nodes) == 0 {
		return fmt.Errorf("视觉树为空")
	}
	if t.Node(t.Root) == nil {
		return fmt.Errorf("根节点 %d 超出范围", t.Root)
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.ID != NodeID(i) {
			return fmt.Errorf("位置 %d 的节点 id 为 %d", i, n.ID)
		}
		if n.Parent != NoNode && t.Node(n.Parent) == nil {
			return fmt.Errorf("节点 %d: 父节点 %d 超出范围", i, n.Parent)
		}
		for _, c := range n.Children {
			if t.Node(c) == nil {
				return fmt.Errorf("节点 %d: 子节点 %d 超出范围", i, c)
			}
		}
	}
	return nil
}

// Builder 便于测试与静态快照逐个追加节点。
type Builder struct {
	tree Tree
}

// NewBuilder starts a tree whose root box covers the whole virtual page.
func NewBuilder(width, height float64, rootStyle Style) *Builder {
	b := &Builder{tree: Tree{Width: width, Height: height, ContentHeight: height}}
	b.tree.Nodes = append(b.tree.Nodes, Node{
		ID:     0,
		Parent: NoNode,
		Tag:    "body",
		Box:    Box{W: width, H: height},
		Style:  rootStyle,
	})
	return b
}

// Root returns the id of the root node.
func (b *Builder) Root() NodeID { return 0 }

// Add appends n under parent and returns its id.
func (b *Builder) Add(parent NodeID, n Node) NodeID {
	id := NodeID(len(b.tree.Nodes))
	n.ID = id
	n.Parent = parent
	n.Children = nil
	b.tree.Nodes = append(b.tree.Nodes, n)
	p := &b.tree.Nodes[parent]
	p.Children = append(p.Children, id)
	if bottom := n.Box.Bottom(); bottom > b.tree.ContentHeight {
		b.tree.ContentHeight = bottom
	}
	return id
}

// Tree returns the built arena.
func (b *Builder) Tree() *Tree {
	t := b.tree
	return &t
}
