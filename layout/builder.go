package layout

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/visual"
)

var (
	// ErrNoTree means the rendering host returned nothing usable.
	ErrNoTree = errors.New("渲染宿主没有返回可用的视觉树")
	// ErrEmptyRoot means the root exists but nothing under it is visible.
	ErrEmptyRoot = errors.New("视觉树没有可见的根节点")
	// ErrPageSize means the virtual page has no area.
	ErrPageSize = errors.New("虚拟页面尺寸必须为正数")
)

var idSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("vellum/layout"))

// Build 执行一次完整提取：绘制顺序 → 文本/形状/图片提取 → 校验过滤 → 分页。
// 结构性错误直接返回；单个图元的问题只降级并写入诊断。
func Build(ctx context.Context, tree *visual.Tree, opts BuildOptions) (*Document, error) {
	if tree == nil {
		return nil, ErrNoTree
	}
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTree, err)
	}
	if tree.Width <= 0 || tree.Height <= 0 {
		return nil, fmt.Errorf("%w: %gx%g", ErrPageSize, tree.Width, tree.Height)
	}
	root := tree.Node(tree.Root)
	if root.Style.Removed() || root.Box.Empty() {
		return nil, ErrEmptyRoot
	}

	p := newPass(ctx, tree, opts)
	order := ResolvePaintOrder(tree)
	if len(order.Steps) == 0 {
		return nil, ErrEmptyRoot
	}
	p.log.Debug("paint order resolved", zap.Int("nodes", len(order.Steps)), zap.Int("contexts", len(order.Contexts)))

	items, err := p.extract(order)
	if err != nil {
		return nil, err
	}
	items = mergeAdjacentRuns(items, p.opts.RunMergeGapEm, tree.Width, tree.Height)
	items = p.validate(items)

	contentH := max(tree.ContentHeight, tree.Height, contentBottom(items))
	pg := Paginate(items, PaginateOptions{
		PageWidth:     tree.Width,
		PageHeight:    tree.Height,
		ContentHeight: contentH,
		MarginPx:      p.opts.MarginPx,
		MaxPages:      p.opts.MaxPages,
		SinglePage:    p.opts.SinglePage,
	})
	if pg.Dropped > 0 {
		p.diag.warn(fmt.Sprintf("%d element(s) beyond the %d page limit were dropped", pg.Dropped, p.opts.MaxPages))
	}
	if n := len(p.diag.decorativeNodes); n > 0 {
		p.diag.warn(fmt.Sprintf("%d element(s) use unsupported decorative layers", n))
	}

	doc := &Document{
		Title:  documentTitle(opts.Title, tree.Title),
		Width:  tree.Width,
		Height: tree.Height,
		Scale:  pg.Scale,
		Pages:  pg.Pages,
		Diagnostics: Diagnostics{
			Warnings:     p.diag.warnings,
			FallbackUsed: p.diag.fallback,
		},
	}
	if doc.Diagnostics.Warnings == nil {
		doc.Diagnostics.Warnings = []string{}
	}
	p.log.Info("layout extracted",
		zap.String("title", doc.Title),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("items", len(items)),
		zap.Float64("scale", doc.Scale),
		zap.Int("warnings", len(doc.Diagnostics.Warnings)))
	return doc, nil
}

// contentBottom 返回图元的最低边；快照缺少 contentHeight 时以它为准。
func contentBottom(items []Item) float64 {
	var bottom float64
	for _, it := range items {
		bottom = max(bottom, HeaderOf(it).Rect.Bottom())
	}
	return bottom
}

func documentTitle(override, fromTree string) string {
	switch {
	case override != "":
		return override
	case fromTree != "":
		return fromTree
	default:
		return "Untitled"
	}
}

// pass 保存一次提取独享的状态，不跨调用共享。
type pass struct {
	ctx     context.Context
	tree    *visual.Tree
	geo     visual.Geometry
	opts    BuildOptions
	log     *zap.Logger
	seen    map[string]struct{}
	visited map[visual.NodeID]struct{}
	styles  map[visual.NodeID]*runStyle
	images  map[string]imageEntry
	sources map[string]sourceEntry
	diag    diagnostics
	seq     int
}

func newPass(ctx context.Context, tree *visual.Tree, opts BuildOptions) *pass {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	geo := opts.Geometry
	if geo == nil {
		geo = &visual.Snapshot{Tree: *tree}
	}
	return &pass{
		ctx:     ctx,
		tree:    tree,
		geo:     geo,
		opts:    opts,
		log:     log.Named("layout"),
		seen:    make(map[string]struct{}),
		visited: make(map[visual.NodeID]struct{}),
		styles:  make(map[visual.NodeID]*runStyle),
		images:  make(map[string]imageEntry),
		sources: make(map[string]sourceEntry),
		diag:    diagnostics{dedup: make(map[string]struct{}), decorativeNodes: make(map[visual.NodeID]struct{})},
	}
}

// extract visits nodes in paint order. Cancellation aborts; any other
// per-node failure is logged and the node is skipped.
func (p *pass) extract(order *PaintOrder) ([]Item, error) {
	var items []Item
	for _, step := range order.Steps {
		if err := p.ctx.Err(); err != nil {
			return nil, err
		}
		n := p.tree.Node(step.Node)
		switch n.Kind {
		case visual.KindText:
			runs, err := p.extractText(n, step)
			items = append(items, runs...)
			if err != nil {
				if p.ctx.Err() != nil {
					return nil, p.ctx.Err()
				}
				p.warnf(n.ID, "text could not be measured: %v", err)
			}
		case visual.KindImage, visual.KindVector:
			items = append(items, p.extractBox(n, step)...)
			it, err := p.extractImage(n, step)
			if err != nil {
				p.warnf(n.ID, "image skipped: %v", err)
				continue
			}
			if it != nil {
				items = append(items, it)
			}
		default:
			items = append(items, p.extractBox(n, step)...)
		}
	}
	return items, nil
}

// validate drops items whose geometry is unusable and items whose center lies
// left of, right of or above the virtual page. Content below the first page is
// kept for pagination.
func (p *pass) validate(items []Item) []Item {
	out := items[:0]
	offPage := 0
	for _, it := range items {
		r := HeaderOf(it).Rect
		if r.W <= 0 || r.H <= 0 || math.IsNaN(r.X+r.Y+r.W+r.H) || math.IsInf(r.X+r.Y+r.W+r.H, 0) {
			p.log.Debug("dropping degenerate item", zap.String("id", HeaderOf(it).ID))
			continue
		}
		if !CenterOnPage(r, p.tree.Width, math.Inf(1)) {
			p.log.Debug("dropping off-page item", zap.String("id", HeaderOf(it).ID))
			offPage++
			continue
		}
		out = append(out, it)
	}
	if offPage > 0 {
		p.diag.warn(fmt.Sprintf("%d element(s) outside the page were dropped", offPage))
	}
	return out
}

// nextID derives a stable id from the item kind, its extraction sequence and geometry.
func (p *pass) nextID(kind, key string) string {
	p.seq++
	return uuid.NewSHA1(idSpace, fmt.Appendf(nil, "%s/%d/%s", kind, p.seq, key)).String()
}

func (p *pass) warnf(id visual.NodeID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.log.Warn(msg, nodeField(id))
	p.diag.warn(msg)
}

func nodeField(id visual.NodeID) zap.Field { return zap.Int("node", int(id)) }

// diagnostics 收集用户可见的告警，相同文本只记录一次。
type diagnostics struct {
	warnings        []string
	dedup           map[string]struct{}
	fallback        bool
	decorativeNodes map[visual.NodeID]struct{}
}

func (d *diagnostics) warn(msg string) {
	if _, ok := d.dedup[msg]; ok {
		return
	}
	d.dedup[msg] = struct{}{}
	d.warnings = append(d.warnings, msg)
}

func (d *diagnostics) markDecorative(id visual.NodeID) {
	d.decorativeNodes[id] = struct{}{}
}
