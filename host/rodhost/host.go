// Package rodhost renders markup in headless Chrome via go-rod and exposes the
// painted result as a visual tree plus live text range geometry.
package rodhost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/await"
	"github.com/ByLCY/vellum/visual"
)

var (
	ErrClosed    = errors.New("浏览器宿主已关闭")
	ErrStalePass = errors.New("渲染过程已失效")
)

// Options configures the browser host.
type Options struct {
	// ControlURL connects to a running Chrome; empty launches a local one.
	ControlURL string
	// Bin overrides the browser binary used by the launcher.
	Bin string

	Width  int // virtual page width, px
	Height int // virtual page height, px

	LoadTimeout  time.Duration
	FrameTimeout time.Duration
	FontsTimeout time.Duration
	ImageTimeout time.Duration

	Logger *zap.Logger
}

func (o *Options) defaults() {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.LoadTimeout <= 0 {
		o.LoadTimeout = 30 * time.Second
	}
	if o.FrameTimeout <= 0 {
		o.FrameTimeout = time.Second
	}
	if o.FontsTimeout <= 0 {
		o.FontsTimeout = 3 * time.Second
	}
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Host owns one browser. Passes are serialized: a new pass waits until the
// previous one is closed.
type Host struct {
	opts    Options
	log     *zap.Logger
	browser *rod.Browser
	lnch    *launcher.Launcher

	mu     sync.Mutex // held for the lifetime of a pass
	state  sync.Mutex
	gen    uint64
	closed bool
}

// New launches (or connects to) Chrome.
func New(ctx context.Context, opts Options) (*Host, error) {
	opts.defaults()
	h := &Host{opts: opts, log: opts.Logger.Named("rodhost")}

	wsURL := opts.ControlURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("启动浏览器失败: %w", err)
		}
		wsURL = u
		h.lnch = l
		h.log.Debug("Launched local chrome", zap.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if h.lnch != nil {
			h.lnch.Cleanup()
		}
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	h.browser = b
	return h, nil
}

// Close shuts the browser down.
func (h *Host) Close() error {
	h.state.Lock()
	defer h.state.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.gen++

	var err error
	if h.browser != nil {
		err = multierr.Append(err, h.browser.Close())
	}
	if h.lnch != nil {
		h.lnch.Cleanup()
	}
	return err
}

// Pass is one rendering of a document. It implements visual.Geometry and must
// be closed to release the host for the next pass.
type Pass struct {
	host *Host
	page *rod.Page
	gen  uint64
	tree *visual.Tree
	once sync.Once
	// Late lists readiness waits that ran out of time.
	Late []string
}

var _ visual.Geometry = (*Pass)(nil)

// Render loads markup into a fresh page sized to the virtual page, waits for
// it to settle and snapshots the painted tree.
func (h *Host) Render(ctx context.Context, markup, baseURL string) (*Pass, error) {
	h.mu.Lock()
	p, err := h.render(ctx, markup, baseURL)
	if err != nil {
		h.mu.Unlock()
		return nil, err
	}
	return p, nil
}

func (h *Host) render(ctx context.Context, markup, baseURL string) (*Pass, error) {
	h.state.Lock()
	if h.closed {
		h.state.Unlock()
		return nil, ErrClosed
	}
	h.gen++
	gen := h.gen
	h.state.Unlock()

	doc, err := WrapDocument(markup, baseURL)
	if err != nil {
		return nil, err
	}

	page, err := h.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	p := &Pass{host: h, page: page, gen: gen}
	if err := p.load(ctx, doc); err != nil {
		page.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pass) load(ctx context.Context, doc string) error {
	h := p.host
	if err := p.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             h.opts.Width,
		Height:            h.opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("设置视口失败: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, h.opts.LoadTimeout)
	defer cancel()
	if err := p.page.Context(loadCtx).SetDocumentContent(doc); err != nil {
		return fmt.Errorf("加载文档失败: %w", err)
	}

	eval := func(js string) func(context.Context) error {
		return func(c context.Context) error {
			_, err := p.page.Context(c).Eval(js)
			return err
		}
	}
	late, err := await.Sequence(ctx, h.opts.FrameTimeout,
		await.Step{Name: "frame", Wait: eval(nextFrameJS)},
		await.Step{Name: "fonts", Timeout: h.opts.FontsTimeout, Wait: eval(fontsReadyJS)},
		await.Step{Name: "images", Timeout: h.opts.ImageTimeout, Wait: eval(imagesDecodedJS)},
		await.Step{Name: "settle", Wait: eval(nextFrameJS)},
	)
	if err != nil {
		return fmt.Errorf("等待文档就绪失败: %w", err)
	}
	p.Late = late

	res, err := p.page.Context(ctx).Eval(snapshotJS, styleProps())
	if err != nil {
		return fmt.Errorf("快照失败: %w", err)
	}
	tree, err := decodeTree(res.Value.Str())
	if err != nil {
		return err
	}
	tree.Width, tree.Height = float64(h.opts.Width), float64(h.opts.Height)
	p.tree = tree
	h.log.Debug("Document snapshotted",
		zap.Int("nodes", len(tree.Nodes)),
		zap.Float64("content_height", tree.ContentHeight),
		zap.Strings("late", late))
	return nil
}

// Tree returns the snapshot taken when the pass was rendered.
func (p *Pass) Tree() *visual.Tree { return p.tree }

// RangeRects implements visual.Geometry by asking the live page for the client
// rects of a character range. Offsets are runes; the page counts UTF-16 units.
func (p *Pass) RangeRects(ctx context.Context, id visual.NodeID, start, end int) ([]visual.Box, error) {
	if err := p.current(); err != nil {
		return nil, err
	}
	n := p.tree.Node(id)
	if n == nil || n.Kind != visual.KindText {
		return nil, fmt.Errorf("节点 %d 不是文本叶子", id)
	}
	from, to := utf16Offset(n.Text, start), utf16Offset(n.Text, end)
	res, err := p.page.Context(ctx).Eval(rangeRectsJS, int(id), from, to)
	if err != nil {
		return nil, fmt.Errorf("查询节点 %d 区间几何失败: %w", id, err)
	}
	var boxes []visual.Box
	if err := json.Unmarshal([]byte(res.Value.Str()), &boxes); err != nil {
		return nil, fmt.Errorf("解码区间几何失败: %w", err)
	}
	return boxes, nil
}

func (p *Pass) current() error {
	p.host.state.Lock()
	defer p.host.state.Unlock()
	if p.host.closed {
		return ErrClosed
	}
	if p.gen != p.host.gen || p.page == nil {
		return ErrStalePass
	}
	return nil
}

// Close releases the page and lets the next pass start.
func (p *Pass) Close() error {
	var err error
	p.once.Do(func() {
		err = p.page.Close()
		p.host.state.Lock()
		p.page = nil
		p.host.state.Unlock()
		p.host.mu.Unlock()
	})
	return err
}

// utf16Offset converts a rune offset within s into UTF-16 code units.
func utf16Offset(s string, runes int) int {
	units := 0
	for i, r := range []rune(s) {
		if i >= runes {
			break
		}
		units += utf16.RuneLen(r)
	}
	return units
}

func decodeTree(raw string) (*visual.Tree, error) {
	var tree visual.Tree
	if err := json.NewDecoder(strings.NewReader(raw)).Decode(&tree); err != nil {
		return nil, fmt.Errorf("解码快照失败: %w", err)
	}
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("快照无效: %w", err)
	}
	return &tree, nil
}

var (
	propsOnce sync.Once
	props     []string
)

// styleProps lists the computed style properties copied into visual.Style,
// taken from its json tags so both sides stay in sync.
func styleProps() []string {
	propsOnce.Do(func() {
		t := reflect.TypeOf(visual.Style{})
		for i := 0; i < t.NumField(); i++ {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
			if name != "" && name != "-" {
				props = append(props, name)
			}
		}
	})
	return props
}
