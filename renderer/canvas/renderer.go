package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"

	"github.com/ByLCY/vellum/fonts"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
)

// fitSlack 允许替换字体比原字体略宽而不缩小字号。
const fitSlack = 1.02

// Renderer draws layout documents into PDF via github.com/tdewolff/canvas.
type Renderer struct {
	log     *zap.Logger
	creator string

	// injected font overrides keyed by fonts.VariantName
	fontBlobs map[string][]byte

	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
}

var _ renderer.Renderer = (*Renderer)(nil)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	// Fonts 覆盖可移植字体的某个变体，键为 fonts.VariantName，例如 "Arial Bold"。
	Fonts   map[string]Resource
	Creator string
	Logger  *zap.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer backed by the built-in portable fonts.
func NewRenderer() *Renderer { return NewRendererWithOptions(Options{}) }

// NewRendererWithOptions creates a renderer with injected font overrides.
func NewRendererWithOptions(opts Options) *Renderer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Creator == "" {
		opts.Creator = "vellum"
	}
	r := &Renderer{
		log:          log.Named("pdf"),
		creator:      opts.Creator,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	for name, res := range opts.Fonts {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.fontBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, err := os.ReadFile(res.Path)
			if err != nil {
				r.log.Warn("Unable to read font override, using built-in face", zap.String("font", name), zap.Error(err))
				continue
			}
			r.fontBlobs[name] = data
		}
	}
	return r
}

// Render renders the document into a PDF byte slice, one PDF page per layout page.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	first := doc.Pages[0]
	writer := pdf.New(&buf, layout.PxToMm(first.Width), layout.PxToMm(first.Height), nil)
	writer.SetInfo(doc.Title, "", "", "", r.creator)
	for i, page := range doc.Pages {
		w, h := layout.PxToMm(page.Width), layout.PxToMm(page.Height)
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page); err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	r.log.Debug("PDF rendered", zap.Int("pages", len(doc.Pages)), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// drawPage 按 PaintIndex 顺序绘制，后绘制者在上。
func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page) error {
	for _, it := range page.Items {
		var err error
		switch v := it.(type) {
		case *layout.TextRun:
			err = r.drawText(ctx, v)
		case *layout.ShapeItem:
			r.drawShape(ctx, v)
		case *layout.ImageItem:
			err = r.drawImage(ctx, v)
		default:
			err = fmt.Errorf("未知图元类型 %T", it)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawText(ctx *canvas.Context, run *layout.TextRun) error {
	col, ok := colorFromHex(run.Color, run.Opacity)
	if !ok {
		return nil
	}
	bold, italic := run.Weight >= 600, run.Italic
	sizePt := layout.PxToPt(run.FontSizePx)
	face, err := r.fontFace(run.Family, bold, italic, sizePt, col)
	if err != nil {
		return err
	}
	// 字体替换后字宽可能变大，等比缩小字号以保持在原盒子内。
	boxW := layout.PxToMm(run.Rect.W)
	if tw := face.TextWidth(run.Text); boxW > 0 && tw > boxW*fitSlack {
		face, err = r.fontFace(run.Family, bold, italic, sizePt*boxW/tw, col)
		if err != nil {
			return err
		}
	}

	x, y := layout.PxToMm(run.Rect.X), layout.PxToMm(run.Rect.Y)
	var textAlign canvas.TextAlign
	anchorX := x
	switch run.Align {
	case "center":
		textAlign = canvas.Center
		anchorX = x + boxW/2
	case "right":
		textAlign = canvas.Right
		anchorX = x + boxW
	default:
		textAlign = canvas.Left
	}

	// 基线：行盒垂直居中字形高度，再加上升部。
	metrics := face.Metrics()
	lineH := layout.PxToMm(run.Rect.H)
	baseline := y + (lineH-(metrics.Ascent+metrics.Descent))/2 + metrics.Ascent
	ctx.DrawText(anchorX, baseline, canvas.NewTextLine(face, run.Text, textAlign))
	return nil
}

func (r *Renderer) drawShape(ctx *canvas.Context, s *layout.ShapeItem) {
	x, y := layout.PxToMm(s.Rect.X), layout.PxToMm(s.Rect.Y)
	w, h := layout.PxToMm(s.Rect.W), layout.PxToMm(s.Rect.H)

	// 阴影近似为偏移的实心形状，模糊半径忽略。
	if sh := s.Shadow; sh != nil {
		if col, ok := colorFromHex(sh.Color, s.Opacity); ok {
			spread := layout.PxToMm(sh.Spread)
			ctx.SetFillColor(col)
			ctx.SetStrokeColor(transparent)
			ctx.SetDashes(0)
			sx := x + layout.PxToMm(sh.OffsetX) - spread
			sy := y + layout.PxToMm(sh.OffsetY) - spread
			r.drawOutline(ctx, s, sx, sy, w+2*spread, h+2*spread)
		}
	}

	if col, ok := colorFromHex(s.FillColor, s.Opacity); ok {
		ctx.SetFillColor(col)
	} else {
		ctx.SetFillColor(transparent)
	}
	stroke := layout.PxToMm(s.StrokeWidthPx)
	if col, ok := colorFromHex(s.StrokeColor, s.Opacity); ok && stroke > 0 {
		ctx.SetStrokeColor(col)
		ctx.SetStrokeWidth(stroke)
		switch s.BorderStyle {
		case "dashed":
			ctx.SetDashes(0, 3*stroke, 2*stroke)
		case "dotted":
			ctx.SetDashes(0, stroke, stroke)
		default:
			ctx.SetDashes(0)
		}
	} else {
		ctx.SetStrokeColor(transparent)
		ctx.SetDashes(0)
	}
	r.drawOutline(ctx, s, x, y, w, h)
}

func (r *Renderer) drawOutline(ctx *canvas.Context, s *layout.ShapeItem, x, y, w, h float64) {
	switch {
	case s.Kind == layout.ShapeCircle:
		ctx.DrawPath(x+w/2, y+h/2, canvas.Ellipse(w/2, h/2))
	case s.CornerRadiusPx > 0:
		ctx.DrawPath(x, y, canvas.RoundedRectangle(w, h, layout.PxToMm(s.CornerRadiusPx)))
	default:
		ctx.DrawPath(x, y, canvas.Rectangle(w, h))
	}
}

func (r *Renderer) drawImage(ctx *canvas.Context, img *layout.ImageItem) error {
	if len(img.Data) == 0 || img.Rect.W <= 0 || img.Opacity <= 0 {
		return nil
	}
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("解码图片 %s 失败: %w", img.ID, err)
	}
	if img.Opacity < 1 {
		src = fadeImage(src, img.Opacity)
	}
	// 图片像素宽度与目标 mm 宽度之比即为 DPMM。
	wMM := layout.PxToMm(img.Rect.W)
	dpmm := float64(src.Bounds().Dx()) / wMM
	ctx.DrawImage(layout.PxToMm(img.Rect.X), layout.PxToMm(img.Rect.Y), src, canvas.DPMM(dpmm))
	return nil
}

func fadeImage(src image.Image, opacity float64) image.Image {
	out := imaging.Clone(src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = uint8(float64(out.Pix[i])*opacity + 0.5)
	}
	return out
}

func (r *Renderer) fontFace(family string, bold, italic bool, size float64, col color.Color) (*canvas.FontFace, error) {
	fam, style, err := r.ensureFontFamily(family, bold, italic)
	if err != nil {
		return nil, err
	}
	return fam.Face(size, col, style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(family string, bold, italic bool) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := fonts.VariantName(family, bold, italic)
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	style := parseFontStyle(key)
	data, ok := r.fontBlobs[key]
	if !ok {
		var err error
		data, err = fonts.Load(family, bold, italic)
		if err != nil {
			// 编码器只接受可移植字体族，未知族按无衬线处理。
			data, err = fonts.Load(layout.FamilySans, bold, italic)
			if err != nil {
				return nil, canvas.FontRegular, err
			}
		}
	}
	fam := canvas.NewFontFamily(key)
	if err := fam.LoadFont(data, 0, style); err != nil {
		return nil, canvas.FontRegular, fmt.Errorf("加载字体 %s 失败: %w", key, err)
	}
	r.fontFamilies[key] = &fontFamilyEntry{family: fam, style: style}
	return fam, style, nil
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	result := canvas.FontRegular
	if strings.Contains(s, "bold") {
		result = canvas.FontBold
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

var transparent = color.RGBA{0, 0, 0, 0}

// colorFromHex 将 "#rrggbb[aa]" 与不透明度合成为 canvas 颜色；空串或全透明返回 false。
func colorFromHex(hex string, opacity float64) (color.Color, bool) {
	if hex == "" {
		return nil, false
	}
	r, g, b, a := layout.HexToRGBA(hex)
	alpha := float64(a) / 255.0 * opacity
	if alpha <= 0 {
		return nil, false
	}
	return canvas.RGBA(float64(r)/255.0, float64(g)/255.0, float64(b)/255.0, alpha), true
}
