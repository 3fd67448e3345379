package layout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/vellum/visual"
)

// maxRasterDim caps any rasterized or decoded bitmap edge to keep memory bounded.
const maxRasterDim = 8192

// ErrNoAssetLoader is returned when the tree references an image but the
// caller supplied no loader.
var ErrNoAssetLoader = errors.New("未配置资源加载器")

// AssetLoader resolves image references found in the visual tree.
type AssetLoader interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// AssetLoaderFunc adapts a function to AssetLoader.
type AssetLoaderFunc func(ctx context.Context, src string) ([]byte, error)

func (f AssetLoaderFunc) Fetch(ctx context.Context, src string) ([]byte, error) { return f(ctx, src) }

// cachedImage 是一次提取内按来源缓存的已编码位图。
type cachedImage struct {
	data   []byte
	format string
	w, h   int
}

func (p *pass) newImageItem(kind string, b visual.Box, img *cachedImage, step PaintStep, source string) *ImageItem {
	r := Measure(b, p.tree.Width, p.tree.Height)
	return &ImageItem{
		Header:   Header{ID: p.nextID(kind, PositionKey(r)), PaintIndex: step.Index, Rect: r},
		Data:     img.data,
		Format:   img.format,
		NaturalW: img.w,
		NaturalH: img.h,
		Opacity:  step.Opacity,
		Source:   source,
	}
}

// extractImage handles <img> and inline <svg> leaves.
func (p *pass) extractImage(n *visual.Node, step PaintStep) (Item, error) {
	if n.Box.W < 1 || n.Box.H < 1 || n.Style.Invisible() {
		return nil, nil
	}
	switch n.Kind {
	case visual.KindVector:
		w, h := rasterSize(n.Box)
		img, err := p.cached(fmt.Sprintf("svg:%dx%d:%s", w, h, n.Markup), func() (*cachedImage, error) {
			return rasterizeMarkup([]byte(n.Markup), w, h)
		})
		if err != nil {
			return nil, fmt.Errorf("内联 SVG %d: %w", n.ID, err)
		}
		return p.newImageItem("svg", n.Box, img, step, "inline-svg"), nil
	case visual.KindImage:
		if n.Src == "" {
			return nil, nil
		}
		img, err := p.loadImage(n.Src, n.Box)
		if err != nil {
			return nil, fmt.Errorf("图片 %q: %w", n.Src, err)
		}
		return p.newImageItem("img", n.Box, img, step, n.Src), nil
	}
	return nil, nil
}

// loadImage fetches src through the asset loader and normalizes it. Raster
// payloads are cached per source; SVG payloads per source and raster size.
func (p *pass) loadImage(src string, b visual.Box) (*cachedImage, error) {
	data, err := p.fetch(src)
	if err != nil {
		return nil, err
	}
	key := "src:" + src
	if isSVG(data) {
		w, h := rasterSize(b)
		key = fmt.Sprintf("src:%dx%d:%s", w, h, src)
	}
	return p.cached(key, func() (*cachedImage, error) {
		return normalizeImage(data, b, p.opts.MaxImagePx)
	})
}

// fetch 读取一次来源字节，同一来源在一次提取中只读取一次。
func (p *pass) fetch(src string) ([]byte, error) {
	if e, ok := p.sources[src]; ok {
		return e.data, e.err
	}
	var (
		data []byte
		err  = ErrNoAssetLoader
	)
	if p.opts.Assets != nil {
		data, err = p.opts.Assets.Fetch(p.ctx, src)
	}
	p.sources[src] = sourceEntry{data: data, err: err}
	return data, err
}

type sourceEntry struct {
	data []byte
	err  error
}

// cached 以来源标识为键，保证同一资源在一次提取中只编码一次；失败同样缓存。
func (p *pass) cached(key string, load func() (*cachedImage, error)) (*cachedImage, error) {
	if e, ok := p.images[key]; ok {
		return e.img, e.err
	}
	img, err := load()
	p.images[key] = imageEntry{img: img, err: err}
	return img, err
}

type imageEntry struct {
	img *cachedImage
	err error
}

func rasterSize(b visual.Box) (int, int) {
	return max(int(math.Ceil(b.W*2)), 1), max(int(math.Ceil(b.H*2)), 1)
}

func isSVG(data []byte) bool {
	head := data[:min(len(data), 512)]
	return bytes.Contains(head, []byte("<svg")) || (bytes.HasPrefix(bytes.TrimSpace(head), []byte("<?xml")) && bytes.Contains(data, []byte("<svg")))
}

// normalizeImage decodes raster data, downsizes anything larger than maxPx on
// either edge and re-encodes non PNG/JPEG formats as PNG. SVG payloads are
// rasterized at twice the displayed size.
func normalizeImage(data []byte, b visual.Box, maxPx int) (*cachedImage, error) {
	if isSVG(data) {
		w, h := rasterSize(b)
		return rasterizeMarkup(data, w, h)
	}
	kind, _ := filetype.Match(data)
	if kind == filetype.Unknown {
		return nil, fmt.Errorf("无法识别的图片数据")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("解码 %s 失败: %w", kind.Extension, err)
	}
	bounds := img.Bounds()
	out := &cachedImage{data: data, format: format, w: bounds.Dx(), h: bounds.Dy()}
	if maxPx <= 0 {
		maxPx = maxRasterDim
	}
	resized := false
	if out.w > maxPx || out.h > maxPx {
		img = imaging.Fit(img, maxPx, maxPx, imaging.Lanczos)
		resized = true
	}
	switch {
	case format == "jpeg" && !resized:
		return out, nil
	case format == "jpeg":
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return nil, fmt.Errorf("编码 JPEG 失败: %w", err)
		}
		out.data = buf.Bytes()
		return out, nil
	case format == "png" && !resized:
		return out, nil
	}
	return encodePNG(img, out)
}

func encodePNG(img image.Image, out *cachedImage) (*cachedImage, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	out.data = buf.Bytes()
	out.format = "png"
	return out, nil
}

// rasterizeMarkup draws an SVG document onto a transparent w by h canvas.
func rasterizeMarkup(markup []byte, w, h int) (*cachedImage, error) {
	img, err := RasterizeSVG(markup, w, h)
	if err != nil {
		return nil, err
	}
	return encodePNG(img, &cachedImage{w: w / 2, h: h / 2})
}

// RasterizeSVG renders SVG markup to an RGBA image of w by h pixels, clamped to maxRasterDim.
func RasterizeSVG(markup []byte, w, h int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("解析 SVG 失败: %w", err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.W, icon.ViewBox.H = float64(w), float64(h)
	}
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
