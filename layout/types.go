package layout

// 该文件定义提取结果的数据模型，供分页、编码器与调试 JSON 共用。

// Rect 保存绝对像素几何以及相对虚拟页面的百分比几何。
// 百分比字段恒为 absolute / pageDimension * 100，保留 3 位小数。
type Rect struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
	WPercent float64 `json:"wPercent"`
	HPercent float64 `json:"hPercent"`
}

func (r Rect) Bottom() float64 { return r.Y + r.H }
func (r Rect) Right() float64  { return r.X + r.W }

// Item is a positioned layout primitive: *TextRun, *ShapeItem or *ImageItem.
// The set is closed; switches over it list all three.
type Item interface {
	header() *Header
}

// Header 是三种图元共享的字段。PaintIndex 升序即由下到上的绘制顺序。
type Header struct {
	ID         string `json:"id"`
	PaintIndex int    `json:"paintIndex"`
	Rect       Rect   `json:"rect"`
}

func (h *Header) header() *Header { return h }

// HeaderOf exposes the shared fields of any item.
func HeaderOf(it Item) *Header { return it.header() }

// TextRun 是一段不折行的文本。
type TextRun struct {
	Header
	Text         string  `json:"text"`
	Color        string  `json:"color,omitempty"`
	FontSizePx   float64 `json:"fontSizePx"`
	Weight       int     `json:"weight"`
	Italic       bool    `json:"italic,omitempty"`
	Family       string  `json:"family"`
	Align        string  `json:"align,omitempty"`
	LineHeightPx float64 `json:"lineHeightPx"`
	Opacity      float64 `json:"opacity"`
}

// ShapeKind 区分矩形与圆形。
type ShapeKind string

const (
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
)

// Shadow 只保留第一层外阴影，单位为 px。
type Shadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Spread  float64 `json:"spread"`
	Color   string  `json:"color"`
}

// ShapeItem 描述填充/描边/圆角/阴影。颜色为空表示不绘制。
type ShapeItem struct {
	Header
	Kind           ShapeKind `json:"kind"`
	FillColor      string    `json:"fillColor,omitempty"`
	StrokeColor    string    `json:"strokeColor,omitempty"`
	StrokeWidthPx  float64   `json:"strokeWidthPx"`
	CornerRadiusPx float64   `json:"cornerRadiusPx,omitempty"`
	BorderStyle    string    `json:"borderStyle,omitempty"`
	Opacity        float64   `json:"opacity"`
	Shadow         *Shadow   `json:"shadow,omitempty"`
}

// ImageItem 为一张已编码的位图。
type ImageItem struct {
	Header
	Data     []byte  `json:"-"`
	Format   string  `json:"format"`
	NaturalW int     `json:"naturalW"`
	NaturalH int     `json:"naturalH"`
	Opacity  float64 `json:"opacity"`
	Source   string  `json:"source,omitempty"`
}

var (
	_ Item = (*TextRun)(nil)
	_ Item = (*ShapeItem)(nil)
	_ Item = (*ImageItem)(nil)
)

// Page 记录一页内按 PaintIndex 升序排列的图元，坐标相对本页顶部。
type Page struct {
	Index  int     `json:"index"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Items  []Item  `json:"items"`
}

// Diagnostics 汇总可降级问题，面向用户提示而非结构化错误。
type Diagnostics struct {
	Warnings     []string `json:"warnings"`
	FallbackUsed bool     `json:"fallbackUsed"`
}

// Document 是一次提取的最终结果，至少包含一页。
type Document struct {
	Title       string      `json:"title"`
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Scale       float64     `json:"scale"`
	Pages       []Page      `json:"pages"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
