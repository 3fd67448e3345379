package visual

// Style 是宿主计算样式的快照，值保持宿主给出的原始字符串（例如 "12px"、"rgba(0, 0, 0, 0.5)"）。
// 字段名与浏览器 getComputedStyle 的属性一一对应，方便快照直接序列化。
type Style struct {
	Display    string `json:"display,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	Position   string `json:"position,omitempty"`
	ZIndex     string `json:"zIndex,omitempty"`
	Opacity    string `json:"opacity,omitempty"`

	// stacking context triggers
	Transform    string `json:"transform,omitempty"`
	Filter       string `json:"filter,omitempty"`
	ClipPath     string `json:"clipPath,omitempty"`
	Mask         string `json:"mask,omitempty"`
	MixBlendMode string `json:"mixBlendMode,omitempty"`
	Isolation    string `json:"isolation,omitempty"`
	Contain      string `json:"contain,omitempty"`
	WillChange   string `json:"willChange,omitempty"`

	// text
	Color      string `json:"color,omitempty"`
	FontFamily string `json:"fontFamily,omitempty"`
	FontSize   string `json:"fontSize,omitempty"`
	FontWeight string `json:"fontWeight,omitempty"`
	FontStyle  string `json:"fontStyle,omitempty"`
	TextAlign  string `json:"textAlign,omitempty"`
	LineHeight string `json:"lineHeight,omitempty"`
	WhiteSpace string `json:"whiteSpace,omitempty"`

	// box decoration
	BackgroundColor string `json:"backgroundColor,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	BorderWidth     string `json:"borderWidth,omitempty"`
	BorderStyle     string `json:"borderStyle,omitempty"`
	BorderColor     string `json:"borderColor,omitempty"`

	BorderTopLeftRadius     string `json:"borderTopLeftRadius,omitempty"`
	BorderTopRightRadius    string `json:"borderTopRightRadius,omitempty"`
	BorderBottomRightRadius string `json:"borderBottomRightRadius,omitempty"`
	BorderBottomLeftRadius  string `json:"borderBottomLeftRadius,omitempty"`

	BoxShadow  string `json:"boxShadow,omitempty"`
	TextShadow string `json:"textShadow,omitempty"`
	Outline    string `json:"outline,omitempty"`
}

// Radii returns the four corner radii clockwise from top-left.
func (s Style) Radii() [4]string {
	return [4]string{s.BorderTopLeftRadius, s.BorderTopRightRadius, s.BorderBottomRightRadius, s.BorderBottomLeftRadius}
}

// Removed reports display:none; the whole subtree is skipped.
func (s Style) Removed() bool { return s.Display == "none" }

// Invisible reports a hidden or collapsed visibility. Descendants may still override it.
func (s Style) Invisible() bool { return s.Visibility == "hidden" || s.Visibility == "collapse" }
