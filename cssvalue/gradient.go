package cssvalue

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"golang.org/x/image/colornames"
)

var (
	gradientLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Func", Pattern: `-?[A-Za-z_][A-Za-z0-9_-]*\(`},
		{Name: "Hash", Pattern: `#[0-9A-Fa-f]+`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.\d*|\.\d+|\d+)(?:[eE][-+]?\d+)?(?:%|[A-Za-z]+)?`},
		{Name: "Ident", Pattern: `-?[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[(),/]`},
	})

	gradientParser = participle.MustBuild[gradientAST](
		participle.Lexer(gradientLexer),
		participle.Elide("Whitespace"),
	)
)

// gradientAST is the raw shape of a *-gradient() call: comma separated
// arguments, each a run of values.
type gradientAST struct {
	Name string    `parser:"@Func"`
	Args []*argAST `parser:"@@ ( ',' @@ )* ')'"`
}

type argAST struct {
	Values []*valueAST `parser:"@@+"`
}

type valueAST struct {
	Func   *funcAST `parser:"  @@"`
	Number *string  `parser:"| @Number"`
	Hash   *string  `parser:"| @Hash"`
	Ident  *string  `parser:"| @Ident"`
}

type funcAST struct {
	Name string   `parser:"@Func"`
	Args []string `parser:"( @Number | @Ident | @Hash | @',' | @'/' )* ')'"`
}

func (f *funcAST) String() string {
	return f.Name + strings.Join(f.Args, " ") + ")"
}

// GradientKind distinguishes the gradient functions.
type GradientKind int

const (
	LinearGradient GradientKind = iota
	RadialGradient
	ConicGradient
)

// Stop is a color stop. Pos is a fraction of the gradient line once resolved.
type Stop struct {
	Color  string
	Pos    float64
	HasPos bool
}

// Gradient is a parsed gradient image.
type Gradient struct {
	Kind      GradientKind
	Repeating bool
	Angle     float64 // degrees, linear only, 180 means "to bottom"
	Stops     []Stop
}

// ParseGradient parses one linear-, radial- or conic-gradient() value.
// Stop positions in px are resolved against lineLength; missing positions are
// spread evenly between their neighbours.
func ParseGradient(value string, lineLength float64) (*Gradient, error) {
	ast, err := gradientParser.ParseString("", strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("渐变: %w", err)
	}
	name := strings.ToLower(strings.TrimSuffix(ast.Name, "("))
	name = strings.TrimPrefix(name, "-webkit-")
	g := &Gradient{Angle: 180}
	if strings.HasPrefix(name, "repeating-") {
		g.Repeating = true
		name = strings.TrimPrefix(name, "repeating-")
	}
	switch name {
	case "linear-gradient":
		g.Kind = LinearGradient
	case "radial-gradient":
		g.Kind = RadialGradient
	case "conic-gradient":
		g.Kind = ConicGradient
	default:
		return nil, fmt.Errorf("渐变: 不支持的函数 %q", name)
	}

	args := ast.Args
	if len(args) > 0 && !isColorValue(args[0].Values[0]) {
		if g.Kind == LinearGradient {
			g.Angle = parseDirection(args[0].Values)
		}
		args = args[1:]
	}
	for _, a := range args {
		g.Stops = append(g.Stops, parseStops(a.Values, lineLength)...)
	}
	if len(g.Stops) == 0 {
		return nil, fmt.Errorf("渐变: 缺少色标")
	}
	resolveStops(g.Stops)
	return g, nil
}

func isColorValue(v *valueAST) bool {
	switch {
	case v.Hash != nil:
		return true
	case v.Func != nil:
		switch strings.ToLower(strings.TrimSuffix(v.Func.Name, "(")) {
		case "rgb", "rgba", "hsl", "hsla", "hwb", "lab", "lch", "oklab", "oklch", "color":
			return true
		}
	case v.Ident != nil:
		id := strings.ToLower(*v.Ident)
		if id == "transparent" || id == "currentcolor" {
			return true
		}
		_, ok := colornames.Map[id]
		return ok
	}
	return false
}

func valueText(v *valueAST) string {
	switch {
	case v.Func != nil:
		return v.Func.String()
	case v.Hash != nil:
		return *v.Hash
	case v.Ident != nil:
		return *v.Ident
	case v.Number != nil:
		return *v.Number
	}
	return ""
}

func parseDirection(vals []*valueAST) float64 {
	if len(vals) == 1 && vals[0].Number != nil {
		d, ok := numberDimension(*vals[0].Number)
		if !ok {
			return 180
		}
		switch d.Unit {
		case "turn":
			return d.Value * 360
		case "rad":
			return d.Value * 180 / math.Pi
		case "grad":
			return d.Value * 0.9
		}
		return d.Value
	}
	var sides []string
	for _, v := range vals {
		if v.Ident != nil && !strings.EqualFold(*v.Ident, "to") {
			sides = append(sides, strings.ToLower(*v.Ident))
		}
	}
	var dx, dy float64
	for _, s := range sides {
		switch s {
		case "top":
			dy = -1
		case "bottom":
			dy = 1
		case "left":
			dx = -1
		case "right":
			dx = 1
		}
	}
	if dx == 0 && dy == 0 {
		return 180
	}
	deg := math.Atan2(dx, -dy) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

func parseStops(vals []*valueAST, lineLength float64) []Stop {
	var (
		col  string
		poss []float64
	)
	for _, v := range vals {
		if v.Number != nil {
			d, ok := numberDimension(*v.Number)
			if !ok {
				continue
			}
			if d.Unit == "%" {
				poss = append(poss, d.Value/100)
			} else if lineLength > 0 {
				poss = append(poss, ToPx(d, 16)/lineLength)
			}
			continue
		}
		if col == "" {
			col = valueText(v)
		}
	}
	if col == "" {
		// a bare position is a color hint, ignored
		return nil
	}
	if len(poss) == 0 {
		return []Stop{{Color: col}}
	}
	out := make([]Stop, 0, len(poss))
	for _, p := range poss {
		out = append(out, Stop{Color: col, Pos: p, HasPos: true})
	}
	return out
}

func numberDimension(s string) (Dimension, bool) {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c == '%' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			i--
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return Dimension{}, false
	}
	return Dimension{Value: v, Unit: strings.ToLower(s[i:])}, true
}

// resolveStops fills missing positions: first 0, last 1, evenly spaced in
// between, and keeps positions monotonic.
func resolveStops(stops []Stop) {
	n := len(stops)
	if !stops[0].HasPos {
		stops[0].Pos, stops[0].HasPos = 0, true
	}
	if !stops[n-1].HasPos {
		stops[n-1].Pos, stops[n-1].HasPos = 1, true
	}
	last := stops[0].Pos
	for i := 1; i < n; i++ {
		if stops[i].HasPos && stops[i].Pos < last {
			stops[i].Pos = last
		}
		if stops[i].HasPos {
			last = stops[i].Pos
		}
	}
	for i := 1; i < n; {
		if stops[i].HasPos {
			i++
			continue
		}
		j := i
		for !stops[j].HasPos {
			j++
		}
		from, to := stops[i-1].Pos, stops[j].Pos
		span := j - (i - 1)
		for k := i; k < j; k++ {
			stops[k].Pos = from + (to-from)*float64(k-(i-1))/float64(span)
			stops[k].HasPos = true
		}
		i = j + 1
	}
}
