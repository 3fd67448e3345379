package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ByLCY/vellum/layout"
)

// 可移植字体集合中的每个族都由 Go 字体兜底。衬线族没有对应的 Go 字体，
// 使用比例字体代替；需要真实字形时通过 VariantName 注入字体文件。
var (
	proportional = [4][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF}
	monospace    = [4][]byte{gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF}
)

func variantIndex(bold, italic bool) int {
	i := 0
	if bold {
		i |= 1
	}
	if italic {
		i |= 2
	}
	return i
}

// Load 返回可移植字体族某个变体的 TrueType 数据。
func Load(family string, bold, italic bool) ([]byte, error) {
	switch family {
	case layout.FamilySans, layout.FamilySerif:
		return proportional[variantIndex(bold, italic)], nil
	case layout.FamilyMono:
		return monospace[variantIndex(bold, italic)], nil
	}
	return nil, fmt.Errorf("字体族 %q 不在可移植集合内", family)
}

// VariantName 返回覆盖字体时使用的键，例如 "Arial Bold Italic"。
func VariantName(family string, bold, italic bool) string {
	parts := []string{family}
	if bold {
		parts = append(parts, "Bold")
	}
	if italic {
		parts = append(parts, "Italic")
	}
	return strings.Join(parts, " ")
}
