package renderer

import (
	"fmt"
	"strings"

	"github.com/ByLCY/vellum/layout"
)

// Renderer 将布局文档输出为最终文件，例如 PDF 或 PPTX。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(doc *layout.Document) ([]byte, error)
}

// Format 是输出格式名。
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPPTX Format = "pptx"
)

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "pdf":
		return FormatPDF, nil
	case "pptx", "slides":
		return FormatPPTX, nil
	default:
		return "", fmt.Errorf("不支持的输出格式 %q", s)
	}
}
