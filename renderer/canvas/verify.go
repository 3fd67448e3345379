package canvasrenderer

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Report 是对生成 PDF 的结构校验结果。
type Report struct {
	Pages int
	Title string
}

// Verify parses and validates a rendered PDF with pdfcpu.
func Verify(data []byte) (*Report, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("PDF 内容为空")
	}
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu 校验失败: %w", err)
	}
	return &Report{Pages: ctx.PageCount, Title: ctx.Title}, nil
}
