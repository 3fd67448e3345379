// Package binding expands ${name} placeholders in output name templates.
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则返回原占位符。
func Interpolate(text string, data map[string]any) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if path == "" {
			return match
		}
		if val, ok := resolvePath(data, path); ok {
			return fmt.Sprint(val)
		}
		return match
	})
}

func resolvePath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, segment := range strings.Split(path, ".") {
		name, index, hasIndex := strings.Cut(segment, "[")
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[name]; !ok {
			return nil, false
		}
		if !hasIndex {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSuffix(index, "]"))
		if err != nil {
			return nil, false
		}
		list, ok := current.([]any)
		if !ok || idx < 0 || idx >= len(list) {
			return nil, false
		}
		current = list[idx]
	}
	return current, true
}

// Names carries the values available to an output name template.
type Names struct {
	Title  string
	Pages  int
	Format string
}

func (n Names) vars() map[string]any {
	return map[string]any{
		"title":  n.Title,
		"pages":  n.Pages,
		"format": n.Format,
	}
}

// FileName expands tmpl and turns the result into a file-safe stem. The
// format's extension is appended. Unknown placeholders are dropped.
func FileName(tmpl string, n Names) string {
	expanded := Interpolate(tmpl, n.vars())
	expanded = exprPattern.ReplaceAllString(expanded, "")
	stem := slug.Make(expanded)
	if stem == "" {
		stem = "untitled"
	}
	if n.Format == "" {
		return stem
	}
	return stem + "." + n.Format
}
