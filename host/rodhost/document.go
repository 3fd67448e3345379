package rodhost

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WrapDocument parses markup (a fragment or a full document) into a complete
// HTML document with a UTF-8 charset and, when baseURL is set, a <base> so
// relative sources resolve the same way they would next to the source file.
func WrapDocument(markup, baseURL string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("解析标记失败: %w", err)
	}
	head := findElement(doc, atom.Head)
	if head == nil {
		return "", fmt.Errorf("解析后的文档缺少 head")
	}

	charset := findCharset(head)
	if charset == nil {
		charset = &html.Node{Type: html.ElementNode, Data: "meta", DataAtom: atom.Meta,
			Attr: []html.Attribute{{Key: "charset", Val: "utf-8"}}}
		head.InsertBefore(charset, head.FirstChild)
	}
	// <base> 必须位于任何引用 URL 的元素之前。
	if baseURL != "" && findElement(head, atom.Base) == nil {
		base := &html.Node{Type: html.ElementNode, Data: "base", DataAtom: atom.Base,
			Attr: []html.Attribute{{Key: "href", Val: baseURL}}}
		head.InsertBefore(base, charset.NextSibling)
	}

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", fmt.Errorf("输出文档失败: %w", err)
	}
	return sb.String(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findCharset(head *html.Node) *html.Node {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Meta {
			continue
		}
		for _, a := range c.Attr {
			if strings.EqualFold(a.Key, "charset") {
				return c
			}
		}
	}
	return nil
}
