package layout

import (
	"encoding/json"
	"os"
)

// ItemType names the concrete variant of it.
func ItemType(it Item) string {
	switch it.(type) {
	case *TextRun:
		return "text"
	case *ShapeItem:
		return "shape"
	case *ImageItem:
		return "image"
	}
	return "unknown"
}

type taggedItem struct {
	Type string `json:"type"`
	Item Item   `json:"item"`
}

// MarshalJSON tags every item with its variant so debug dumps stay readable.
func (p Page) MarshalJSON() ([]byte, error) {
	items := make([]taggedItem, len(p.Items))
	for i, it := range p.Items {
		items[i] = taggedItem{Type: ItemType(it), Item: it}
	}
	return json.Marshal(struct {
		Index  int          `json:"index"`
		Width  float64      `json:"width"`
		Height float64      `json:"height"`
		Items  []taggedItem `json:"items"`
	}{p.Index, p.Width, p.Height, items})
}

// WriteDebugJSON 将布局结果输出为 JSON，便于调试或可视化。
func WriteDebugJSON(doc *Document, path string) error {
	if doc == nil {
		return nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
