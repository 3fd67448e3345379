package layout

import (
	"fmt"
	"math"

	"github.com/ByLCY/vellum/visual"
)

// Measure 把宿主盒子换算为相对虚拟页面的精确矩形。
func Measure(b visual.Box, pageW, pageH float64) Rect {
	return Rect{
		X:        b.X,
		Y:        b.Y,
		W:        b.W,
		H:        b.H,
		XPercent: AbsoluteToPercent(b.X, pageW),
		YPercent: AbsoluteToPercent(b.Y, pageH),
		WPercent: AbsoluteToPercent(b.W, pageW),
		HPercent: AbsoluteToPercent(b.H, pageH),
	}
}

// PositionKey fingerprints a rect at 1px granularity. Two text runs with the
// same key are the same visual run.
func PositionKey(r Rect) string {
	return fmt.Sprintf("%d,%d,%d,%d", int(math.Round(r.X)), int(math.Round(r.Y)), int(math.Round(r.W)), int(math.Round(r.H)))
}

// CenterOnPage reports whether the rect's center lies within a page of the given size.
func CenterOnPage(r Rect, pageW, pageH float64) bool {
	cx := r.X + r.W/2
	cy := r.Y + r.H/2
	return cx >= 0 && cx <= pageW && cy >= 0 && cy <= pageH
}
