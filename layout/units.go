package layout

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/vellum/cssvalue"
)

// This file holds unit-safe helpers for lengths, percentages and colors.

// Fixed DPI constants: 96 px/in on screen, 72 pt/in and 25.4 mm/in.
const (
	PxPerIn = 96.0
	PtPerIn = 72.0
	MmPerIn = 25.4
)

// PxToPt converts device pixels to points.
func PxToPt(px float64) float64 { return px * PtPerIn / PxPerIn }

// PxToMm converts device pixels to millimeters.
func PxToMm(px float64) float64 { return px * MmPerIn / PxPerIn }

// PercentToAbsolute resolves a percentage of dim.
func PercentToAbsolute(pct, dim float64) float64 { return pct * dim / 100 }

// AbsoluteToPercent returns v as a percentage of dim rounded to 3 decimals.
func AbsoluteToPercent(v, dim float64) float64 {
	if dim <= 0 {
		return 0
	}
	return round3(v / dim * 100)
}

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// Unit represents the unit of a computed length.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers like line-height factors
	UnitPX                  // device pixels
	UnitPT                  // points
	UnitMM                  // millimeters
	UnitIN                  // inches
	UnitEM                  // relative to the font size
	UnitPercent             // relative to a reference dimension
)

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// Px resolves the length in pixels. fontSize backs em, reference backs percentages.
func (l Length) Px(fontSize, reference float64) float64 {
	switch l.Unit {
	case UnitPT:
		return l.Value * PxPerIn / PtPerIn
	case UnitMM:
		return l.Value * PxPerIn / MmPerIn
	case UnitIN:
		return l.Value * PxPerIn
	case UnitEM:
		return l.Value * fontSize
	case UnitPercent:
		return PercentToAbsolute(l.Value, reference)
	default:
		return l.Value
	}
}

// ParseLength parses a computed length preserving its unit. Unparseable input
// (including keywords such as "normal" or "auto") degrades to zero.
func ParseLength(value string) Length {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"pt", UnitPT}, {"mm", UnitMM}, {"in", UnitIN}, {"rem", UnitEM}, {"em", UnitEM}, {"%", UnitPercent}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Length{}
	}
	return Length{Value: f, Unit: unit}
}

// ParsePx is ParseLength resolved in pixels with a 16px em and no percentage reference.
func ParsePx(value string) float64 { return ParseLength(value).Px(16, 0) }

// ParseNumber reads a unit-less number such as opacity, degrading to def.
func ParseNumber(value string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) {
		return def
	}
	return f
}

// ResolveLineHeight maps a computed line-height to px: "normal" is 1.2 times
// the font size, unit-less numbers are factors.
func ResolveLineHeight(value string, fontSize float64) float64 {
	l := ParseLength(value)
	switch {
	case l.IsZero():
		return fontSize * 1.2
	case l.Unit == UnitNone:
		return fontSize * l.Value
	case l.Unit == UnitPercent:
		return PercentToAbsolute(l.Value, fontSize)
	default:
		return l.Px(fontSize, fontSize)
	}
}

// ColorToHex normalizes a color to lowercase #rrggbb, or #rrggbbaa when it
// is translucent. ok=false means there is nothing to paint. Malformed values
// degrade to #000000.
func ColorToHex(raw string) (hex string, ok bool) {
	c, status := cssvalue.ParseColor(raw)
	switch status {
	case cssvalue.ColorNone:
		return "", false
	case cssvalue.ColorInvalid:
		return "#000000", true
	}
	return hexOf(c), true
}

func hexOf(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// HexToRGBA splits a canonical hex color into 0-255 components; alpha defaults to 255.
func HexToRGBA(hex string) (r, g, b, a uint8) {
	c, status := cssvalue.ParseColor(hex)
	if status != cssvalue.ColorOK {
		return 0, 0, 0, 0
	}
	return c.R, c.G, c.B, c.A
}
