package layout

import (
	"strings"
	"testing"

	"github.com/ByLCY/vellum/cssvalue"
)

func TestDominantColor(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"linear-gradient(red 0%, blue 100%)", "#800080", true},
		{"linear-gradient(to right, #000, #000)", "#000000", true},
		{"linear-gradient(#fff 0%, #fff 50%, #000 50%, #000 100%)", "#808080", true},
		{"linear-gradient(red, transparent)", "#ff000080", true},
		{"linear-gradient(transparent, transparent)", "", false},
	}
	for _, tc := range cases {
		g, err := cssvalue.ParseGradient(tc.in, 100)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		got, ok := DominantColor(g)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("DominantColor(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestGradientSVG(t *testing.T) {
	g, err := cssvalue.ParseGradient("repeating-linear-gradient(90deg, red, blue 20%)", 100)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	svg, ok := gradientSVG(g, 10, 10)
	if !ok {
		t.Fatalf("linear gradient should convert")
	}
	for _, want := range []string{`x1="0.0000"`, `x2="1.0000"`, `spreadMethod="repeat"`, `stop-color="#0000ff"`} {
		if !strings.Contains(svg, want) {
			t.Fatalf("svg missing %s: %s", want, svg)
		}
	}
	conic, err := cssvalue.ParseGradient("conic-gradient(red, blue)", 100)
	if err != nil {
		t.Fatalf("parse conic: %v", err)
	}
	if _, ok := gradientSVG(conic, 10, 10); ok {
		t.Fatalf("conic gradients have no svg form")
	}
}

func TestParseGradientMode(t *testing.T) {
	if ParseGradientMode("RASTER") != GradientRaster || ParseGradientMode("whatever") != GradientSolid {
		t.Fatalf("mode parsing wrong")
	}
	if GradientRaster.String() != "raster" || GradientSolid.String() != "solid" {
		t.Fatalf("mode names wrong")
	}
}
