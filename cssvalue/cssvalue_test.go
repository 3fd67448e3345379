package cssvalue

import (
	"image/color"
	"math"
	"testing"
)

func TestParseColorForms(t *testing.T) {
	cases := []struct {
		in     string
		want   color.NRGBA
		status ColorStatus
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}, ColorOK},
		{"#FF000080", color.NRGBA{255, 0, 0, 128}, ColorOK},
		{"#0f08", color.NRGBA{0, 255, 0, 136}, ColorOK},
		{"#123456", color.NRGBA{0x12, 0x34, 0x56, 255}, ColorOK},
		{"rgb(10, 20, 30)", color.NRGBA{10, 20, 30, 255}, ColorOK},
		{"rgba(10, 20, 30, 0.5)", color.NRGBA{10, 20, 30, 128}, ColorOK},
		{"rgb(10 20 30 / 50%)", color.NRGBA{10, 20, 30, 128}, ColorOK},
		{"rgb(100%, 0%, 0%)", color.NRGBA{255, 0, 0, 255}, ColorOK},
		{"hsl(120, 100%, 50%)", color.NRGBA{0, 255, 0, 255}, ColorOK},
		{"SteelBlue", color.NRGBA{70, 130, 180, 255}, ColorOK},
		{"transparent", color.NRGBA{}, ColorNone},
		{"", color.NRGBA{}, ColorNone},
		{"rgba(0, 0, 0, 0)", color.NRGBA{}, ColorNone},
		{"#12", color.NRGBA{}, ColorInvalid},
		{"notacolor", color.NRGBA{}, ColorInvalid},
		{"rgb(1, 2)", color.NRGBA{}, ColorInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, status := ParseColor(tc.in)
			if status != tc.status {
				t.Fatalf("status = %v, want %v", status, tc.status)
			}
			if status == ColorOK && got != tc.want {
				t.Fatalf("color = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseShadows(t *testing.T) {
	layers := ParseShadows("rgba(0, 0, 0, 0.5) 0px 4px 6px -1px, inset 1px 1px red")
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	first := layers[0]
	if first.OffsetX != 0 || first.OffsetY != 4 || first.Blur != 6 || first.Spread != -1 || first.Inset {
		t.Fatalf("unexpected first layer: %+v", first)
	}
	if _, status := ParseColor(first.Color); status != ColorOK {
		t.Fatalf("shadow color %q does not parse back", first.Color)
	}
	if !layers[1].Inset || layers[1].Color != "red" {
		t.Fatalf("unexpected second layer: %+v", layers[1])
	}
	if ParseShadows("none") != nil {
		t.Fatalf("none should give no layers")
	}
}

func TestParseGradientStops(t *testing.T) {
	g, err := ParseGradient("linear-gradient(to right, red 0%, blue 100%)", 200)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Kind != LinearGradient || g.Angle != 90 {
		t.Fatalf("unexpected kind/angle: %v %g", g.Kind, g.Angle)
	}
	if len(g.Stops) != 2 || g.Stops[0].Color != "red" || g.Stops[1].Pos != 1 {
		t.Fatalf("unexpected stops: %+v", g.Stops)
	}

	g, err = ParseGradient("linear-gradient(rgba(0, 0, 0, 0.5), #fff, blue 50px)", 100)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Angle != 180 {
		t.Fatalf("default angle should be 180, got %g", g.Angle)
	}
	if len(g.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %+v", g.Stops)
	}
	if math.Abs(g.Stops[1].Pos-0.25) > 1e-9 || math.Abs(g.Stops[2].Pos-0.5) > 1e-9 {
		t.Fatalf("positions not resolved: %+v", g.Stops)
	}
	if _, status := ParseColor(g.Stops[0].Color); status != ColorOK {
		t.Fatalf("function color %q does not parse back", g.Stops[0].Color)
	}

	g, err = ParseGradient("radial-gradient(circle at center, #000 10%, #fff)", 0)
	if err != nil {
		t.Fatalf("parse radial: %v", err)
	}
	if g.Kind != RadialGradient || len(g.Stops) != 2 {
		t.Fatalf("unexpected radial: %+v", g)
	}

	if _, err := ParseGradient("linear-gradient(", 0); err == nil {
		t.Fatalf("expected error for truncated gradient")
	}
}

func TestImageLayers(t *testing.T) {
	layers := ImageLayers(`linear-gradient(red, blue), url("img/a.png"), url(b.png)`)
	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %+v", layers)
	}
	if layers[0].Kind != LayerGradient {
		t.Fatalf("first layer should be a gradient: %+v", layers[0])
	}
	if layers[1].Kind != LayerURL || layers[1].Value != "img/a.png" {
		t.Fatalf("unexpected quoted url layer: %+v", layers[1])
	}
	if layers[2].Kind != LayerURL || layers[2].Value != "b.png" {
		t.Fatalf("unexpected bare url layer: %+v", layers[2])
	}
	if ImageLayers("none") != nil {
		t.Fatalf("none should give no layers")
	}
}
