package fonts

import (
	"bytes"
	"testing"

	"github.com/ByLCY/vellum/layout"
)

func TestLoadPortableFamilies(t *testing.T) {
	for _, family := range layout.PortableFamilies {
		for _, bold := range []bool{false, true} {
			for _, italic := range []bool{false, true} {
				data, err := Load(family, bold, italic)
				if err != nil || len(data) == 0 {
					t.Fatalf("%s: %v", VariantName(family, bold, italic), err)
				}
			}
		}
	}
	regular, _ := Load(layout.FamilySans, false, false)
	mono, _ := Load(layout.FamilyMono, false, false)
	if bytes.Equal(regular, mono) {
		t.Fatalf("monospace family must not reuse the proportional face")
	}
	if _, err := Load("Comic Sans MS", false, false); err == nil {
		t.Fatalf("families outside the portable set should fail")
	}
}

func TestVariantName(t *testing.T) {
	if got := VariantName("Arial", true, true); got != "Arial Bold Italic" {
		t.Fatalf("got %q", got)
	}
	if got := VariantName("Courier New", false, false); got != "Courier New" {
		t.Fatalf("got %q", got)
	}
}
