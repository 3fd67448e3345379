package layout

import (
	"strings"

	"golang.org/x/text/cases"
)

// The portable font set. Encoders only ever see these three names.
const (
	FamilySans  = "Arial"
	FamilySerif = "Times New Roman"
	FamilyMono  = "Courier New"
)

// PortableFamilies lists the fixed set in a stable order.
var PortableFamilies = []string{FamilySans, FamilySerif, FamilyMono}

// familyTable 收录常见字体族到可移植字体的映射，键已做 case fold。
var familyTable = map[string]string{
	// sans
	"arial":              FamilySans,
	"helvetica":          FamilySans,
	"helvetica neue":     FamilySans,
	"inter":              FamilySans,
	"roboto":             FamilySans,
	"open sans":          FamilySans,
	"lato":               FamilySans,
	"montserrat":         FamilySans,
	"poppins":            FamilySans,
	"nunito":             FamilySans,
	"source sans pro":    FamilySans,
	"source sans 3":      FamilySans,
	"noto sans":          FamilySans,
	"segoe ui":           FamilySans,
	"verdana":            FamilySans,
	"tahoma":             FamilySans,
	"trebuchet ms":       FamilySans,
	"calibri":            FamilySans,
	"candara":            FamilySans,
	"gill sans":          FamilySans,
	"futura":             FamilySans,
	"avenir":             FamilySans,
	"system-ui":          FamilySans,
	"-apple-system":      FamilySans,
	"blinkmacsystemfont": FamilySans,
	"ui-sans-serif":      FamilySans,
	"sans-serif":         FamilySans,
	"raleway":            FamilySans,
	"ubuntu":             FamilySans,
	"work sans":          FamilySans,
	"dm sans":            FamilySans,
	"pingfang sc":        FamilySans,
	"microsoft yahei":    FamilySans,
	"noto sans sc":       FamilySans,
	"hiragino sans gb":   FamilySans,
	// serif
	"times":             FamilySerif,
	"times new roman":   FamilySerif,
	"georgia":           FamilySerif,
	"garamond":          FamilySerif,
	"eb garamond":       FamilySerif,
	"palatino":          FamilySerif,
	"palatino linotype": FamilySerif,
	"book antiqua":      FamilySerif,
	"cambria":           FamilySerif,
	"baskerville":       FamilySerif,
	"merriweather":      FamilySerif,
	"playfair display":  FamilySerif,
	"lora":              FamilySerif,
	"noto serif":        FamilySerif,
	"source serif pro":  FamilySerif,
	"ui-serif":          FamilySerif,
	"serif":             FamilySerif,
	"songti sc":         FamilySerif,
	"simsun":            FamilySerif,
	// mono
	"courier":         FamilyMono,
	"courier new":     FamilyMono,
	"consolas":        FamilyMono,
	"menlo":           FamilyMono,
	"monaco":          FamilyMono,
	"fira code":       FamilyMono,
	"fira mono":       FamilyMono,
	"jetbrains mono":  FamilyMono,
	"source code pro": FamilyMono,
	"sf mono":         FamilyMono,
	"ui-monospace":    FamilyMono,
	"monospace":       FamilyMono,
}

var (
	monoMarkers  = []string{"mono", "code", "courier", "console", "typewriter"}
	serifMarkers = []string{"serif", "roman", "times", "garamond", "song", "ming", "antiqua"}
)

// MapFont maps a computed font-family list to one of PortableFamilies. The
// first entry found in the table wins; otherwise substring markers on the
// first entry decide, and sans is the default.
func MapFont(family string) string {
	fold := cases.Fold()
	var first string
	for _, f := range strings.Split(family, ",") {
		name := fold.String(strings.Trim(strings.TrimSpace(f), `"'`))
		if name == "" {
			continue
		}
		if first == "" {
			first = name
		}
		if mapped, ok := familyTable[name]; ok {
			return mapped
		}
	}
	for _, m := range monoMarkers {
		if strings.Contains(first, m) {
			return FamilyMono
		}
	}
	// "sans-serif" 之类同时含 serif 的名字已在表中命中；这里排除剩余的 sans 变体。
	if !strings.Contains(first, "sans") {
		for _, m := range serifMarkers {
			if strings.Contains(first, m) {
				return FamilySerif
			}
		}
	}
	return FamilySans
}
