package webrules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

// WCAG 2.1 AA minimum contrast ratios (1.4.3).
const (
	minContrastNormal = 4.5
	minContrastLarge  = 3.0

	// Large text is >= 24px, or >= 18.66px when bold.
	largeTextPx     = 24.0
	largeTextBoldPx = 18.66
)

func init() {
	Register(Check{
		ID:      "color-contrast",
		Summary: "Text must have sufficient contrast against its background.",
		WCAG:    []string{"1.4.3"},
		Eval:    evalContrast,
	})
}

func evalContrast(p *Page) ([]audit.Violation, bool) {
	if !p.ContrastCollected {
		return nil, true
	}

	var out []audit.Violation
	for _, s := range p.Contrast {
		fg, okF := parseCSSColor(s.Foreground)
		bg, okB := parseCSSColor(s.Background)
		if !okF || !okB {
			continue
		}
		// Fully transparent text is invisible, not low contrast.
		if fg.a == 0 {
			continue
		}

		ratio := contrastRatio(fg.composite(bg), bg)
		min := minContrastNormal
		if s.FontSizePx >= largeTextPx || (s.Bold && s.FontSizePx >= largeTextBoldPx) {
			min = minContrastLarge
		}
		if ratio < min {
			out = append(out, audit.Violation{
				Severity: severity.Serious,
				Message:  fmt.Sprintf("Text contrast ratio %.2f is below the required %.1f.", ratio, min),
				Locator:  s.Selector,
			})
		}
	}
	return out, false
}

type rgba struct {
	r, g, b float64 // 0..255
	a       float64 // 0..1
}

// composite alpha-blends the color over an opaque background.
func (c rgba) composite(over rgba) rgba {
	if c.a >= 1 {
		return c
	}
	return rgba{
		r: c.r*c.a + over.r*(1-c.a),
		g: c.g*c.a + over.g*(1-c.a),
		b: c.b*c.a + over.b*(1-c.a),
		a: 1,
	}
}

var cssColorRE = regexp.MustCompile(`^rgba?\(\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*(?:,\s*([\d.]+)\s*)?\)$`)

// parseCSSColor handles the rgb()/rgba() serializations getComputedStyle
// produces. Browsers never return named colors or hex from computed style.
func parseCSSColor(s string) (rgba, bool) {
	m := cssColorRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return rgba{}, false
	}
	r, _ := strconv.ParseFloat(m[1], 64)
	g, _ := strconv.ParseFloat(m[2], 64)
	b, _ := strconv.ParseFloat(m[3], 64)
	a := 1.0
	if m[4] != "" {
		a, _ = strconv.ParseFloat(m[4], 64)
	}
	return rgba{r: r, g: g, b: b, a: a}, true
}

// relativeLuminance implements the WCAG sRGB luminance formula.
func relativeLuminance(c rgba) float64 {
	lin := func(v float64) float64 {
		v /= 255
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.r) + 0.7152*lin(c.g) + 0.0722*lin(c.b)
}

func contrastRatio(fg, bg rgba) float64 {
	l1 := relativeLuminance(fg)
	l2 := relativeLuminance(bg)
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05)
}
