package webrules

import (
	"strings"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

func init() {
	Register(Check{
		ID:      "img-alt",
		Summary: "Images must have alternative text.",
		WCAG:    []string{"1.1.1"},
		Eval:    evalImgAlt,
	})
}

func evalImgAlt(p *Page) ([]audit.Violation, bool) {
	var out []audit.Violation
	for _, img := range findAll(p.Doc, "img") {
		if isHiddenFromTree(img) {
			continue
		}
		alt, has := attr(img, "alt")
		// alt="" is a deliberate decorative marker; only a truly absent or
		// whitespace-only value is a failure.
		if has && alt == "" {
			continue
		}
		if !has || strings.TrimSpace(alt) == "" {
			out = append(out, audit.Violation{
				Severity: severity.Critical,
				Message:  "Image has no alt attribute describing its content.",
				Locator:  locator(img),
			})
		}
	}
	return out, false
}
