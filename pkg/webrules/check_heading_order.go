package webrules

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

func init() {
	Register(Check{
		ID:      "heading-order",
		Summary: "Heading levels must not skip more than one level.",
		WCAG:    []string{"1.3.1", "2.4.6"},
		Eval:    evalHeadingOrder,
	})
}

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

func evalHeadingOrder(p *Page) ([]audit.Violation, bool) {
	var out []audit.Violation
	last := 1
	walk(p.Doc, func(n *html.Node) bool {
		level, ok := headingLevels[n.Data]
		if !ok {
			return true
		}
		if level > last+1 {
			out = append(out, audit.Violation{
				Severity: severity.Moderate,
				Message:  fmt.Sprintf("Heading level jumps from h%d to h%d.", last, level),
				Locator:  locator(n),
			})
		}
		last = level
		return true
	})
	return out, false
}
