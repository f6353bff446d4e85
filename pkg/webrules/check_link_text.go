package webrules

import (
	"fmt"
	"strings"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

// genericLinkTexts never describe a destination on their own.
var genericLinkTexts = map[string]bool{
	"click here": true,
	"read more":  true,
	"more":       true,
	"here":       true,
	"link":       true,
	"learn more": true,
}

func init() {
	Register(Check{
		ID:      "link-text",
		Summary: "Links must have text that describes their destination.",
		WCAG:    []string{"2.4.4"},
		Eval:    evalLinkText,
	})
}

func evalLinkText(p *Page) ([]audit.Violation, bool) {
	var out []audit.Violation
	for _, a := range findAll(p.Doc, "a") {
		if _, hasHref := attr(a, "href"); !hasHref {
			continue
		}
		if isHiddenFromTree(a) {
			continue
		}

		name := strings.TrimSpace(attrVal(a, "aria-label"))
		if name == "" {
			name = textContent(a)
		}
		if name == "" {
			// An image child with alt text still names the link.
			for _, img := range findAll(a, "img") {
				if alt := strings.TrimSpace(attrVal(img, "alt")); alt != "" {
					name = alt
					break
				}
			}
		}

		switch {
		case name == "":
			out = append(out, audit.Violation{
				Severity: severity.Serious,
				Message:  "Link has no accessible name.",
				Locator:  locator(a),
			})
		case genericLinkTexts[strings.ToLower(name)]:
			out = append(out, audit.Violation{
				Severity: severity.Moderate,
				Message:  fmt.Sprintf("Link text %q does not describe the destination.", name),
				Locator:  locator(a),
			})
		}
	}
	return out, false
}
