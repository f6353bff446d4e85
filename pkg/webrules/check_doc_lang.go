package webrules

import (
	"strings"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

func init() {
	Register(Check{
		ID:      "doc-lang",
		Summary: "The document must declare its default language.",
		WCAG:    []string{"3.1.1"},
		Eval:    evalDocLang,
	})
}

func evalDocLang(p *Page) ([]audit.Violation, bool) {
	root := findFirst(p.Doc, "html")
	if root == nil {
		return nil, false
	}
	if strings.TrimSpace(attrVal(root, "lang")) != "" {
		return nil, false
	}
	return []audit.Violation{{
		Severity: severity.Serious,
		Message:  "Document has no lang attribute on the <html> element.",
		Locator:  "html",
	}}, false
}
