package webrules

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

func init() {
	Register(Check{
		ID:      "form-labels",
		Summary: "Form controls must have an accessible label.",
		WCAG:    []string{"3.3.2"},
		Eval:    evalFormLabels,
	})
}

// Input types that provide their own accessible name or are invisible.
var selfLabeledInputTypes = map[string]bool{
	"hidden": true,
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

func evalFormLabels(p *Page) ([]audit.Violation, bool) {
	labeledIDs := make(map[string]bool)
	for _, lbl := range findAll(p.Doc, "label") {
		if forID := attrVal(lbl, "for"); forID != "" {
			labeledIDs[forID] = true
		}
	}

	var out []audit.Violation
	for _, el := range findAll(p.Doc, "input", "select", "textarea") {
		if el.Data == "input" && selfLabeledInputTypes[strings.ToLower(attrVal(el, "type"))] {
			continue
		}
		if isHiddenFromTree(el) {
			continue
		}
		if hasAccessibleLabel(el, labeledIDs) {
			continue
		}
		out = append(out, audit.Violation{
			Severity: severity.Critical,
			Message:  "Form control has no associated label, aria-label, or aria-labelledby.",
			Locator:  locator(el),
		})
	}
	return out, false
}

func hasAccessibleLabel(el *html.Node, labeledIDs map[string]bool) bool {
	if id := attrVal(el, "id"); id != "" && labeledIDs[id] {
		return true
	}
	if strings.TrimSpace(attrVal(el, "aria-label")) != "" {
		return true
	}
	if attrVal(el, "aria-labelledby") != "" {
		return true
	}
	if strings.TrimSpace(attrVal(el, "title")) != "" {
		return true
	}
	// Implicit labeling: a label ancestor wraps the control.
	for cur := el.Parent; cur != nil; cur = cur.Parent {
		if isElement(cur, "label") {
			return true
		}
	}
	return false
}
