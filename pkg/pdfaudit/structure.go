package pdfaudit

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

// maxStructDepth bounds the tag tree walk; real documents nest far shallower
// and a malformed tree must not recurse forever.
const maxStructDepth = 64

// checkFigureAlt walks the tag tree and flags Figure elements carrying
// neither Alt nor ActualText.
func checkFigureAlt(d *document) []audit.Violation {
	var out []audit.Violation
	walkStructTree(d.catalog().Key("StructTreeRoot").Key("K"), 0, func(elem pdf.Value, path string) {
		if elem.Key("S").Name() != "Figure" {
			return
		}
		if hasText(elem.Key("Alt")) || hasText(elem.Key("ActualText")) {
			return
		}
		out = append(out, audit.Violation{
			RuleID:      "pdf-figure-alt",
			Severity:    severity.Serious,
			Message:     "Tagged figure has no alternative text.",
			Locator:     path,
			WCAG:        []string{"1.1.1"},
			Remediation: "Provide text alternatives for non-text content.",
		})
	})
	return out
}

// walkStructTree visits every structure element dictionary reachable through
// K entries. K may hold a single element, an array mixing elements and
// marked-content IDs, or an integer leaf.
func walkStructTree(k pdf.Value, depth int, visit func(elem pdf.Value, path string)) {
	var walk func(v pdf.Value, depth int, path string)
	walk = func(v pdf.Value, depth int, path string) {
		if depth > maxStructDepth {
			return
		}
		switch v.Kind() {
		case pdf.Array:
			for i := 0; i < v.Len(); i++ {
				walk(v.Index(i), depth+1, fmt.Sprintf("%s[%d]", path, i))
			}
		case pdf.Dict:
			if s := v.Key("S").Name(); s != "" {
				path = path + "/" + s
				visit(v, path)
			}
			walk(v.Key("K"), depth+1, path)
		}
	}
	walk(k, depth, "structtree")
}

func hasText(v pdf.Value) bool {
	return v.Kind() == pdf.String && v.Text() != ""
}

// checkReadingOrder is a coarse layout heuristic: within a page, text drawn
// in content-stream order should flow top to bottom. A high share of upward
// jumps suggests the stream order (which tag order usually follows) diverges
// from the visual order a sighted reader sees.
func checkReadingOrder(d *document) []audit.Violation {
	const (
		minItems     = 20
		jumpFraction = 0.30
	)

	var out []audit.Violation
	for i := 1; i <= d.reader.NumPage(); i++ {
		page := d.reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		texts := pageTexts(page)
		if len(texts) < minItems {
			continue
		}

		jumps := 0
		for j := 1; j < len(texts); j++ {
			prev, cur := texts[j-1], texts[j]
			// PDF y grows upward; moving up by more than a line while not
			// starting a new column counts as a jump.
			if cur.Y > prev.Y+prev.FontSize*1.5 && cur.X <= prev.X {
				jumps++
			}
		}
		if float64(jumps)/float64(len(texts)-1) > jumpFraction {
			out = append(out, audit.Violation{
				RuleID:      "pdf-reading-order",
				Severity:    severity.Moderate,
				Message:     "Text drawing order diverges from the visual top-to-bottom order.",
				Locator:     fmt.Sprintf("page %d", i),
				WCAG:        []string{"1.3.2"},
				Remediation: "Fix the tag tree reading order so content is announced in visual order.",
			})
		}
	}
	return out
}

func pageTexts(page pdf.Page) (texts []pdf.Text) {
	// Content parsing shares the reader's panic behavior on malformed
	// streams; an unparseable page contributes no heuristic signal.
	defer func() {
		if recover() != nil {
			texts = nil
		}
	}()
	return page.Content().Text
}
