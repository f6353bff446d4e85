// Package pdfaudit checks PDF documents for structural accessibility
// problems: tagging, figure alternatives, font embedding, language and title
// metadata, and text-layer heuristics for scanned documents.
package pdfaudit

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/logging"
	"github.com/accesslens/accesslens/pkg/severity"
)

// Auditor runs the fixed catalogue of PDF checks.
type Auditor struct {
	log logging.Logger
}

func NewAuditor(log logging.Logger) *Auditor {
	return &Auditor{log: logging.OrNop(log)}
}

// Audit parses the document and returns its violations in stable order. A
// byte stream that cannot be parsed as PDF structure at all fails with an
// unreadable-pdf error rather than violations.
func (a *Auditor) Audit(data []byte) (vs []audit.Violation, err error) {
	const op = "pdfaudit.Audit"

	// The parser panics on malformed cross-reference tables and object
	// streams; treat any panic as an unreadable document.
	defer func() {
		if r := recover(); r != nil {
			vs = nil
			err = errors.E(errors.KindUnreadablePDF, op, fmt.Sprintf("parse pdf: %v", r))
		}
	}()

	if len(data) == 0 {
		return nil, errors.E(errors.KindUnreadablePDF, op, "empty document")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.E(errors.KindUnreadablePDF, op, "parse pdf", err)
	}

	doc := &document{reader: r, trailer: r.Trailer()}

	vs = append(vs, checkTagging(doc)...)
	if doc.tagged {
		vs = append(vs, checkFigureAlt(doc)...)
		vs = append(vs, checkReadingOrder(doc)...)
	}
	vs = append(vs, checkFonts(doc)...)
	vs = append(vs, checkLang(doc)...)
	vs = append(vs, checkTitle(doc)...)
	vs = append(vs, checkTextLayer(doc)...)

	for i := range vs {
		vs[i].Source = audit.KindPDF
	}
	audit.SortViolations(vs)

	a.log.Debug("pdf audit: pages=%d tagged=%v violations=%d", r.NumPage(), doc.tagged, len(vs))
	return vs, nil
}

// document carries parse state shared between checks.
type document struct {
	reader  *pdf.Reader
	trailer pdf.Value
	tagged  bool
}

func (d *document) catalog() pdf.Value { return d.trailer.Key("Root") }

// checkTagging reports a single critical violation for an untagged document.
// Untagged means no structure tree, or a MarkInfo that does not declare the
// document marked.
func checkTagging(d *document) []audit.Violation {
	catalog := d.catalog()
	structTree := catalog.Key("StructTreeRoot")
	marked := catalog.Key("MarkInfo").Key("Marked")

	d.tagged = !structTree.IsNull() && marked.Kind() == pdf.Bool && marked.Bool()
	if d.tagged {
		return nil
	}
	return []audit.Violation{{
		RuleID:      "pdf-untagged",
		Severity:    severity.Critical,
		Message:     "Document has no tag tree; assistive technology cannot determine its structure.",
		Locator:     "catalog",
		WCAG:        []string{"1.3.1"},
		Remediation: "Export the document with tagging enabled or remediate it with a tagging tool.",
	}}
}

func checkLang(d *document) []audit.Violation {
	if lang := d.catalog().Key("Lang"); lang.Kind() == pdf.String && lang.Text() != "" {
		return nil
	}
	return []audit.Violation{{
		RuleID:      "pdf-doc-lang",
		Severity:    severity.Serious,
		Message:     "Document declares no language in its catalog.",
		Locator:     "catalog",
		WCAG:        []string{"3.1.1"},
		Remediation: "Set the document language (e.g., /Lang (en-GB)) in the document catalog.",
	}}
}

func checkTitle(d *document) []audit.Violation {
	if title := d.trailer.Key("Info").Key("Title"); title.Kind() == pdf.String && title.Text() != "" {
		return nil
	}
	return []audit.Violation{{
		RuleID:      "pdf-doc-title",
		Severity:    severity.Minor,
		Message:     "Document has no Title metadata.",
		Locator:     "info dictionary",
		WCAG:        []string{"2.4.6"},
		Remediation: "Set a descriptive Title in the document properties.",
	}}
}
