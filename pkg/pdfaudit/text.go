package pdfaudit

import (
	"strconv"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

// Sampling bounds for the scanned-document heuristic: a document whose first
// pages extract almost no text is most likely a scan without a text layer.
const (
	textSamplePages   = 3
	minCharsPerSample = 50
)

func checkTextLayer(d *document) []audit.Violation {
	pages := d.reader.NumPage()
	if pages == 0 {
		return nil
	}
	sample := pages
	if sample > textSamplePages {
		sample = textSamplePages
	}

	chars := 0
	for i := 1; i <= sample; i++ {
		chars += len(extractPageText(d, i))
		if chars >= minCharsPerSample*sample {
			return nil
		}
	}

	return []audit.Violation{{
		RuleID:      "pdf-scanned-text",
		Severity:    severity.Serious,
		Message:     "Document yields almost no extractable text; it is likely a scan without a text layer.",
		Locator:     "pages 1-" + strconv.Itoa(sample),
		WCAG:        []string{"1.1.1"},
		Remediation: "Run OCR and tag the result, or publish the source document instead of a scan.",
	}}
}

func extractPageText(d *document, n int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
