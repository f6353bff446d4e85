package pdfaudit

import (
	"fmt"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

// checkFonts flags every distinct font used without an embedded font
// program. Type3 fonts define their glyphs inline and are always considered
// embedded.
func checkFonts(d *document) []audit.Violation {
	unembedded := make(map[string]bool)
	for i := 1; i <= d.reader.NumPage(); i++ {
		page := d.reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := page.Resources().Key("Font")
		for _, name := range fonts.Keys() {
			font := fonts.Key(name)
			base := font.Key("BaseFont").Name()
			if base == "" {
				base = name
			}
			if !isFontEmbedded(font) {
				unembedded[base] = true
			}
		}
	}

	names := make([]string, 0, len(unembedded))
	for n := range unembedded {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]audit.Violation, 0, len(names))
	for _, n := range names {
		out = append(out, audit.Violation{
			RuleID:      "pdf-font-embed",
			Severity:    severity.Moderate,
			Message:     fmt.Sprintf("Font %q is not embedded in the document.", n),
			Locator:     "font " + n,
			WCAG:        []string{"1.3.1"},
			Remediation: "Embed all fonts so text renders and extracts reliably.",
		})
	}
	return out
}

func isFontEmbedded(font pdf.Value) bool {
	if font.Kind() != pdf.Dict {
		return false
	}
	if font.Key("Subtype").Name() == "Type3" {
		return true
	}
	if descriptorHasFontFile(font.Key("FontDescriptor")) {
		return true
	}
	// Composite fonts keep their descriptor on the descendant CIDFont.
	if font.Key("Subtype").Name() == "Type0" {
		desc := font.Key("DescendantFonts")
		for i := 0; i < desc.Len(); i++ {
			if descriptorHasFontFile(desc.Index(i).Key("FontDescriptor")) {
				return true
			}
		}
	}
	return false
}

func descriptorHasFontFile(fd pdf.Value) bool {
	if fd.Kind() != pdf.Dict {
		return false
	}
	for _, key := range []string{"FontFile", "FontFile2", "FontFile3"} {
		if !fd.Key(key).IsNull() {
			return true
		}
	}
	return false
}
