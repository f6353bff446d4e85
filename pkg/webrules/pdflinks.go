package webrules

import (
	"net/url"
	"strings"
)

// FindPDFLinks collects the href targets of anchors pointing at PDF
// documents, resolved against the page URL and deduplicated in document
// order. Queries and fragments are ignored when deciding whether a link is a
// PDF.
func (p *Page) FindPDFLinks() []string {
	base, err := url.Parse(p.URL)
	if err != nil {
		base = nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, a := range findAll(p.Doc, "a") {
		href := strings.TrimSpace(attrVal(a, "href"))
		if href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(ref.Path), ".pdf") {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			continue
		}
		abs := ref.String()
		if !seen[abs] {
			seen[abs] = true
			out = append(out, abs)
		}
	}
	return out
}
