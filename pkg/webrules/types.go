// Package webrules holds the fixed catalogue of accessibility checks run
// against a rendered page snapshot. Checks register themselves at init time,
// one file per check.
package webrules

import (
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/render"
)

// Page is the evaluation input: the parsed document plus the optional
// computed-style samples collected during rendering.
type Page struct {
	URL      string
	Doc      *html.Node
	Contrast []render.ContrastSample

	// ContrastCollected reports whether the renderer sampled computed
	// styles at all; without it the contrast check must be skipped.
	ContrastCollected bool
}

// NewPage adapts a render snapshot for evaluation.
func NewPage(snap *render.Snapshot) *Page {
	return &Page{
		URL:               snap.URL,
		Doc:               snap.Doc,
		Contrast:          snap.Contrast,
		ContrastCollected: snap.ContrastCollected,
	}
}

// Check is a single accessibility check over a page.
type Check struct {
	ID      string
	Summary string
	WCAG    []string
	// Eval returns the violations found, or skipped=true when the check
	// cannot run on this page (missing renderer data, not a defect).
	Eval func(p *Page) (violations []audit.Violation, skipped bool)
}

var (
	registry   []Check
	checkIndex = map[string]int{} // lower(checkID) -> index
)

func Register(c Check) {
	registry = append(registry, c)
	checkIndex[strings.ToLower(strings.TrimSpace(c.ID))] = len(registry) - 1
}

// List returns the registered checks in stable ID order.
func List() []Check {
	out := make([]Check, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a check by ID if registered.
func Get(id string) (Check, bool) {
	idx, ok := checkIndex[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Check{}, false
	}
	return registry[idx], true
}

// Evaluate runs every registered check against the page and returns the
// violations in stable order plus the IDs of any checks that were skipped.
func Evaluate(p *Page) ([]audit.Violation, []string) {
	var all []audit.Violation
	var skipped []string

	for _, check := range List() {
		vs, skip := check.Eval(p)
		if skip {
			skipped = append(skipped, check.ID)
			continue
		}
		for i := range vs {
			if vs[i].RuleID == "" {
				vs[i].RuleID = check.ID
			}
			vs[i].Source = audit.KindWeb
			if len(vs[i].WCAG) == 0 {
				vs[i].WCAG = check.WCAG
			}
			if vs[i].Remediation == "" {
				vs[i].Remediation = RemediationFor(vs[i].RuleID)
			}
		}
		all = append(all, vs...)
	}

	audit.SortViolations(all)
	return all, skipped
}
