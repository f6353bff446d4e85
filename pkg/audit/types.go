// Package audit defines the core data model of the accessibility audit
// engine and the Engine that drives a full run: extract structure, evaluate
// rules, aggregate a score, and persist the report artifact.
package audit

import (
	"sort"
	"time"

	"github.com/accesslens/accesslens/pkg/severity"
)

// Kind identifies the type of document being audited.
type Kind string

const (
	KindWeb Kind = "web"
	KindPDF Kind = "pdf"
)

// Status is the definite outcome of a run. A caller never receives an
// ambiguous empty result: ok with zero violations means "checked cleanly".
type Status string

const (
	// StatusOK - every applicable check ran to completion.
	StatusOK Status = "ok"

	// StatusPartial - one or more checks were skipped for missing
	// prerequisite data; the score covers what was found.
	StatusPartial Status = "partial"

	// StatusFailed - structure extraction failed; no checks ran.
	StatusFailed Status = "failed"
)

// Target is the immutable audit input: either a URL to render or raw PDF
// bytes with the uploaded filename.
type Target struct {
	Kind Kind `json:"kind"`

	// URL is set when Kind == KindWeb.
	URL string `json:"url,omitempty"`

	// PDF and Filename are set when Kind == KindPDF.
	PDF      []byte `json:"-"`
	Filename string `json:"filename,omitempty"`
}

// WebTarget builds a web audit target.
func WebTarget(url string) Target {
	return Target{Kind: KindWeb, URL: url}
}

// PDFTarget builds a PDF audit target.
func PDFTarget(data []byte, filename string) Target {
	return Target{Kind: KindPDF, PDF: data, Filename: filename}
}

// Name returns the human-readable identity of the target.
func (t Target) Name() string {
	if t.Kind == KindWeb {
		return t.URL
	}
	return t.Filename
}

// Violation is a single concrete accessibility issue. An evaluator creates
// it once and never mutates it afterwards.
type Violation struct {
	// RuleID identifies the check that produced this violation.
	RuleID string `json:"rule_id"`

	// Severity is one of the four defined levels.
	Severity severity.Level `json:"severity"`

	// Message is a human-readable description for non-technical reviewers.
	Message string `json:"message"`

	// Locator points at the offending element: a CSS selector for web
	// findings, a page/structure path for PDF findings.
	Locator string `json:"locator,omitempty"`

	// Source records which evaluator produced the violation.
	Source Kind `json:"source"`

	// WCAG lists the success criteria this check maps to (e.g. "1.1.1").
	WCAG []string `json:"wcag,omitempty"`

	// Remediation is a short fix hint.
	Remediation string `json:"remediation,omitempty"`
}

// Result is the outcome of one complete run against a single target.
// It is owned by the run that creates it, written once to the store, and
// read-only afterwards.
type Result struct {
	RunID      string      `json:"run_id,omitempty"`
	Target     Target      `json:"target"`
	Violations []Violation `json:"violations"`
	Score      int         `json:"score"`
	Status     Status      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`

	// SkippedChecks lists rule ids that could not run (missing prerequisite
	// data); non-empty implies StatusPartial.
	SkippedChecks []string `json:"skipped_checks,omitempty"`

	// Error describes why a failed run failed.
	Error string `json:"error,omitempty"`

	// PDFLinks lists PDF documents discovered on a rendered page, so the
	// caller can submit them as follow-up targets.
	PDFLinks []string `json:"pdf_links,omitempty"`
}

// Counts tallies the result's violations by severity.
func (r *Result) Counts() severity.CountBySeverity {
	var c severity.CountBySeverity
	for _, v := range r.Violations {
		c.Increment(v.Severity)
	}
	return c
}

// Summary is the compact listing shape persisted alongside the raw findings
// and returned by list endpoints.
type Summary struct {
	RunID      string    `json:"run_id"`
	Kind       Kind      `json:"kind"`
	Target     string    `json:"target"`
	Score      int       `json:"score"`
	Status     Status    `json:"status"`
	Violations int       `json:"violations"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Summarize derives the listing shape from a result.
func (r *Result) Summarize() Summary {
	return Summary{
		RunID:      r.RunID,
		Kind:       r.Target.Kind,
		Target:     r.Target.Name(),
		Score:      r.Score,
		Status:     r.Status,
		Violations: len(r.Violations),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

// SortViolations orders violations by severity (highest first), then rule id,
// then locator. Evaluator order never affects the presented output.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if c := severity.Compare(vs[i].Severity, vs[j].Severity); c != 0 {
			return c > 0
		}
		if vs[i].RuleID != vs[j].RuleID {
			return vs[i].RuleID < vs[j].RuleID
		}
		return vs[i].Locator < vs[j].Locator
	})
}
