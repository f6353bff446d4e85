// Package score aggregates heterogeneous violation sets into one comparable
// 0-100 heuristic score. The score is an ordinal indicator ("better/worse"),
// not a normative compliance measure.
package score

import (
	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/severity"
)

// Per-severity penalties subtracted from the 100-point baseline.
const (
	PenaltyCritical = 25
	PenaltySerious  = 10
	PenaltyModerate = 4
	PenaltyMinor    = 1
)

// Penalty returns the fixed deduction for one violation of the given level.
func Penalty(l severity.Level) int {
	switch l {
	case severity.Critical:
		return PenaltyCritical
	case severity.Serious:
		return PenaltySerious
	case severity.Moderate:
		return PenaltyModerate
	case severity.Minor:
		return PenaltyMinor
	default:
		return 0
	}
}

// Calibration holds the per-kind scaling constants applied to the total
// penalty. The web and PDF heuristics share a 100-point baseline; a scale
// other than 1.0 recalibrates one source against the other.
type Calibration struct {
	WebScale float64 `yaml:"web_scale" json:"web_scale"`
	PDFScale float64 `yaml:"pdf_scale" json:"pdf_scale"`
}

// DefaultCalibration returns the identity calibration.
func DefaultCalibration() Calibration {
	return Calibration{WebScale: 1.0, PDFScale: 1.0}
}

func (c Calibration) scale(kind audit.Kind) float64 {
	var s float64
	switch kind {
	case audit.KindWeb:
		s = c.WebScale
	case audit.KindPDF:
		s = c.PDFScale
	}
	if s <= 0 {
		s = 1.0
	}
	return s
}

// Aggregator computes scores under a fixed calibration.
type Aggregator struct {
	cal Calibration
}

// NewAggregator creates an aggregator. A zero calibration falls back to 1.0
// scaling for both kinds.
func NewAggregator(cal Calibration) *Aggregator {
	return &Aggregator{cal: cal}
}

// Score computes the heuristic score for a violation set: start at 100,
// subtract the scaled per-severity penalties, floor at 0. It is a pure
// function of its inputs; identical violations and kind always yield the
// identical score.
func (a *Aggregator) Score(violations []audit.Violation, kind audit.Kind) int {
	total := 0
	for _, v := range violations {
		total += Penalty(v.Severity)
	}

	scaled := int(float64(total) * a.cal.scale(kind))
	s := 100 - scaled
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// Score computes the heuristic score using the default calibration.
func Score(violations []audit.Violation, kind audit.Kind) int {
	return NewAggregator(DefaultCalibration()).Score(violations, kind)
}

// CompareRuns ranks two results. It returns a positive value when a ranks
// better than b, negative when worse, zero when indistinguishable. Ties on
// score break by raw violation count (fewer is better), then by the earliest
// critical violation's rule id (later-sorting id is better; no criticals
// beats any critical).
func CompareRuns(a, b *audit.Result) int {
	if a.Score != b.Score {
		return a.Score - b.Score
	}
	if len(a.Violations) != len(b.Violations) {
		return len(b.Violations) - len(a.Violations)
	}

	ca, cb := firstCriticalRule(a), firstCriticalRule(b)
	switch {
	case ca == cb:
		return 0
	case ca == "":
		return 1
	case cb == "":
		return -1
	case ca > cb:
		return 1
	default:
		return -1
	}
}

// firstCriticalRule returns the rule id of the first critical violation in
// presentation order, or "" when the run has none. Violations are kept
// sorted by severity then rule id, so the first critical is also the
// earliest-sorting one.
func firstCriticalRule(r *audit.Result) string {
	for _, v := range r.Violations {
		if v.Severity == severity.Critical {
			return v.RuleID
		}
	}
	return ""
}
