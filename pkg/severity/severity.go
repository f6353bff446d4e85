// Package severity provides the unified severity level definitions shared by
// the web and PDF evaluators. Both sources must emit one of the four defined
// levels; anything else is a defect in the evaluator, not a valid state.
package severity

import "strings"

// Level represents a severity level for accessibility violations.
type Level string

const (
	// Critical - Blocks access outright for assistive-technology users.
	Critical Level = "critical"

	// Serious - Severely degrades access; should be fixed urgently.
	Serious Level = "serious"

	// Moderate - Degrades the experience; fix in the normal cycle.
	Moderate Level = "moderate"

	// Minor - Cosmetic or low-impact issue.
	Minor Level = "minor"
)

// AllLevels returns all severity levels in order of priority (highest first).
func AllLevels() []Level {
	return []Level{Critical, Serious, Moderate, Minor}
}

// String returns the string representation of the severity level.
func (l Level) String() string {
	return string(l)
}

// Valid reports whether the level is one of the four defined levels.
func (l Level) Valid() bool {
	switch l {
	case Critical, Serious, Moderate, Minor:
		return true
	}
	return false
}

// Priority returns the numeric priority of the severity level.
// Higher numbers = higher priority.
func (l Level) Priority() int {
	switch l {
	case Critical:
		return 4
	case Serious:
		return 3
	case Moderate:
		return 2
	case Minor:
		return 1
	default:
		return 0
	}
}

// IsHigherThan returns true if this severity is higher than the other.
func (l Level) IsHigherThan(other Level) bool {
	return l.Priority() > other.Priority()
}

// IsAtLeast returns true if this severity is at least as high as the other.
func (l Level) IsAtLeast(other Level) bool {
	return l.Priority() >= other.Priority()
}

// FromString normalizes severity string formats from different evaluators to
// a standard Level. Handles axe-core impact names as well as the legacy
// high/medium/low scheme:
//   - axe-core: critical, serious, moderate, minor
//   - legacy heuristics: high, medium, low
func FromString(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "blocker":
		return Critical
	case "serious", "high", "severe", "error":
		return Serious
	case "moderate", "medium", "warning", "warn":
		return Moderate
	case "minor", "low", "info", "note":
		return Minor
	default:
		return Minor
	}
}

// Compare returns:
//
//	-1 if a < b (a is lower severity)
//	 0 if a == b
//	+1 if a > b (a is higher severity)
func Compare(a, b Level) int {
	pa, pb := a.Priority(), b.Priority()
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// Max returns the higher severity of two levels.
func Max(a, b Level) Level {
	if a.IsHigherThan(b) {
		return a
	}
	return b
}

// CountBySeverity counts violations by severity level.
type CountBySeverity struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Total    int `json:"total"`
}

// Increment increases the count for the given severity.
func (c *CountBySeverity) Increment(level Level) {
	c.Total++
	switch level {
	case Critical:
		c.Critical++
	case Serious:
		c.Serious++
	case Moderate:
		c.Moderate++
	case Minor:
		c.Minor++
	}
}

// HighestSeverity returns the highest severity level with a non-zero count,
// or Minor when the counter is empty.
func (c *CountBySeverity) HighestSeverity() Level {
	if c.Critical > 0 {
		return Critical
	}
	if c.Serious > 0 {
		return Serious
	}
	if c.Moderate > 0 {
		return Moderate
	}
	return Minor
}
