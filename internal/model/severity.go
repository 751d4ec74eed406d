package model

import "github.com/rotisserie/eris"

// Severity classifies how serious a validation issue is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for comparison. Higher rank is more severe.
var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// IsValid reports whether s is a known severity level.
func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the numeric rank of s. Unknown severities rank below info.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// AtLeast reports whether s is as severe as min or more.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// CompareSeverity returns a negative, zero, or positive value as a is less
// severe than, equal to, or more severe than b.
func CompareSeverity(a, b Severity) int {
	return a.Rank() - b.Rank()
}

// ParseSeverity parses a string into a Severity value.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", eris.Errorf("model: invalid severity %q", s)
	}
	return sev, nil
}

// AllSeverities returns the severity levels ordered from least to most severe.
func AllSeverities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityHigh, SeverityCritical}
}
