package domain

import "fmt"

// Severity ranks an alert. Higher ordinal means more severe.
type Severity int

const (
	// SeverityInfo is informational, no action required.
	SeverityInfo Severity = iota

	// SeverityLow indicates a minor concern.
	SeverityLow

	// SeverityMedium indicates a concern that should be reviewed.
	SeverityMedium

	// SeverityHigh indicates a serious concern requiring prompt review.
	SeverityHigh

	// SeverityCritical indicates an immediate safety risk.
	SeverityCritical
)

// severityNames maps severities to their wire labels.
var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

// String returns the severity wire label.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseSeverity converts a wire label to a Severity.
// Unknown labels map to SeverityInfo so a sloppy capability output degrades
// rather than fails.
func ParseSeverity(label string) Severity {
	for sev, name := range severityNames {
		if name == label {
			return sev
		}
	}
	return SeverityInfo
}

// severityScoreCaps bounds the safety score in the presence of alerts at a
// given maximum severity. A decision claiming a high safety score while
// carrying a critical alert is internally inconsistent and gets clamped.
var severityScoreCaps = map[Severity]int{
	SeverityCritical: 20,
	SeverityHigh:     45,
	SeverityMedium:   70,
	SeverityLow:      90,
	SeverityInfo:     100,
}

// Alert is one issue raised by a completed reasoning session.
type Alert struct {
	// Severity ranks the alert.
	Severity Severity

	// Title is a short human-readable summary.
	Title string

	// Description explains the concern and its evidence.
	Description string

	// AffectedEntities lists the entities (drugs, patients, documents) the
	// alert concerns. Every entry must have appeared in a retrieval or tool
	// step of the owning session.
	AffectedEntities []string
}

// Decision is the structured output of a completed reasoning session.
type Decision struct {
	// SafetyScore is in [0, 100]; 100 means no concern found.
	SafetyScore int

	// Alerts is ordered most severe first.
	Alerts []Alert

	// Summary is a one-paragraph explanation of the decision.
	Summary string
}

// MaxSeverity returns the highest severity among the decision's alerts,
// or SeverityInfo when there are none.
func (d *Decision) MaxSeverity() Severity {
	maxSev := SeverityInfo
	for _, a := range d.Alerts {
		if a.Severity > maxSev {
			maxSev = a.Severity
		}
	}
	return maxSev
}

// Clamp enforces score consistency: the score is forced into [0, 100] and
// capped by the most severe alert present. It returns warnings describing
// each correction; an empty slice means the decision was already consistent.
func (d *Decision) Clamp() []string {
	var warnings []string

	if d.SafetyScore < 0 {
		warnings = append(warnings, fmt.Sprintf("safety score %d below range, raised to 0", d.SafetyScore))
		d.SafetyScore = 0
	}
	if d.SafetyScore > 100 {
		warnings = append(warnings, fmt.Sprintf("safety score %d above range, lowered to 100", d.SafetyScore))
		d.SafetyScore = 100
	}

	if cap, ok := severityScoreCaps[d.MaxSeverity()]; ok && d.SafetyScore > cap {
		warnings = append(warnings, fmt.Sprintf(
			"safety score %d inconsistent with %s alert, capped to %d",
			d.SafetyScore, d.MaxSeverity(), cap))
		d.SafetyScore = cap
	}

	return warnings
}
