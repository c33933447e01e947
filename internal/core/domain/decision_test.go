package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecision_Clamp(t *testing.T) {
	t.Run("consistent decision is untouched", func(t *testing.T) {
		d := Decision{
			SafetyScore: 85,
			Alerts: []Alert{
				{Severity: SeverityLow, Title: "minor labelling change"},
			},
		}

		warnings := d.Clamp()

		assert.Empty(t, warnings)
		assert.Equal(t, 85, d.SafetyScore)
	})

	t.Run("critical alert caps a high score", func(t *testing.T) {
		d := Decision{
			SafetyScore: 95,
			Alerts: []Alert{
				{Severity: SeverityCritical, Title: "drug recalled"},
				{Severity: SeverityLow, Title: "dosage note"},
			},
		}

		warnings := d.Clamp()

		assert.Len(t, warnings, 1)
		assert.Equal(t, 20, d.SafetyScore)
	})

	t.Run("score below range is raised to zero", func(t *testing.T) {
		d := Decision{SafetyScore: -5}

		warnings := d.Clamp()

		assert.Len(t, warnings, 1)
		assert.Equal(t, 0, d.SafetyScore)
	})

	t.Run("score above range without alerts is lowered to 100", func(t *testing.T) {
		d := Decision{SafetyScore: 140}

		warnings := d.Clamp()

		assert.Len(t, warnings, 1)
		assert.Equal(t, 100, d.SafetyScore)
	})

	t.Run("high alert cap applies when no critical present", func(t *testing.T) {
		d := Decision{
			SafetyScore: 80,
			Alerts:      []Alert{{Severity: SeverityHigh, Title: "new interaction"}},
		}

		d.Clamp()

		assert.Equal(t, 45, d.SafetyScore)
	})
}

func TestDecision_MaxSeverity(t *testing.T) {
	t.Run("no alerts means info", func(t *testing.T) {
		d := Decision{SafetyScore: 100}
		assert.Equal(t, SeverityInfo, d.MaxSeverity())
	})

	t.Run("picks the most severe alert", func(t *testing.T) {
		d := Decision{Alerts: []Alert{
			{Severity: SeverityMedium},
			{Severity: SeverityCritical},
			{Severity: SeverityLow},
		}}
		assert.Equal(t, SeverityCritical, d.MaxSeverity())
	})
}

func TestParseSeverity(t *testing.T) {
	t.Run("round-trips known labels", func(t *testing.T) {
		for _, sev := range []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
			assert.Equal(t, sev, ParseSeverity(sev.String()))
		}
	})

	t.Run("unknown label degrades to info", func(t *testing.T) {
		assert.Equal(t, SeverityInfo, ParseSeverity("catastrophic"))
	})
}
