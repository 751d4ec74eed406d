package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityOrdering(t *testing.T) {
	ordered := AllSeverities()
	require.Len(t, ordered, 4)
	for i := 1; i < len(ordered); i++ {
		assert.Negative(t, CompareSeverity(ordered[i-1], ordered[i]),
			"%s should rank below %s", ordered[i-1], ordered[i])
	}
}

func TestSeverityAtLeast(t *testing.T) {
	tests := []struct {
		s    Severity
		min  Severity
		want bool
	}{
		{SeverityCritical, SeverityHigh, true},
		{SeverityHigh, SeverityHigh, true},
		{SeverityWarning, SeverityHigh, false},
		{SeverityInfo, SeverityWarning, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.s.AtLeast(tt.min), "%s at least %s", tt.s, tt.min)
	}
}

func TestParseSeverity(t *testing.T) {
	sev, err := ParseSeverity("warning")
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, sev)

	_, err = ParseSeverity("medium")
	require.Error(t, err)
}

func TestSeverityRankUnknown(t *testing.T) {
	assert.Equal(t, -1, Severity("bogus").Rank())
	assert.False(t, Severity("bogus").IsValid())
}
