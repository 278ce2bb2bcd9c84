package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaktTime(t *testing.T) {
	result, err := TaktTime(480, 240)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, result.TaktTimeMinutes, 1e-9)
	assert.InDelta(t, 480.0, result.AvailableMinutes, 1e-9)
	assert.InDelta(t, 240.0, result.DemandUnits, 1e-9)
}

func TestTaktTimeDomainErrors(t *testing.T) {
	_, err := TaktTime(0, 100)
	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))

	_, err = TaktTime(480, 0)
	assert.True(t, errors.As(err, &domainErr))
}

func TestLeadTimeBreakdown(t *testing.T) {
	result, err := LeadTimeBreakdown(2, 6, 2)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, result.TotalLeadTime, 1e-9)
	assert.InDelta(t, 20.0, result.ProcessingPct, 1e-9)
	assert.InDelta(t, 60.0, result.QueuePct, 1e-9)
	assert.InDelta(t, 20.0, result.TransportPct, 1e-9)
	assert.InDelta(t, 20.0, result.ValueAddedPct, 1e-9)
}

func TestLeadTimeBreakdownDomainErrors(t *testing.T) {
	_, err := LeadTimeBreakdown(-1, 5, 5)
	assert.Error(t, err)

	_, err = LeadTimeBreakdown(0, 0, 0)
	assert.Error(t, err)
}
