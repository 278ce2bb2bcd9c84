package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessCapability(t *testing.T) {
	data := []float64{9, 10, 11, 10, 9}
	result, err := ProcessCapability(data, 15, 5)
	require.NoError(t, err)

	assert.InDelta(t, 9.8, result.Mean, 1e-9)
	assert.InDelta(t, 0.83666, result.StdDev, 1e-4)

	// Cpk is the worse of the two one-sided indices.
	assert.Equal(t, result.Cpk, minFloat(result.Cpu, result.Cpl))
	assert.Less(t, result.Cpl, result.Cpu)
	assert.Positive(t, result.Cp)
	assert.Positive(t, result.Cpk)
	assert.InDelta(t, 3*result.Cpk, result.SigmaLevel, 1e-9)
	assert.Less(t, result.EstimatedDPMO, 1_000_000.0)
}

func TestProcessCapabilityInterpretation(t *testing.T) {
	tests := []struct {
		name string
		usl  float64
		lsl  float64
		want string
	}{
		{"wide limits are excellent", 20, 0, "excellent process capability (six sigma level)"},
		{"tight limits are poor", 10.5, 9.5, "poor process capability, improvement needed"},
	}

	data := []float64{9, 10, 11, 10, 9, 10, 10, 11, 9, 10}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ProcessCapability(data, tt.usl, tt.lsl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Interpretation)
		})
	}
}

func TestProcessCapabilityZeroVariance(t *testing.T) {
	result, err := ProcessCapability([]float64{5, 5, 5, 5}, 10, 0)
	assert.Nil(t, result)

	var zeroVar *ZeroVarianceError
	assert.True(t, errors.As(err, &zeroVar))
}

func TestProcessCapabilityInsufficientData(t *testing.T) {
	_, err := ProcessCapability([]float64{5}, 10, 0)

	var insufficientErr *InsufficientDataError
	assert.True(t, errors.As(err, &insufficientErr))
}

func TestDPMO(t *testing.T) {
	result, err := DPMO(15, 1000, 3)
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, result.DPMO, 1e-9)
	assert.InDelta(t, 0.005, result.DPO, 1e-12)
	assert.InDelta(t, 4.08, result.SigmaLevel, 0.01)
	assert.InDelta(t, 99.5, result.YieldPercentage, 1e-9)
	assert.Equal(t, "good", result.QualityLevel)
	assert.InDelta(t, 3000.0, result.TotalOpportunities, 1e-9)
}

func TestDPMODomainErrors(t *testing.T) {
	tests := []struct {
		name          string
		defects       float64
		units         float64
		opportunities float64
	}{
		{"negative defects", -1, 1000, 3},
		{"zero units", 10, 0, 3},
		{"zero opportunities", 10, 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DPMO(tt.defects, tt.units, tt.opportunities)

			var domainErr *DomainError
			assert.True(t, errors.As(err, &domainErr))
		})
	}
}

func TestSigmaDPMORoundTrip(t *testing.T) {
	for s := 0.0; s <= 6.0; s += 0.25 {
		dpmo := DPMOFromSigma(s)
		back := SigmaFromDPMO(dpmo)
		assert.InDeltaf(t, s, back, 1e-6, "sigma %v did not survive the round trip", s)
	}
}

func TestSigmaFromDPMOClamps(t *testing.T) {
	assert.Equal(t, 0.0, SigmaFromDPMO(1_000_000))
	assert.Equal(t, 0.0, SigmaFromDPMO(2_000_000))
	assert.Equal(t, 6.0, SigmaFromDPMO(0))
	assert.Equal(t, 6.0, SigmaFromDPMO(-5))

	// 3.4 DPMO is the textbook six sigma defect rate.
	assert.InDelta(t, 6.0, SigmaFromDPMO(3.4), 0.01)
}

func TestSigmaFromYield(t *testing.T) {
	result, err := SigmaFromYield(99.5)
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, result.DPMO, 1e-6)
	assert.InDelta(t, 4.08, result.SigmaLevel, 0.01)
	assert.InDelta(t, 0.005, result.DefectRate, 1e-12)

	_, err = SigmaFromYield(101)
	assert.Error(t, err)
	_, err = SigmaFromYield(-1)
	assert.Error(t, err)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
