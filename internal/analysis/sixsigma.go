package analysis

import (
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CapabilityResult holds the process capability indices for a sample against
// upper and lower specification limits.
type CapabilityResult struct {
	Cp             float64 `json:"cp"`
	Cpk            float64 `json:"cpk"`
	Cpu            float64 `json:"cpu"`
	Cpl            float64 `json:"cpl"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	SpecRange      float64 `json:"spec_range"`
	ProcessRange   float64 `json:"process_range"`
	SigmaLevel     float64 `json:"sigma_level"`
	EstimatedDPMO  float64 `json:"estimated_dpmo"`
	Interpretation string  `json:"interpretation"`
}

// ProcessCapability computes Cp, Cpu, Cpl and Cpk for a sample against the
// given specification limits, using the Bessel-corrected sample deviation.
// The Cpk is converted to an estimated sigma level and defect rate.
func ProcessCapability(data []float64, usl, lsl float64) (*CapabilityResult, error) {
	if len(data) < 2 {
		return nil, &InsufficientDataError{Op: "process_capability", Required: 2, Got: len(data)}
	}

	mean := stat.Mean(data, nil)
	std := stat.StdDev(data, nil)
	if std == 0 {
		return nil, &ZeroVarianceError{Op: "process_capability"}
	}

	cp := (usl - lsl) / (6 * std)
	cpu := (usl - mean) / (3 * std)
	cpl := (mean - lsl) / (3 * std)
	cpk := cpu
	if cpl < cpu {
		cpk = cpl
	}

	var interpretation string
	switch {
	case cpk >= 2.0:
		interpretation = "excellent process capability (six sigma level)"
	case cpk >= 1.33:
		interpretation = "good process capability"
	case cpk >= 1.0:
		interpretation = "marginal process capability"
	default:
		interpretation = "poor process capability, improvement needed"
	}

	sigmaLevel := 0.0
	estimatedDPMO := 1_000_000.0
	if cpk > 0 {
		sigmaLevel = 3 * cpk
		estimatedDPMO = DPMOFromSigma(sigmaLevel)
	}

	return &CapabilityResult{
		Cp:             cp,
		Cpk:            cpk,
		Cpu:            cpu,
		Cpl:            cpl,
		Mean:           mean,
		StdDev:         std,
		SpecRange:      usl - lsl,
		ProcessRange:   6 * std,
		SigmaLevel:     sigmaLevel,
		EstimatedDPMO:  estimatedDPMO,
		Interpretation: interpretation,
	}, nil
}

// DPMOResult holds the defects-per-million-opportunities figures and the
// sigma level they translate to.
type DPMOResult struct {
	DPMO               float64 `json:"dpmo"`
	DPO                float64 `json:"dpo"`
	SigmaLevel         float64 `json:"sigma_level"`
	YieldPercentage    float64 `json:"yield_percentage"`
	QualityLevel       string  `json:"quality_level"`
	TotalOpportunities float64 `json:"total_opportunities"`
}

// DPMO computes defects per million opportunities from observed defects over
// units with a fixed number of defect opportunities per unit.
func DPMO(defects, units, opportunitiesPerUnit float64) (*DPMOResult, error) {
	if defects < 0 {
		return nil, &DomainError{Op: "dpmo", Reason: "defects must not be negative"}
	}
	if units <= 0 {
		return nil, &DomainError{Op: "dpmo", Reason: "units must be positive"}
	}
	if opportunitiesPerUnit < 1 {
		return nil, &DomainError{Op: "dpmo", Reason: "opportunities per unit must be at least 1"}
	}

	totalOpportunities := units * opportunitiesPerUnit
	dpo := defects / totalOpportunities
	dpmo := dpo * 1_000_000
	sigma := SigmaFromDPMO(dpmo)

	return &DPMOResult{
		DPMO:               dpmo,
		DPO:                dpo,
		SigmaLevel:         sigma,
		YieldPercentage:    (1 - dpo) * 100,
		QualityLevel:       qualityLevel(sigma),
		TotalOpportunities: totalOpportunities,
	}, nil
}

// YieldResult holds the sigma level implied by a first-pass yield.
type YieldResult struct {
	YieldPercentage float64 `json:"yield_percentage"`
	DefectRate      float64 `json:"defect_rate"`
	DPMO            float64 `json:"dpmo"`
	SigmaLevel      float64 `json:"sigma_level"`
	QualityLevel    string  `json:"quality_level"`
}

// SigmaFromYield converts a first-pass yield percentage into defect rate,
// DPMO and sigma level.
func SigmaFromYield(yieldPct float64) (*YieldResult, error) {
	if yieldPct < 0 || yieldPct > 100 {
		return nil, &DomainError{Op: "sigma_from_yield", Reason: "yield must be between 0 and 100 percent"}
	}

	defectRate := 1 - yieldPct/100
	dpmo := defectRate * 1_000_000
	sigma := SigmaFromDPMO(dpmo)

	return &YieldResult{
		YieldPercentage: yieldPct,
		DefectRate:      defectRate,
		DPMO:            dpmo,
		SigmaLevel:      sigma,
		QualityLevel:    qualityLevel(sigma),
	}, nil
}

// SigmaFromDPMO converts a DPMO figure to a short-term sigma level using the
// inverse normal distribution with the conventional 1.5 sigma long-term
// shift added. Output is clamped to [0, 6].
func SigmaFromDPMO(dpmo float64) float64 {
	if dpmo >= 1_000_000 {
		return 0
	}
	if dpmo <= 0 {
		return 6
	}

	z := distuv.UnitNormal.Quantile(1 - dpmo/1_000_000)
	sigma := z + 1.5

	if sigma < 0 {
		return 0
	}
	if sigma > 6 {
		return 6
	}
	return sigma
}

// DPMOFromSigma converts a sigma level to its long-term defect rate per
// million opportunities, subtracting the same 1.5 sigma shift.
func DPMOFromSigma(sigma float64) float64 {
	z := sigma - 1.5
	defectRate := 1 - distuv.UnitNormal.CDF(z)
	return defectRate * 1_000_000
}

// qualityLevel maps a sigma level to the conventional benchmark label.
func qualityLevel(sigma float64) string {
	switch {
	case sigma >= 6:
		return "world class"
	case sigma >= 5:
		return "excellent"
	case sigma >= 4:
		return "good"
	case sigma >= 3:
		return "industry average"
	case sigma >= 2:
		return "below average"
	default:
		return "poor"
	}
}
