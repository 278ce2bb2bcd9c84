package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// VariationResult summarizes the spread and stability of a process sample,
// including three-sigma control limits and an outlier-based stability call.
type VariationResult struct {
	Mean                   float64 `json:"mean"`
	Median                 float64 `json:"median"`
	StdDev                 float64 `json:"std_dev"`
	Variance               float64 `json:"variance"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
	Range                  float64 `json:"range"`
	Q1                     float64 `json:"q1"`
	Q3                     float64 `json:"q3"`
	IQR                    float64 `json:"iqr"`
	UCL                    float64 `json:"ucl"`
	LCL                    float64 `json:"lcl"`
	OutlierCount           int     `json:"outlier_count"`
	Stability              string  `json:"stability"`
}

// ProcessVariation computes descriptive statistics, quartiles and 3-sigma
// control limits for a sample, and classifies stability by the fraction of
// points outside the limits (none: stable, up to 1%: mostly stable).
func ProcessVariation(data []float64) (*VariationResult, error) {
	if len(data) < 2 {
		return nil, &InsufficientDataError{Op: "process_variation", Required: 2, Got: len(data)}
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	mean := stat.Mean(data, nil)
	std := stat.StdDev(data, nil)
	variance := stat.Variance(data, nil)

	cv := 0.0
	if mean != 0 {
		cv = std / mean * 100
	}

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)

	ucl := mean + 3*std
	lcl := mean - 3*std

	outliers := 0
	for _, v := range data {
		if v > ucl || v < lcl {
			outliers++
		}
	}

	stability := "unstable, multiple points beyond control limits"
	switch {
	case outliers == 0:
		stability = "stable, no points beyond control limits"
	case float64(outliers) <= float64(len(data))*0.01:
		stability = "mostly stable, few outliers detected"
	}

	return &VariationResult{
		Mean:                   mean,
		Median:                 percentile(sorted, 50),
		StdDev:                 std,
		Variance:               variance,
		CoefficientOfVariation: cv,
		Range:                  sorted[len(sorted)-1] - sorted[0],
		Q1:                     q1,
		Q3:                     q3,
		IQR:                    q3 - q1,
		UCL:                    ucl,
		LCL:                    lcl,
		OutlierCount:           outliers,
		Stability:              stability,
	}, nil
}

// percentile returns the p-th percentile of an ascending-sorted sample using
// linear interpolation between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(rank)
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
