package analysis

import "sort"

// Item is one classified unit: an identifier and the value or metric it
// contributes (annual usage value for ABC, defect counts for Pareto, etc).
type Item struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

// ClassifiedItem is an Item annotated with its share of the total and the
// ABC category the cumulative split assigned to it.
type ClassifiedItem struct {
	ID                   string  `json:"id"`
	Value                float64 `json:"value"`
	Percentage           float64 `json:"percentage"`
	CumulativePercentage float64 `json:"cumulative_percentage"`
	Category             string  `json:"category"`
}

// CategorySummary aggregates one ABC category.
type CategorySummary struct {
	Count             int     `json:"count"`
	PercentageOfItems float64 `json:"percentage_of_items"`
	ValueContribution float64 `json:"value_contribution"`
}

// ABCResult holds the per-item classification and per-category rollup.
type ABCResult struct {
	Items      []ClassifiedItem           `json:"items"`
	Summary    map[string]CategorySummary `json:"summary"`
	TotalValue float64                    `json:"total_value"`
}

// ABCClassification sorts items by descending value and assigns categories by
// cumulative contribution: through 80% is A, through 95% is B, the tail is C.
// Equal values keep their input order.
func ABCClassification(items []Item) (*ABCResult, error) {
	if len(items) == 0 {
		return nil, &InsufficientDataError{Op: "abc_classification", Required: 1, Got: 0}
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	total := 0.0
	for _, it := range sorted {
		total += it.Value
	}
	if total <= 0 {
		return nil, &DomainError{Op: "abc_classification", Reason: "total item value must be positive"}
	}

	classified := make([]ClassifiedItem, len(sorted))
	counts := map[string]int{}
	values := map[string]float64{}
	cumulative := 0.0

	for i, it := range sorted {
		percentage := it.Value / total * 100
		cumulative += percentage

		category := "C"
		switch {
		case cumulative <= 80:
			category = "A"
		case cumulative <= 95:
			category = "B"
		}

		classified[i] = ClassifiedItem{
			ID:                   it.ID,
			Value:                it.Value,
			Percentage:           percentage,
			CumulativePercentage: cumulative,
			Category:             category,
		}
		counts[category]++
		values[category] += it.Value
	}

	summary := make(map[string]CategorySummary, len(counts))
	for cat, count := range counts {
		summary[cat] = CategorySummary{
			Count:             count,
			PercentageOfItems: float64(count) / float64(len(sorted)) * 100,
			ValueContribution: values[cat] / total * 100,
		}
	}

	return &ABCResult{Items: classified, Summary: summary, TotalValue: total}, nil
}

// ParetoResult partitions ranked items into the vital few that drive the
// first 80% of the total and the trivial many behind them.
type ParetoResult struct {
	VitalFew             []ClassifiedItem `json:"vital_few"`
	TrivialMany          []ClassifiedItem `json:"trivial_many"`
	VitalFewCount        int              `json:"vital_few_count"`
	VitalFewPercentage   float64          `json:"vital_few_percentage"`
	VitalFewContribution float64          `json:"vital_few_contribution"`
	TotalItems           int              `json:"total_items"`
}

// ParetoAnalysis applies the cumulative-80% split to items ranked by
// descending value. Rank order within each partition follows the sort.
func ParetoAnalysis(items []Item) (*ParetoResult, error) {
	if len(items) == 0 {
		return nil, &InsufficientDataError{Op: "pareto_analysis", Required: 1, Got: 0}
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	total := 0.0
	for _, it := range sorted {
		total += it.Value
	}
	if total <= 0 {
		return nil, &DomainError{Op: "pareto_analysis", Reason: "total item value must be positive"}
	}

	var vital, trivial []ClassifiedItem
	cumulative := 0.0
	vitalValue := 0.0

	for _, it := range sorted {
		percentage := it.Value / total * 100
		cumulative += percentage

		entry := ClassifiedItem{
			ID:                   it.ID,
			Value:                it.Value,
			Percentage:           percentage,
			CumulativePercentage: cumulative,
		}
		if cumulative <= 80 {
			vital = append(vital, entry)
			vitalValue += it.Value
		} else {
			trivial = append(trivial, entry)
		}
	}

	result := &ParetoResult{
		VitalFew:           vital,
		TrivialMany:        trivial,
		VitalFewCount:      len(vital),
		VitalFewPercentage: float64(len(vital)) / float64(len(sorted)) * 100,
		TotalItems:         len(sorted),
	}
	result.VitalFewContribution = vitalValue / total * 100

	return result, nil
}
