package analysis

// TaktResult relates available working time to customer demand.
type TaktResult struct {
	TaktTimeMinutes  float64 `json:"takt_time_minutes"`
	AvailableMinutes float64 `json:"available_minutes"`
	DemandUnits      float64 `json:"demand_units"`
}

// TaktTime computes the pace one unit must leave the process to meet demand:
// available working minutes divided by units demanded in that window.
func TaktTime(availableMinutes, demandUnits float64) (*TaktResult, error) {
	if availableMinutes <= 0 {
		return nil, &DomainError{Op: "takt_time", Reason: "available time must be positive"}
	}
	if demandUnits <= 0 {
		return nil, &DomainError{Op: "takt_time", Reason: "demand must be positive"}
	}

	return &TaktResult{
		TaktTimeMinutes:  availableMinutes / demandUnits,
		AvailableMinutes: availableMinutes,
		DemandUnits:      demandUnits,
	}, nil
}

// LeadTimeResult decomposes order lead time into its stages with each
// stage's share of the total.
type LeadTimeResult struct {
	TotalLeadTime float64 `json:"total_lead_time"`
	Processing    float64 `json:"processing"`
	Queue         float64 `json:"queue"`
	Transport     float64 `json:"transport"`
	ProcessingPct float64 `json:"processing_pct"`
	QueuePct      float64 `json:"queue_pct"`
	TransportPct  float64 `json:"transport_pct"`
	ValueAddedPct float64 `json:"value_added_pct"`
}

// LeadTimeBreakdown sums processing, queue and transport times and reports
// each stage's percentage. Processing is treated as the value-adding stage.
func LeadTimeBreakdown(processing, queue, transport float64) (*LeadTimeResult, error) {
	if processing < 0 || queue < 0 || transport < 0 {
		return nil, &DomainError{Op: "lead_time_breakdown", Reason: "stage times must not be negative"}
	}

	total := processing + queue + transport
	if total <= 0 {
		return nil, &DomainError{Op: "lead_time_breakdown", Reason: "total lead time must be positive"}
	}

	return &LeadTimeResult{
		TotalLeadTime: total,
		Processing:    processing,
		Queue:         queue,
		Transport:     transport,
		ProcessingPct: processing / total * 100,
		QueuePct:      queue / total * 100,
		TransportPct:  transport / total * 100,
		ValueAddedPct: processing / total * 100,
	}, nil
}
