package agents

import (
	"log/slog"
	"time"

	"foreman/internal/analysis"
	"foreman/internal/providers"
)

const operationsPrompt = `You are the operations specialist for a warehouse team.
You advise on workflows, throughput, takt time, lead times, staffing and process flow.
Use the computed figures you are given and call out the dominant stage or constraint.`

// OperationsAgent answers process flow questions: pace against demand,
// where lead time goes, and how much a process varies.
type OperationsAgent struct {
	*BaseAgent
}

// NewOperationsAgent builds the operations agent and its capability table.
func NewOperationsAgent(completer providers.Completer, windowSize int, timeout time.Duration, logger *slog.Logger) *OperationsAgent {
	capabilities := []Capability{
		{
			Name:        "takt_time",
			Description: "Required production pace from available working minutes and demand units",
			Params: []Param{
				{"available_minutes", "number", true},
				{"demand_units", "number", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.TaktTime(
					floatArg(args, "available_minutes"),
					floatArg(args, "demand_units"),
				)
			},
		},
		{
			Name:        "lead_time_breakdown",
			Description: "Decompose order lead time into processing, queue and transport stages with percentages",
			Params: []Param{
				{"processing_time", "number", true},
				{"queue_time", "number", true},
				{"transport_time", "number", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.LeadTimeBreakdown(
					floatArg(args, "processing_time"),
					floatArg(args, "queue_time"),
					floatArg(args, "transport_time"),
				)
			},
		},
		processVariationCapability(),
	}

	return &OperationsAgent{
		BaseAgent: NewBaseAgent(RoleOperations, operationsPrompt, completer, capabilities, windowSize, timeout, logger),
	}
}
