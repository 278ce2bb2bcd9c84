package agents

import (
	"log/slog"
	"time"

	"foreman/internal/analysis"
	"foreman/internal/providers"
)

const qualityPrompt = `You are the quality specialist for a warehouse operations team.
You apply six sigma methods: defect analysis, process capability, variation and Pareto thinking.
Interpret the computed indices conservatively and name the concrete next step.`

// QualityAgent answers defect and process quality questions through the six
// sigma toolkit.
type QualityAgent struct {
	*BaseAgent
}

// NewQualityAgent builds the quality agent and its capability table.
func NewQualityAgent(completer providers.Completer, windowSize int, timeout time.Duration, logger *slog.Logger) *QualityAgent {
	capabilities := []Capability{
		{
			Name:        "pareto_analysis",
			Description: "Split ranked defect categories into the vital few driving 80% of the total and the trivial many",
			Params: []Param{
				{"items", "item_list", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.ParetoAnalysis(itemsArg(args, "items"))
			},
		},
		{
			Name:        "abc_classification",
			Description: "Classify items into A/B/C bands by cumulative contribution",
			Params: []Param{
				{"items", "item_list", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.ABCClassification(itemsArg(args, "items"))
			},
		},
		{
			Name:        "process_capability",
			Description: "Cp, Cpu, Cpl and Cpk for sample data against upper and lower specification limits",
			Params: []Param{
				{"data", "number_list", true},
				{"usl", "number", true},
				{"lsl", "number", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.ProcessCapability(
					floatSliceArg(args, "data"),
					floatArg(args, "usl"),
					floatArg(args, "lsl"),
				)
			},
		},
		{
			Name:        "calculate_dpmo",
			Description: "Defects per million opportunities and sigma level from defects, units and opportunities per unit",
			Params: []Param{
				{"defects", "number", true},
				{"units", "number", true},
				{"opportunities_per_unit", "number", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.DPMO(
					floatArg(args, "defects"),
					floatArg(args, "units"),
					floatArg(args, "opportunities_per_unit"),
				)
			},
		},
		{
			Name:        "sigma_from_yield",
			Description: "Sigma level implied by a first-pass yield percentage",
			Params: []Param{
				{"yield_percentage", "number", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.SigmaFromYield(floatArg(args, "yield_percentage"))
			},
		},
		processVariationCapability(),
	}

	return &QualityAgent{
		BaseAgent: NewBaseAgent(RoleQuality, qualityPrompt, completer, capabilities, windowSize, timeout, logger),
	}
}

// processVariationCapability is shared with the operations agent, which
// reads the same statistics through a flow lens.
func processVariationCapability() Capability {
	return Capability{
		Name:        "process_variation",
		Description: "Descriptive statistics, control limits and stability classification for sample data",
		Params: []Param{
			{"data", "number_list", true},
		},
		Invoke: func(args map[string]interface{}) (interface{}, error) {
			return analysis.ProcessVariation(floatSliceArg(args, "data"))
		},
	}
}
