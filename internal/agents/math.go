package agents

import (
	"log/slog"
	"time"

	"foreman/internal/providers"
)

const mathPrompt = `You are the quantitative analyst for a warehouse operations team.
You handle calculation requests precisely: state the formula, the inputs and the result.
Never invent numbers; if an input is missing, say which one.`

// MathAgent handles direct calculation requests. It carries the inventory
// economics operations itself so a caller asking for arithmetic does not
// bounce between agents.
type MathAgent struct {
	*BaseAgent
}

// NewMathAgent builds the math agent and its capability table.
func NewMathAgent(completer providers.Completer, windowSize int, timeout time.Duration, logger *slog.Logger) *MathAgent {
	capabilities := []Capability{
		eoqCapability(),
		safetyStockCapability(),
		reorderPointCapability(),
		demandForecastCapability(),
	}

	return &MathAgent{
		BaseAgent: NewBaseAgent(RoleMath, mathPrompt, completer, capabilities, windowSize, timeout, logger),
	}
}
