package agents

import (
	"log/slog"
	"time"

	"foreman/internal/analysis"
	"foreman/internal/providers"
)

const inventoryPrompt = `You are the inventory specialist for a warehouse operations team.
You advise on stock levels, reorder policy, order sizing, turnover and demand trends.
Ground every recommendation in the computed figures you are given and state units explicitly.`

// InventoryAgent answers stock control questions: order sizing, reorder
// policy, safety stock, turnover and demand forecasting.
type InventoryAgent struct {
	*BaseAgent
}

// NewInventoryAgent builds the inventory agent and its capability table.
func NewInventoryAgent(completer providers.Completer, windowSize int, timeout time.Duration, logger *slog.Logger) *InventoryAgent {
	capabilities := []Capability{
		eoqCapability(),
		reorderPointCapability(),
		safetyStockCapability(),
		demandForecastCapability(),
		{
			Name:        "inventory_turnover",
			Description: "Annual inventory turnover ratio and days in inventory from cost of goods sold and average inventory value",
			Params: []Param{
				{"cogs", "number", true},
				{"average_inventory_value", "number", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.InventoryTurnover(
					floatArg(args, "cogs"),
					floatArg(args, "average_inventory_value"),
				)
			},
		},
		{
			Name:        "abc_classification",
			Description: "Classify items into A/B/C value bands by cumulative contribution",
			Params: []Param{
				{"items", "item_list", true},
			},
			Invoke: func(args map[string]interface{}) (interface{}, error) {
				return analysis.ABCClassification(itemsArg(args, "items"))
			},
		},
	}

	return &InventoryAgent{
		BaseAgent: NewBaseAgent(RoleInventory, inventoryPrompt, completer, capabilities, windowSize, timeout, logger),
	}
}

// Shared inventory economics capabilities. The math agent carries the same
// operations so direct calculation requests do not depend on routing.

func eoqCapability() Capability {
	return Capability{
		Name:        "calculate_eoq",
		Description: "Economic order quantity from annual demand, per-order cost and per-unit holding cost",
		Params: []Param{
			{"annual_demand", "number", true},
			{"order_cost", "number", true},
			{"holding_cost", "number", true},
		},
		Invoke: func(args map[string]interface{}) (interface{}, error) {
			return analysis.EOQ(
				floatArg(args, "annual_demand"),
				floatArg(args, "order_cost"),
				floatArg(args, "holding_cost"),
			)
		},
	}
}

func reorderPointCapability() Capability {
	return Capability{
		Name:        "reorder_point",
		Description: "Stock level that should trigger replenishment, from daily demand, lead time and optional safety stock",
		Params: []Param{
			{"daily_demand", "number", true},
			{"lead_time_days", "number", true},
			{"safety_stock", "number", false},
		},
		Invoke: func(args map[string]interface{}) (interface{}, error) {
			return analysis.ReorderPoint(
				floatArg(args, "daily_demand"),
				floatArg(args, "lead_time_days"),
				floatArgDefault(args, "safety_stock", 0),
			)
		},
	}
}

func safetyStockCapability() Capability {
	return Capability{
		Name:        "safety_stock",
		Description: "Buffer stock sized for demand variability over the lead time at a target service level",
		Params: []Param{
			{"daily_demand", "number", true},
			{"demand_std_dev", "number", true},
			{"lead_time_days", "number", true},
			{"service_level", "number", false},
		},
		Invoke: func(args map[string]interface{}) (interface{}, error) {
			return analysis.SafetyStock(
				floatArg(args, "daily_demand"),
				floatArg(args, "demand_std_dev"),
				floatArg(args, "lead_time_days"),
				floatArgDefault(args, "service_level", 0.95),
			)
		},
	}
}

func demandForecastCapability() Capability {
	return Capability{
		Name:        "demand_forecast",
		Description: "Project demand for upcoming periods from a history of at least three observations",
		Params: []Param{
			{"history", "number_list", true},
			{"periods_ahead", "int", true},
		},
		Invoke: func(args map[string]interface{}) (interface{}, error) {
			return analysis.DemandForecast(
				floatSliceArg(args, "history"),
				intArg(args, "periods_ahead"),
			)
		},
	}
}
