// Package analysis implements the quantitative routines the warehouse agents
// invoke as callable operations: inventory economics, demand forecasting,
// ABC/Pareto classification, and statistical process control. All functions
// are pure and deterministic; results carry full precision and rounding is
// left to the presentation layer.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EOQResult holds the economic order quantity and the cost figures
// derived from it.
type EOQResult struct {
	EOQ               float64 `json:"eoq"`
	OrdersPerYear     float64 `json:"orders_per_year"`
	DaysBetweenOrders float64 `json:"days_between_orders"`
	TotalAnnualCost   float64 `json:"total_annual_cost"`
	AverageInventory  float64 `json:"average_inventory"`
}

// EOQ computes the economic order quantity sqrt(2DS/H) for annual demand D,
// per-order cost S and per-unit holding cost H, along with order cadence and
// the combined annual ordering and holding cost at the optimum.
func EOQ(annualDemand, orderCost, holdingCost float64) (*EOQResult, error) {
	if holdingCost <= 0 {
		return nil, &DomainError{Op: "eoq", Reason: "holding cost must be positive"}
	}
	if annualDemand <= 0 {
		return nil, &DomainError{Op: "eoq", Reason: "annual demand must be positive"}
	}
	if orderCost <= 0 {
		return nil, &DomainError{Op: "eoq", Reason: "order cost must be positive"}
	}

	eoq := math.Sqrt(2 * annualDemand * orderCost / holdingCost)
	ordersPerYear := annualDemand / eoq

	return &EOQResult{
		EOQ:               eoq,
		OrdersPerYear:     ordersPerYear,
		DaysBetweenOrders: 365 / ordersPerYear,
		TotalAnnualCost:   ordersPerYear*orderCost + eoq/2*holdingCost,
		AverageInventory:  eoq / 2,
	}, nil
}

// ReorderPointResult breaks a reorder point into its lead-time demand and
// safety stock components.
type ReorderPointResult struct {
	ReorderPoint   float64 `json:"reorder_point"`
	LeadTimeDemand float64 `json:"lead_time_demand"`
	SafetyStock    float64 `json:"safety_stock"`
}

// ReorderPoint computes the stock level that should trigger a replenishment
// order: expected demand over the lead time plus safety stock.
func ReorderPoint(dailyDemand, leadTimeDays, safetyStock float64) (*ReorderPointResult, error) {
	if dailyDemand < 0 {
		return nil, &DomainError{Op: "reorder_point", Reason: "daily demand must not be negative"}
	}
	if leadTimeDays < 0 {
		return nil, &DomainError{Op: "reorder_point", Reason: "lead time must not be negative"}
	}

	leadTimeDemand := dailyDemand * leadTimeDays
	return &ReorderPointResult{
		ReorderPoint:   leadTimeDemand + safetyStock,
		LeadTimeDemand: leadTimeDemand,
		SafetyStock:    safetyStock,
	}, nil
}

// serviceLevelZ maps a cycle service level to its standard normal Z score.
// Unlisted levels fall back to the 95% score and the substitution is
// reported via the result's Warning field.
var serviceLevelZ = map[float64]float64{
	0.90:  1.28,
	0.95:  1.65,
	0.97:  1.88,
	0.99:  2.33,
	0.999: 3.09,
}

const defaultServiceZ = 1.65

// SafetyStockResult holds the buffer stock sized for demand variability over
// the replenishment lead time.
type SafetyStockResult struct {
	SafetyStock  float64 `json:"safety_stock"`
	ZScore       float64 `json:"z_score"`
	ServiceLevel float64 `json:"service_level"`
	Warning      string  `json:"warning,omitempty"`
}

// SafetyStock sizes buffer stock as Z * demandStdDev * sqrt(leadTimeDays),
// with Z looked up from the service level table. The dailyDemand argument is
// accepted for interface parity with the reorder point calculation; the
// formula depends only on demand variability.
func SafetyStock(dailyDemand, demandStdDev, leadTimeDays, serviceLevel float64) (*SafetyStockResult, error) {
	if demandStdDev < 0 {
		return nil, &DomainError{Op: "safety_stock", Reason: "demand standard deviation must not be negative"}
	}
	if leadTimeDays < 0 {
		return nil, &DomainError{Op: "safety_stock", Reason: "lead time must not be negative"}
	}

	z, ok := serviceLevelZ[serviceLevel]
	warning := ""
	if !ok {
		z = defaultServiceZ
		warning = "service level not in lookup table, using default Z=1.65 (95%)"
	}

	return &SafetyStockResult{
		SafetyStock:  z * demandStdDev * math.Sqrt(leadTimeDays),
		ZScore:       z,
		ServiceLevel: serviceLevel,
		Warning:      warning,
	}, nil
}

// TurnoverResult reports how quickly inventory cycles relative to cost of
// goods sold.
type TurnoverResult struct {
	Turnover        float64 `json:"turnover"`
	DaysInInventory float64 `json:"days_in_inventory"`
	Performance     string  `json:"performance"`
}

// InventoryTurnover computes the annual turnover ratio and the average days
// a unit spends in inventory, with a fixed performance banding.
func InventoryTurnover(cogs, avgInventoryValue float64) (*TurnoverResult, error) {
	if avgInventoryValue <= 0 {
		return nil, &DomainError{Op: "inventory_turnover", Reason: "average inventory value must be positive"}
	}
	if cogs < 0 {
		return nil, &DomainError{Op: "inventory_turnover", Reason: "cost of goods sold must not be negative"}
	}

	turnover := cogs / avgInventoryValue

	performance := "low"
	switch {
	case turnover > 12:
		performance = "excellent"
	case turnover > 8:
		performance = "good"
	case turnover > 4:
		performance = "moderate"
	}

	daysInInventory := 0.0
	if turnover > 0 {
		daysInInventory = 365 / turnover
	}

	return &TurnoverResult{
		Turnover:        turnover,
		DaysInInventory: daysInInventory,
		Performance:     performance,
	}, nil
}

// ForecastResult holds a short-horizon demand projection built from a moving
// average and a half-over-half trend.
type ForecastResult struct {
	Forecast      []float64 `json:"forecast"`
	RecentAverage float64   `json:"recent_average"`
	Trend         float64   `json:"trend"`
}

// DemandForecast projects demand for the next periodsAhead periods. The base
// is the moving average of the last three observations; the trend is the
// per-period slope between the means of the first and second halves of the
// history (zero when fewer than six points). Projections never go below zero.
func DemandForecast(history []float64, periodsAhead int) (*ForecastResult, error) {
	if len(history) < 3 {
		return nil, &InsufficientDataError{Op: "demand_forecast", Required: 3, Got: len(history)}
	}
	if periodsAhead < 1 {
		return nil, &DomainError{Op: "demand_forecast", Reason: "periods ahead must be at least 1"}
	}

	recentAvg := stat.Mean(history[len(history)-3:], nil)

	trend := 0.0
	if len(history) >= 6 {
		half := len(history) / 2
		firstMean := stat.Mean(history[:half], nil)
		secondMean := stat.Mean(history[half:], nil)
		trend = (secondMean - firstMean) / float64(half)
	}

	forecast := make([]float64, periodsAhead)
	for i := range forecast {
		forecast[i] = math.Max(0, recentAvg+trend*float64(i+1))
	}

	return &ForecastResult{
		Forecast:      forecast,
		RecentAverage: recentAvg,
		Trend:         trend,
	}, nil
}
