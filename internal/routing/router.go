// Package routing scores incoming queries against per-domain keyword
// tables and picks the specialist that should answer.
package routing

import (
	"fmt"
	"log/slog"
	"strings"

	"foreman/internal/agents"
)

// RoutingAmbiguityError records a top-score tie between domains. Routing
// still proceeds through the priority order; the error is informational.
type RoutingAmbiguityError struct {
	Query string
	Tied  []agents.AgentRole
}

func (e *RoutingAmbiguityError) Error() string {
	names := make([]string, len(e.Tied))
	for i, role := range e.Tied {
		names[i] = string(role)
	}
	return fmt.Sprintf("routing: domains %s tied for query %q", strings.Join(names, ", "), e.Query)
}

// Config holds the keyword tables and the tie-break order.
type Config struct {
	Keywords map[agents.AgentRole][]string
	Priority []agents.AgentRole
}

// DefaultConfig returns the built-in keyword tables. Ties break in the
// listed priority order, and queries matching nothing go to inventory.
func DefaultConfig() Config {
	return Config{
		Keywords: map[agents.AgentRole][]string{
			agents.RoleInventory: {
				"inventory", "stock", "sku", "reorder", "replenish", "eoq",
				"turnover", "safety stock", "warehouse", "storage",
				"carrying cost", "stockout", "cycle count", "abc",
			},
			agents.RoleOperations: {
				"operations", "workflow", "throughput", "takt", "lead time",
				"logistics", "shipping", "receiving", "picking", "packing",
				"scheduling", "staffing", "capacity", "bottleneck",
			},
			agents.RoleMath: {
				"calculate", "compute", "formula", "equation", "percentage",
				"average", "forecast", "optimize", "projection", "estimate",
				"math",
			},
			agents.RoleQuality: {
				"quality", "defect", "six sigma", "sigma", "dpmo", "cpk",
				"capability", "pareto", "variation", "control chart",
				"inspection", "nonconformance", "yield",
			},
		},
		Priority: agents.Specialists(),
	}
}

// Engine is a deterministic keyword router. It never calls a model.
type Engine struct {
	keywords map[agents.AgentRole][]string
	priority []agents.AgentRole
	logger   *slog.Logger
}

// NewEngine copies the config so later mutation of the caller's maps
// cannot change routing behavior.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	keywords := make(map[agents.AgentRole][]string, len(cfg.Keywords))
	for role, words := range cfg.Keywords {
		keywords[role] = append([]string(nil), words...)
	}
	priority := append([]agents.AgentRole(nil), cfg.Priority...)
	if len(priority) == 0 {
		priority = agents.Specialists()
	}
	return &Engine{
		keywords: keywords,
		priority: priority,
		logger:   logger.With("component", "routing"),
	}
}

// Route scores the query against every domain table and returns the
// winning specialist. Scores count keyword substring hits on the
// lowercased query, so the same query always routes the same way.
func (e *Engine) Route(query string) agents.RouteDecision {
	lower := strings.ToLower(query)

	scores := make(map[agents.AgentRole]int, len(e.priority))
	for _, role := range e.priority {
		n := 0
		for _, kw := range e.keywords[role] {
			if strings.Contains(lower, kw) {
				n++
			}
		}
		scores[role] = n
	}

	best := 0
	primary := agents.RoleInventory
	for _, role := range e.priority {
		if scores[role] > best {
			best = scores[role]
			primary = role
		}
	}

	decision := agents.RouteDecision{Primary: primary, Scores: scores}
	if best == 0 {
		return decision
	}

	var tied, nonzero []agents.AgentRole
	for _, role := range e.priority {
		if scores[role] == best {
			tied = append(tied, role)
		}
		if scores[role] > 0 {
			nonzero = append(nonzero, role)
		}
	}
	// A multi-domain query reports every implicated domain, primary included.
	if len(nonzero) > 1 {
		decision.RequiresMultipleAgents = true
		decision.AdditionalAgents = nonzero
	}

	if len(tied) > 1 {
		decision.Ambiguous = true
		e.logger.Debug("top score tie, priority order decides",
			"error", &RoutingAmbiguityError{Query: query, Tied: tied})
	}

	return decision
}
