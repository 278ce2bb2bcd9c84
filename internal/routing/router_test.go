package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"foreman/internal/agents"
)

func TestRouteSingleDomain(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	tests := []struct {
		name  string
		query string
		want  agents.AgentRole
	}{
		{"inventory terms", "how much stock is in the warehouse", agents.RoleInventory},
		{"operations terms", "takt for the packing line", agents.RoleOperations},
		{"math terms", "forecast demand and estimate the projection", agents.RoleMath},
		{"quality terms", "dpmo and cpk for the inspection station", agents.RoleQuality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := engine.Route(tt.query)
			assert.Equal(t, tt.want, decision.Primary)
			assert.False(t, decision.Ambiguous)
		})
	}
}

func TestRouteTieBreaksInPriorityOrder(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	// One keyword hit each for operations and quality.
	decision := engine.Route("takt quality")

	assert.Equal(t, agents.RoleOperations, decision.Primary)
	assert.True(t, decision.Ambiguous)
	assert.Equal(t, 1, decision.Scores[agents.RoleOperations])
	assert.Equal(t, 1, decision.Scores[agents.RoleQuality])

	// Inventory outranks math on an even split.
	decision = engine.Route("calculate the eoq")
	assert.Equal(t, agents.RoleInventory, decision.Primary)
	assert.True(t, decision.Ambiguous)
}

func TestRouteUnmatchedDefaultsToInventory(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	decision := engine.Route("good morning everyone")

	assert.Equal(t, agents.RoleInventory, decision.Primary)
	assert.False(t, decision.RequiresMultipleAgents)
	assert.False(t, decision.Ambiguous)
	assert.Empty(t, decision.AdditionalAgents)
	for _, role := range agents.Specialists() {
		assert.Zero(t, decision.Scores[role])
	}
}

func TestRouteIsCaseInsensitive(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	lower := engine.Route("six sigma defect review")
	upper := engine.Route("SIX SIGMA DEFECT REVIEW")

	assert.Equal(t, agents.RoleQuality, lower.Primary)
	assert.Equal(t, lower.Primary, upper.Primary)
	assert.Equal(t, lower.Scores, upper.Scores)
}

func TestRouteMultiDomain(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	decision := engine.Route("calculate the reorder point and safety stock")

	// "reorder", "safety stock" and its "stock" substring all count.
	assert.Equal(t, agents.RoleInventory, decision.Primary)
	assert.Equal(t, 3, decision.Scores[agents.RoleInventory])
	assert.Equal(t, 1, decision.Scores[agents.RoleMath])
	assert.True(t, decision.RequiresMultipleAgents)
	assert.Equal(t,
		[]agents.AgentRole{agents.RoleInventory, agents.RoleMath},
		decision.AdditionalAgents)
	assert.False(t, decision.Ambiguous)
}

func TestRouteAdditionalAgentsFollowPriorityOrder(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	// Quality scores twice ("six sigma" plus its "sigma" substring),
	// the other three domains once each. Every implicated domain shows
	// up in priority order, the primary among them.
	decision := engine.Route("six sigma takt estimate for stock levels")

	assert.Equal(t, agents.RoleQuality, decision.Primary)
	assert.True(t, decision.RequiresMultipleAgents)
	assert.Equal(t,
		[]agents.AgentRole{agents.RoleInventory, agents.RoleOperations, agents.RoleMath, agents.RoleQuality},
		decision.AdditionalAgents)
}

func TestRouteSingleDomainHasNoAdditionalAgents(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	decision := engine.Route("dpmo for the inspection station")

	assert.Equal(t, agents.RoleQuality, decision.Primary)
	assert.False(t, decision.RequiresMultipleAgents)
	assert.Empty(t, decision.AdditionalAgents)
}

func TestRouteIsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultConfig(), nil)

	first := engine.Route("pareto of defects by sku")
	for i := 0; i < 25; i++ {
		again := engine.Route("pareto of defects by sku")
		assert.Equal(t, first, again)
	}
}

func TestEngineCopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	engine := NewEngine(cfg, nil)

	cfg.Keywords[agents.RoleMath] = append(cfg.Keywords[agents.RoleMath], "banana")
	cfg.Priority[0] = agents.RoleQuality

	decision := engine.Route("banana")
	assert.Equal(t, agents.RoleInventory, decision.Primary)
	assert.Zero(t, decision.Scores[agents.RoleMath])
}
