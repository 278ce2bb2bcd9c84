package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"foreman/internal/analysis"
	"foreman/internal/providers"
)

// MockCompleter is a mock implementation of the Completer interface.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.Completion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.Completion), args.Error(1)
}

func (m *MockCompleter) StreamComplete(ctx context.Context, req providers.CompletionRequest, onChunk func(string) error) error {
	args := m.Called(ctx, req)
	if err := args.Error(1); err != nil {
		return err
	}
	chunks, _ := args.Get(0).([]string)
	for _, chunk := range chunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func withTools(req providers.CompletionRequest) bool { return len(req.Tools) > 0 }
func noTools(req providers.CompletionRequest) bool   { return len(req.Tools) == 0 }

func TestProcessExplicitOperation(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("Complete", mock.Anything, mock.MatchedBy(func(req providers.CompletionRequest) bool {
		return strings.Contains(req.Input, "Computed results")
	})).Return(&providers.Completion{Text: "The optimal order quantity is 447 units."}, nil)

	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)

	resp := agent.Process(context.Background(), "optimal order size?", map[string]interface{}{
		"operation": "calculate_eoq",
		"arguments": map[string]interface{}{
			"annual_demand": 10000.0,
			"order_cost":    50.0,
			"holding_cost":  5.0,
		},
	})

	require.False(t, resp.IsError())
	assert.Equal(t, "The optimal order quantity is 447 units.", resp.Content)
	assert.Equal(t, "inventory", resp.AgentName)

	require.Len(t, resp.FunctionCalls, 1)
	assert.Equal(t, "calculate_eoq", resp.FunctionCalls[0].Name)
	result, ok := resp.FunctionCalls[0].Result.(*analysis.EOQResult)
	require.True(t, ok)
	assert.InDelta(t, 447.2136, result.EOQ, 0.001)

	mockLLM.AssertNumberOfCalls(t, "Complete", 1)
}

func TestProcessToolCallPath(t *testing.T) {
	mockLLM := new(MockCompleter)

	// First pass advertises the capability table and gets a tool call back.
	mockLLM.On("Complete", mock.Anything, mock.MatchedBy(withTools)).Return(&providers.Completion{
		ToolCalls: []providers.ToolCall{{
			Name: "calculate_eoq",
			Arguments: map[string]interface{}{
				"annual_demand": 12000.0,
				"order_cost":    40.0,
				"holding_cost":  6.0,
			},
		}},
	}, nil).Once()

	// Second pass narrates the computed results.
	mockLLM.On("Complete", mock.Anything, mock.MatchedBy(noTools)).Return(
		&providers.Completion{Text: "Order 400 units at a time, about 30 orders a year."}, nil).Once()

	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)
	resp := agent.Process(context.Background(), "how many units per order?", nil)

	require.False(t, resp.IsError())
	assert.Equal(t, "Order 400 units at a time, about 30 orders a year.", resp.Content)
	require.Len(t, resp.FunctionCalls, 1)

	result := resp.FunctionCalls[0].Result.(*analysis.EOQResult)
	assert.InDelta(t, 400.0, result.EOQ, 1e-9)

	// The narration pass carries the computed figures in its input.
	narration := mockLLM.Calls[1].Arguments.Get(1).(providers.CompletionRequest)
	assert.Contains(t, narration.Input, "Computed results")
	assert.Contains(t, narration.Input, "calculate_eoq")
	mockLLM.AssertExpectations(t)
}

func TestProcessNoToolCallsIsSinglePass(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(
		&providers.Completion{Text: "Reorder points protect against demand during lead time."}, nil)

	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)
	resp := agent.Process(context.Background(), "what is a reorder point?", nil)

	require.False(t, resp.IsError())
	assert.Empty(t, resp.FunctionCalls)
	mockLLM.AssertNumberOfCalls(t, "Complete", 1)
}

func TestProcessMissingArgumentFoldsToErrorResponse(t *testing.T) {
	mockLLM := new(MockCompleter)
	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)

	resp := agent.Process(context.Background(), "", map[string]interface{}{
		"operation": "calculate_eoq",
		"arguments": map[string]interface{}{
			"annual_demand": 10000.0,
			"order_cost":    50.0,
		},
	})

	require.True(t, resp.IsError())
	assert.Contains(t, resp.Content, "missing required argument")
	assert.Equal(t, "domain_error", resp.Metadata["error_type"])
	mockLLM.AssertNumberOfCalls(t, "Complete", 0)
}

func TestProcessDomainErrorFoldsToErrorResponse(t *testing.T) {
	mockLLM := new(MockCompleter)
	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)

	resp := agent.Process(context.Background(), "", map[string]interface{}{
		"operation": "calculate_eoq",
		"arguments": map[string]interface{}{
			"annual_demand": -5.0,
			"order_cost":    50.0,
			"holding_cost":  5.0,
		},
	})

	require.True(t, resp.IsError())
	assert.Equal(t, "domain_error", resp.Metadata["error_type"])
	assert.Equal(t, false, resp.Metadata["success"])
}

func TestProcessUnknownOperation(t *testing.T) {
	mockLLM := new(MockCompleter)
	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)

	resp := agent.Process(context.Background(), "", map[string]interface{}{
		"operation": "melt_steel",
	})

	require.True(t, resp.IsError())
	assert.Contains(t, resp.Content, "no operation")
	assert.Equal(t, "internal", resp.Metadata["error_type"])
}

func TestProcessCompletionFailureNeverEscapes(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("upstream unavailable"))

	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)
	resp := agent.Process(context.Background(), "how much stock do we hold?", nil)

	require.True(t, resp.IsError())
	assert.Contains(t, resp.Content, "failed to process request")
	assert.Equal(t, "external_capability", resp.Metadata["error_type"])
}

func TestConversationWindowIsBounded(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(&providers.Completion{Text: "noted"}, nil)

	agent := NewBaseAgent(RoleMath, "you do math", mockLLM, nil, 3, time.Second, nil)
	for i := 0; i < 5; i++ {
		agent.Process(context.Background(), "another question", nil)
	}

	status := agent.Status()
	assert.Equal(t, 3, status.ConversationLength)
	assert.Equal(t, 5, status.QueriesProcessed)
}

func TestResetConversationKeepsCounters(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(&providers.Completion{Text: "noted"}, nil)

	agent := NewBaseAgent(RoleMath, "you do math", mockLLM, nil, 10, time.Second, nil)
	agent.Process(context.Background(), "first", nil)
	agent.Process(context.Background(), "second", nil)

	agent.ResetConversation()

	status := agent.Status()
	assert.Equal(t, 0, status.ConversationLength)
	assert.Equal(t, 2, status.QueriesProcessed)
	assert.Equal(t, StateIdle, status.State)
}

func TestExtractInsights(t *testing.T) {
	const raw = `- Stock levels for SKU-9 fell below the reorder point twice
- Receiving dock delays add two days of lead time
ignore this unmarked line
- tiny
1. Safety stock coverage is thin on fast movers
2) Turnover trends down three quarters running
- Seventh observation about cycle count accuracy
- Eighth observation that exceeds the cap`

	mockLLM := new(MockCompleter)
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(&providers.Completion{Text: raw}, nil)

	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)
	insights := agent.ExtractInsights(context.Background(), "weekly report text", "inventory")

	require.Len(t, insights, 5)
	assert.Equal(t, "Stock levels for SKU-9 fell below the reorder point twice", insights[0].Content)
	assert.Equal(t, "Seventh observation about cycle count accuracy", insights[4].Content)
	for _, in := range insights {
		assert.Equal(t, RoleInventory, in.Source)
		assert.Equal(t, "inventory", in.Topic)
	}

	status := agent.Status()
	assert.Equal(t, 1, status.DocumentsProcessed)
	assert.Equal(t, 5, status.InsightsExtracted)
}

func TestExtractInsightsFailureIsBestEffort(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	agent := NewInventoryAgent(mockLLM, 10, time.Second, nil)
	insights := agent.ExtractInsights(context.Background(), "report", "inventory")

	assert.Empty(t, insights)
	assert.Zero(t, agent.Status().DocumentsProcessed)
}

func TestProcessStream(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("StreamComplete", mock.Anything, mock.Anything).Return(
		[]string{"The takt ", "time is ", "2 minutes."}, nil)

	agent := NewOperationsAgent(mockLLM, 10, time.Second, nil)

	var got []string
	err := agent.ProcessStream(context.Background(), "takt?", nil, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"The takt ", "time is ", "2 minutes."}, got)

	status := agent.Status()
	assert.Equal(t, 1, status.ConversationLength)
	assert.Equal(t, 1, status.QueriesProcessed)
}

func TestProcessStreamFailureIsExternal(t *testing.T) {
	mockLLM := new(MockCompleter)
	mockLLM.On("StreamComplete", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	agent := NewOperationsAgent(mockLLM, 10, time.Second, nil)
	err := agent.ProcessStream(context.Background(), "takt?", nil, func(string) error { return nil })

	var capErr *providers.ExternalCapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "completion", capErr.Capability)
}

func TestSpecialistCapabilityTables(t *testing.T) {
	mockLLM := new(MockCompleter)

	tests := []struct {
		name  string
		agent Agent
		role  AgentRole
		ops   []string
	}{
		{
			name:  "inventory",
			agent: NewInventoryAgent(mockLLM, 10, time.Second, nil),
			role:  RoleInventory,
			ops: []string{
				"calculate_eoq", "reorder_point", "safety_stock",
				"demand_forecast", "inventory_turnover", "abc_classification",
			},
		},
		{
			name:  "operations",
			agent: NewOperationsAgent(mockLLM, 10, time.Second, nil),
			role:  RoleOperations,
			ops:   []string{"takt_time", "lead_time_breakdown", "process_variation"},
		},
		{
			name:  "math",
			agent: NewMathAgent(mockLLM, 10, time.Second, nil),
			role:  RoleMath,
			ops:   []string{"calculate_eoq", "safety_stock", "reorder_point", "demand_forecast"},
		},
		{
			name:  "quality",
			agent: NewQualityAgent(mockLLM, 10, time.Second, nil),
			role:  RoleQuality,
			ops: []string{
				"pareto_analysis", "abc_classification", "process_capability",
				"calculate_dpmo", "sigma_from_yield", "process_variation",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.role, tt.agent.Role())
			assert.Equal(t, string(tt.role), tt.agent.Name())
			base, ok := tt.agent.(interface{ Capabilities() []string })
			require.True(t, ok)
			assert.ElementsMatch(t, tt.ops, base.Capabilities())
		})
	}
}

func TestParseInsightLines(t *testing.T) {
	lines := parseInsightLines("* Star bullets work the same way here\n• Unicode bullets are also accepted\nshort\n3. Numbered entries with dots parse too")

	assert.Equal(t, []string{
		"Star bullets work the same way here",
		"Unicode bullets are also accepted",
		"Numbered entries with dots parse too",
	}, lines)
}
