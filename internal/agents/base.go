package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"foreman/internal/analysis"
	"foreman/internal/providers"
)

// BaseAgent implements the processing loop shared by every role: capability
// dispatch, the two-pass completion flow, the bounded conversation window
// and the status counters. Role agents embed it and contribute their
// capability table and system prompt.
type BaseAgent struct {
	role         AgentRole
	systemPrompt string
	completer    providers.Completer
	capabilities []Capability
	capIndex     map[string]Capability
	timeout      time.Duration
	windowSize   int
	logger       *slog.Logger

	mu           sync.Mutex
	window       []Exchange
	state        State
	queries      int
	documents    int
	insights     int
	lastActivity time.Time
}

// NewBaseAgent wires the shared agent machinery for one role.
func NewBaseAgent(role AgentRole, systemPrompt string, completer providers.Completer, capabilities []Capability, windowSize int, timeout time.Duration, logger *slog.Logger) *BaseAgent {
	if logger == nil {
		logger = slog.Default()
	}
	if windowSize <= 0 {
		windowSize = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	index := make(map[string]Capability, len(capabilities))
	for _, c := range capabilities {
		index[c.Name] = c
	}

	return &BaseAgent{
		role:         role,
		systemPrompt: systemPrompt,
		completer:    completer,
		capabilities: capabilities,
		capIndex:     index,
		timeout:      timeout,
		windowSize:   windowSize,
		logger:       logger.With("agent", string(role)),
		state:        StateIdle,
	}
}

// Role returns the agent's role.
func (a *BaseAgent) Role() AgentRole {
	return a.role
}

// Name returns the agent's name as used in response attribution.
func (a *BaseAgent) Name() string {
	return string(a.role)
}

// Capabilities lists the operation names this agent can execute.
func (a *BaseAgent) Capabilities() []string {
	names := make([]string, len(a.capabilities))
	for i, c := range a.capabilities {
		names[i] = c.Name
	}
	return names
}

// Process resolves one input. An operation named in the request context is
// validated and executed directly; otherwise the capability table is
// advertised to the model as tools and any returned tool calls are executed
// in order. When operations ran, a second completion pass narrates their
// results. Failures never escape: they come back as an error-flagged
// Response.
func (a *BaseAgent) Process(ctx context.Context, input string, reqCtx map[string]interface{}) Response {
	a.enterProcessing()
	defer a.exitProcessing()

	var calls []FunctionCall

	if op, ok := reqCtx["operation"].(string); ok && op != "" {
		args, _ := reqCtx["arguments"].(map[string]interface{})
		call, err := a.invokeCapability(op, args)
		if err != nil {
			return a.errorResponse(calls, err)
		}
		calls = append(calls, call)
	} else if len(a.capabilities) > 0 {
		completion, err := a.complete(ctx, input, a.toolDefs())
		if err != nil {
			return a.errorResponse(calls, err)
		}
		if len(completion.ToolCalls) == 0 {
			return a.textResponse(input, completion.Text, calls)
		}
		for _, tc := range completion.ToolCalls {
			call, err := a.invokeCapability(tc.Name, tc.Arguments)
			if err != nil {
				return a.errorResponse(calls, err)
			}
			calls = append(calls, call)
		}
	} else {
		completion, err := a.complete(ctx, input, nil)
		if err != nil {
			return a.errorResponse(calls, err)
		}
		return a.textResponse(input, completion.Text, calls)
	}

	// Second pass: hand the computed results back for narration.
	narration := fmt.Sprintf("%s\n\n%s\nAnswer using these computed results, quoting the key figures.", input, formatCalls(calls))
	completion, err := a.complete(ctx, narration, nil)
	if err != nil {
		return a.errorResponse(calls, err)
	}

	return a.textResponse(input, completion.Text, calls)
}

// ProcessStream resolves one input as an ordered sequence of text chunks.
// Capability tools are not offered on the streaming path.
func (a *BaseAgent) ProcessStream(ctx context.Context, input string, reqCtx map[string]interface{}, onChunk func(string) error) error {
	a.enterProcessing()
	defer a.exitProcessing()

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var full strings.Builder
	err := a.completer.StreamComplete(cctx, providers.CompletionRequest{
		SystemPrompt: a.systemPrompt,
		History:      a.historyMessages(),
		Input:        input,
	}, func(chunk string) error {
		full.WriteString(chunk)
		return onChunk(chunk)
	})
	if err != nil {
		return &providers.ExternalCapabilityError{Capability: "completion", Err: err}
	}

	a.recordExchange(input, full.String())
	a.mu.Lock()
	a.queries++
	a.mu.Unlock()
	return nil
}

// ExtractInsights mines shared material for observations relevant to this
// agent's focus area. Best effort: a completion failure yields no insights.
func (a *BaseAgent) ExtractInsights(ctx context.Context, text, topic string) []Insight {
	a.enterProcessing()
	defer a.exitProcessing()

	prompt := fmt.Sprintf(
		"Review the following material and list the findings most relevant to %s as short bullet points:\n\n%s",
		topic, text,
	)

	completion, err := a.complete(ctx, prompt, nil)
	if err != nil {
		a.logger.Warn("insight extraction failed", "topic", topic, "error", err)
		return nil
	}

	lines := parseInsightLines(completion.Text)
	now := time.Now()

	insights := make([]Insight, 0, len(lines))
	for _, line := range lines {
		insights = append(insights, Insight{
			Source:    a.role,
			Topic:     topic,
			Content:   line,
			Timestamp: now,
		})
	}

	a.mu.Lock()
	a.documents++
	a.insights += len(insights)
	a.mu.Unlock()

	return insights
}

// Status reports a snapshot of the agent's state and counters.
func (a *BaseAgent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Status{
		Role:               a.role,
		State:              a.state,
		QueriesProcessed:   a.queries,
		DocumentsProcessed: a.documents,
		InsightsExtracted:  a.insights,
		ConversationLength: len(a.window),
		LastActivity:       a.lastActivity,
	}
}

// ResetConversation drops the agent's conversation window.
func (a *BaseAgent) ResetConversation() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.window = nil
}

// invokeCapability validates and executes one named operation.
func (a *BaseAgent) invokeCapability(name string, args map[string]interface{}) (FunctionCall, error) {
	capability, ok := a.capIndex[name]
	if !ok {
		return FunctionCall{}, fmt.Errorf("agent %s has no operation %q", a.role, name)
	}

	result, err := capability.Call(args)
	if err != nil {
		return FunctionCall{}, err
	}

	return FunctionCall{Name: name, Arguments: args, Result: result}, nil
}

// complete runs one completion call under the configured timeout.
func (a *BaseAgent) complete(ctx context.Context, input string, tools []providers.Tool) (*providers.Completion, error) {
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	completion, err := a.completer.Complete(cctx, providers.CompletionRequest{
		SystemPrompt: a.systemPrompt,
		History:      a.historyMessages(),
		Input:        input,
		Tools:        tools,
	})
	if err != nil {
		return nil, &providers.ExternalCapabilityError{Capability: "completion", Err: err}
	}
	return completion, nil
}

// completeText is the single-pass helper for supervisor tasks that need raw
// text back.
func (a *BaseAgent) completeText(ctx context.Context, input string) (string, error) {
	completion, err := a.complete(ctx, input, nil)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

func (a *BaseAgent) toolDefs() []providers.Tool {
	tools := make([]providers.Tool, len(a.capabilities))
	for i, c := range a.capabilities {
		tools[i] = c.tool()
	}
	return tools
}

func (a *BaseAgent) historyMessages() []providers.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	messages := make([]providers.Message, 0, len(a.window)*2)
	for _, ex := range a.window {
		messages = append(messages,
			providers.Message{Role: "user", Content: ex.Input},
			providers.Message{Role: "assistant", Content: ex.Response},
		)
	}
	return messages
}

func (a *BaseAgent) recordExchange(input, response string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.window = append(a.window, Exchange{Input: input, Response: response, Timestamp: time.Now()})
	if len(a.window) > a.windowSize {
		a.window = a.window[len(a.window)-a.windowSize:]
	}
}

func (a *BaseAgent) enterProcessing() {
	a.mu.Lock()
	a.state = StateProcessing
	a.lastActivity = time.Now()
	a.mu.Unlock()
}

func (a *BaseAgent) exitProcessing() {
	a.mu.Lock()
	a.state = StateIdle
	a.lastActivity = time.Now()
	a.mu.Unlock()
}

func (a *BaseAgent) textResponse(input, content string, calls []FunctionCall) Response {
	a.recordExchange(input, content)
	a.mu.Lock()
	a.queries++
	a.mu.Unlock()

	return Response{
		Content:       content,
		AgentName:     a.Name(),
		FunctionCalls: calls,
		Metadata: map[string]interface{}{
			"success": true,
			"error":   false,
			"role":    string(a.role),
		},
		Timestamp: time.Now(),
	}
}

func (a *BaseAgent) errorResponse(calls []FunctionCall, err error) Response {
	a.logger.Warn("request failed", "error", err)
	a.mu.Lock()
	a.queries++
	a.mu.Unlock()

	return Response{
		Content:       fmt.Sprintf("failed to process request: %v", err),
		AgentName:     a.Name(),
		FunctionCalls: calls,
		Metadata: map[string]interface{}{
			"success":    false,
			"error":      true,
			"error_type": errorKind(err),
			"role":       string(a.role),
		},
		Timestamp: time.Now(),
	}
}

// errorKind maps an error to its taxonomy label for response metadata.
func errorKind(err error) string {
	var domainErr *analysis.DomainError
	var insufficientErr *analysis.InsufficientDataError
	var zeroVarErr *analysis.ZeroVarianceError
	var capabilityErr *providers.ExternalCapabilityError

	switch {
	case errors.As(err, &domainErr):
		return "domain_error"
	case errors.As(err, &insufficientErr):
		return "insufficient_data"
	case errors.As(err, &zeroVarErr):
		return "zero_variance"
	case errors.As(err, &capabilityErr):
		return "external_capability"
	default:
		return "internal"
	}
}

// formatCalls renders executed operations for the narration pass.
func formatCalls(calls []FunctionCall) string {
	var b strings.Builder
	b.WriteString("Computed results:\n")
	for _, c := range calls {
		data, err := json.Marshal(c.Result)
		if err != nil {
			data = []byte(fmt.Sprintf("%v", c.Result))
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, data)
	}
	return b.String()
}

// parseInsightLines keeps the bulleted or numbered lines of a completion,
// stripped of their markers. At most five insights per pass.
func parseInsightLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		stripped := stripBullet(line)
		if stripped == line || len(stripped) < 10 {
			continue
		}
		out = append(out, stripped)
		if len(out) == 5 {
			break
		}
	}
	return out
}

func stripBullet(line string) string {
	for _, prefix := range []string{"-", "•", "*"} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	if line != "" && line[0] >= '0' && line[0] <= '9' {
		rest := strings.TrimLeft(line, "0123456789")
		if strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, ")") {
			return strings.TrimSpace(rest[1:])
		}
	}
	return line
}
