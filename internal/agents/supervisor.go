package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"foreman/internal/providers"
)

const supervisorPrompt = `You coordinate a team of warehouse specialists: inventory, operations, math and quality.
You route questions to the right specialist, check their answers for accuracy and scope,
and combine multiple specialist answers into one coherent response.`

// SupervisorAgent coordinates the specialists. It owns the routing engine
// and performs response validation and multi-agent synthesis; it has no
// analysis capabilities of its own.
type SupervisorAgent struct {
	*BaseAgent
	router Router
}

// Validation is the supervisor's verdict on another agent's response.
type Validation struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

// NewSupervisorAgent builds the supervisor around an injected router.
func NewSupervisorAgent(completer providers.Completer, router Router, windowSize int, timeout time.Duration, logger *slog.Logger) *SupervisorAgent {
	return &SupervisorAgent{
		BaseAgent: NewBaseAgent(RoleSupervisor, supervisorPrompt, completer, nil, windowSize, timeout, logger),
		router:    router,
	}
}

// RouteQuery resolves which specialist should take a query.
func (s *SupervisorAgent) RouteQuery(query string) RouteDecision {
	return s.router.Route(query)
}

// ValidateResponse reviews a specialist's answer for accuracy and scope.
func (s *SupervisorAgent) ValidateResponse(ctx context.Context, query, agentName, content string) (*Validation, error) {
	prompt := fmt.Sprintf(
		"Review this response from the %s specialist for numeric accuracy and scope.\n\nQuestion: %s\n\nResponse: %s\n\nReply with APPROVED or NEEDS_REVISION on the first line, then one line of reasoning.",
		agentName, query, content,
	)

	text, err := s.completeText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	upper := strings.ToUpper(text)
	approved := strings.Contains(upper, "APPROVED") && !strings.Contains(upper, "NEEDS_REVISION")

	return &Validation{Approved: approved, Notes: strings.TrimSpace(text)}, nil
}

// Synthesize combines per-specialist answers into one response. Specialists
// are presented in name order so the same inputs produce the same prompt.
func (s *SupervisorAgent) Synthesize(ctx context.Context, query string, responses map[string]string) (string, error) {
	names := make([]string, 0, len(responses))
	for name := range responses {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Combine the specialist answers below into one response to: %s\n", query)
	for _, name := range names {
		fmt.Fprintf(&b, "\n[%s]\n%s\n", name, responses[name])
	}
	b.WriteString("\nResolve disagreements explicitly and keep every quoted figure.")

	return s.completeText(ctx, b.String())
}
