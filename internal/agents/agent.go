package agents

import (
	"context"
	"fmt"
	"time"
)

// AgentRole identifies one of the fixed set of agents in the system.
// The set is closed: adding a role means adding a dispatch queue and a
// routing keyword set alongside it.
type AgentRole string

const (
	RoleSupervisor AgentRole = "supervisor"
	RoleInventory  AgentRole = "inventory"
	RoleOperations AgentRole = "operations"
	RoleMath       AgentRole = "math"
	RoleQuality    AgentRole = "quality"
)

// Specialists returns the four domain roles in routing priority order.
func Specialists() []AgentRole {
	return []AgentRole{RoleInventory, RoleOperations, RoleMath, RoleQuality}
}

// AllRoles returns every role including the supervisor.
func AllRoles() []AgentRole {
	return append([]AgentRole{RoleSupervisor}, Specialists()...)
}

// ParseRole validates a role name from an external caller.
func ParseRole(s string) (AgentRole, error) {
	switch AgentRole(s) {
	case RoleSupervisor, RoleInventory, RoleOperations, RoleMath, RoleQuality:
		return AgentRole(s), nil
	}
	return "", fmt.Errorf("agents: unknown agent role %q", s)
}

// State reports whether an agent is between requests or handling one.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
)

// FunctionCall records one analysis operation an agent executed while
// resolving a request, in execution order.
type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    interface{}            `json:"result"`
}

// Response is what an agent produces for one processed input. Metadata
// always carries success and error flags; failures never cross the agent
// boundary as errors.
type Response struct {
	Content       string                 `json:"content"`
	AgentName     string                 `json:"agent_name"`
	FunctionCalls []FunctionCall         `json:"function_calls,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	Timestamp     time.Time              `json:"timestamp"`
}

// IsError reports whether the response captured a failure.
func (r Response) IsError() bool {
	flagged, _ := r.Metadata["error"].(bool)
	return flagged
}

// Status is a live snapshot of one agent for the status surface.
type Status struct {
	Role               AgentRole `json:"role"`
	State              State     `json:"state"`
	QueriesProcessed   int       `json:"queries_processed"`
	DocumentsProcessed int       `json:"documents_processed"`
	InsightsExtracted  int       `json:"insights_extracted"`
	ConversationLength int       `json:"conversation_length"`
	LastActivity       time.Time `json:"last_activity"`
}

// Exchange is one input/response turn kept in an agent's bounded window.
type Exchange struct {
	Input     string
	Response  string
	Timestamp time.Time
}

// Insight is a single observation an agent extracted from shared material,
// destined for the knowledge base.
type Insight struct {
	Source    AgentRole `json:"source"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RouteDecision is the routing engine's verdict for one query. When more
// than one domain scores, AdditionalAgents carries every nonzero-scoring
// role in priority order, the primary included.
type RouteDecision struct {
	Primary                AgentRole         `json:"primary"`
	Scores                 map[AgentRole]int `json:"scores"`
	AdditionalAgents       []AgentRole       `json:"additional_agents,omitempty"`
	RequiresMultipleAgents bool              `json:"requires_multiple_agents"`
	Ambiguous              bool              `json:"ambiguous"`
}

// Router resolves a query to the agent best suited to answer it. The
// supervisor owns an implementation; everything here depends only on the
// contract.
type Router interface {
	Route(query string) RouteDecision
}

// Agent is the unit of work behind one role's queue. Process never returns
// an error: failures are folded into the response with error metadata.
type Agent interface {
	Role() AgentRole
	Name() string
	Process(ctx context.Context, input string, reqCtx map[string]interface{}) Response
	ProcessStream(ctx context.Context, input string, reqCtx map[string]interface{}, onChunk func(string) error) error
	ExtractInsights(ctx context.Context, text, topic string) []Insight
	Status() Status
	ResetConversation()
}
