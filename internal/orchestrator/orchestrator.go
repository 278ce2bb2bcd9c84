// Package orchestrator coordinates the role agents: routing queries onto
// per-role queues, running handoff chains and multi-agent fan-out, and
// keeping the shared knowledge base.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"foreman/internal/agents"
	"foreman/internal/documents"
	"foreman/internal/monitoring"
)

// A handoff chain never visits more agents than this.
const maxHandoffs = 5

// insightFocus is what each downstream agent looks for in a shared document.
var insightFocus = map[agents.AgentRole]string{
	agents.RoleInventory:  "inventory management",
	agents.RoleOperations: "warehouse operations",
}

// Options tunes orchestrator behavior.
type Options struct {
	// QueueCapacity bounds each role's inbound queue.
	QueueCapacity int
	// ValidateResponses runs supervisor review over successful answers.
	ValidateResponses bool
}

// HandoffResult is the outcome of a handoff chain: the final response and
// the ordered list of agents visited.
type HandoffResult struct {
	FinalResponse agents.Response    `json:"final_response"`
	HandoffChain  []agents.AgentRole `json:"handoff_chain"`
}

// SystemStatus is the live snapshot behind the status surface.
type SystemStatus struct {
	Agents        map[string]agents.Status `json:"agents"`
	KnowledgeBase map[string]int           `json:"knowledge_base"`
	QueueDepths   map[string]int           `json:"queue_depths"`
	Metrics       map[string]interface{}   `json:"metrics,omitempty"`
	UptimeSeconds float64                  `json:"uptime_seconds"`
	Timestamp     time.Time                `json:"timestamp"`
}

// Orchestrator owns the knowledge base, the dispatcher and the agents.
type Orchestrator struct {
	supervisor  *agents.SupervisorAgent
	specialists map[agents.AgentRole]agents.Agent
	dispatcher  *Dispatcher
	kb          *KnowledgeBase
	metrics     *monitoring.Metrics
	monitor     *monitoring.Monitor
	logger      *slog.Logger
	validate    bool
	started     time.Time
}

// New wires the orchestrator. The supervisor and every specialist get
// their own queue and worker.
func New(supervisor *agents.SupervisorAgent, specialists map[agents.AgentRole]agents.Agent, kb *KnowledgeBase, metrics *monitoring.Metrics, monitor *monitoring.Monitor, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	registry := make(map[agents.AgentRole]agents.Agent, len(specialists)+1)
	for role, ag := range specialists {
		registry[role] = ag
	}
	registry[agents.RoleSupervisor] = supervisor

	return &Orchestrator{
		supervisor:  supervisor,
		specialists: specialists,
		dispatcher:  NewDispatcher(registry, opts.QueueCapacity, kb, metrics, logger),
		kb:          kb,
		metrics:     metrics,
		monitor:     monitor,
		logger:      logger.With("component", "orchestrator"),
		validate:    opts.ValidateResponses,
		started:     time.Now(),
	}
}

// Start launches the role workers.
func (o *Orchestrator) Start() {
	o.started = time.Now()
	o.dispatcher.Start()
}

// Stop shuts the workers down and waits for in-flight messages.
func (o *Orchestrator) Stop() {
	o.dispatcher.Stop()
}

// KnowledgeBase exposes the shared store.
func (o *Orchestrator) KnowledgeBase() *KnowledgeBase {
	return o.kb
}

// SubmitQuery routes one query to its primary agent and waits for the
// response. The routing decision rides along in the response metadata;
// when validation is on, so does the supervisor's verdict.
func (o *Orchestrator) SubmitQuery(ctx context.Context, text string, reqCtx map[string]interface{}) (agents.Response, error) {
	decision := o.supervisor.RouteQuery(text)
	o.recordRouting(decision)

	resp, err := o.dispatch(ctx, decision.Primary, text, reqCtx)
	if err != nil {
		return agents.Response{}, err
	}
	resp.Metadata["routing"] = decision

	if o.validate && !resp.IsError() {
		verdict, err := o.supervisor.ValidateResponse(ctx, text, resp.AgentName, resp.Content)
		if err != nil {
			o.logger.Warn("validation skipped", "agent", resp.AgentName, "error", err)
		} else {
			resp.Metadata["validation_approved"] = verdict.Approved
			resp.Metadata["validation_notes"] = verdict.Notes
			o.kb.RecordDecision(Decision{
				Source:   agents.RoleSupervisor,
				Decision: fmt.Sprintf("validated %s response: approved=%t", resp.AgentName, verdict.Approved),
				Reason:   verdict.Notes,
			})
		}
	}

	o.monitor.Increment("queries_submitted")
	o.monitor.RecordMetric("last_primary_agent", string(decision.Primary))
	return resp, nil
}

// SubmitQueryStreaming routes one query and delivers the answer as an
// ordered sequence of chunks. It returns the agent that handled the query
// and blocks until the stream finishes.
func (o *Orchestrator) SubmitQueryStreaming(ctx context.Context, text string, reqCtx map[string]interface{}, onChunk func(string) error) (agents.AgentRole, error) {
	decision := o.supervisor.RouteQuery(text)
	o.recordRouting(decision)

	done := make(chan error, 1)
	env := Envelope{
		ID:         uuid.NewString(),
		Task:       taskStream,
		Sender:     agents.RoleSupervisor,
		Receiver:   decision.Primary,
		Content:    text,
		Context:    reqCtx,
		Timestamp:  time.Now(),
		stream:     onChunk,
		streamDone: done,
	}
	if err := o.dispatcher.Send(env); err != nil {
		return decision.Primary, err
	}

	select {
	case err := <-done:
		return decision.Primary, err
	case <-ctx.Done():
		return decision.Primary, fmt.Errorf("orchestrator: waiting for %s stream: %w", decision.Primary, ctx.Err())
	}
}

// SubmitWithHandoff runs a handoff chain from an explicit initial agent.
// A supervisor hop redirects once through the routing engine; any other
// hop resolves the query and ends the chain. The chain is the audit trail:
// the same query and initial agent always produce the same chain.
func (o *Orchestrator) SubmitWithHandoff(ctx context.Context, text string, initial agents.AgentRole) (*HandoffResult, error) {
	if _, ok := o.dispatcher.registry[initial]; !ok {
		return nil, fmt.Errorf("orchestrator: unknown initial agent %q", initial)
	}

	var (
		chain      []agents.AgentRole
		final      agents.Response
		redirected bool
		resolved   bool
	)

	current := initial
	for hop := 0; hop < maxHandoffs; hop++ {
		chain = append(chain, current)

		if current == agents.RoleSupervisor && !redirected {
			decision := o.supervisor.RouteQuery(text)
			o.recordRouting(decision)
			o.kb.RecordDecision(Decision{
				Source:   agents.RoleSupervisor,
				Decision: fmt.Sprintf("handoff redirect to %s", decision.Primary),
				Reason:   fmt.Sprintf("hop %d of at most %d", hop+1, maxHandoffs),
			})
			current = decision.Primary
			redirected = true
			continue
		}

		resp, err := o.dispatch(ctx, current, text, nil)
		if err != nil {
			return nil, err
		}
		final = resp
		resolved = true
		break
	}

	if !resolved {
		return nil, fmt.Errorf("orchestrator: handoff chain exhausted after %d hops", maxHandoffs)
	}

	o.metrics.ObserveHandoff(len(chain))
	o.monitor.Increment("handoffs")
	return &HandoffResult{FinalResponse: final, HandoffChain: chain}, nil
}

// SubmitToMultipleAgents fans one query out to the named agents and
// collects every result. Each agent's outcome is captured independently;
// a failure in one pipeline never hides the others' answers.
func (o *Orchestrator) SubmitToMultipleAgents(ctx context.Context, text string, roles []agents.AgentRole) map[string]agents.Response {
	results := make(map[string]agents.Response, len(roles))
	var mu sync.Mutex
	var wg sync.WaitGroup

	seen := make(map[agents.AgentRole]bool, len(roles))
	for _, role := range roles {
		if seen[role] {
			continue
		}
		seen[role] = true

		wg.Add(1)
		go func(role agents.AgentRole) {
			defer wg.Done()
			resp, err := o.dispatch(ctx, role, text, nil)
			if err != nil {
				resp = failureResponse(role, err)
			}
			mu.Lock()
			results[string(role)] = resp
			mu.Unlock()
		}(role)
	}
	wg.Wait()

	o.monitor.Increment("multi_agent_queries")
	return results
}

// Synthesize combines multi-agent results into one answer through the
// supervisor. Failed responses are left out; synthesizing nothing is an
// error.
func (o *Orchestrator) Synthesize(ctx context.Context, query string, responses map[string]agents.Response) (string, error) {
	texts := make(map[string]string, len(responses))
	for name, resp := range responses {
		if !resp.IsError() {
			texts[name] = resp.Content
		}
	}
	if len(texts) == 0 {
		return "", errors.New("orchestrator: no successful responses to synthesize")
	}

	combined, err := o.supervisor.Synthesize(ctx, query, texts)
	if err != nil {
		return "", err
	}

	o.kb.RecordDecision(Decision{
		Source:   agents.RoleSupervisor,
		Decision: "synthesized multi-agent response",
		Reason:   fmt.Sprintf("%d of %d specialist responses usable", len(texts), len(responses)),
	})
	return combined, nil
}

// ShareDocuments fans ingested documents out for insight extraction: one
// task per document per insight agent, so N documents make N*M tasks. It
// returns how many tasks were enqueued; enqueue failures are joined but do
// not stop the rest of the fan-out.
func (o *Orchestrator) ShareDocuments(docs []*documents.Document) (int, error) {
	targets := []agents.AgentRole{agents.RoleInventory, agents.RoleOperations}

	enqueued := 0
	var errs []error

	for _, doc := range docs {
		for _, role := range targets {
			env := Envelope{
				ID:        uuid.NewString(),
				Task:      taskExtractInsights,
				Sender:    agents.RoleSupervisor,
				Receiver:  role,
				Content:   doc.Content,
				Topic:     insightFocus[role],
				Context:   map[string]interface{}{"document": doc.Name},
				Timestamp: time.Now(),
			}
			if err := o.dispatcher.Send(env); err != nil {
				errs = append(errs, fmt.Errorf("%s to %s: %w", doc.Name, role, err))
				continue
			}
			enqueued++
		}
	}

	o.monitor.RecordMetric("last_documents_shared", len(docs))
	return enqueued, errors.Join(errs...)
}

// SystemStatus snapshots every agent, the knowledge base and the queues.
func (o *Orchestrator) SystemStatus() SystemStatus {
	agentStatus := make(map[string]agents.Status, len(o.specialists)+1)
	agentStatus[string(agents.RoleSupervisor)] = o.supervisor.Status()
	for role, ag := range o.specialists {
		agentStatus[string(role)] = ag.Status()
	}

	return SystemStatus{
		Agents:        agentStatus,
		KnowledgeBase: o.kb.Sizes(),
		QueueDepths:   o.dispatcher.Depths(),
		Metrics:       o.monitor.GetMetrics(),
		UptimeSeconds: time.Since(o.started).Seconds(),
		Timestamp:     time.Now(),
	}
}

// ResetAll clears every agent's conversation window and the knowledge base.
func (o *Orchestrator) ResetAll() {
	o.supervisor.ResetConversation()
	for _, ag := range o.specialists {
		ag.ResetConversation()
	}
	o.kb.Reset()
	o.logger.Info("conversations and knowledge base reset")
}

// dispatch enqueues one message and waits for the worker's reply.
func (o *Orchestrator) dispatch(ctx context.Context, role agents.AgentRole, content string, reqCtx map[string]interface{}) (agents.Response, error) {
	reply := make(chan agents.Response, 1)
	env := Envelope{
		ID:        uuid.NewString(),
		Task:      taskProcess,
		Sender:    agents.RoleSupervisor,
		Receiver:  role,
		Content:   content,
		Context:   reqCtx,
		Timestamp: time.Now(),
		reply:     reply,
	}
	if err := o.dispatcher.Send(env); err != nil {
		return agents.Response{}, err
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return agents.Response{}, fmt.Errorf("orchestrator: waiting for %s response: %w", role, ctx.Err())
	}
}

func (o *Orchestrator) recordRouting(decision agents.RouteDecision) {
	o.metrics.RecordRouting(string(decision.Primary), decision.Ambiguous)

	reason := fmt.Sprintf("scores %v", decision.Scores)
	if decision.RequiresMultipleAgents {
		reason = fmt.Sprintf("%s, additional %v", reason, decision.AdditionalAgents)
	}
	o.kb.RecordDecision(Decision{
		Source:   agents.RoleSupervisor,
		Decision: fmt.Sprintf("route query to %s", decision.Primary),
		Reason:   reason,
	})
}

// failureResponse folds an orchestrator-level failure into the response
// shape used by fan-out, so one bad slot reads like any other failure.
func failureResponse(role agents.AgentRole, err error) agents.Response {
	return agents.Response{
		Content:   fmt.Sprintf("failed to process request: %v", err),
		AgentName: string(role),
		Metadata: map[string]interface{}{
			"success":    false,
			"error":      true,
			"error_type": "internal",
			"role":       string(role),
		},
		Timestamp: time.Now(),
	}
}
