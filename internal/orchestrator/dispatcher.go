package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"foreman/internal/agents"
	"foreman/internal/monitoring"
)

// Task kinds carried by an envelope. An empty task means process.
const (
	taskProcess         = "process"
	taskExtractInsights = "extract_insights"
	taskNotify          = "notify"
	taskStream          = "stream"
)

// Envelope is one message on the bus. Envelopes are immutable after
// creation and consumed exactly once by the receiver's worker.
type Envelope struct {
	ID        string                 `json:"id"`
	Task      string                 `json:"task,omitempty"`
	Sender    agents.AgentRole       `json:"sender"`
	Receiver  agents.AgentRole       `json:"receiver"`
	Content   string                 `json:"content"`
	Topic     string                 `json:"topic,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	reply      chan agents.Response
	stream     func(string) error
	streamDone chan error
}

// Dispatcher owns one bounded queue and one worker per agent role. Send
// never blocks; workers drain their own queue in FIFO order and stop on
// the shutdown signal.
type Dispatcher struct {
	kb      *KnowledgeBase
	metrics *monitoring.Metrics
	logger  *slog.Logger

	registry map[agents.AgentRole]agents.Agent
	queues   map[agents.AgentRole]chan Envelope

	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher builds queues for every registered agent.
func NewDispatcher(registry map[agents.AgentRole]agents.Agent, queueCapacity int, kb *KnowledgeBase, metrics *monitoring.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueCapacity <= 0 {
		queueCapacity = 32
	}

	queues := make(map[agents.AgentRole]chan Envelope, len(registry))
	for role := range registry {
		queues[role] = make(chan Envelope, queueCapacity)
	}

	return &Dispatcher{
		kb:       kb,
		metrics:  metrics,
		logger:   logger.With("component", "dispatcher"),
		registry: registry,
		queues:   queues,
		quit:     make(chan struct{}),
	}
}

// Start launches one worker per role.
func (d *Dispatcher) Start() {
	for role, ch := range d.queues {
		d.wg.Add(1)
		go d.worker(role, ch)
	}
	d.logger.Info("dispatcher started", "workers", len(d.queues))
}

// Stop signals all workers and waits for in-flight messages to finish.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	d.wg.Wait()
}

// Send enqueues one envelope without blocking. A full queue or an unknown
// receiver is reported to the sender instead of stalling it.
func (d *Dispatcher) Send(env Envelope) error {
	ch, ok := d.queues[env.Receiver]
	if !ok {
		return fmt.Errorf("orchestrator: no agent registered for role %q", env.Receiver)
	}

	select {
	case ch <- env:
		d.metrics.SetQueueDepth(string(env.Receiver), len(ch))
		return nil
	default:
		return fmt.Errorf("orchestrator: %s queue is full (capacity %d)", env.Receiver, cap(ch))
	}
}

// Depths reports the number of waiting messages per role.
func (d *Dispatcher) Depths() map[string]int {
	depths := make(map[string]int, len(d.queues))
	for role, ch := range d.queues {
		depths[string(role)] = len(ch)
	}
	return depths
}

func (d *Dispatcher) worker(role agents.AgentRole, ch chan Envelope) {
	defer d.wg.Done()
	ag := d.registry[role]

	for {
		select {
		case <-d.quit:
			return
		case env := <-ch:
			d.metrics.SetQueueDepth(string(role), len(ch))
			d.handle(ag, env)
		}
	}
}

// handle resolves one envelope. Failures and panics are contained here:
// one bad message never takes the worker down or blocks the queue.
func (d *Dispatcher) handle(ag agents.Agent, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("message handling panicked",
				"agent", ag.Name(), "message_id", env.ID, "panic", r)
			if env.reply != nil {
				env.reply <- agents.Response{
					Content:   fmt.Sprintf("failed to process request: internal failure handling message %s", env.ID),
					AgentName: ag.Name(),
					Metadata: map[string]interface{}{
						"success":    false,
						"error":      true,
						"error_type": "internal",
						"role":       ag.Name(),
					},
					Timestamp: time.Now(),
				}
			}
			if env.streamDone != nil {
				env.streamDone <- fmt.Errorf("orchestrator: internal failure handling message %s: %v", env.ID, r)
			}
		}
	}()

	// In-flight work runs to completion; only the agent's own completion
	// timeout bounds it.
	ctx := context.Background()

	switch env.Task {
	case taskExtractInsights:
		d.handleExtract(ctx, ag, env)
	case taskNotify:
		d.logger.Info("notification delivered",
			"agent", ag.Name(), "from", string(env.Sender), "in_reply_to", env.Context["in_reply_to"])
	case taskStream:
		d.handleStream(ctx, ag, env)
	default:
		d.handleProcess(ctx, ag, env)
	}
}

func (d *Dispatcher) handleProcess(ctx context.Context, ag agents.Agent, env Envelope) {
	start := time.Now()
	resp := ag.Process(ctx, env.Content, env.Context)

	d.record(env.Receiver, env.Content, resp)
	d.metrics.ObserveQuery(ag.Name(), resp.IsError(), time.Since(start))

	switch {
	case env.reply != nil:
		env.reply <- resp
	case boolFlag(env.Context, "requires_response"):
		reply := Envelope{
			ID:        uuid.NewString(),
			Task:      taskNotify,
			Sender:    env.Receiver,
			Receiver:  env.Sender,
			Content:   resp.Content,
			Context:   map[string]interface{}{"in_reply_to": env.ID},
			Timestamp: time.Now(),
		}
		if err := d.Send(reply); err != nil {
			d.logger.Warn("reply not delivered", "to", string(env.Sender), "error", err)
		}
	}
}

func (d *Dispatcher) handleStream(ctx context.Context, ag agents.Agent, env Envelope) {
	start := time.Now()

	var full strings.Builder
	err := ag.ProcessStream(ctx, env.Content, env.Context, func(chunk string) error {
		full.WriteString(chunk)
		return env.stream(chunk)
	})

	if err == nil {
		d.kb.RecordConversation(Conversation{
			Agent:    env.Receiver,
			Query:    env.Content,
			Response: full.String(),
		})
		d.metrics.ObserveQuery(ag.Name(), false, time.Since(start))
		env.streamDone <- nil
		return
	}

	// Fall back to the buffered path only when the caller saw nothing;
	// once chunks have flowed the caller must get the error instead of
	// duplicated content.
	if full.Len() > 0 {
		d.metrics.ObserveQuery(ag.Name(), true, time.Since(start))
		env.streamDone <- err
		return
	}

	d.logger.Warn("streaming failed, falling back to buffered completion",
		"agent", ag.Name(), "error", err)

	resp := ag.Process(ctx, env.Content, env.Context)
	d.record(env.Receiver, env.Content, resp)
	d.metrics.ObserveQuery(ag.Name(), resp.IsError(), time.Since(start))

	if resp.IsError() {
		env.streamDone <- fmt.Errorf("orchestrator: streaming and buffered fallback both failed: %s", resp.Content)
		return
	}
	if err := env.stream(resp.Content); err != nil {
		env.streamDone <- err
		return
	}
	env.streamDone <- nil
}

func (d *Dispatcher) handleExtract(ctx context.Context, ag agents.Agent, env Envelope) {
	insights := ag.ExtractInsights(ctx, env.Content, env.Topic)
	for _, in := range insights {
		d.kb.RecordInsight(in)
	}

	d.metrics.RecordInsights(ag.Name(), len(insights))
	d.logger.Info("insights extracted",
		"agent", ag.Name(), "topic", env.Topic, "document", env.Context["document"], "count", len(insights))
}

// record keeps the knowledge trail for one processed message: the
// conversation itself plus one calculation entry per executed operation.
func (d *Dispatcher) record(role agents.AgentRole, query string, resp agents.Response) {
	d.kb.RecordConversation(Conversation{
		Agent:    role,
		Query:    query,
		Response: resp.Content,
		Error:    resp.IsError(),
	})
	for _, call := range resp.FunctionCalls {
		d.kb.RecordCalculation(Calculation{
			Agent:     role,
			Operation: call.Name,
			Arguments: call.Arguments,
			Result:    call.Result,
		})
		d.metrics.RecordAnalysisCall(call.Name)
	}
}

func boolFlag(ctx map[string]interface{}, key string) bool {
	v, _ := ctx[key].(bool)
	return v
}
