package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"foreman/internal/agents"
)

// Conversation is one recorded query/response exchange.
type Conversation struct {
	ID        string           `json:"id"`
	Agent     agents.AgentRole `json:"agent"`
	Query     string           `json:"query"`
	Response  string           `json:"response"`
	Error     bool             `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
}

// Decision is one recorded coordination verdict: a routing choice, a
// handoff redirect, a validation outcome or a synthesis.
type Decision struct {
	ID        string           `json:"id"`
	Source    agents.AgentRole `json:"source"`
	Decision  string           `json:"decision"`
	Reason    string           `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
}

// Calculation is one recorded analysis operation with its inputs and result.
type Calculation struct {
	ID        string                 `json:"id"`
	Agent     agents.AgentRole       `json:"agent"`
	Operation string                 `json:"operation"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    interface{}            `json:"result"`
	Timestamp time.Time              `json:"timestamp"`
}

// Recorder mirrors knowledge entries to durable storage. Mirroring is best
// effort: failures are logged and never propagate to the caller.
type Recorder interface {
	SaveConversation(Conversation) error
	SaveInsight(agents.Insight) error
	SaveDecision(Decision) error
	SaveCalculation(Calculation) error
}

// KnowledgeBase is the shared append-only store. Four ordered sequences,
// written concurrently by the role workers, cleared only by Reset.
type KnowledgeBase struct {
	logger *slog.Logger
	mirror Recorder

	mu            sync.Mutex
	conversations []Conversation
	insights      []agents.Insight
	decisions     []Decision
	calculations  []Calculation
}

// NewKnowledgeBase builds an empty knowledge base. mirror may be nil.
func NewKnowledgeBase(mirror Recorder, logger *slog.Logger) *KnowledgeBase {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeBase{
		logger: logger.With("component", "knowledge"),
		mirror: mirror,
	}
}

// RecordConversation appends one exchange and returns it with its assigned ID.
func (kb *KnowledgeBase) RecordConversation(c Conversation) Conversation {
	c.ID = uuid.NewString()
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}

	kb.mu.Lock()
	kb.conversations = append(kb.conversations, c)
	kb.mu.Unlock()

	if kb.mirror != nil {
		if err := kb.mirror.SaveConversation(c); err != nil {
			kb.logger.Warn("conversation mirror failed", "error", err)
		}
	}
	return c
}

// RecordInsight appends one extracted insight.
func (kb *KnowledgeBase) RecordInsight(in agents.Insight) {
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	kb.mu.Lock()
	kb.insights = append(kb.insights, in)
	kb.mu.Unlock()

	if kb.mirror != nil {
		if err := kb.mirror.SaveInsight(in); err != nil {
			kb.logger.Warn("insight mirror failed", "error", err)
		}
	}
}

// RecordDecision appends one coordination decision and returns it with its
// assigned ID.
func (kb *KnowledgeBase) RecordDecision(d Decision) Decision {
	d.ID = uuid.NewString()
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}

	kb.mu.Lock()
	kb.decisions = append(kb.decisions, d)
	kb.mu.Unlock()

	if kb.mirror != nil {
		if err := kb.mirror.SaveDecision(d); err != nil {
			kb.logger.Warn("decision mirror failed", "error", err)
		}
	}
	return d
}

// RecordCalculation appends one executed analysis operation and returns it
// with its assigned ID.
func (kb *KnowledgeBase) RecordCalculation(c Calculation) Calculation {
	c.ID = uuid.NewString()
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}

	kb.mu.Lock()
	kb.calculations = append(kb.calculations, c)
	kb.mu.Unlock()

	if kb.mirror != nil {
		if err := kb.mirror.SaveCalculation(c); err != nil {
			kb.logger.Warn("calculation mirror failed", "error", err)
		}
	}
	return c
}

// Sizes reports the length of each sequence.
func (kb *KnowledgeBase) Sizes() map[string]int {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return map[string]int{
		"conversations": len(kb.conversations),
		"insights":      len(kb.insights),
		"decisions":     len(kb.decisions),
		"calculations":  len(kb.calculations),
	}
}

// Conversations returns a copy of the conversation sequence in append order.
func (kb *KnowledgeBase) Conversations() []Conversation {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return append([]Conversation(nil), kb.conversations...)
}

// Insights returns a copy of the insight sequence in append order.
func (kb *KnowledgeBase) Insights() []agents.Insight {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return append([]agents.Insight(nil), kb.insights...)
}

// Decisions returns a copy of the decision sequence in append order.
func (kb *KnowledgeBase) Decisions() []Decision {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return append([]Decision(nil), kb.decisions...)
}

// Calculations returns a copy of the calculation sequence in append order.
func (kb *KnowledgeBase) Calculations() []Calculation {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return append([]Calculation(nil), kb.calculations...)
}

// Reset clears all four sequences under one lock, so no reader ever
// observes a partially cleared store.
func (kb *KnowledgeBase) Reset() {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.conversations = nil
	kb.insights = nil
	kb.decisions = nil
	kb.calculations = nil
}
