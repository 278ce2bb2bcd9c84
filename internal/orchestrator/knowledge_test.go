package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/agents"
)

// flakyRecorder fails every mirror write and counts the attempts.
type flakyRecorder struct {
	mu    sync.Mutex
	calls int
}

func (r *flakyRecorder) bump() error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return errors.New("disk on fire")
}

func (r *flakyRecorder) SaveConversation(Conversation) error { return r.bump() }
func (r *flakyRecorder) SaveInsight(agents.Insight) error    { return r.bump() }
func (r *flakyRecorder) SaveDecision(Decision) error         { return r.bump() }
func (r *flakyRecorder) SaveCalculation(Calculation) error   { return r.bump() }

func TestKnowledgeBaseRecordsInOrder(t *testing.T) {
	kb := NewKnowledgeBase(nil, quietLogger())

	first := kb.RecordConversation(Conversation{Agent: agents.RoleInventory, Query: "q1", Response: "r1"})
	second := kb.RecordConversation(Conversation{Agent: agents.RoleMath, Query: "q2", Response: "r2"})

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Timestamp.IsZero())

	convs := kb.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, "q1", convs[0].Query)
	assert.Equal(t, "q2", convs[1].Query)
}

func TestKnowledgeBaseSizes(t *testing.T) {
	kb := NewKnowledgeBase(nil, quietLogger())

	kb.RecordConversation(Conversation{Agent: agents.RoleInventory, Query: "q", Response: "r"})
	kb.RecordInsight(agents.Insight{Source: agents.RoleInventory, Topic: "inventory management", Content: "stock fell"})
	kb.RecordInsight(agents.Insight{Source: agents.RoleOperations, Topic: "warehouse operations", Content: "dock jammed"})
	kb.RecordDecision(Decision{Source: agents.RoleSupervisor, Decision: "route query to inventory"})
	kb.RecordCalculation(Calculation{Agent: agents.RoleInventory, Operation: "calculate_eoq"})

	assert.Equal(t, map[string]int{
		"conversations": 1,
		"insights":      2,
		"decisions":     1,
		"calculations":  1,
	}, kb.Sizes())
}

func TestKnowledgeBaseResetClearsEverythingAtOnce(t *testing.T) {
	kb := NewKnowledgeBase(nil, quietLogger())
	kb.RecordConversation(Conversation{Agent: agents.RoleInventory, Query: "q", Response: "r"})
	kb.RecordInsight(agents.Insight{Source: agents.RoleInventory, Content: "stock fell below reorder point"})
	kb.RecordDecision(Decision{Source: agents.RoleSupervisor, Decision: "route query to inventory"})
	kb.RecordCalculation(Calculation{Agent: agents.RoleInventory, Operation: "calculate_eoq"})

	kb.Reset()

	for kind, n := range kb.Sizes() {
		assert.Zerof(t, n, "%s not cleared", kind)
	}
}

func TestKnowledgeBaseAccessorsReturnCopies(t *testing.T) {
	kb := NewKnowledgeBase(nil, quietLogger())
	kb.RecordDecision(Decision{Source: agents.RoleSupervisor, Decision: "original"})

	got := kb.Decisions()
	got[0].Decision = "tampered"

	assert.Equal(t, "original", kb.Decisions()[0].Decision)
}

func TestKnowledgeBaseConcurrentAppends(t *testing.T) {
	kb := NewKnowledgeBase(nil, quietLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				kb.RecordConversation(Conversation{
					Agent:    agents.RoleInventory,
					Query:    fmt.Sprintf("w%d-q%d", worker, j),
					Response: "r",
				})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, kb.Sizes()["conversations"])
}

func TestKnowledgeBaseMirrorFailureIsTolerated(t *testing.T) {
	mirror := &flakyRecorder{}
	kb := NewKnowledgeBase(mirror, quietLogger())

	kb.RecordConversation(Conversation{Agent: agents.RoleInventory, Query: "q", Response: "r", Timestamp: time.Now()})
	kb.RecordInsight(agents.Insight{Source: agents.RoleInventory, Content: "stock fell below reorder point"})
	kb.RecordDecision(Decision{Source: agents.RoleSupervisor, Decision: "route query to inventory"})
	kb.RecordCalculation(Calculation{Agent: agents.RoleInventory, Operation: "calculate_eoq"})

	// In-memory state is authoritative even when every mirror write fails.
	assert.Equal(t, 4, mirror.calls)
	for _, n := range kb.Sizes() {
		assert.Equal(t, 1, n)
	}
}
