package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/agents"
	"foreman/internal/documents"
	"foreman/internal/monitoring"
	"foreman/internal/orchestrator"
	"foreman/internal/providers"
)

// scriptedAgent returns canned answers, for HTTP-level tests.
type scriptedAgent struct {
	role   agents.AgentRole
	answer string
	chunks []string
}

func (a *scriptedAgent) Role() agents.AgentRole { return a.role }
func (a *scriptedAgent) Name() string           { return string(a.role) }

func (a *scriptedAgent) Process(ctx context.Context, input string, reqCtx map[string]interface{}) agents.Response {
	return agents.Response{
		Content:   a.answer,
		AgentName: a.Name(),
		Metadata:  map[string]interface{}{"success": true, "error": false, "role": a.Name()},
		Timestamp: time.Now(),
	}
}

func (a *scriptedAgent) ProcessStream(ctx context.Context, input string, reqCtx map[string]interface{}, onChunk func(string) error) error {
	for _, c := range a.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return nil
}

func (a *scriptedAgent) ExtractInsights(ctx context.Context, text, topic string) []agents.Insight {
	return []agents.Insight{{Source: a.role, Topic: topic, Content: "noted " + topic, Timestamp: time.Now()}}
}

func (a *scriptedAgent) Status() agents.Status {
	return agents.Status{Role: a.role, State: agents.StateIdle}
}

func (a *scriptedAgent) ResetConversation() {}

type scriptedCompleter struct {
	text string
}

func (s *scriptedCompleter) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.Completion, error) {
	return &providers.Completion{Text: s.text}, nil
}

func (s *scriptedCompleter) StreamComplete(ctx context.Context, req providers.CompletionRequest, onChunk func(string) error) error {
	return onChunk(s.text)
}

type stubRouter struct {
	primary agents.AgentRole
}

func (s stubRouter) Route(string) agents.RouteDecision {
	return agents.RouteDecision{Primary: s.primary, Scores: map[agents.AgentRole]int{s.primary: 1}}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	specialists := map[agents.AgentRole]agents.Agent{
		agents.RoleInventory:  &scriptedAgent{role: agents.RoleInventory, answer: "Stock is healthy.", chunks: []string{"Stock ", "is ", "healthy."}},
		agents.RoleOperations: &scriptedAgent{role: agents.RoleOperations, answer: "Flow is stable."},
		agents.RoleMath:       &scriptedAgent{role: agents.RoleMath, answer: "The EOQ is 400."},
	}
	sup := agents.NewSupervisorAgent(&scriptedCompleter{text: "Combined figures hold."}, stubRouter{primary: agents.RoleInventory}, 10, time.Second, quiet())
	orch := orchestrator.New(sup, specialists, orchestrator.NewKnowledgeBase(nil, quiet()), nil, monitoring.NewMonitor(), orchestrator.Options{}, quiet())
	orch.Start()
	t.Cleanup(orch.Stop)

	srv := NewServer(orch, documents.NewStore(quiet()), nil, opts, quiet())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func getBody(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := getBody(t, ts.URL+"/health")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestSubmitQueryEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := postJSON(t, ts.URL+"/api/v1/query", map[string]interface{}{"query": "how much stock is left"})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Content   string                 `json:"content"`
		AgentName string                 `json:"agent_name"`
		Metadata  map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Stock is healthy.", got.Content)
	assert.Equal(t, "inventory", got.AgentName)
	assert.Contains(t, got.Metadata, "routing")
}

func TestSubmitQueryRejectsEmptyQuery(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := postJSON(t, ts.URL+"/api/v1/query", map[string]interface{}{"query": "   "})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "query is required")
}

func TestStreamQueryEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := postJSON(t, ts.URL+"/api/v1/query/stream", map[string]interface{}{"query": "stock please"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	text := string(body)
	assert.Contains(t, text, "event:chunk")
	assert.Contains(t, text, "data:Stock")
	assert.Contains(t, text, "event:done")
	assert.Contains(t, text, "data:inventory")
}

func TestHandoffEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := postJSON(t, ts.URL+"/api/v1/handoff", map[string]interface{}{"query": "check the shelves"})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		FinalResponse agents.Response `json:"final_response"`
		HandoffChain  []string        `json:"handoff_chain"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, []string{"supervisor", "inventory"}, got.HandoffChain)
	assert.Equal(t, "inventory", got.FinalResponse.AgentName)

	resp, body = postJSON(t, ts.URL+"/api/v1/handoff", map[string]interface{}{"query": "x", "initial_agent": "plumber"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "unknown agent role")
}

func TestMultiEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := postJSON(t, ts.URL+"/api/v1/multi", map[string]interface{}{
		"query":      "stock and the eoq",
		"agents":     []string{"inventory", "math"},
		"synthesize": true,
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Results   map[string]agents.Response `json:"results"`
		Synthesis string                     `json:"synthesis"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Results, 2)
	assert.Equal(t, "Stock is healthy.", got.Results["inventory"].Content)
	assert.Equal(t, "The EOQ is 400.", got.Results["math"].Content)
	assert.Equal(t, "Combined figures hold.", got.Synthesis)

	resp, body = postJSON(t, ts.URL+"/api/v1/multi", map[string]interface{}{
		"query":  "x",
		"agents": []string{"astronaut"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "unknown agent role")
}

func TestSynthesizeEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := postJSON(t, ts.URL+"/api/v1/synthesize", map[string]interface{}{
		"query": "weekly summary",
		"responses": map[string]string{
			"inventory": "Turnover is 9.",
			"quality":   "DPMO is 5000.",
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Combined figures hold.")

	resp, _ = postJSON(t, ts.URL+"/api/v1/synthesize", map[string]interface{}{"query": "x", "responses": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestSearchAndStats(t *testing.T) {
	ts := newTestServer(t, Options{})

	dir := t.TempDir()
	good := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(good, []byte("takt time held all week at dock four"), 0o644))
	bad := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(bad, []byte("binary"), 0o644))

	resp, body := postJSON(t, ts.URL+"/api/v1/documents", map[string]interface{}{"paths": []string{good, bad}})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Loaded        []documents.Document `json:"loaded"`
		Failed        map[string]string    `json:"failed"`
		TasksEnqueued int                  `json:"tasks_enqueued"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Loaded, 1)
	assert.Equal(t, "report.txt", got.Loaded[0].Name)
	assert.Contains(t, got.Failed[bad], "unsupported")
	assert.Equal(t, 2, got.TasksEnqueued) // one document, two insight agents

	resp, body = getBody(t, ts.URL+"/api/v1/documents/search?q=takt")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "report.txt")

	resp, body = getBody(t, ts.URL+"/api/v1/documents/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats documents.Stats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.DocumentCount)
}

func TestIngestRespectsDocumentRoot(t *testing.T) {
	root := t.TempDir()
	ts := newTestServer(t, Options{DocumentRoot: root})

	outside := filepath.Join(t.TempDir(), "leak.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	resp, body := postJSON(t, ts.URL+"/api/v1/documents", map[string]interface{}{"paths": []string{outside}})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "outside the configured document root")

	inside := filepath.Join(root, "ok.txt")
	require.NoError(t, os.WriteFile(inside, []byte("stock counts"), 0o644))

	resp, _ = postJSON(t, ts.URL+"/api/v1/documents", map[string]interface{}{"paths": []string{inside}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	const secret = "test-signing-secret"
	ts := newTestServer(t, Options{JWTSecret: secret})

	// No token.
	resp, body := postJSON(t, ts.URL+"/api/v1/query", map[string]interface{}{"query": "stock"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "authorization header required")

	// Health stays open.
	resp, _ = getBody(t, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Garbage token.
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/query", strings.NewReader(`{"query":"stock"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)

	// Properly signed token.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	req, err = http.NewRequest(http.MethodPost, ts.URL+"/api/v1/query", strings.NewReader(`{"query":"stock"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func TestStatusAndReset(t *testing.T) {
	ts := newTestServer(t, Options{})

	_, _ = postJSON(t, ts.URL+"/api/v1/query", map[string]interface{}{"query": "stock"})

	resp, body := getBody(t, ts.URL+"/api/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Agents        map[string]agents.Status `json:"agents"`
		KnowledgeBase map[string]int           `json:"knowledge_base"`
	}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Len(t, status.Agents, 4) // supervisor + three specialists
	assert.Equal(t, 1, status.KnowledgeBase["conversations"])

	resp, body = postJSON(t, ts.URL+"/api/v1/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "reset")

	_, body = getBody(t, ts.URL+"/api/v1/status")
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Zero(t, status.KnowledgeBase["conversations"])
}

func TestWebSocketBufferedQuery(t *testing.T) {
	ts := newTestServer(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"query": "stock check"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "response", ev.Type)
	assert.Equal(t, "inventory", ev.Agent)
}

func TestWebSocketStreamingQuery(t *testing.T) {
	ts := newTestServer(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"query": "stock check", "stream": true}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var full strings.Builder
	for {
		var ev wsEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == "done" {
			assert.Equal(t, "inventory", ev.Agent)
			break
		}
		require.Equal(t, "chunk", ev.Type)
		full.WriteString(ev.Content)
	}
	assert.Equal(t, "Stock is healthy.", full.String())
}

func TestWebSocketRejectsMalformedMessage(t *testing.T) {
	ts := newTestServer(t, Options{})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ev wsEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev.Type)
	assert.Contains(t, ev.Error, "malformed message")
}
