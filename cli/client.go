package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ApiClient handles API requests to the foreman service.
type ApiClient struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
	Available  bool
}

// NewApiClient creates a new API client. The base URL comes from
// FOREMAN_API_URL and the optional bearer token from FOREMAN_API_TOKEN.
func NewApiClient() *ApiClient {
	baseURL := os.Getenv("FOREMAN_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := &ApiClient{
		httpClient: &http.Client{
			Timeout: time.Second * 60,
		},
		BaseURL: baseURL,
		Token:   os.Getenv("FOREMAN_API_TOKEN"),
	}

	// Verify connectivity so the UI can show an offline banner up front.
	client.Available = client.ping()

	return client
}

// ping checks if the API server is available
func (c *ApiClient) ping() bool {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// CheckHealth checks if the API is up and running
func (c *ApiClient) CheckHealth() (bool, error) {
	resp, err := c.httpClient.Get(c.BaseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("API health check failed with status code: %d", resp.StatusCode)
	}

	return true, nil
}

// FunctionCall is one analysis operation an agent executed for a query.
type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    interface{}            `json:"result"`
}

// QueryResponse is an agent's answer to a submitted query.
type QueryResponse struct {
	Content       string                 `json:"content"`
	AgentName     string                 `json:"agent_name"`
	FunctionCalls []FunctionCall         `json:"function_calls,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	Timestamp     time.Time              `json:"timestamp"`
}

// IsError reports whether the response captured an agent-side failure.
func (r *QueryResponse) IsError() bool {
	flagged, _ := r.Metadata["error"].(bool)
	return flagged
}

// AgentStatus is one agent's live state.
type AgentStatus struct {
	Role               string    `json:"role"`
	State              string    `json:"state"`
	QueriesProcessed   int       `json:"queries_processed"`
	DocumentsProcessed int       `json:"documents_processed"`
	InsightsExtracted  int       `json:"insights_extracted"`
	ConversationLength int       `json:"conversation_length"`
	LastActivity       time.Time `json:"last_activity"`
}

// SystemStatus is the service-wide snapshot.
type SystemStatus struct {
	Agents        map[string]AgentStatus `json:"agents"`
	KnowledgeBase map[string]int         `json:"knowledge_base"`
	QueueDepths   map[string]int         `json:"queue_depths"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
	UptimeSeconds float64                `json:"uptime_seconds"`
}

// SearchHit is one document matching a search.
type SearchHit struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Matches    int    `json:"matches"`
	Excerpt    string `json:"excerpt"`
}

// DocumentStats summarizes the loaded corpus.
type DocumentStats struct {
	DocumentCount int            `json:"document_count"`
	TotalBytes    int64          `json:"total_bytes"`
	TotalWords    int            `json:"total_words"`
	TotalLines    int            `json:"total_lines"`
	ByExtension   map[string]int `json:"by_extension"`
}

// IngestResult reports per-path outcomes of a document ingest.
type IngestResult struct {
	Failed        map[string]string `json:"failed"`
	TasksEnqueued int               `json:"tasks_enqueued"`
}

// SubmitQuery sends a query for routing and returns the agent's answer.
func (c *ApiClient) SubmitQuery(query string) (*QueryResponse, error) {
	data, err := json.Marshal(map[string]interface{}{"query": query})
	if err != nil {
		return nil, err
	}

	resp, err := c.post("/api/v1/query", data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var answer QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, err
	}

	return &answer, nil
}

// GetStatus retrieves the system status snapshot.
func (c *ApiClient) GetStatus() (*SystemStatus, error) {
	resp, err := c.get("/api/v1/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var status SystemStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}

	return &status, nil
}

// SearchDocuments runs a substring search across ingested documents.
func (c *ApiClient) SearchDocuments(query string) ([]SearchHit, error) {
	resp, err := c.get("/api/v1/documents/search?q=" + url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var body struct {
		Hits []SearchHit `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	return body.Hits, nil
}

// GetDocumentStats retrieves corpus totals.
func (c *ApiClient) GetDocumentStats() (*DocumentStats, error) {
	resp, err := c.get("/api/v1/documents/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var stats DocumentStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

// IngestDocuments asks the service to load the given paths and fan their
// contents out to the insight agents.
func (c *ApiClient) IngestDocuments(paths []string) (*IngestResult, error) {
	data, err := json.Marshal(map[string]interface{}{"paths": paths})
	if err != nil {
		return nil, err
	}

	resp, err := c.post("/api/v1/documents", data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		return nil, apiError(resp)
	}

	var result IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Reset clears all agent conversations and the knowledge base.
func (c *ApiClient) Reset() error {
	resp, err := c.post("/api/v1/reset", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	return nil
}

func (c *ApiClient) get(path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	return c.httpClient.Do(req)
}

func (c *ApiClient) post(path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.httpClient.Do(req)
}

func (c *ApiClient) authorize(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

// apiError extracts the error message the service returns on failures.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("%s (status %d)", payload.Error, resp.StatusCode)
	}

	return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
}
