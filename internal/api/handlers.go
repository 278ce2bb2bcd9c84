package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"foreman/internal/agents"
	"foreman/internal/documents"
)

type queryRequest struct {
	Query   string                 `json:"query"`
	Context map[string]interface{} `json:"context"`
}

type handoffRequest struct {
	Query        string `json:"query"`
	InitialAgent string `json:"initial_agent"`
}

type multiRequest struct {
	Query      string   `json:"query"`
	Agents     []string `json:"agents"`
	Synthesize bool     `json:"synthesize"`
}

type synthesizeRequest struct {
	Query     string            `json:"query"`
	Responses map[string]string `json:"responses"`
}

type ingestRequest struct {
	Paths []string `json:"paths"`
}

// SubmitQuery routes one query to its primary agent and returns the
// response with the routing decision in the metadata.
func (s *Server) SubmitQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	resp, err := s.orch.SubmitQuery(c.Request.Context(), req.Query, req.Context)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StreamQuery routes one query and delivers the answer as server-sent
// events: chunk events while text arrives, then one done event naming
// the agent.
func (s *Server) StreamQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	role, err := s.orch.SubmitQueryStreaming(c.Request.Context(), req.Query, req.Context, func(chunk string) error {
		c.SSEvent("chunk", chunk)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", string(role))
	c.Writer.Flush()
}

// SubmitHandoff runs a handoff chain from an explicit initial agent and
// returns the final response with the visited chain.
func (s *Server) SubmitHandoff(c *gin.Context) {
	var req handoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	initial := agents.RoleSupervisor
	if req.InitialAgent != "" {
		role, err := agents.ParseRole(req.InitialAgent)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		initial = role
	}

	result, err := s.orch.SubmitWithHandoff(c.Request.Context(), req.Query, initial)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitMulti fans one query out to several agents and optionally
// synthesizes the successful answers into one response.
func (s *Server) SubmitMulti(c *gin.Context) {
	var req multiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if len(req.Agents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one agent is required"})
		return
	}

	roles := make([]agents.AgentRole, 0, len(req.Agents))
	for _, name := range req.Agents {
		role, err := agents.ParseRole(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		roles = append(roles, role)
	}

	results := s.orch.SubmitToMultipleAgents(c.Request.Context(), req.Query, roles)

	body := gin.H{"results": results}
	if req.Synthesize {
		combined, err := s.orch.Synthesize(c.Request.Context(), req.Query, results)
		if err != nil {
			body["synthesis_error"] = err.Error()
		} else {
			body["synthesis"] = combined
		}
	}

	c.JSON(http.StatusOK, body)
}

// Synthesize combines caller-supplied specialist answers into one
// response through the supervisor.
func (s *Server) Synthesize(c *gin.Context) {
	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if len(req.Responses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one response is required"})
		return
	}

	responses := make(map[string]agents.Response, len(req.Responses))
	for name, text := range req.Responses {
		responses[name] = agents.Response{
			Content:   text,
			AgentName: name,
			Metadata:  map[string]interface{}{"success": true, "error": false},
		}
	}

	combined, err := s.orch.Synthesize(c.Request.Context(), req.Query, responses)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"query": req.Query, "synthesis": combined})
}

// IngestDocuments loads the given paths, shares the loaded documents with
// the insight agents, and reports per-path outcomes.
func (s *Server) IngestDocuments(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one path is required"})
		return
	}

	allowed := make([]string, 0, len(req.Paths))
	failed := make(map[string]string)
	for _, path := range req.Paths {
		if !s.pathAllowed(path) {
			failed[path] = "outside the configured document root"
			continue
		}
		allowed = append(allowed, path)
	}

	loaded := make([]*documents.Document, 0, len(allowed))
	for _, res := range s.docs.IngestBatch(c.Request.Context(), allowed) {
		if res.Err != nil {
			failed[res.Path] = res.Err.Error()
			continue
		}
		loaded = append(loaded, res.Document)
		if err := s.audit.SaveDocument(res.Document); err != nil {
			s.logger.Warn("document not mirrored", "path", res.Path, "error", err)
		}
	}

	enqueued := 0
	if len(loaded) > 0 {
		var err error
		enqueued, err = s.orch.ShareDocuments(loaded)
		if err != nil {
			s.logger.Warn("document fan-out incomplete", "error", err)
		}
	}

	status := http.StatusOK
	if len(loaded) == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"loaded":         loaded,
		"failed":         failed,
		"tasks_enqueued": enqueued,
	})
}

// SearchDocuments runs a substring search across loaded documents.
func (s *Server) SearchDocuments(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return
	}

	hits := s.docs.Search(query)
	c.JSON(http.StatusOK, gin.H{"query": query, "hits": hits})
}

// DocumentStats reports corpus totals.
func (s *Server) DocumentStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.docs.Stats())
}

// SystemStatus snapshots agents, queues and the knowledge base.
func (s *Server) SystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.SystemStatus())
}

// Reset clears every conversation window and the knowledge base.
func (s *Server) Reset(c *gin.Context) {
	s.orch.ResetAll()
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// pathAllowed enforces the document root restriction.
func (s *Server) pathAllowed(path string) bool {
	if s.docRoot == "" {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.docRoot, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
