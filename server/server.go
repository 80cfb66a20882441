// Package server exposes the research pipeline over HTTP. Runs are
// asynchronous: POST /api/research returns a task ID immediately and the
// caller polls for status and the finished report.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/google/uuid"
	"github.com/smallnest/deepresearch/agent"
	"github.com/smallnest/deepresearch/log"
	"github.com/smallnest/deepresearch/research"
)

// Runner executes one research run. *workflow.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, query string) (research.State, error)
}

// Clarifier answers clarification analysis requests. *agent.ClarifyAgent
// satisfies it.
type Clarifier interface {
	Analyze(ctx context.Context, query string) (*agent.ClarificationAnalysis, error)
}

// TaskStatus is the lifecycle of an asynchronous research task.
type TaskStatus string

const (
	StatusQueued     TaskStatus = "queued"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Task is one research request and its outcome.
type Task struct {
	ID           string     `json:"task_id"`
	Query        string     `json:"query"`
	Status       TaskStatus `json:"status"`
	FinalReport  string     `json:"final_report,omitempty"`
	SourceCount  int        `json:"source_count,omitempty"`
	QualityScore float64    `json:"quality_score,omitempty"`
	Iterations   int        `json:"iterations,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Server owns the HTTP routes and the in-memory task table.
type Server struct {
	engine    Runner
	clarifier Clarifier
	logger    log.Logger
	router    *gin.Engine

	mu    sync.RWMutex
	tasks map[string]*Task
}

// Option configures the Server.
type Option func(*Server)

// WithClarifier enables the POST /api/clarify endpoint.
func WithClarifier(c Clarifier) Option {
	return func(s *Server) {
		s.clarifier = c
	}
}

// WithLogger overrides the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server around the given engine.
func New(engine Runner, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: log.GetDefaultLogger(),
		tasks:  make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/research", s.startResearch)
	api.GET("/research/:id", s.getTask)
	api.GET("/research/:id/report", s.getReport)
	api.POST("/clarify", s.clarify)
	r.GET("/healthz", s.health)

	s.router = r
	return s
}

// Handler returns the HTTP handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server on addr until it fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.router.Run(addr)
}

type researchRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Server) startResearch(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	task := &Task{
		ID:        uuid.NewString(),
		Query:     req.Query,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	// The run outlives the HTTP request on purpose.
	go s.process(task.ID, req.Query)

	c.JSON(http.StatusAccepted, gin.H{"task_id": task.ID, "status": task.Status})
}

func (s *Server) process(taskID, query string) {
	s.setStatus(taskID, StatusProcessing)

	st, err := s.engine.Run(context.Background(), query)

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return
	}
	task.CompletedAt = &now
	switch {
	case err != nil:
		task.Status = StatusFailed
		task.Error = err.Error()
	case st.Failed():
		task.Status = StatusFailed
		task.Error = st.Error
	default:
		task.Status = StatusCompleted
		task.FinalReport = st.FinalReport
		task.SourceCount = len(st.Sources)
		task.QualityScore = st.QualityScore
		task.Iterations = st.IterationCount
	}
	s.logger.Info("task %s finished with status %s", taskID, task.Status)
}

func (s *Server) setStatus(taskID string, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[taskID]; ok {
		task.Status = status
	}
}

func (s *Server) getTask(c *gin.Context) {
	s.mu.RLock()
	task, ok := s.tasks[c.Param("id")]
	var copied Task
	if ok {
		copied = *task
	}
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, copied)
}

func (s *Server) getReport(c *gin.Context) {
	s.mu.RLock()
	task, ok := s.tasks[c.Param("id")]
	var status TaskStatus
	var report string
	if ok {
		status = task.Status
		report = task.FinalReport
	}
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if status != StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "report not ready", "status": status})
		return
	}

	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", renderHTML(report))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report))
}

func (s *Server) clarify(c *gin.Context) {
	if s.clarifier == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "clarification not configured"})
		return
	}

	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	analysis, err := s.clarifier.Analyze(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// renderHTML converts the Markdown report to a standalone HTML fragment.
func renderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.Render(doc, renderer)
}
