package server

import (
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/taskflow/affinity"
	"github.com/skillsenselab/taskflow/dag"
	apperrors "github.com/skillsenselab/taskflow/errors"
	"github.com/skillsenselab/taskflow/logger"
	"github.com/skillsenselab/taskflow/observability"
	"github.com/skillsenselab/taskflow/runner"
	"github.com/skillsenselab/taskflow/store"
	"github.com/skillsenselab/taskflow/validation"
	"github.com/skillsenselab/taskflow/workflow"
)

// Service exposes the workflow engine over REST. Active workflows live
// in memory; the store keeps the saved versions.
type Service struct {
	engine  *runner.Engine
	store   *store.Store
	log     *logger.Logger
	name    string
	version string

	mu        sync.RWMutex
	workflows map[string]*workflow.Workflow
	results   map[string]*runner.Result
}

// NewService creates the API service.
func NewService(name, version string, engine *runner.Engine, st *store.Store, log *logger.Logger) *Service {
	return &Service{
		engine:    engine,
		store:     st,
		log:       log.WithComponent("api"),
		name:      name,
		version:   version,
		workflows: make(map[string]*workflow.Workflow),
		results:   make(map[string]*runner.Result),
	}
}

// RegisterRoutes mounts the API on the Gin engine. The extra
// middlewares guard the /api/v1 group only; health and metrics stay
// open for probes.
func (s *Service) RegisterRoutes(r *gin.Engine, mws ...gin.HandlerFunc) {
	r.GET("/health", s.health)
	r.GET("/metrics", s.metrics)

	api := r.Group("/api/v1", mws...)
	{
		api.POST("/workflows", s.createWorkflow)
		api.GET("/workflows", s.listWorkflows)
		api.GET("/workflows/saved", s.listSaved)
		api.POST("/workflows/load", s.loadWorkflow)
		api.GET("/workflows/:id", s.getWorkflow)
		api.DELETE("/workflows/:id", s.deleteWorkflow)
		api.GET("/workflows/:id/tasks", s.getTasks)
		api.GET("/workflows/:id/ready", s.getReady)
		api.POST("/workflows/:id/execute", s.executeWorkflow)
		api.GET("/workflows/:id/results", s.getResults)
		api.POST("/workflows/:id/save", s.saveWorkflow)
		api.GET("/workflows/:id/versions", s.getVersions)
		api.GET("/workflows/:id/report", s.exportReport)
		api.GET("/agents", s.listAgents)
		api.GET("/agents/:name", s.getAgent)
	}
}

// --- Requests and responses ---

// CreateWorkflowRequest is the POST /workflows body. Dependencies use
// the mapping form: {"id": "build", "condition": "on_failure"}.
type CreateWorkflowRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Tags        []string         `json:"tags"`
	Tasks       []*workflow.Task `json:"tasks" binding:"required"`
}

// SaveWorkflowRequest is the POST /workflows/:id/save body.
type SaveWorkflowRequest struct {
	Tags []string `json:"tags"`
}

// LoadWorkflowRequest is the POST /workflows/load body.
type LoadWorkflowRequest struct {
	WorkflowID string `json:"workflow_id"`
	Version    int    `json:"version"`
}

// WorkflowSummary is one row of GET /workflows.
type WorkflowSummary struct {
	WorkflowID string         `json:"workflow_id"`
	Name       string         `json:"name"`
	Phase      workflow.Phase `json:"phase"`
	TaskCount  int            `json:"task_count"`
	CreatedAt  time.Time      `json:"created_at"`
}

// --- System handlers ---

func (s *Service) health(c *gin.Context) {
	sh := observability.NewServiceHealth(s.name, s.version)
	sh.AddComponent(s.store.CheckHealth(c.Request.Context()))

	status := 200
	if sh.Status == observability.HealthStatusDown {
		status = 503
	}
	c.JSON(status, sh)
}

func (s *Service) metrics(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	phases := make(map[workflow.Phase]int)
	statuses := make(map[dag.Status]int)
	for _, w := range s.workflows {
		phases[w.Phase]++
		for _, t := range w.Tasks {
			statuses[t.Status]++
		}
	}

	RespondOK(c, gin.H{
		"workflows_total": len(s.workflows),
		"by_phase":        phases,
		"tasks_by_status": statuses,
	})
}

// --- Workflow handlers ---

func (s *Service) createWorkflow(c *gin.Context) {
	var req CreateWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	w := workflow.New(req.Name, req.Description)
	w.Tags = req.Tags
	for _, t := range req.Tasks {
		if err := w.AddTask(t); err != nil {
			RespondWithError(c, apperrors.Validation(err.Error()))
			return
		}
	}
	if err := w.Validate(); err != nil {
		RespondWithError(c, err)
		return
	}

	s.mu.Lock()
	s.workflows[w.ID] = w
	s.mu.Unlock()

	s.log.Info("workflow created", logger.Fields(
		logger.FieldWorkflowID, w.ID,
		"tasks", len(w.Tasks),
	))
	RespondCreated(c, w)
}

func (s *Service) listWorkflows(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]WorkflowSummary, 0, len(s.workflows))
	for _, w := range s.workflows {
		summaries = append(summaries, WorkflowSummary{
			WorkflowID: w.ID,
			Name:       w.Name,
			Phase:      w.Phase,
			TaskCount:  len(w.Tasks),
			CreatedAt:  w.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	RespondOKWithMeta(c, summaries, &Meta{Total: len(summaries)})
}

func (s *Service) getWorkflow(c *gin.Context) {
	w, err := s.lookup(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, w)
}

func (s *Service) deleteWorkflow(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	_, active := s.workflows[id]
	delete(s.workflows, id)
	delete(s.results, id)
	s.mu.Unlock()

	// Saved versions go too; absence there is fine if the workflow was
	// only ever in memory.
	err := s.store.Delete(c.Request.Context(), id)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); !ok || appErr.Code != apperrors.ErrCodeNotFound || !active {
			RespondWithError(c, err)
			return
		}
	}
	RespondNoContent(c)
}

func (s *Service) getTasks(c *gin.Context) {
	w, err := s.lookup(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	g, err := w.Graph()
	if err != nil {
		RespondWithError(c, err)
		return
	}
	batches, err := dag.ParallelBatches(g)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	tasks := make([]*workflow.Task, 0, len(w.Tasks))
	for _, id := range g.IDs() {
		tasks = append(tasks, w.Tasks[id])
	}
	RespondOK(c, gin.H{
		"tasks":   tasks,
		"batches": batches,
	})
}

func (s *Service) getReady(c *gin.Context) {
	w, err := s.lookup(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	g, err := w.Graph()
	if err != nil {
		RespondWithError(c, err)
		return
	}
	st := w.ExecState()

	ready, err := dag.ReadyTasksConditional(g, st)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	doomed, err := dag.UnsatisfiableTasks(g, st)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	blocked, err := dag.BlockedTasks(g, st)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"ready":         ready,
		"unsatisfiable": doomed,
		"blocked":       blocked,
	})
}

func (s *Service) executeWorkflow(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	w, ok := s.workflows[id]
	if !ok {
		s.mu.Unlock()
		RespondWithError(c, apperrors.NotFound("workflow", id))
		return
	}
	if w.Phase == workflow.PhaseRunning {
		s.mu.Unlock()
		RespondWithError(c, apperrors.Conflict("workflow is already running"))
		return
	}
	// The engine mutates task statuses as it runs, so it gets its own
	// copy. Readers keep serving the pre-run snapshot, whose phase
	// marks it running, until the finished copy is swapped in.
	run := w.Clone()
	w.Phase = workflow.PhaseRunning
	s.mu.Unlock()

	res, err := s.engine.Run(c.Request.Context(), run)

	s.mu.Lock()
	if err != nil && res == nil {
		run.Phase = workflow.PhaseFailed
	}
	s.workflows[id] = run
	if res != nil {
		s.results[id] = res
	}
	s.mu.Unlock()

	if err != nil && res == nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, res)
}

func (s *Service) getResults(c *gin.Context) {
	id := c.Param("id")

	s.mu.RLock()
	res, ok := s.results[id]
	s.mu.RUnlock()
	if !ok {
		RespondWithError(c, apperrors.NotFound("workflow results", id))
		return
	}
	RespondOK(c, res)
}

// --- Persistence handlers ---

func (s *Service) saveWorkflow(c *gin.Context) {
	var req SaveWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}

	w, err := s.lookup(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	meta, err := s.store.Save(c.Request.Context(), w, req.Tags...)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondCreated(c, meta)
}

func (s *Service) loadWorkflow(c *gin.Context) {
	var req LoadWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.Validation(err.Error()))
		return
	}
	if appErr := validation.New().
		RequiredUUID("workflow_id", req.WorkflowID).
		Min("version", req.Version, 0).
		Validate(); appErr != nil {
		RespondWithError(c, appErr)
		return
	}

	var (
		w   *workflow.Workflow
		err error
	)
	if req.Version > 0 {
		w, err = s.store.LoadVersion(c.Request.Context(), req.WorkflowID, req.Version)
	} else {
		w, err = s.store.Load(c.Request.Context(), req.WorkflowID)
	}
	if err != nil {
		RespondWithError(c, err)
		return
	}

	s.mu.Lock()
	s.workflows[w.ID] = w
	s.mu.Unlock()

	RespondOK(c, w)
}

func (s *Service) listSaved(c *gin.Context) {
	infos, err := s.store.List(c.Request.Context(), c.Query("tag"))
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOKWithMeta(c, infos, &Meta{Total: len(infos)})
}

func (s *Service) getVersions(c *gin.Context) {
	id := c.Param("id")
	versions, err := s.store.Versions(c.Request.Context(), id)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if len(versions) == 0 {
		RespondWithError(c, apperrors.NotFound("workflow", id))
		return
	}
	RespondOK(c, versions)
}

func (s *Service) exportReport(c *gin.Context) {
	w, err := s.lookup(c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	s.mu.RLock()
	res := s.results[w.ID]
	s.mu.RUnlock()

	report := gin.H{
		"workflow_info": gin.H{
			"id":           w.ID,
			"name":         w.Name,
			"description":  w.Description,
			"created_at":   w.CreatedAt,
			"completed_at": w.CompletedAt,
			"phase":        w.Phase,
		},
		"tasks": w.Tasks,
	}
	if res != nil {
		report["results"] = gin.H{
			"total_time_ms":   res.Duration.Milliseconds(),
			"tasks_completed": len(res.Completed()),
			"tasks_failed":    len(res.Failed()),
			"order":           res.Order,
		}
	}
	RespondOK(c, report)
}

// --- Agent handlers ---

func (s *Service) listAgents(c *gin.Context) {
	RespondOK(c, affinity.Roster())
}

func (s *Service) getAgent(c *gin.Context) {
	name := c.Param("name")
	for _, a := range affinity.Roster() {
		if a.Name == name {
			RespondOK(c, a)
			return
		}
	}
	RespondWithError(c, apperrors.NotFound("agent", name))
}

// lookup returns an active workflow by ID.
func (s *Service) lookup(id string) (*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workflows[id]
	if !ok {
		return nil, apperrors.NotFound("workflow", id)
	}
	return w, nil
}
