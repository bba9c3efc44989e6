package runner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/skillsenselab/taskflow/affinity"
	"github.com/skillsenselab/taskflow/dag"
	"github.com/skillsenselab/taskflow/logger"
	"github.com/skillsenselab/taskflow/observability"
	"github.com/skillsenselab/taskflow/resilience"
	"github.com/skillsenselab/taskflow/workflow"
)

const defaultMaxParallel = 4

// Engine runs workflows with a bounded worker pool.
type Engine struct {
	handler     Handler
	agents      []affinity.Agent
	log         *logger.Logger
	metrics     *observability.SchedulerMetrics
	maxParallel int
	taskTimeout time.Duration
	retry       resilience.RetryConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxParallel bounds how many tasks run concurrently.
func WithMaxParallel(n int) Option {
	return func(e *Engine) { e.maxParallel = n }
}

// WithTaskTimeout bounds the wall time of a single task execution.
// Zero means no limit.
func WithTaskTimeout(d time.Duration) Option {
	return func(e *Engine) { e.taskTimeout = d }
}

// WithAgents replaces the default agent roster.
func WithAgents(agents []affinity.Agent) Option {
	return func(e *Engine) { e.agents = agents }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRetry retries failed handler invocations under the given
// policy. A MaxAttempts below 2 leaves retries off.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

// WithMetrics enables scheduler metric recording.
func WithMetrics(m *observability.SchedulerMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine. A nil handler falls back to SimulatedHandler.
func New(handler Handler, opts ...Option) *Engine {
	e := &Engine{
		handler:     handler,
		agents:      affinity.Roster(),
		log:         logger.GetGlobalLogger().WithComponent("runner"),
		maxParallel: defaultMaxParallel,
	}
	if e.handler == nil {
		e.handler = SimulatedHandler
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxParallel < 1 {
		e.maxParallel = 1
	}
	return e
}

// completion is the message a worker sends back when its task ends.
type completion struct {
	id       string
	agent    string
	output   string
	err      error
	duration time.Duration
}

// Run executes the workflow until every task is terminal or the
// context is canceled. The workflow's task statuses and phase are
// updated in place; the returned Result carries per-task outcomes.
// On cancellation the partial Result is returned along with ctx.Err().
func (e *Engine) Run(ctx context.Context, w *workflow.Workflow) (*Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	g, err := w.Graph()
	if err != nil {
		return nil, err
	}
	// Agent resolution can fail on a pinned assignment, so every task
	// is checked before anything is dispatched. Dispatch itself must
	// not error with workers already in flight.
	for _, t := range w.Tasks {
		if _, err := e.agentFor(t); err != nil {
			return nil, err
		}
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanWorkflowRun)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrWorkflowID, w.ID)

	st := w.ExecState()
	w.Phase = workflow.PhaseRunning
	start := time.Now()

	res := &Result{
		WorkflowID: w.ID,
		Tasks:      make(map[string]*TaskResult, len(w.Tasks)),
	}

	sem := make(chan struct{}, e.maxParallel)
	// Buffered to the task count: a worker can always deliver its
	// completion even if Run has already returned on an error path.
	completions := make(chan completion, len(w.Tasks))
	inFlight := 0

	dispatch := func(ids []string) error {
		for _, id := range ids {
			task := w.Tasks[id]
			agent, err := e.agentFor(task)
			if err != nil {
				return err
			}
			if err := st.Mark(id, dag.StatusReady); err != nil {
				return err
			}
			if err := st.Mark(id, dag.StatusInProgress); err != nil {
				return err
			}
			task.Status = dag.StatusInProgress
			task.AssignedAgent = agent.Name

			e.log.Debug("task dispatched", logger.Fields(
				logger.FieldWorkflowID, w.ID,
				logger.FieldTaskID, id,
				logger.FieldAgent, agent.Name,
			))

			inFlight++
			go e.execute(ctx, task, agent, sem, completions)
		}
		return nil
	}

	// Tasks already doomed by pre-recorded failures are skipped before
	// the first dispatch.
	if _, err := e.skipUnsatisfiable(ctx, g, st, w, res); err != nil {
		return nil, err
	}
	ready, err := dag.ReadyTasksConditional(g, st)
	if err != nil {
		return nil, err
	}
	if err := dispatch(ready); err != nil {
		return nil, err
	}

	cancelWatch := ctx.Done()
	canceled := false

	for inFlight > 0 {
		select {
		case <-cancelWatch:
			// Stop dispatching; in-flight workers see the canceled
			// context and drain on their own.
			canceled = true
			cancelWatch = nil

		case c := <-completions:
			inFlight--

			status := dag.StatusCompleted
			if c.err != nil {
				status = dag.StatusFailed
			}
			if err := st.Mark(c.id, status); err != nil {
				return nil, err
			}

			task := w.Tasks[c.id]
			task.Status = status
			task.Result = c.output
			task.DurationMS = float64(c.duration.Microseconds()) / 1000

			tr := &TaskResult{
				TaskID:   c.id,
				Agent:    c.agent,
				Status:   status,
				Output:   c.output,
				Duration: c.duration,
			}
			if c.err != nil {
				tr.Error = c.err.Error()
				e.log.Warn("task failed", logger.Fields(
					logger.FieldWorkflowID, w.ID,
					logger.FieldTaskID, c.id,
					logger.FieldAgent, c.agent,
					logger.FieldError, c.err.Error(),
				))
			} else {
				e.log.Info("task completed", logger.Fields(
					logger.FieldWorkflowID, w.ID,
					logger.FieldTaskID, c.id,
					logger.FieldAgent, c.agent,
					logger.FieldDuration, c.duration.Milliseconds(),
				))
			}
			res.Tasks[c.id] = tr
			res.Order = append(res.Order, c.id)

			if e.metrics != nil {
				e.metrics.RecordTaskEnd(ctx, c.agent, string(task.Type), string(status), c.duration)
			}

			if canceled {
				continue
			}

			skipped, err := e.skipUnsatisfiable(ctx, g, st, w, res)
			if err != nil {
				return nil, err
			}

			next := make(map[string]struct{})
			for _, id := range append(skipped, c.id) {
				batch, err := dag.NewlyReadyConditional(g, st, id)
				if err != nil {
					return nil, err
				}
				for _, n := range batch {
					next[n] = struct{}{}
				}
			}
			ids := make([]string, 0, len(next))
			for id := range next {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			if err := dispatch(ids); err != nil {
				return nil, err
			}
		}
	}

	res.Duration = time.Since(start)

	if canceled {
		w.Phase = workflow.PhaseFailed
		res.Phase = w.Phase
		observability.SetSpanError(ctx, ctx.Err())
		return res, ctx.Err()
	}

	w.Complete()
	res.Phase = w.Phase

	if e.metrics != nil {
		e.metrics.RecordWorkflow(ctx, string(w.Phase), res.Duration)
	}
	e.log.Info("workflow finished", logger.Fields(
		logger.FieldWorkflowID, w.ID,
		"phase", string(w.Phase),
		"completed", len(res.Completed()),
		"failed", len(res.Failed()),
		logger.FieldDuration, res.Duration.Milliseconds(),
	))

	return res, nil
}

// execute runs one task under the pool semaphore and reports back.
func (e *Engine) execute(ctx context.Context, task *workflow.Task, agent affinity.Agent, sem chan struct{}, out chan<- completion) {
	sem <- struct{}{}
	defer func() { <-sem }()

	tctx := ctx
	if e.taskTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, e.taskTimeout)
		defer cancel()
	}

	tctx, span := observability.StartSpan(tctx, observability.SpanTaskExecute)
	defer span.End()
	observability.SetSpanAttribute(tctx, observability.AttrTaskID, task.ID)
	observability.SetSpanAttribute(tctx, observability.AttrAgent, agent.Name)

	if e.metrics != nil {
		e.metrics.RecordTaskStart(tctx)
	}

	start := time.Now()
	output, err := e.invoke(tctx, task, agent)
	if err != nil {
		observability.SetSpanError(tctx, err)
	}

	out <- completion{
		id:       task.ID,
		agent:    agent.Name,
		output:   output,
		err:      err,
		duration: time.Since(start),
	}
}

// invoke calls the handler, retrying under the configured policy.
func (e *Engine) invoke(ctx context.Context, task *workflow.Task, agent affinity.Agent) (string, error) {
	if e.retry.MaxAttempts < 2 {
		return e.handler(ctx, task, agent)
	}

	cfg := e.retry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		e.log.Warn("task attempt failed, retrying", logger.Fields(
			logger.FieldTaskID, task.ID,
			logger.FieldAgent, agent.Name,
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			logger.FieldError, err.Error(),
		))
	}
	return resilience.Retry(ctx, cfg, func() (string, error) {
		return e.handler(ctx, task, agent)
	})
}

// skipUnsatisfiable fails every task whose branch conditions can no
// longer be met, cascading until a fixpoint. Returns the skipped IDs.
func (e *Engine) skipUnsatisfiable(ctx context.Context, g *dag.Graph, st *dag.ExecState, w *workflow.Workflow, res *Result) ([]string, error) {
	var skipped []string
	for {
		doomed, err := dag.UnsatisfiableTasks(g, st)
		if err != nil {
			return nil, err
		}
		if len(doomed) == 0 {
			return skipped, nil
		}
		for _, id := range doomed {
			if err := st.Mark(id, dag.StatusFailed); err != nil {
				return nil, err
			}
			task := w.Tasks[id]
			task.Status = dag.StatusFailed

			res.Tasks[id] = &TaskResult{
				TaskID:  id,
				Status:  dag.StatusFailed,
				Skipped: true,
				Error:   "dependency branch condition cannot be satisfied",
			}
			res.Order = append(res.Order, id)

			if e.metrics != nil {
				e.metrics.RecordTaskSkipped(ctx, string(task.Type))
			}
			e.log.Warn("task skipped", logger.Fields(
				logger.FieldWorkflowID, w.ID,
				logger.FieldTaskID, id,
			))
			skipped = append(skipped, id)
		}
	}
}

// agentFor resolves the agent for a task, honoring a pinned
// assignment and otherwise picking by affinity.
func (e *Engine) agentFor(t *workflow.Task) (affinity.Agent, error) {
	if t.AssignedAgent != "" {
		for _, a := range e.agents {
			if a.Name == t.AssignedAgent {
				return a, nil
			}
		}
		return affinity.Agent{}, fmt.Errorf("runner: unknown agent %q for task %q", t.AssignedAgent, t.ID)
	}
	agent, _, err := affinity.BestAgent(affinity.ProfileFor(t), e.agents)
	return agent, err
}
