package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillsenselab/taskflow/dag"
	"github.com/skillsenselab/taskflow/validation"
)

// Phase tracks where a workflow sits in its lifecycle.
type Phase string

const (
	PhasePlanning Phase = "planning"
	PhaseRunning  Phase = "running"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// Workflow is the aggregate the service schedules: a named set of
// tasks with dependency edges. The workflow owns its tasks; the dag
// package only ever sees the ID mapping derived from them.
type Workflow struct {
	ID          string           `json:"workflow_id" yaml:"workflow_id"`
	Name        string           `json:"name" yaml:"name" validate:"required"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Tasks       map[string]*Task `json:"tasks" yaml:"tasks"`
	Phase       Phase            `json:"phase" yaml:"phase"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// New creates an empty workflow in the planning phase.
func New(name, description string) *Workflow {
	return &Workflow{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Tasks:       make(map[string]*Task),
		Phase:       PhasePlanning,
		CreatedAt:   time.Now().UTC(),
	}
}

// AddTask registers a task. Duplicate IDs are rejected; dependency
// references are checked later when the graph is built so tasks can be
// added in any order.
func (w *Workflow) AddTask(t *Task) error {
	if t.ID == "" {
		return fmt.Errorf("workflow: task ID is required")
	}
	if _, exists := w.Tasks[t.ID]; exists {
		return fmt.Errorf("workflow: duplicate task ID %q", t.ID)
	}
	if t.Status == "" {
		t.Status = dag.StatusPending
	}
	w.Tasks[t.ID] = t
	return nil
}

// Task returns a task by ID.
func (w *Workflow) Task(id string) (*Task, error) {
	t, ok := w.Tasks[id]
	if !ok {
		return nil, &dag.TaskNotFoundError{TaskID: id}
	}
	return t, nil
}

// Graph converts the workflow's tasks into a validated dependency
// graph with per-edge conditions. Dangling references surface as
// *dag.GraphError.
func (w *Workflow) Graph() (*dag.Graph, error) {
	deps := make(map[string][]string, len(w.Tasks))
	conds := make(map[string]map[string]dag.Condition)

	for id, t := range w.Tasks {
		deps[id] = t.DependencyIDs()
		for _, dep := range t.DependsOn {
			if dep.Condition == "" {
				continue
			}
			if conds[id] == nil {
				conds[id] = make(map[string]dag.Condition)
			}
			conds[id][dep.ID] = dep.Condition
		}
	}

	return dag.BuildConditional(deps, conds)
}

// Validate checks field constraints on the workflow and every task,
// builds the graph, and rejects cyclic dependencies. A nil error means
// the workflow is schedulable.
func (w *Workflow) Validate() error {
	if err := validation.Validate(w); err != nil {
		return err
	}
	for _, t := range w.Tasks {
		if err := validation.Validate(t); err != nil {
			return fmt.Errorf("task %q: %w", t.ID, err)
		}
	}

	g, err := w.Graph()
	if err != nil {
		return err
	}
	return dag.Validate(g)
}

// Clone returns a deep copy of the workflow, sharing nothing mutable
// with the original. Callers that hand a workflow to the execution
// engine while others may still read the original run the engine on a
// clone.
func (w *Workflow) Clone() *Workflow {
	c := *w
	c.Tasks = make(map[string]*Task, len(w.Tasks))
	for id, t := range w.Tasks {
		c.Tasks[id] = t.Clone()
	}
	if w.Tags != nil {
		c.Tags = make([]string, len(w.Tags))
		copy(c.Tags, w.Tags)
	}
	if w.CompletedAt != nil {
		at := *w.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// ExecState derives the execution state from current task statuses.
func (w *Workflow) ExecState() *dag.ExecState {
	st := dag.NewExecState()
	for id, t := range w.Tasks {
		if t.Status != "" && t.Status != dag.StatusPending {
			// Statuses come from our own state machine; Mark cannot
			// fail going from pending.
			_ = st.Mark(id, t.Status)
		}
	}
	return st
}

// Complete stamps the workflow terminal: failed when any task failed,
// complete otherwise.
func (w *Workflow) Complete() {
	now := time.Now().UTC()
	w.CompletedAt = &now
	w.Phase = PhaseComplete
	for _, t := range w.Tasks {
		if t.Status == dag.StatusFailed {
			w.Phase = PhaseFailed
			return
		}
	}
}
