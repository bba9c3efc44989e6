package runner

import (
	"time"

	"github.com/skillsenselab/taskflow/dag"
	"github.com/skillsenselab/taskflow/workflow"
)

// TaskResult records the outcome of one task execution.
type TaskResult struct {
	TaskID   string        `json:"task_id"`
	Agent    string        `json:"agent,omitempty"`
	Status   dag.Status    `json:"status"`
	Skipped  bool          `json:"skipped,omitempty"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of a workflow run.
type Result struct {
	WorkflowID string                 `json:"workflow_id"`
	Phase      workflow.Phase         `json:"phase"`
	Tasks      map[string]*TaskResult `json:"tasks"`
	// Order lists task IDs in the order they reached a terminal
	// status, skipped tasks included.
	Order    []string      `json:"order"`
	Duration time.Duration `json:"duration"`
}

// Completed returns the IDs of tasks that finished successfully.
func (r *Result) Completed() []string {
	return r.withStatus(dag.StatusCompleted)
}

// Failed returns the IDs of tasks that failed or were skipped.
func (r *Result) Failed() []string {
	return r.withStatus(dag.StatusFailed)
}

func (r *Result) withStatus(want dag.Status) []string {
	var ids []string
	for _, id := range r.Order {
		if r.Tasks[id].Status == want {
			ids = append(ids, id)
		}
	}
	return ids
}
