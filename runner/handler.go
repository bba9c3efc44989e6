package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/skillsenselab/taskflow/affinity"
	"github.com/skillsenselab/taskflow/workflow"
)

// Handler executes one task as the given agent and returns its output.
// Handlers must honor context cancellation.
type Handler func(ctx context.Context, task *workflow.Task, agent affinity.Agent) (string, error)

var simulatedDurations = map[workflow.Complexity]time.Duration{
	workflow.ComplexitySimple:    10 * time.Millisecond,
	workflow.ComplexityModerate:  25 * time.Millisecond,
	workflow.ComplexityComplex:   50 * time.Millisecond,
	workflow.ComplexityDifficult: 80 * time.Millisecond,
}

// SimulatedHandler pretends to execute tasks, sleeping in proportion
// to complexity. Used by the daemon when no real executor is wired.
func SimulatedHandler(ctx context.Context, task *workflow.Task, agent affinity.Agent) (string, error) {
	d, ok := simulatedDurations[task.Complexity]
	if !ok {
		d = simulatedDurations[workflow.ComplexityModerate]
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(d):
	}

	return fmt.Sprintf("%s completed %q", agent.Name, task.ID), nil
}
