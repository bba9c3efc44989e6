package workflow

import (
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/skillsenselab/taskflow/dag"
)

// TaskType classifies a task for affinity-based agent assignment.
type TaskType string

const (
	TypeArchitecture   TaskType = "architecture"
	TypeImplementation TaskType = "implementation"
	TypeTesting        TaskType = "testing"
	TypeCreative       TaskType = "creative"
	TypeAnalysis       TaskType = "analysis"
	TypeReview         TaskType = "review"
	TypePlanning       TaskType = "planning"
	TypeDesign         TaskType = "design"
)

// Complexity grades how demanding a task is.
type Complexity string

const (
	ComplexitySimple    Complexity = "simple"
	ComplexityModerate  Complexity = "moderate"
	ComplexityComplex   Complexity = "complex"
	ComplexityDifficult Complexity = "difficult"
)

// Dependency is one incoming edge of a task: the predecessor ID plus
// the branch condition that predecessor's outcome must satisfy.
type Dependency struct {
	ID        string        `json:"id" yaml:"id" validate:"required"`
	Condition dag.Condition `json:"condition,omitempty" yaml:"condition,omitempty" validate:"omitempty,oneof=on_success on_failure always"`
}

// UnmarshalYAML accepts either the scalar shorthand
//
//	depends_on: [build]
//
// or the full mapping form
//
//	depends_on:
//	  - id: build
//	    condition: on_failure
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.ID = node.Value
		return nil
	}

	type plain Dependency
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("workflow: decoding dependency: %w", err)
	}
	*d = Dependency(p)
	return nil
}

// Task is a unit of work in a workflow. The scheduler only reads the ID
// and dependency edges; the remaining attributes drive agent assignment
// and reporting.
type Task struct {
	ID            string       `json:"id" yaml:"id" validate:"required"`
	Name          string       `json:"name" yaml:"name"`
	Description   string       `json:"description,omitempty" yaml:"description,omitempty"`
	Type          TaskType     `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=architecture implementation testing creative analysis review planning design"`
	Complexity    Complexity   `json:"complexity,omitempty" yaml:"complexity,omitempty" validate:"omitempty,oneof=simple moderate complex difficult"`
	DependsOn     []Dependency `json:"depends_on,omitempty" yaml:"depends_on,omitempty" validate:"dive"`
	Status        dag.Status   `json:"status" yaml:"status,omitempty"`
	AssignedAgent string       `json:"assigned_agent,omitempty" yaml:"assigned_agent,omitempty"`
	Result        string       `json:"result,omitempty" yaml:"result,omitempty"`
	DurationMS    float64      `json:"execution_time_ms" yaml:"execution_time_ms,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.DependsOn != nil {
		c.DependsOn = make([]Dependency, len(t.DependsOn))
		copy(c.DependsOn, t.DependsOn)
	}
	return &c
}

// DependencyIDs returns the predecessor IDs of the task.
func (t *Task) DependencyIDs() []string {
	ids := make([]string, 0, len(t.DependsOn))
	for _, dep := range t.DependsOn {
		ids = append(ids, dep.ID)
	}
	return ids
}
