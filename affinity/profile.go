package affinity

import (
	"github.com/skillsenselab/taskflow/workflow"
)

// TaskProfile captures the characteristics of a task that matter for
// agent assignment.
type TaskProfile struct {
	Type       workflow.TaskType   `json:"type"`
	Complexity workflow.Complexity `json:"complexity"`

	RequiresCreativity bool `json:"requires_creativity,omitempty"`
	RequiresPrecision  bool `json:"requires_precision,omitempty"`
	NovelProblem       bool `json:"novel_problem,omitempty"`
	TimeCritical       bool `json:"time_critical,omitempty"`
}

// ProfileFor derives a profile from a workflow task, defaulting to a
// moderate analysis task when the fields were left unset.
func ProfileFor(t *workflow.Task) TaskProfile {
	p := TaskProfile{Type: t.Type, Complexity: t.Complexity}
	if p.Type == "" {
		p.Type = workflow.TypeAnalysis
	}
	if p.Complexity == "" {
		p.Complexity = workflow.ComplexityModerate
	}
	return p
}

var typeWeights = map[workflow.TaskType]map[Role]float64{
	workflow.TypeArchitecture:   {RoleArchitect: 0.9, RoleExecutor: 0.3, RoleExperimenter: 0.5},
	workflow.TypeImplementation: {RoleArchitect: 0.4, RoleExecutor: 0.9, RoleExperimenter: 0.3},
	workflow.TypeTesting:        {RoleArchitect: 0.5, RoleExecutor: 0.8, RoleExperimenter: 0.4},
	workflow.TypeCreative:       {RoleArchitect: 0.6, RoleExecutor: 0.2, RoleExperimenter: 0.9},
	workflow.TypeAnalysis:       {RoleArchitect: 0.8, RoleExecutor: 0.4, RoleExperimenter: 0.6},
	workflow.TypeReview:         {RoleArchitect: 0.7, RoleExecutor: 0.6, RoleExperimenter: 0.4},
	workflow.TypePlanning:       {RoleArchitect: 0.8, RoleExecutor: 0.6, RoleExperimenter: 0.3},
	workflow.TypeDesign:         {RoleArchitect: 0.7, RoleExecutor: 0.3, RoleExperimenter: 0.8},
}

var complexityAdjustment = map[workflow.Complexity]map[Role]float64{
	workflow.ComplexitySimple:    {RoleArchitect: 0.7, RoleExecutor: 1.0, RoleExperimenter: 0.8},
	workflow.ComplexityModerate:  {RoleArchitect: 0.9, RoleExecutor: 0.9, RoleExperimenter: 0.8},
	workflow.ComplexityComplex:   {RoleArchitect: 1.0, RoleExecutor: 0.8, RoleExperimenter: 0.9},
	workflow.ComplexityDifficult: {RoleArchitect: 1.0, RoleExecutor: 0.7, RoleExperimenter: 1.0},
}

// roleWeights computes the raw per-role fit of the profile, normalized
// so that no weight exceeds 1.0.
func (p TaskProfile) roleWeights() map[Role]float64 {
	weights := map[Role]float64{
		RoleArchitect:    0.3,
		RoleExecutor:     0.3,
		RoleExperimenter: 0.3,
	}

	if tw, ok := typeWeights[p.Type]; ok {
		for role, w := range tw {
			weights[role] = w
		}
	}

	if adj, ok := complexityAdjustment[p.Complexity]; ok {
		for role := range weights {
			if f, ok := adj[role]; ok {
				weights[role] *= f
			}
		}
	}

	if p.RequiresCreativity {
		weights[RoleExperimenter] *= 1.3
		weights[RoleArchitect] *= 1.1
		weights[RoleExecutor] *= 0.8
	}
	if p.RequiresPrecision {
		weights[RoleExecutor] *= 1.2
		weights[RoleArchitect] *= 1.1
		weights[RoleExperimenter] *= 0.7
	}
	if p.NovelProblem {
		weights[RoleExperimenter] *= 1.4
		weights[RoleArchitect] *= 1.1
		weights[RoleExecutor] *= 0.7
	}
	if p.TimeCritical {
		weights[RoleExecutor] *= 1.2
		weights[RoleArchitect] *= 0.9
		weights[RoleExperimenter] *= 0.8
	}

	max := 0.0
	for _, w := range weights {
		if w > max {
			max = w
		}
	}
	if max > 1.0 {
		for role, w := range weights {
			weights[role] = w / max
		}
	}

	return weights
}
