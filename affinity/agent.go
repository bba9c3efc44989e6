package affinity

import (
	"github.com/skillsenselab/taskflow/workflow"
)

// Role is an agent archetype.
type Role string

const (
	RoleArchitect    Role = "architect"    // strategic design and planning
	RoleExecutor     Role = "executor"     // implementation and execution
	RoleExperimenter Role = "experimenter" // innovation and edge cases
)

// Agent describes one agent archetype and its task preferences.
type Agent struct {
	Name        string                        `json:"name"`
	Role        Role                          `json:"role"`
	Description string                        `json:"description"`
	Traits      []string                      `json:"traits"`
	Preferences map[workflow.TaskType]float64 `json:"task_preferences"`
}

// Preference returns the agent's affinity for a task type, defaulting
// to a neutral 0.5 for unlisted types.
func (a Agent) Preference(t workflow.TaskType) float64 {
	if p, ok := a.Preferences[t]; ok {
		return p
	}
	return 0.5
}

// The three built-in archetypes.
var (
	Athena = Agent{
		Name:        "Athena",
		Role:        RoleArchitect,
		Description: "Strategic thinker who designs elegant systems from first principles",
		Traits: []string{
			"Systems-thinking", "Pattern recognition", "Strategic planning",
			"Design-focused", "Principled", "Analytical",
		},
		Preferences: map[workflow.TaskType]float64{
			workflow.TypeArchitecture:   0.95,
			workflow.TypeDesign:         0.90,
			workflow.TypePlanning:       0.85,
			workflow.TypeAnalysis:       0.80,
			workflow.TypeReview:         0.75,
			workflow.TypeImplementation: 0.40,
			workflow.TypeTesting:        0.50,
			workflow.TypeCreative:       0.60,
		},
	}

	Cato = Agent{
		Name:        "Cato",
		Role:        RoleExecutor,
		Description: "Pragmatic implementer who turns plans into working systems",
		Traits: []string{
			"Action-oriented", "Pragmatic", "Reliable",
			"Detail-focused", "Efficient", "Results-driven",
		},
		Preferences: map[workflow.TaskType]float64{
			workflow.TypeImplementation: 1.0,
			workflow.TypeTesting:        0.85,
			workflow.TypeReview:         0.70,
			workflow.TypePlanning:       0.65,
			workflow.TypeArchitecture:   0.50,
			workflow.TypeDesign:         0.55,
			workflow.TypeAnalysis:       0.60,
			workflow.TypeCreative:       0.35,
		},
	}

	Zephyr = Agent{
		Name:        "Zephyr",
		Role:        RoleExperimenter,
		Description: "Creative innovator who explores novel approaches and discovers possibilities",
		Traits: []string{
			"Creative", "Curious", "Explorative",
			"Innovative", "Intuitive", "Boundary-pushing",
		},
		Preferences: map[workflow.TaskType]float64{
			workflow.TypeCreative:       0.95,
			workflow.TypeDesign:         0.75,
			workflow.TypeArchitecture:   0.60,
			workflow.TypeAnalysis:       0.65,
			workflow.TypeImplementation: 0.50,
			workflow.TypeTesting:        0.40,
			workflow.TypePlanning:       0.45,
			workflow.TypeReview:         0.35,
		},
	}
)

// Roster returns the built-in agents in a fresh slice.
func Roster() []Agent {
	return []Agent{Athena, Cato, Zephyr}
}
