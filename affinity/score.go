package affinity

import (
	"fmt"
	"sort"
)

// AgentScore pairs an agent with its affinity for a task.
type AgentScore struct {
	Agent Agent   `json:"agent"`
	Score float64 `json:"score"`
}

// Score computes the affinity between a task profile and an agent.
// The result mixes the profile's role fit and the agent's own task
// preference in equal parts, clamped to [0, 1].
func Score(p TaskProfile, a Agent) float64 {
	weights := p.roleWeights()

	base := 0.5
	if w, ok := weights[a.Role]; ok {
		base = w
	}

	score := base*0.5 + a.Preference(p.Type)*0.5
	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}

// BestAgent picks the highest-scoring agent for the profile.
func BestAgent(p TaskProfile, agents []Agent) (Agent, float64, error) {
	if len(agents) == 0 {
		return Agent{}, 0, fmt.Errorf("affinity: no agents available")
	}
	ranked := Rank(p, agents)
	return ranked[0].Agent, ranked[0].Score, nil
}

// Rank scores every agent and returns them sorted by descending score.
// Ties break alphabetically by agent name so results are stable.
func Rank(p TaskProfile, agents []Agent) []AgentScore {
	scores := make([]AgentScore, 0, len(agents))
	for _, a := range agents {
		scores = append(scores, AgentScore{Agent: a, Score: Score(p, a)})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Agent.Name < scores[j].Agent.Name
	})
	return scores
}
