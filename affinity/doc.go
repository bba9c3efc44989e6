// Package affinity scores how well suited each agent archetype is for
// a task, combining the task's characteristics with the agent's own
// task preferences. Scores are deterministic and bounded to [0, 1].
package affinity
