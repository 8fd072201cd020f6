// Package recognition performs occlusion-aware Bayesian goal recognition and
// the sequential belief-merging protocol across observed agents.
package recognition

import (
	"github.com/gofi-ai/gofi/pkg/scene"
)

// TrajectoryPlanner is the external planner oracle. Plan returns up to n
// candidate trajectories from the agent's state in the start frame to the
// goal, ranked best-first, with the macro plans that generated them. The
// observed trajectory, when non-nil, conditions planning on the agent's past
// motion; visibleRegion, when non-nil, restricts planning to the visible
// area. An error or an empty result means the goal is infeasible, including
// structurally blocked routes.
type TrajectoryPlanner interface {
	Plan(
		start scene.Frame,
		agentID scene.AgentID,
		goal scene.Goal,
		observed *scene.Trajectory,
		visibleRegion *scene.Circle,
		n int,
	) ([]*scene.Trajectory, []scene.Plan, error)
}

// RewardFunction scores trajectories. Reward is deterministic for a fixed
// cost configuration; higher is better. RewardDifference compares a
// trajectory against the optimal reference using per-component differences.
type RewardFunction interface {
	Reward(t *scene.Trajectory, goal scene.Goal) float64
	RewardDifference(optimum, current *scene.Trajectory, goal scene.Goal) float64
}
