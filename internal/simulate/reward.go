package simulate

import "github.com/gofi-ai/gofi/pkg/scene"

// PathReward scores trajectories by path length and travel time, both
// penalised. It implements the recognition.RewardFunction contract for the
// toy world; scores are deterministic for fixed weights.
type PathReward struct {
	LengthWeight float64
	TimeWeight   float64
}

// NewPathReward returns the weights used by the demo scenario.
func NewPathReward() *PathReward {
	return &PathReward{LengthWeight: 0.01, TimeWeight: 0.01}
}

// Reward returns the negated weighted cost of the trajectory.
func (r *PathReward) Reward(t *scene.Trajectory, goal scene.Goal) float64 {
	return -(r.LengthWeight*t.Length() + r.TimeWeight*t.Duration())
}

// RewardDifference compares the current trajectory against the optimum per
// cost component.
func (r *PathReward) RewardDifference(optimum, current *scene.Trajectory, goal scene.Goal) float64 {
	dLength := current.Length() - optimum.Length()
	dTime := current.Duration() - optimum.Duration()
	return -(r.LengthWeight*dLength + r.TimeWeight*dTime)
}
