package belief

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

// weightedIndex selects an index from non-negative weights. The weights need
// not be normalised.
func weightedIndex(weights []float64, rng *rand.Rand) (int, error) {
	total := floats.Sum(weights)
	if total <= 0 {
		return 0, ErrEmptyDistribution
	}
	r := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r < cum {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// SampleFactor draws an occluded factor from the merged consensus
// distribution p(z).
func (p *GoalsProbabilities) SampleFactor(rng *rand.Rand) (*occlusion.OccludedFactor, error) {
	weights := make([]float64, len(p.factors))
	for i, f := range p.factors {
		weights[i] = p.merged[f]
	}
	idx, err := weightedIndex(weights, rng)
	if err != nil {
		return nil, fmt.Errorf("sampling occluded factor: %w", err)
	}
	return p.factors[idx], nil
}

// SampleGoalGivenFactor draws a goal from the posterior p(g|z) restricted to
// the given factor.
func (p *GoalsProbabilities) SampleGoalGivenFactor(f *occlusion.OccludedFactor, rng *rand.Rand) (scene.Goal, error) {
	weights := make([]float64, len(p.goals))
	for i, g := range p.goals {
		weights[i] = p.goalsProbabilities[Key{Goal: g, Factor: f}]
	}
	idx, err := weightedIndex(weights, rng)
	if err != nil {
		return nil, fmt.Errorf("sampling goal given %s: %w", f, err)
	}
	return p.goals[idx], nil
}

// OptimalTrajectoryToGoal returns the best-ranked cached trajectory to the
// goal under the factor, with the plan that generated it. Returns
// ErrNoTrajectory when the key has no cached trajectories, which happens
// when the goal was infeasible for that agent and factor.
func (p *GoalsProbabilities) OptimalTrajectoryToGoal(g scene.Goal, f *occlusion.OccludedFactor) (*scene.Trajectory, scene.Plan, error) {
	k := Key{Goal: g, Factor: f}
	trajectories := p.allTrajectories[k]
	if len(trajectories) == 0 {
		return nil, nil, fmt.Errorf("key %s: %w", k, ErrNoTrajectory)
	}
	return trajectories[0], p.allPlans[k][0], nil
}

// SampleTrajectoryToGoal draws one of the cached candidate trajectories to
// the goal under the factor, weighted by the trajectory distribution, and
// returns it with its generating plan.
func (p *GoalsProbabilities) SampleTrajectoryToGoal(g scene.Goal, f *occlusion.OccludedFactor, rng *rand.Rand) (*scene.Trajectory, scene.Plan, error) {
	k := Key{Goal: g, Factor: f}
	trajectories := p.allTrajectories[k]
	if len(trajectories) == 0 {
		return nil, nil, fmt.Errorf("key %s: %w", k, ErrNoTrajectory)
	}
	idx, err := weightedIndex(p.trajectoryProbs[k], rng)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling trajectory for %s: %w", k, err)
	}
	return trajectories[idx], p.allPlans[k][idx], nil
}

// MAPPrediction returns the maximum a posteriori (goal, factor) key and its
// most probable cached trajectory.
func (p *GoalsProbabilities) MAPPrediction() (Key, *scene.Trajectory, error) {
	var best Key
	bestProb := -1.0
	for _, k := range p.keys {
		if prob := p.goalsProbabilities[k] * p.factorProbabilities[k.Factor]; prob > bestProb {
			bestProb = prob
			best = k
		}
	}

	trajectories := p.allTrajectories[best]
	if len(trajectories) == 0 {
		return best, nil, fmt.Errorf("key %s: %w", best, ErrNoTrajectory)
	}
	probs := p.trajectoryProbs[best]
	bestIdx := 0
	for i, tp := range probs {
		if tp > probs[bestIdx] {
			bestIdx = i
		}
	}
	return best, trajectories[bestIdx], nil
}
