package recognition

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/gofi-ai/gofi/pkg/belief"
	"github.com/gofi-ai/gofi/pkg/scene"
)

const likelihoodCap = 1e9

// Recognizer updates a belief table from an agent's observed trajectory. For
// every (goal, factor) pair it plans a reference trajectory from the first
// observed frame and candidate trajectories from the current frame, scores
// them, and converts the reward gap into a Boltzmann likelihood.
type Recognizer struct {
	Planner TrajectoryPlanner
	Reward  RewardFunction

	// Beta scales the goal-likelihood Boltzmann transform; Gamma scales the
	// softmax over candidate-trajectory rewards.
	Beta  float64
	Gamma float64

	// NTrajectories is the number of candidate trajectories requested per
	// (goal, factor) pair from the current frame.
	NTrajectories int

	// RewardAsDifference computes likelihoods from per-component reward
	// differences against the reference trajectory instead of raw rewards.
	RewardAsDifference bool
}

// NewRecognizer creates a recognizer with unit Boltzmann scales and a single
// candidate trajectory per pair.
func NewRecognizer(planner TrajectoryPlanner, reward RewardFunction) *Recognizer {
	return &Recognizer{
		Planner:       planner,
		Reward:        reward,
		Beta:          1,
		Gamma:         1,
		NTrajectories: 1,
	}
}

// UpdateGoalsProbabilities runs one full Bayesian update pass over the belief
// table for the observed agent. Infeasible goals get zero likelihood for the
// affected key only; the rest of the table is still updated and normalised.
func (r *Recognizer) UpdateGoalsProbabilities(
	gp *belief.GoalsProbabilities,
	observed *scene.Trajectory,
	agentID scene.AgentID,
	frameIni scene.Frame,
	frame scene.Frame,
	visibleRegion *scene.Circle,
) error {
	if _, ok := frameIni[agentID]; !ok {
		return fmt.Errorf("recognition: agent %d missing from initial frame", agentID)
	}
	if _, ok := frame[agentID]; !ok {
		return fmt.Errorf("recognition: agent %d missing from current frame", agentID)
	}

	logger := log.With().Int("agent", int(agentID)).Logger()
	logger.Info().Msg("occluded goal recognition")

	normFactor := 0.0
	for _, factor := range gp.Factors() {
		factorGoalSum := 0.0
		frameIniF := factor.UpdateFrame(frameIni, false)
		frameF := factor.UpdateFrame(frame, false)

		for _, goal := range gp.Goals() {
			k := belief.Key{Goal: goal, Factor: factor}
			likelihood, err := r.updateKey(gp, k, observed, agentID, frameIniF, frameF, visibleRegion)
			if err != nil {
				// Infeasible goal for this key only: zero likelihood, clear
				// the cached current trajectory, carry on with other keys.
				logger.Debug().Str("key", k.String()).Err(err).Msg("goal infeasible")
				likelihood = 0
				delete(gp.CurrentTrajectory(), k)
			}

			factorPrior := gp.FactorPriors()[factor]
			if factor.ForceVisible() {
				factorPrior = 1
			} else if factor.ForceInvisible() {
				factorPrior = 0
			}

			gp.Likelihood()[k] = likelihood
			posterior := likelihood * gp.GoalPriors()[goal] * factorPrior
			gp.GoalsProbabilities()[k] = posterior
			factorGoalSum += posterior
		}

		gp.FactorProbabilities()[factor] = factorGoalSum
		normFactor += factorGoalSum
	}

	r.normalize(gp, normFactor)

	for _, factor := range gp.Factors() {
		pz := gp.FactorProbabilities()[factor]
		if pz == 0 {
			continue
		}
		logger.Debug().Str("factor", factor.String()).Float64("p", pz).Msg("factor posterior")
	}
	return nil
}

// updateKey scores one (goal, factor) pair and returns its likelihood. An
// error marks the key infeasible.
func (r *Recognizer) updateKey(
	gp *belief.GoalsProbabilities,
	k belief.Key,
	observed *scene.Trajectory,
	agentID scene.AgentID,
	frameIniF scene.Frame,
	frameF scene.Frame,
	visibleRegion *scene.Circle,
) (float64, error) {
	if k.Goal.Reached(frameIniF[agentID].Position) && !k.Goal.Stopping() {
		return 0, fmt.Errorf("agent %d reached goal at start", agentID)
	}

	// Reference trajectory from the initial frame, computed once per key.
	if _, ok := gp.OptimumTrajectory()[k]; !ok {
		trajectories, plans, err := r.Planner.Plan(frameIniF, agentID, k.Goal, nil, visibleRegion, 1)
		if err != nil {
			return 0, fmt.Errorf("optimum trajectory: %w", err)
		}
		if len(trajectories) == 0 {
			return 0, fmt.Errorf("optimum trajectory: no path to %s", k.Goal)
		}
		gp.OptimumTrajectory()[k] = trajectories[0]
		gp.OptimumPlan()[k] = plans[0]
	}
	optTrajectory := gp.OptimumTrajectory()[k]
	gp.OptimumReward()[k] = r.Reward.Reward(optTrajectory, k.Goal)

	// Candidate trajectories from the current frame, conditioned on the
	// observed prefix.
	candidates, plans, err := r.Planner.Plan(frameF, agentID, k.Goal, observed, visibleRegion, r.NTrajectories)
	if err != nil {
		return 0, fmt.Errorf("current trajectory: %w", err)
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("current trajectory: no path to %s", k.Goal)
	}

	rewards := make([]float64, 0, len(candidates))
	rewardDiffs := make([]float64, 0, len(candidates))
	full := make([]*scene.Trajectory, 0, len(candidates))
	for _, c := range candidates {
		joined := c.InsertPrefix(observed)
		full = append(full, joined)
		rewards = append(rewards, r.Reward.Reward(joined, k.Goal))
		rewardDiffs = append(rewardDiffs, r.Reward.RewardDifference(optTrajectory, joined, k.Goal))
	}

	gp.AllTrajectories()[k] = full
	gp.AllPlans()[k] = plans
	gp.AllRewards()[k] = rewards
	gp.AllRewardDifferences()[k] = rewardDiffs
	gp.TrajectoryProbabilities()[k] = r.trajectoryProbabilities(rewards)
	gp.CurrentTrajectory()[k] = full[0]
	gp.CurrentReward()[k] = rewards[0]
	gp.RewardDifference()[k] = rewardDiffs[0]

	return r.likelihood(optTrajectory, full[0], k.Goal), nil
}

// likelihood converts the reward gap between the reference trajectory and
// the best current candidate into a Boltzmann likelihood. Divergence from
// the reference costs probability mass exponentially in Beta.
func (r *Recognizer) likelihood(optimum, current *scene.Trajectory, goal scene.Goal) float64 {
	var diff float64
	if r.RewardAsDifference {
		diff = r.Reward.RewardDifference(optimum, current, goal)
	} else {
		diff = r.Reward.Reward(current, goal) - r.Reward.Reward(optimum, goal)
	}
	l := math.Exp(r.Beta * diff)
	if l > likelihoodCap {
		l = likelihoodCap
	}
	return l
}

// trajectoryProbabilities softmaxes candidate rewards with scale Gamma.
func (r *Recognizer) trajectoryProbabilities(rewards []float64) []float64 {
	maxReward := rewards[0]
	for _, rew := range rewards[1:] {
		if rew > maxReward {
			maxReward = rew
		}
	}
	probs := make([]float64, len(rewards))
	total := 0.0
	for i, rew := range rewards {
		probs[i] = math.Exp(r.Gamma * (rew - maxReward))
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// normalize applies the two-level normalisation: factor marginals sum to 1,
// and within each factor with nonzero mass the goal posteriors sum to 1.
// When every key is infeasible all probabilities stay at zero; when a single
// factor has zero mass its goal posteriors fall back to the goal priors.
func (r *Recognizer) normalize(gp *belief.GoalsProbabilities, normFactor float64) {
	if normFactor == 0 {
		log.Debug().Msg("all factors impossible, probabilities set to zero")
		return
	}
	for _, factor := range gp.Factors() {
		pzUnnorm := gp.FactorProbabilities()[factor]
		gp.FactorProbabilities()[factor] = pzUnnorm / normFactor
		for _, goal := range gp.Goals() {
			k := belief.Key{Goal: goal, Factor: factor}
			if pzUnnorm != 0 {
				gp.GoalsProbabilities()[k] = gp.GoalsProbabilities()[k] / pzUnnorm
			} else {
				gp.GoalsProbabilities()[k] = gp.GoalPriors()[goal]
			}
		}
	}
}
