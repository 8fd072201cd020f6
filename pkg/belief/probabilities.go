// Package belief stores and samples per-agent probability distributions over
// (goal, occluded factor) pairs, together with the cached trajectories,
// plans, and rewards used to compute them.
package belief

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

// DefaultOcclusionMass is the default total prior probability assigned to
// occluded factor instantiations.
const DefaultOcclusionMass = 0.1

// ErrNoTrajectory is returned when a (goal, factor) key has no cached
// trajectory, which happens when the goal was infeasible under that factor.
var ErrNoTrajectory = errors.New("belief: no trajectory cached for key")

// ErrEmptyDistribution is returned when sampling from a distribution with no
// positive mass.
var ErrEmptyDistribution = errors.New("belief: distribution has no positive mass")

// Key identifies one (goal, occluded factor) pair in the belief table.
type Key struct {
	Goal   scene.Goal
	Factor *occlusion.OccludedFactor
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Goal, k.Factor)
}

// GoalsProbabilities is the belief table for one observed agent: priors,
// likelihoods, and normalised posteriors over goal and factor pairs, plus
// the cached trajectory and reward data that produced them.
//
// The map accessors return live maps; the recognizer mutates them in place
// during an update pass.
type GoalsProbabilities struct {
	goals   []scene.Goal
	factors []*occlusion.OccludedFactor
	keys    []Key

	goalPriors   map[scene.Goal]float64
	factorPriors map[*occlusion.OccludedFactor]float64

	// goalsProbabilities is p(g|z) after normalisation; factorProbabilities
	// is the marginal p(z); merged is the consensus marginal shared across
	// agents after belief merging.
	goalsProbabilities  map[Key]float64
	factorProbabilities map[*occlusion.OccludedFactor]float64
	merged              map[*occlusion.OccludedFactor]float64

	likelihood map[Key]float64

	optimumTrajectory map[Key]*scene.Trajectory
	optimumPlan       map[Key]scene.Plan
	optimumReward     map[Key]float64
	currentTrajectory map[Key]*scene.Trajectory
	currentReward     map[Key]float64
	rewardDifference  map[Key]float64

	allTrajectories   map[Key][]*scene.Trajectory
	allPlans          map[Key][]scene.Plan
	allRewards        map[Key][]float64
	allRewardDiffs    map[Key][]float64
	trajectoryProbs   map[Key][]float64
}

// New creates a belief table with uniform goal priors and the default
// occlusion mass split across factor instantiations.
func New(goals []scene.Goal, factors []*occlusion.OccludedFactor) (*GoalsProbabilities, error) {
	return NewWithPriors(goals, factors, nil, nil, DefaultOcclusionMass)
}

// NewWithPriors creates a belief table with explicit priors. A nil
// goalPriors yields a uniform distribution over goals. A nil factorPriors
// splits the scalar occlusion mass pz uniformly over occluded factors and
// 1-pz uniformly over non-occluded ones; otherwise factorPriors must match
// the factor count.
func NewWithPriors(
	goals []scene.Goal,
	factors []*occlusion.OccludedFactor,
	goalPriors []float64,
	factorPriors []float64,
	pz float64,
) (*GoalsProbabilities, error) {
	if len(goals) == 0 {
		return nil, errors.New("belief: at least one goal required")
	}
	if len(factors) == 0 {
		return nil, errors.New("belief: at least one occluded factor required")
	}
	if goalPriors != nil && len(goalPriors) != len(goals) {
		return nil, fmt.Errorf("belief: %d goal priors for %d goals", len(goalPriors), len(goals))
	}
	if factorPriors != nil && len(factorPriors) != len(factors) {
		return nil, fmt.Errorf("belief: %d factor priors for %d factors", len(factorPriors), len(factors))
	}
	if pz < 0 || pz > 1 {
		return nil, fmt.Errorf("belief: occlusion mass %v outside [0,1]", pz)
	}

	p := &GoalsProbabilities{
		goals:   goals,
		factors: factors,

		goalPriors:   make(map[scene.Goal]float64, len(goals)),
		factorPriors: make(map[*occlusion.OccludedFactor]float64, len(factors)),

		goalsProbabilities:  make(map[Key]float64),
		factorProbabilities: make(map[*occlusion.OccludedFactor]float64, len(factors)),
		merged:              make(map[*occlusion.OccludedFactor]float64, len(factors)),

		likelihood: make(map[Key]float64),

		optimumTrajectory: make(map[Key]*scene.Trajectory),
		optimumPlan:       make(map[Key]scene.Plan),
		optimumReward:     make(map[Key]float64),
		currentTrajectory: make(map[Key]*scene.Trajectory),
		currentReward:     make(map[Key]float64),
		rewardDifference:  make(map[Key]float64),

		allTrajectories: make(map[Key][]*scene.Trajectory),
		allPlans:        make(map[Key][]scene.Plan),
		allRewards:      make(map[Key][]float64),
		allRewardDiffs:  make(map[Key][]float64),
		trajectoryProbs: make(map[Key][]float64),
	}

	for i, g := range goals {
		if goalPriors != nil {
			p.goalPriors[g] = goalPriors[i]
		} else {
			p.goalPriors[g] = 1 / float64(len(goals))
		}
	}

	if factorPriors != nil {
		for i, f := range factors {
			p.factorPriors[f] = factorPriors[i]
		}
	} else {
		nOccluded := 0
		for _, f := range factors {
			if !f.NoOcclusions() {
				nOccluded++
			}
		}
		nVisible := len(factors) - nOccluded
		for _, f := range factors {
			switch {
			case f.NoOcclusions() && nVisible > 0:
				p.factorPriors[f] = (1 - pz) / float64(nVisible)
			case !f.NoOcclusions() && nOccluded > 0:
				p.factorPriors[f] = pz / float64(nOccluded)
			}
		}
	}

	p.keys = make([]Key, 0, len(goals)*len(factors))
	uniform := 1 / float64(len(goals)*len(factors))
	for _, g := range goals {
		for _, f := range factors {
			k := Key{Goal: g, Factor: f}
			p.keys = append(p.keys, k)
			p.goalsProbabilities[k] = uniform
		}
	}
	for _, f := range factors {
		p.factorProbabilities[f] = p.factorPriors[f]
		p.merged[f] = 0
	}
	return p, nil
}

// Goals returns the candidate goals.
func (p *GoalsProbabilities) Goals() []scene.Goal { return p.goals }

// Factors returns the occluded factor instantiations.
func (p *GoalsProbabilities) Factors() []*occlusion.OccludedFactor { return p.factors }

// Keys returns the Cartesian product of goals and factors.
func (p *GoalsProbabilities) Keys() []Key { return p.keys }

// GoalPriors returns the live goal prior map.
func (p *GoalsProbabilities) GoalPriors() map[scene.Goal]float64 { return p.goalPriors }

// FactorPriors returns the live factor prior map. Belief merging overwrites
// entries here with the previous agent's posterior.
func (p *GoalsProbabilities) FactorPriors() map[*occlusion.OccludedFactor]float64 {
	return p.factorPriors
}

// GoalsProbabilities returns the live posterior map p(g|z) over keys.
func (p *GoalsProbabilities) GoalsProbabilities() map[Key]float64 { return p.goalsProbabilities }

// FactorProbabilities returns the live marginal map p(z) over factors.
func (p *GoalsProbabilities) FactorProbabilities() map[*occlusion.OccludedFactor]float64 {
	return p.factorProbabilities
}

// Likelihood returns the live likelihood map over keys.
func (p *GoalsProbabilities) Likelihood() map[Key]float64 { return p.likelihood }

// OptimumTrajectory returns the live optimum-trajectory cache.
func (p *GoalsProbabilities) OptimumTrajectory() map[Key]*scene.Trajectory {
	return p.optimumTrajectory
}

// OptimumPlan returns the live optimum-plan cache.
func (p *GoalsProbabilities) OptimumPlan() map[Key]scene.Plan { return p.optimumPlan }

// OptimumReward returns the live optimum-reward cache.
func (p *GoalsProbabilities) OptimumReward() map[Key]float64 { return p.optimumReward }

// CurrentTrajectory returns the live current-trajectory cache.
func (p *GoalsProbabilities) CurrentTrajectory() map[Key]*scene.Trajectory {
	return p.currentTrajectory
}

// CurrentReward returns the live current-reward cache.
func (p *GoalsProbabilities) CurrentReward() map[Key]float64 { return p.currentReward }

// RewardDifference returns the live reward-difference cache.
func (p *GoalsProbabilities) RewardDifference() map[Key]float64 { return p.rewardDifference }

// AllTrajectories returns the live candidate-trajectory cache.
func (p *GoalsProbabilities) AllTrajectories() map[Key][]*scene.Trajectory {
	return p.allTrajectories
}

// AllPlans returns the live candidate-plan cache.
func (p *GoalsProbabilities) AllPlans() map[Key][]scene.Plan { return p.allPlans }

// AllRewards returns the live candidate-reward cache.
func (p *GoalsProbabilities) AllRewards() map[Key][]float64 { return p.allRewards }

// AllRewardDifferences returns the live candidate reward-difference cache.
func (p *GoalsProbabilities) AllRewardDifferences() map[Key][]float64 { return p.allRewardDiffs }

// TrajectoryProbabilities returns the live per-key trajectory distribution.
func (p *GoalsProbabilities) TrajectoryProbabilities() map[Key][]float64 { return p.trajectoryProbs }

// Merged returns the shared consensus factor distribution.
func (p *GoalsProbabilities) Merged() map[*occlusion.OccludedFactor]float64 { return p.merged }

// SetMerged installs the consensus factor distribution produced by belief
// merging. The map is shared by reference across all agents' tables.
func (p *GoalsProbabilities) SetMerged(pz map[*occlusion.OccludedFactor]float64) {
	p.merged = pz
}

// AddSmoothing performs add-alpha smoothing in place on the factor marginal,
// the goal posteriors given each factor, and the per-key trajectory
// distributions.
func (p *GoalsProbabilities) AddSmoothing(alpha float64) {
	nFactors := float64(len(p.factors))
	for f, prob := range p.factorProbabilities {
		p.factorProbabilities[f] = (prob + alpha) / (1 + nFactors*alpha)
	}

	for _, f := range p.factors {
		nReachable := 0
		for _, g := range p.goals {
			if len(p.trajectoryProbs[Key{Goal: g, Factor: f}]) > 0 {
				nReachable++
			}
		}
		for _, g := range p.goals {
			k := Key{Goal: g, Factor: f}
			probs := p.trajectoryProbs[k]
			if len(probs) == 0 {
				continue
			}
			p.goalsProbabilities[k] = (p.goalsProbabilities[k] + alpha) / (1 + float64(nReachable)*alpha)
			nTraj := float64(len(probs))
			for i, tp := range probs {
				probs[i] = (tp + alpha) / (1 + nTraj*alpha)
			}
		}
	}
}

// TotalPosteriorMass returns the sum of the factor marginal, which is 1 when
// the table has been normalised and some key was feasible.
func (p *GoalsProbabilities) TotalPosteriorMass() float64 {
	mass := make([]float64, 0, len(p.factors))
	for _, f := range p.factors {
		mass = append(mass, p.factorProbabilities[f])
	}
	return floats.Sum(mass)
}
