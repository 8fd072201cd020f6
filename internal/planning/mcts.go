package planning

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/gofi-ai/gofi/pkg/belief"
	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

// NextAction is the per-rollout callback through which the simulator asks
// for the ego's next maneuver. trace is the maneuver sequence executed so
// far in this rollout, frame the simulated frame at the decision point, and
// legal the maneuvers available there. Returns false to end the rollout.
type NextAction func(trace []scene.Maneuver, frame scene.Frame, legal []scene.Maneuver) (scene.Maneuver, bool)

// Outcome is the result of one simulated rollout.
type Outcome struct {
	Trace       []scene.Maneuver
	Reward      float64
	GoalReached bool
	Steps       int
}

// Simulator is the external rollout executor contract. A run that hits the
// step cap returns whatever reward accrued so far; it is not an error.
type Simulator interface {
	// Reset restores the simulator to its pre-rollout state, removing
	// installed occluded factors and observer concealment.
	Reset()
	// SetOccludedFactor injects the factor's present elements into the live
	// agent set for the next rollout.
	SetOccludedFactor(f *occlusion.OccludedFactor)
	// HideFromEgo conceals the given agents from the planning agent's
	// observation for the next rollout only.
	HideFromEgo(ids []scene.AgentID)
	// UpdateTrajectory installs the trajectory and plan a non-ego agent
	// follows during the rollout.
	UpdateTrajectory(id scene.AgentID, t *scene.Trajectory, plan scene.Plan)
	// LegalActions returns the ego's available maneuvers in the frame.
	LegalActions(frame scene.Frame, egoID scene.AgentID, goal scene.Goal) []scene.Maneuver
	// Run executes one rollout to a terminal state or the step cap,
	// consulting next at every ego decision point.
	Run(egoID scene.AgentID, goal scene.Goal, maxSteps int, next NextAction) (Outcome, error)
}

// MCTS drives occlusion-aware tree search: each rollout samples an occluded
// factor from the merged belief, resolves the super-root branch, samples
// goals and trajectories for the non-ego agents, simulates, and
// backpropagates the reward.
type MCTS struct {
	NSimulations     int
	MaxSteps         int
	AllowConcealment bool
	StoreResults     string
	ExplorationC     float64

	rng     *rand.Rand
	results *ResultSet
}

// NewMCTS creates a driver with the given rollout budget and step cap.
func NewMCTS(nSimulations, maxSteps int, rng *rand.Rand) *MCTS {
	return &MCTS{
		NSimulations:     nSimulations,
		MaxSteps:         maxSteps,
		AllowConcealment: true,
		ExplorationC:     1,
		rng:              rng,
	}
}

// Results returns the stored rollout records from the last Search, or nil
// when storing is disabled.
func (m *MCTS) Results() *ResultSet { return m.results }

// Search runs the full planning call and returns the best maneuver plan and
// the factor branch it was extracted from.
func (m *MCTS) Search(
	egoID scene.AgentID,
	goal scene.Goal,
	frame scene.Frame,
	predictions map[scene.AgentID]*belief.GoalsProbabilities,
	sim Simulator,
) (scene.Plan, BranchAction, error) {
	if len(predictions) == 0 {
		return nil, BranchAction{}, errors.New("planning: no predictions to search over")
	}

	ids := make([]scene.AgentID, 0, len(predictions))
	for id := range predictions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	first := predictions[ids[0]]

	legal := sim.LegalActions(frame, egoID, goal)
	if len(legal) == 0 {
		return nil, BranchAction{}, errors.New("planning: ego has no legal maneuvers")
	}
	tree := NewTree(frame, legal, first.Factors(), UCB1{C: m.ExplorationC}, MaxValue{}, m.rng)

	m.results = nil
	if m.StoreResults != StoreNone {
		m.results = &ResultSet{}
	}

	for k := 0; k < m.NSimulations; k++ {
		if err := m.rollout(k, tree, egoID, goal, ids, predictions, first, sim); err != nil {
			return nil, BranchAction{}, fmt.Errorf("rollout %d: %w", k, err)
		}
	}

	plan, branch, err := tree.SelectPlan()
	if err != nil {
		return nil, BranchAction{}, err
	}
	if m.results != nil {
		m.results.Tree = tree
	}
	log.Info().
		Str("branch", branch.Token()).
		Str("plan", plan.String()).
		Int("nodes", tree.Len()).
		Int("simulations", m.NSimulations).
		Msg("search finished")
	return plan, branch, nil
}

func (m *MCTS) rollout(
	k int,
	tree *Tree,
	egoID scene.AgentID,
	goal scene.Goal,
	ids []scene.AgentID,
	predictions map[scene.AgentID]*belief.GoalsProbabilities,
	first *belief.GoalsProbabilities,
	sim Simulator,
) error {
	sim.Reset()

	factor, err := first.SampleFactor(m.rng)
	if err != nil {
		return fmt.Errorf("sampling factor: %w", err)
	}
	sim.SetOccludedFactor(factor)

	ctx := tree.ResolveBranch(factor, m.AllowConcealment)
	if ctx.Concealed {
		sim.HideFromEgo(factor.PresentIDs())
	}
	log.Debug().
		Int("iteration", k).
		Str("factor", factor.String()).
		Bool("concealed", ctx.Concealed).
		Msg("rollout")

	samples := make(map[scene.AgentID]Sample, len(ids))
	for _, aid := range ids {
		if aid == egoID {
			continue
		}
		table := predictions[aid]
		g, err := table.SampleGoalGivenFactor(factor, m.rng)
		if err != nil {
			return fmt.Errorf("sampling goal for agent %d: %w", aid, err)
		}
		trajectory, plan, err := table.OptimalTrajectoryToGoal(g, factor)
		if errors.Is(err, belief.ErrNoTrajectory) {
			// Goal was infeasible for this agent under the factor; the agent
			// keeps its default behaviour in the simulator.
			log.Debug().Int("agent", int(aid)).Str("goal", g.String()).Msg("no cached trajectory, skipping install")
			continue
		} else if err != nil {
			return err
		}
		sim.UpdateTrajectory(aid, trajectory, plan)
		samples[aid] = Sample{Goal: g, Trajectory: trajectory, Plan: plan}
	}

	outcome, err := sim.Run(egoID, goal, m.MaxSteps, func(trace []scene.Maneuver, frame scene.Frame, legal []scene.Maneuver) (scene.Maneuver, bool) {
		return tree.NextAction(ctx, trace, frame, legal)
	})
	if err != nil {
		return fmt.Errorf("simulating: %w", err)
	}

	tree.Backprop(ctx, outcome.Reward)

	if m.results != nil && m.StoreResults == StoreAll {
		m.results.add(RolloutResult{
			Iteration:   k,
			Factor:      factor,
			Concealed:   ctx.Concealed,
			Samples:     samples,
			Trace:       outcome.Trace,
			Reward:      outcome.Reward,
			GoalReached: outcome.GoalReached,
		})
	}
	return nil
}
