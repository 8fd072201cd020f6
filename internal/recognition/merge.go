package recognition

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/gofi-ai/gofi/pkg/belief"
	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

// MergeOrder selects the visiting order for sequential belief merging.
type MergeOrder string

const (
	// MergeIncreasingID visits observed agents in increasing ID order.
	MergeIncreasingID MergeOrder = "increasing_id"
	// MergeRandom visits observed agents in a random permutation.
	MergeRandom MergeOrder = "random"
	// MergeExplicit visits agents in a caller-supplied order.
	MergeExplicit MergeOrder = "explicit"
)

// Observation is one observed agent's trajectory so far and the frame at its
// first observation.
type Observation struct {
	Trajectory   *scene.Trajectory
	InitialFrame scene.Frame
}

// MergeBeliefs runs recognition for every observed agent as a sequential
// belief chain: each agent's factor priors are overwritten with the previous
// agent's factor posterior before its own update. The returned consensus
// distribution is the last-processed agent's posterior; it is published by
// reference to every table.
//
// The chain is deliberately order-dependent; merging [1,2] generally differs
// from merging [2,1].
func MergeBeliefs(
	r *Recognizer,
	tables map[scene.AgentID]*belief.GoalsProbabilities,
	observations map[scene.AgentID]Observation,
	frame scene.Frame,
	visibleRegion *scene.Circle,
	order MergeOrder,
	explicit []scene.AgentID,
	rng *rand.Rand,
) (map[*occlusion.OccludedFactor]float64, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("recognition: no belief tables to merge")
	}

	idOrder, err := resolveOrder(tables, order, explicit, rng)
	if err != nil {
		return nil, err
	}

	var prev scene.AgentID
	hasPrev := false
	for _, agentID := range idOrder {
		gp := tables[agentID]
		obs, ok := observations[agentID]
		if !ok {
			return nil, fmt.Errorf("recognition: no observation for agent %d", agentID)
		}

		if hasPrev {
			for factor, pz := range tables[prev].FactorProbabilities() {
				gp.FactorPriors()[factor] = pz
			}
		}

		if err := r.UpdateGoalsProbabilities(gp, obs.Trajectory, agentID, obs.InitialFrame, frame, visibleRegion); err != nil {
			return nil, fmt.Errorf("recognition for agent %d: %w", agentID, err)
		}
		prev = agentID
		hasPrev = true
	}

	// The consensus is exactly the last agent's posterior, shared by
	// reference with every table.
	merged := tables[prev].FactorProbabilities()
	for _, gp := range tables {
		gp.SetMerged(merged)
	}
	log.Debug().Int("lastAgent", int(prev)).Int("agents", len(idOrder)).Msg("beliefs merged")
	return merged, nil
}

// resolveOrder computes the agent visiting order for the merge chain.
func resolveOrder(
	tables map[scene.AgentID]*belief.GoalsProbabilities,
	order MergeOrder,
	explicit []scene.AgentID,
	rng *rand.Rand,
) ([]scene.AgentID, error) {
	ids := make([]scene.AgentID, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	switch order {
	case MergeIncreasingID, "":
		return ids, nil
	case MergeRandom:
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		return ids, nil
	case MergeExplicit:
		if len(explicit) != len(ids) {
			return nil, fmt.Errorf("recognition: explicit order names %d agents, have %d tables", len(explicit), len(ids))
		}
		for _, id := range explicit {
			if _, ok := tables[id]; !ok {
				return nil, fmt.Errorf("recognition: explicit order names unknown agent %d", id)
			}
		}
		return explicit, nil
	default:
		return nil, fmt.Errorf("recognition: unknown belief merging order %q", order)
	}
}
