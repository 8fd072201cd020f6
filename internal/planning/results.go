package planning

import (
	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

// Store modes for rollout results.
const (
	StoreNone  = ""
	StoreFinal = "final"
	StoreAll   = "all"
)

// Sample records the goal and trajectory drawn for one non-ego agent in one
// rollout.
type Sample struct {
	Goal       scene.Goal
	Trajectory *scene.Trajectory
	Plan       scene.Plan
}

// RolloutResult is the record of one rollout, tagged with the occluded
// factor it assumed, kept for offline inspection.
type RolloutResult struct {
	Iteration   int
	Factor      *occlusion.OccludedFactor
	Concealed   bool
	Samples     map[scene.AgentID]Sample
	Trace       []scene.Maneuver
	Reward      float64
	GoalReached bool
}

// ResultSet accumulates rollout records and, in final mode, the finished
// search tree. It is an in-memory structure with no stable external format.
type ResultSet struct {
	Rollouts []RolloutResult
	Tree     *Tree
}

func (rs *ResultSet) add(r RolloutResult) {
	rs.Rollouts = append(rs.Rollouts, r)
}
