package occlusion

import (
	"math"
	"sort"

	"github.com/gofi-ai/gofi/pkg/scene"
)

// StopSpeed is the speed below which a hypothesised hidden agent is assumed
// to be stationary rather than moving.
const StopSpeed = 0.5

// ElementsFromStates builds one hypothesised element per occluded agent
// state. A moving agent is assumed to continue in a straight line along its
// heading for the given horizon (seconds); a near-stationary agent is
// assumed to stay put. Elements are returned in increasing ID order so the
// enumeration over them is deterministic.
func ElementsFromStates(states map[scene.AgentID]scene.AgentState, horizon float64) []scene.Element {
	ids := make([]scene.AgentID, 0, len(states))
	for id := range states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	elements := make([]scene.Element, 0, len(ids))
	for _, id := range ids {
		state := states[id]
		elements = append(elements, scene.Element{
			ID:         id,
			State:      state,
			Trajectory: straightTrajectory(state, horizon),
		})
	}
	return elements
}

// straightTrajectory extrapolates a constant-velocity straight line from the
// state, one waypoint per second. Stopped agents get a two-point zero-speed
// trajectory at their current position.
func straightTrajectory(state scene.AgentState, horizon float64) *scene.Trajectory {
	if state.Speed < StopSpeed {
		path := []scene.Point{state.Position, state.Position}
		return scene.NewTrajectory(path, []float64{0, 0})
	}

	steps := int(horizon)
	if steps < 1 {
		steps = 1
	}
	dir := scene.Point{X: math.Cos(state.Heading), Y: math.Sin(state.Heading)}
	path := make([]scene.Point, steps+1)
	vel := make([]float64, steps+1)
	for i := 0; i <= steps; i++ {
		path[i] = state.Position.Add(scene.Point{
			X: dir.X * state.Speed * float64(i),
			Y: dir.Y * state.Speed * float64(i),
		})
		vel[i] = state.Speed
	}
	return scene.NewTrajectory(path, vel)
}
