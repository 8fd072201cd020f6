package simulate

import (
	"fmt"

	"github.com/gofi-ai/gofi/pkg/scene"
)

// LinePlanner is a straight-line trajectory planner implementing the
// recognition.TrajectoryPlanner contract for the toy world. Candidate k > 0
// takes a perpendicular detour growing with k, so candidates to the same
// goal have distinct rewards.
type LinePlanner struct {
	// Waypoints per generated trajectory.
	Waypoints int
	// DetourStep is the lateral offset added per extra candidate (metres).
	DetourStep float64
	// BlockRadius is the distance within which a stopped agent on the direct
	// route makes the goal structurally blocked.
	BlockRadius float64
}

// NewLinePlanner returns a planner with the demo-scenario defaults.
func NewLinePlanner() *LinePlanner {
	return &LinePlanner{Waypoints: 10, DetourStep: 3, BlockRadius: 2}
}

// Plan generates up to n straight-line candidates from the agent's position
// in start to the goal. A stopped agent sitting on the direct route makes
// the goal infeasible.
func (p *LinePlanner) Plan(
	start scene.Frame,
	agentID scene.AgentID,
	goal scene.Goal,
	observed *scene.Trajectory,
	visibleRegion *scene.Circle,
	n int,
) ([]*scene.Trajectory, []scene.Plan, error) {
	state, ok := start[agentID]
	if !ok {
		return nil, nil, fmt.Errorf("simulate: agent %d not in frame", agentID)
	}
	from := state.Position
	to := goal.Center()

	if blocker, blocked := p.routeBlocked(start, agentID, from, to); blocked {
		return nil, nil, fmt.Errorf("simulate: route to %s blocked by stopped agent %d", goal, blocker)
	}

	speed := state.Speed
	if speed <= 0 {
		speed = 1
	}

	if n < 1 {
		n = 1
	}
	trajectories := make([]*scene.Trajectory, 0, n)
	plans := make([]scene.Plan, 0, n)
	for k := 0; k < n; k++ {
		trajectories = append(trajectories, p.lineWithDetour(from, to, speed, float64(k)*p.DetourStep))
		maneuver := ManeuverContinue
		if goal.Stopping() {
			maneuver = ManeuverStop
		}
		plans = append(plans, scene.Plan{maneuver})
	}
	return trajectories, plans, nil
}

// routeBlocked reports whether a stopped agent sits on the segment from-to.
func (p *LinePlanner) routeBlocked(frame scene.Frame, agentID scene.AgentID, from, to scene.Point) (scene.AgentID, bool) {
	for id, state := range frame {
		if id == agentID || state.Speed >= StopSpeedThreshold {
			continue
		}
		if segmentDist(from, to, state.Position) < p.BlockRadius {
			return id, true
		}
	}
	return 0, false
}

// StopSpeedThreshold is the speed below which an agent counts as stopped for
// route blocking.
const StopSpeedThreshold = 0.5

func (p *LinePlanner) lineWithDetour(from, to scene.Point, speed, detour float64) *scene.Trajectory {
	n := p.Waypoints
	if n < 2 {
		n = 2
	}
	// Unit perpendicular of the direct segment, for detour offsets.
	dist := from.Dist(to)
	var px, py float64
	if dist > 0 {
		px = -(to.Y - from.Y) / dist
		py = (to.X - from.X) / dist
	}

	path := make([]scene.Point, n)
	vel := make([]float64, n)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		// Detour peaks mid-route and vanishes at both ends.
		bump := detour * 4 * frac * (1 - frac)
		path[i] = scene.Point{
			X: from.X + (to.X-from.X)*frac + px*bump,
			Y: from.Y + (to.Y-from.Y)*frac + py*bump,
		}
		vel[i] = speed
	}
	return scene.NewTrajectory(path, vel)
}

// segmentDist returns the distance from point q to segment ab.
func segmentDist(a, b, q scene.Point) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return a.Dist(q)
	}
	t := ((q.X-a.X)*abx + (q.Y-a.Y)*aby) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return q.Dist(scene.Point{X: a.X + t*abx, Y: a.Y + t*aby})
}
