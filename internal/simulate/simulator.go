// Package simulate provides a self-contained kinematic rollout world used by
// the demo binary and the integration tests: trajectory-following agents, a
// point-mass ego, collision and goal termination, and observer-side
// concealment of hidden elements.
package simulate

import (
	"math"

	"github.com/gofi-ai/gofi/internal/planning"
	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

// Ego maneuvers in the toy world.
const (
	ManeuverContinue scene.Maneuver = "continue"
	ManeuverSlow     scene.Maneuver = "slow"
	ManeuverStop     scene.Maneuver = "stop"
)

// Config holds the toy-world parameters.
type Config struct {
	FPS              int
	DecisionInterval int
	CollisionRadius  float64
	CruiseSpeed      float64
	GoalReward       float64
	CollisionReward  float64
	TimePenalty      float64
}

// DefaultConfig returns the parameters used by the demo scenario.
func DefaultConfig() Config {
	return Config{
		FPS:              10,
		DecisionInterval: 10,
		CollisionRadius:  2,
		CruiseSpeed:      10,
		GoalReward:       1,
		CollisionReward:  -1,
		TimePenalty:      0.5,
	}
}

// Window is a half-open step interval [Start, End) during which a scripted
// agent is occluded from the ego.
type Window struct {
	Start, End int
}

// Simulator implements planning.Simulator over the toy world.
type Simulator struct {
	cfg     Config
	initial scene.Frame

	frame     scene.Frame
	followers map[scene.AgentID]*follower
	hidden    map[scene.AgentID]bool
	windows   map[scene.AgentID][]Window
	factor    *occlusion.OccludedFactor
	step      int
}

// New creates a simulator over the initial frame.
func New(initial scene.Frame, cfg Config) *Simulator {
	s := &Simulator{cfg: cfg, initial: initial, windows: make(map[scene.AgentID][]Window)}
	s.Reset()
	return s
}

// SetOcclusionWindows scripts the step intervals during which an agent is
// occluded from the ego's observation.
func (s *Simulator) SetOcclusionWindows(id scene.AgentID, windows []Window) {
	s.windows[id] = windows
}

// Reset restores the pre-rollout state: the initial frame, no injected
// factor, no concealment, no installed trajectories.
func (s *Simulator) Reset() {
	s.frame = s.initial.Clone()
	s.followers = make(map[scene.AgentID]*follower)
	s.hidden = make(map[scene.AgentID]bool)
	s.factor = nil
	s.step = 0
}

// SetOccludedFactor injects the factor's present elements into the live
// agent set, following their hypothesised trajectories.
func (s *Simulator) SetOccludedFactor(f *occlusion.OccludedFactor) {
	s.factor = f
	for _, e := range f.PresentElements() {
		s.frame[e.ID] = e.State
		if e.Trajectory != nil {
			s.followers[e.ID] = newFollower(e.Trajectory)
		}
	}
}

// HideFromEgo conceals the given agents from the ego's observation for the
// current rollout.
func (s *Simulator) HideFromEgo(ids []scene.AgentID) {
	for _, id := range ids {
		s.hidden[id] = true
	}
}

// UpdateTrajectory installs the trajectory a non-ego agent follows.
func (s *Simulator) UpdateTrajectory(id scene.AgentID, t *scene.Trajectory, plan scene.Plan) {
	s.followers[id] = newFollower(t)
}

// LegalActions returns the ego maneuvers available in the frame.
func (s *Simulator) LegalActions(frame scene.Frame, egoID scene.AgentID, goal scene.Goal) []scene.Maneuver {
	return []scene.Maneuver{ManeuverContinue, ManeuverSlow, ManeuverStop}
}

// Run executes one rollout to collision, goal, or the step cap. Hitting the
// cap is not an error; the outcome carries the reward accrued so far.
func (s *Simulator) Run(egoID scene.AgentID, goal scene.Goal, maxSteps int, next planning.NextAction) (planning.Outcome, error) {
	dt := 1 / float64(s.cfg.FPS)
	egoState := s.frame[egoID]
	initialDist := egoState.Position.Dist(goal.Center())
	egoSpeed := s.cfg.CruiseSpeed

	var trace []scene.Maneuver
	for s.step = 0; s.step < maxSteps; s.step++ {
		if s.step%s.cfg.DecisionInterval == 0 {
			m, ok := next(trace, s.observation(egoID), s.LegalActions(s.frame, egoID, goal))
			if !ok {
				break
			}
			trace = append(trace, m)
			switch m {
			case ManeuverContinue:
				egoSpeed = s.cfg.CruiseSpeed
			case ManeuverSlow:
				egoSpeed = s.cfg.CruiseSpeed / 2
			case ManeuverStop:
				egoSpeed = 0
			}
		}

		for id, f := range s.followers {
			if id == egoID {
				continue
			}
			state := s.frame[id]
			state.Position, state.Speed = f.advance(dt)
			state.Time += dt
			s.frame[id] = state
		}

		egoState = s.moveEgoTowards(egoState, goal.Center(), egoSpeed, dt)
		s.frame[egoID] = egoState

		if _, hit := s.collision(egoID, egoState.Position); hit {
			return planning.Outcome{Trace: trace, Reward: s.cfg.CollisionReward, Steps: s.step}, nil
		}
		if goal.Reached(egoState.Position) {
			reward := s.cfg.GoalReward - s.cfg.TimePenalty*float64(s.step)/float64(maxSteps)
			return planning.Outcome{Trace: trace, Reward: reward, GoalReached: true, Steps: s.step}, nil
		}
	}

	// Step cap: partial credit for progress made towards the goal.
	reward := 0.0
	if initialDist > 0 {
		reward = -egoState.Position.Dist(goal.Center()) / initialDist
	}
	return planning.Outcome{Trace: trace, Reward: reward, Steps: s.step}, nil
}

// observation is the frame as the ego sees it: concealed elements and agents
// inside a scripted occlusion window are removed.
func (s *Simulator) observation(egoID scene.AgentID) scene.Frame {
	obs := make(scene.Frame, len(s.frame))
	for id, state := range s.frame {
		if id != egoID && s.occludedAt(id, s.step) {
			continue
		}
		obs[id] = state
	}
	return obs
}

func (s *Simulator) occludedAt(id scene.AgentID, step int) bool {
	if s.hidden[id] {
		return true
	}
	for _, w := range s.windows[id] {
		if step >= w.Start && step < w.End {
			return true
		}
	}
	return false
}

func (s *Simulator) moveEgoTowards(state scene.AgentState, target scene.Point, speed, dt float64) scene.AgentState {
	dist := state.Position.Dist(target)
	if dist > 0 && speed > 0 {
		stepLen := math.Min(speed*dt, dist)
		state.Position = scene.Point{
			X: state.Position.X + (target.X-state.Position.X)/dist*stepLen,
			Y: state.Position.Y + (target.Y-state.Position.Y)/dist*stepLen,
		}
		state.Heading = math.Atan2(target.Y-state.Position.Y, target.X-state.Position.X)
	}
	state.Speed = speed
	state.Time += dt
	return state
}

func (s *Simulator) collision(egoID scene.AgentID, egoPos scene.Point) (scene.AgentID, bool) {
	for id, state := range s.frame {
		if id == egoID {
			continue
		}
		if egoPos.Dist(state.Position) < s.cfg.CollisionRadius {
			return id, true
		}
	}
	return 0, false
}

// follower walks a trajectory by arc length at the trajectory's own speeds.
type follower struct {
	t      *scene.Trajectory
	cum    []float64
	arcPos float64
}

func newFollower(t *scene.Trajectory) *follower {
	cum := make([]float64, t.Len())
	for i := 1; i < t.Len(); i++ {
		cum[i] = cum[i-1] + t.Path[i-1].Dist(t.Path[i])
	}
	return &follower{t: t, cum: cum}
}

// advance moves dt seconds along the trajectory and returns the new position
// and speed. Past the end the follower stays at the final waypoint.
func (f *follower) advance(dt float64) (scene.Point, float64) {
	if f.t.Len() == 0 {
		return scene.Point{}, 0
	}
	speed := f.speedAt(f.arcPos)
	f.arcPos += speed * dt
	return f.positionAt(f.arcPos), speed
}

func (f *follower) segmentAt(arc float64) int {
	for i := 1; i < len(f.cum); i++ {
		if arc <= f.cum[i] {
			return i
		}
	}
	return len(f.cum) - 1
}

func (f *follower) speedAt(arc float64) float64 {
	if f.t.Len() == 1 || arc >= f.cum[len(f.cum)-1] {
		return f.t.Velocity[f.t.Len()-1]
	}
	return f.t.Velocity[f.segmentAt(arc)]
}

func (f *follower) positionAt(arc float64) scene.Point {
	n := f.t.Len()
	if n == 1 || arc >= f.cum[n-1] {
		return f.t.Path[n-1]
	}
	i := f.segmentAt(arc)
	segLen := f.cum[i] - f.cum[i-1]
	if segLen == 0 {
		return f.t.Path[i]
	}
	frac := (arc - f.cum[i-1]) / segLen
	a, b := f.t.Path[i-1], f.t.Path[i]
	return scene.Point{X: a.X + (b.X-a.X)*frac, Y: a.Y + (b.Y-a.Y)*frac}
}
