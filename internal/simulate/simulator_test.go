package simulate

import (
	"math"
	"testing"

	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

const egoID scene.AgentID = 0

func alwaysContinue(_ []scene.Maneuver, _ scene.Frame, _ []scene.Maneuver) (scene.Maneuver, bool) {
	return ManeuverContinue, true
}

func TestRunReachesGoal(t *testing.T) {
	s := New(scene.Frame{egoID: {Position: scene.Point{X: 0}, Speed: 10}}, DefaultConfig())
	goal := scene.NewPointGoal(scene.Point{X: 20}, 2)

	outcome, err := s.Run(egoID, goal, 100, alwaysContinue)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.GoalReached {
		t.Fatal("ego driving straight at the goal never reached it")
	}
	if outcome.Reward <= 0 || outcome.Reward > 1 {
		t.Errorf("goal reward out of range: %v", outcome.Reward)
	}
	if len(outcome.Trace) == 0 {
		t.Error("empty maneuver trace")
	}
}

func TestRunCollision(t *testing.T) {
	s := New(scene.Frame{
		egoID: {Position: scene.Point{X: 0}, Speed: 10},
		9:     {Position: scene.Point{X: 10}, Speed: 0},
	}, DefaultConfig())
	goal := scene.NewPointGoal(scene.Point{X: 30}, 2)

	outcome, err := s.Run(egoID, goal, 100, alwaysContinue)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.GoalReached {
		t.Fatal("ego drove through a stopped agent")
	}
	if outcome.Reward != DefaultConfig().CollisionReward {
		t.Errorf("collision reward: expected %v, got %v", DefaultConfig().CollisionReward, outcome.Reward)
	}
}

func TestRunStepCap(t *testing.T) {
	s := New(scene.Frame{egoID: {Position: scene.Point{X: 0}, Speed: 10}}, DefaultConfig())
	goal := scene.NewPointGoal(scene.Point{X: 100}, 2)

	outcome, err := s.Run(egoID, goal, 30, func(_ []scene.Maneuver, _ scene.Frame, _ []scene.Maneuver) (scene.Maneuver, bool) {
		return ManeuverStop, true
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.GoalReached {
		t.Fatal("stopped ego reached the goal")
	}
	if outcome.Steps != 30 {
		t.Errorf("expected the full 30 steps, got %d", outcome.Steps)
	}
	// No progress at all: full negative partial credit.
	if math.Abs(outcome.Reward+1) > 1e-9 {
		t.Errorf("step-cap reward: expected -1, got %v", outcome.Reward)
	}
}

func TestRunManeuverSpeeds(t *testing.T) {
	cfg := DefaultConfig()
	s := New(scene.Frame{egoID: {Position: scene.Point{X: 0}, Speed: 10}}, cfg)
	goal := scene.NewPointGoal(scene.Point{X: 1000}, 2)

	slow, err := s.Run(egoID, goal, 20, func(_ []scene.Maneuver, _ scene.Frame, _ []scene.Maneuver) (scene.Maneuver, bool) {
		return ManeuverSlow, true
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Reset()
	fast, err := s.Run(egoID, goal, 20, alwaysContinue)
	if err != nil {
		t.Fatal(err)
	}
	if fast.Reward <= slow.Reward {
		t.Errorf("continue must make more progress than slow: %v vs %v", fast.Reward, slow.Reward)
	}
}

func TestHideFromEgo(t *testing.T) {
	s := New(scene.Frame{
		egoID: {Position: scene.Point{X: 0}, Speed: 10},
		5:     {Position: scene.Point{X: 50, Y: 50}, Speed: 0},
	}, DefaultConfig())
	s.HideFromEgo([]scene.AgentID{5})
	goal := scene.NewPointGoal(scene.Point{X: 30}, 2)

	_, err := s.Run(egoID, goal, 100, func(_ []scene.Maneuver, frame scene.Frame, _ []scene.Maneuver) (scene.Maneuver, bool) {
		if _, ok := frame[5]; ok {
			t.Error("concealed agent visible in the ego's observation")
		}
		if _, ok := frame[egoID]; !ok {
			t.Error("ego missing from its own observation")
		}
		return ManeuverContinue, true
	})
	if err != nil {
		t.Fatal(err)
	}

	// Concealment does not survive a reset.
	s.Reset()
	_, err = s.Run(egoID, goal, 100, func(_ []scene.Maneuver, frame scene.Frame, _ []scene.Maneuver) (scene.Maneuver, bool) {
		if _, ok := frame[5]; !ok {
			t.Error("agent still hidden after reset")
		}
		return ManeuverContinue, true
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestOcclusionWindows(t *testing.T) {
	s := New(scene.Frame{
		egoID: {Position: scene.Point{X: 0}, Speed: 10},
		5:     {Position: scene.Point{X: 50, Y: 50}, Speed: 0},
	}, DefaultConfig())
	s.SetOcclusionWindows(5, []Window{{Start: 0, End: 15}})
	goal := scene.NewPointGoal(scene.Point{X: 100}, 2)

	seen := make(map[int]bool)
	decision := 0
	_, err := s.Run(egoID, goal, 25, func(_ []scene.Maneuver, frame scene.Frame, _ []scene.Maneuver) (scene.Maneuver, bool) {
		_, visible := frame[5]
		seen[decision] = visible
		decision++
		return ManeuverContinue, true
	})
	if err != nil {
		t.Fatal(err)
	}

	// Decisions fall on steps 0, 10, 20; the window covers the first two.
	if seen[0] || seen[1] {
		t.Error("agent visible inside its occlusion window")
	}
	if !seen[2] {
		t.Error("agent still occluded after its window ended")
	}
}

func TestSetOccludedFactor(t *testing.T) {
	s := New(scene.Frame{egoID: {Position: scene.Point{X: 0}, Speed: 10}}, DefaultConfig())
	goal := scene.NewPointGoal(scene.Point{X: 30}, 2)

	elements := occlusion.ElementsFromStates(map[scene.AgentID]scene.AgentState{
		9: {Position: scene.Point{X: 15}, Speed: 0},
	}, 10)
	factor, err := occlusion.New(elements, []bool{true}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	s.SetOccludedFactor(factor)

	outcome, err := s.Run(egoID, goal, 300, alwaysContinue)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.GoalReached {
		t.Fatal("ego drove through the injected stopped element")
	}

	// Reset removes the injected element; the route is clear again.
	s.Reset()
	outcome, err = s.Run(egoID, goal, 300, alwaysContinue)
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.GoalReached {
		t.Error("route still blocked after reset")
	}
}

func TestFollowerWalksTrajectory(t *testing.T) {
	tr := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 10}}, []float64{5, 5})
	f := newFollower(tr)

	var pos scene.Point
	for i := 0; i < 10; i++ {
		pos, _ = f.advance(0.2)
	}
	if math.Abs(pos.X-10) > 1e-9 {
		t.Errorf("expected follower at the end of the path, got x=%v", pos.X)
	}
	// Past the end the follower stays put.
	pos, speed := f.advance(0.2)
	if pos.X != 10 {
		t.Errorf("follower moved past the final waypoint: x=%v", pos.X)
	}
	if speed != 5 {
		t.Errorf("terminal speed: expected 5, got %v", speed)
	}
}

func TestUpdateTrajectoryDrivesAgent(t *testing.T) {
	s := New(scene.Frame{
		egoID: {Position: scene.Point{X: 0}, Speed: 10},
		1:     {Position: scene.Point{X: 50, Y: 50}, Speed: 8},
	}, DefaultConfig())
	goal := scene.NewPointGoal(scene.Point{X: 100}, 2)

	s.UpdateTrajectory(1, scene.NewTrajectory(
		[]scene.Point{{X: 50, Y: 50}, {X: 50, Y: 0}},
		[]float64{10, 10},
	), scene.Plan{ManeuverContinue})

	var last scene.Point
	_, err := s.Run(egoID, goal, 40, func(_ []scene.Maneuver, frame scene.Frame, _ []scene.Maneuver) (scene.Maneuver, bool) {
		last = frame[1].Position
		return ManeuverContinue, true
	})
	if err != nil {
		t.Fatal(err)
	}
	if last.Y >= 50 {
		t.Errorf("agent never moved along its installed trajectory: y=%v", last.Y)
	}
}
