package simulate

import (
	"math"
	"testing"

	"github.com/gofi-ai/gofi/pkg/scene"
)

func TestLinePlannerCandidates(t *testing.T) {
	p := NewLinePlanner()
	frame := scene.Frame{1: {Position: scene.Point{X: 0}, Speed: 5}}
	goal := scene.NewPointGoal(scene.Point{X: 20}, 2)

	trajectories, plans, err := p.Plan(frame, 1, goal, nil, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(trajectories) != 3 || len(plans) != 3 {
		t.Fatalf("expected 3 candidates, got %d trajectories, %d plans", len(trajectories), len(plans))
	}
	for i, tr := range trajectories {
		if tr.Start() != (scene.Point{X: 0}) {
			t.Errorf("candidate %d starts at %v", i, tr.Start())
		}
		if tr.End() != (scene.Point{X: 20}) {
			t.Errorf("candidate %d ends at %v", i, tr.End())
		}
		if i > 0 && tr.Length() <= trajectories[i-1].Length() {
			t.Errorf("candidate %d not longer than candidate %d", i, i-1)
		}
	}
	if plans[0][0] != ManeuverContinue {
		t.Errorf("expected continue plan, got %v", plans[0])
	}
}

func TestLinePlannerStoppingGoal(t *testing.T) {
	p := NewLinePlanner()
	frame := scene.Frame{1: {Position: scene.Point{X: 0}, Speed: 5}}
	goal := scene.NewStoppingGoal(scene.Point{X: 20}, 2)

	_, plans, err := p.Plan(frame, 1, goal, nil, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if plans[0][0] != ManeuverStop {
		t.Errorf("stopping goal must plan a stop, got %v", plans[0])
	}
}

func TestLinePlannerBlockedRoute(t *testing.T) {
	p := NewLinePlanner()
	frame := scene.Frame{
		1: {Position: scene.Point{X: 0}, Speed: 5},
		9: {Position: scene.Point{X: 10, Y: 0.5}, Speed: 0},
	}

	if _, _, err := p.Plan(frame, 1, scene.NewPointGoal(scene.Point{X: 20}, 2), nil, nil, 1); err == nil {
		t.Error("expected blocked-route error for a stopped agent on the segment")
	}
	// The same blocker is harmless for a route that avoids it.
	if _, _, err := p.Plan(frame, 1, scene.NewPointGoal(scene.Point{X: 0, Y: 20}, 2), nil, nil, 1); err != nil {
		t.Errorf("clear route reported blocked: %v", err)
	}
}

func TestLinePlannerMovingAgentDoesNotBlock(t *testing.T) {
	p := NewLinePlanner()
	frame := scene.Frame{
		1: {Position: scene.Point{X: 0}, Speed: 5},
		9: {Position: scene.Point{X: 10, Y: 0.5}, Speed: 8},
	}
	if _, _, err := p.Plan(frame, 1, scene.NewPointGoal(scene.Point{X: 20}, 2), nil, nil, 1); err != nil {
		t.Errorf("moving agent must not block the route: %v", err)
	}
}

func TestLinePlannerMissingAgent(t *testing.T) {
	p := NewLinePlanner()
	if _, _, err := p.Plan(scene.Frame{}, 1, scene.NewPointGoal(scene.Point{X: 20}, 2), nil, nil, 1); err == nil {
		t.Error("expected error for an agent missing from the frame")
	}
}

func TestPathRewardOrdering(t *testing.T) {
	r := NewPathReward()
	short := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 10}}, []float64{5, 5})
	long := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 10, Y: 10}, {X: 10}}, []float64{5, 5, 5})
	goal := scene.NewPointGoal(scene.Point{X: 10}, 2)

	if r.Reward(short, goal) <= r.Reward(long, goal) {
		t.Error("shorter trajectory must score higher")
	}

	diff := r.RewardDifference(short, long, goal)
	if diff >= 0 {
		t.Errorf("longer current trajectory must have negative reward difference, got %v", diff)
	}
	if math.Abs(r.RewardDifference(short, short, goal)) > 1e-12 {
		t.Error("identical trajectories must have zero reward difference")
	}
}
