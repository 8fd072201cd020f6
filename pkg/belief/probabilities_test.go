package belief

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

func twoFactors(t *testing.T) (noOcc, present *occlusion.OccludedFactor, factors []*occlusion.OccludedFactor) {
	t.Helper()
	elements := []scene.Element{{ID: 9, State: scene.AgentState{Position: scene.Point{X: 60}}}}
	factors = occlusion.Enumerate(elements, nil)
	if len(factors) != 2 {
		t.Fatalf("expected 2 factors, got %d", len(factors))
	}
	for _, f := range factors {
		if f.NoOcclusions() {
			noOcc = f
		} else {
			present = f
		}
	}
	return noOcc, present, factors
}

func twoGoals() []scene.Goal {
	return []scene.Goal{
		scene.NewPointGoal(scene.Point{X: 100, Y: 0}, 2),
		scene.NewPointGoal(scene.Point{X: 40, Y: -40}, 2),
	}
}

func TestScalarOcclusionPrior(t *testing.T) {
	noOcc, present, factors := twoFactors(t)
	gp, err := NewWithPriors(twoGoals()[:1], factors, nil, nil, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if p := gp.FactorPriors()[present]; math.Abs(p-0.1) > 1e-9 {
		t.Errorf("present prior: expected 0.1, got %v", p)
	}
	if p := gp.FactorPriors()[noOcc]; math.Abs(p-0.9) > 1e-9 {
		t.Errorf("absent prior: expected 0.9, got %v", p)
	}
}

func TestUniformInitialPosterior(t *testing.T) {
	_, _, factors := twoFactors(t)
	goals := twoGoals()
	gp, err := New(goals, factors)
	if err != nil {
		t.Fatal(err)
	}
	want := 1.0 / 4
	for _, k := range gp.Keys() {
		if p := gp.GoalsProbabilities()[k]; math.Abs(p-want) > 1e-9 {
			t.Errorf("key %s: expected %v, got %v", k, want, p)
		}
	}
}

func TestConstructorErrors(t *testing.T) {
	_, _, factors := twoFactors(t)
	goals := twoGoals()

	if _, err := NewWithPriors(nil, factors, nil, nil, 0.1); err == nil {
		t.Error("expected error for empty goals")
	}
	if _, err := NewWithPriors(goals, factors, []float64{1}, nil, 0.1); err == nil {
		t.Error("expected error for goal prior length mismatch")
	}
	if _, err := NewWithPriors(goals, factors, nil, []float64{1}, 0.1); err == nil {
		t.Error("expected error for factor prior length mismatch")
	}
	if _, err := NewWithPriors(goals, factors, nil, nil, 1.5); err == nil {
		t.Error("expected error for occlusion mass outside [0,1]")
	}
}

func TestSampleFactor(t *testing.T) {
	noOcc, present, factors := twoFactors(t)
	gp, err := New(twoGoals(), factors)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	// Merged distribution starts at zero mass.
	if _, err := gp.SampleFactor(rng); !errors.Is(err, ErrEmptyDistribution) {
		t.Errorf("expected ErrEmptyDistribution, got %v", err)
	}

	gp.SetMerged(map[*occlusion.OccludedFactor]float64{noOcc: 0, present: 1})
	for i := 0; i < 20; i++ {
		f, err := gp.SampleFactor(rng)
		if err != nil {
			t.Fatal(err)
		}
		if f != present {
			t.Fatal("sampled zero-probability factor")
		}
	}
}

func TestSampleGoalGivenFactor(t *testing.T) {
	noOcc, present, factors := twoFactors(t)
	goals := twoGoals()
	gp, err := New(goals, factors)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	gp.GoalsProbabilities()[Key{Goal: goals[0], Factor: present}] = 0
	gp.GoalsProbabilities()[Key{Goal: goals[1], Factor: present}] = 1
	for i := 0; i < 20; i++ {
		g, err := gp.SampleGoalGivenFactor(present, rng)
		if err != nil {
			t.Fatal(err)
		}
		if g != goals[1] {
			t.Fatal("sampled zero-probability goal")
		}
	}

	gp.GoalsProbabilities()[Key{Goal: goals[0], Factor: noOcc}] = 0
	gp.GoalsProbabilities()[Key{Goal: goals[1], Factor: noOcc}] = 0
	if _, err := gp.SampleGoalGivenFactor(noOcc, rng); !errors.Is(err, ErrEmptyDistribution) {
		t.Errorf("expected ErrEmptyDistribution, got %v", err)
	}
}

func TestOptimalTrajectoryToGoal(t *testing.T) {
	_, present, factors := twoFactors(t)
	goals := twoGoals()
	gp, err := New(goals, factors)
	if err != nil {
		t.Fatal(err)
	}

	k := Key{Goal: goals[0], Factor: present}
	if _, _, err := gp.OptimalTrajectoryToGoal(goals[0], present); !errors.Is(err, ErrNoTrajectory) {
		t.Errorf("expected ErrNoTrajectory, got %v", err)
	}

	best := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 1}}, nil)
	other := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 2}}, nil)
	gp.AllTrajectories()[k] = []*scene.Trajectory{best, other}
	gp.AllPlans()[k] = []scene.Plan{{"continue"}, {"slow"}}

	tr, plan, err := gp.OptimalTrajectoryToGoal(goals[0], present)
	if err != nil {
		t.Fatal(err)
	}
	if tr != best {
		t.Error("expected the best-ranked cached trajectory")
	}
	if len(plan) != 1 || plan[0] != "continue" {
		t.Errorf("unexpected plan %v", plan)
	}
}

func TestSampleTrajectoryToGoal(t *testing.T) {
	_, present, factors := twoFactors(t)
	goals := twoGoals()
	gp, err := New(goals, factors)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))

	k := Key{Goal: goals[0], Factor: present}
	a := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 1}}, nil)
	b := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 2}}, nil)
	gp.AllTrajectories()[k] = []*scene.Trajectory{a, b}
	gp.AllPlans()[k] = []scene.Plan{{"continue"}, {"slow"}}
	gp.TrajectoryProbabilities()[k] = []float64{0, 1}

	for i := 0; i < 20; i++ {
		tr, plan, err := gp.SampleTrajectoryToGoal(goals[0], present, rng)
		if err != nil {
			t.Fatal(err)
		}
		if tr != b || plan[0] != "slow" {
			t.Fatal("sampled zero-probability trajectory")
		}
	}
}

func TestMAPPrediction(t *testing.T) {
	noOcc, present, factors := twoFactors(t)
	goals := twoGoals()
	gp, err := New(goals, factors)
	if err != nil {
		t.Fatal(err)
	}

	gp.FactorProbabilities()[noOcc] = 0.2
	gp.FactorProbabilities()[present] = 0.8
	for _, k := range gp.Keys() {
		gp.GoalsProbabilities()[k] = 0.1
	}
	best := Key{Goal: goals[1], Factor: present}
	gp.GoalsProbabilities()[best] = 0.9

	tr := scene.NewTrajectory([]scene.Point{{X: 0}, {X: 1}}, nil)
	gp.AllTrajectories()[best] = []*scene.Trajectory{tr}
	gp.AllPlans()[best] = []scene.Plan{{"continue"}}
	gp.TrajectoryProbabilities()[best] = []float64{1}

	k, got, err := gp.MAPPrediction()
	if err != nil {
		t.Fatal(err)
	}
	if k != best {
		t.Errorf("expected MAP key %s, got %s", best, k)
	}
	if got != tr {
		t.Error("expected the cached trajectory for the MAP key")
	}
}

func TestAddSmoothingKeepsFactorMassNormalised(t *testing.T) {
	noOcc, present, factors := twoFactors(t)
	gp, err := New(twoGoals(), factors)
	if err != nil {
		t.Fatal(err)
	}
	gp.FactorProbabilities()[noOcc] = 0.7
	gp.FactorProbabilities()[present] = 0.3

	gp.AddSmoothing(0.5)
	if mass := gp.TotalPosteriorMass(); math.Abs(mass-1) > 1e-9 {
		t.Errorf("factor mass after smoothing: expected 1, got %v", mass)
	}
	a := gp.FactorProbabilities()[noOcc]
	b := gp.FactorProbabilities()[present]
	if a <= b {
		t.Error("smoothing must preserve ordering of factor probabilities")
	}
	if a-b >= 0.4 {
		t.Error("smoothing must pull probabilities towards uniform")
	}
}
