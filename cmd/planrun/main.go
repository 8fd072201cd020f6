// Command planrun runs the occlusion-aware recognition and planning pipeline
// on a synthetic scenario: an ego heading for a goal, observed traffic with
// unknown goals, and a possibly occluded stopped vehicle on the ego's route.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gofi-ai/gofi/internal/config"
	"github.com/gofi-ai/gofi/internal/logger"
	"github.com/gofi-ai/gofi/internal/planning"
	"github.com/gofi-ai/gofi/internal/recognition"
	"github.com/gofi-ai/gofi/internal/simulate"
	"github.com/gofi-ai/gofi/pkg/belief"
	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

const (
	egoID    scene.AgentID = 0
	hiddenID scene.AgentID = 9
)

type runResult struct {
	Branch      string   `json:"branch"`
	Plan        []string `json:"plan"`
	Simulations int      `json:"simulations"`
	MergedPz    float64  `json:"mergedOcclusionMass"`
}

func main() {
	logger.Init()

	cfg := config.Load()
	var jsonOut bool
	flag.IntVar(&cfg.NSimulations, "n", cfg.NSimulations, "Number of MCTS rollouts")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = time-based)")
	flag.Float64Var(&cfg.OcclusionPrior, "pz", cfg.OcclusionPrior, "Total prior mass on occluded factors")
	flag.StringVar(&cfg.MergeOrder, "order", cfg.MergeOrder, "Belief merge order (increasing_id|random)")
	flag.BoolVar(&cfg.AllowConcealment, "conceal", cfg.AllowConcealment, "Allow concealment rollouts")
	flag.BoolVar(&jsonOut, "json", false, "Output result as JSON")
	flag.Parse()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	result, err := run(cfg, rng)
	if err != nil {
		log.Fatal().Err(err).Msg("planning failed")
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("encoding result")
		}
		return
	}
	fmt.Printf("branch: %s\nplan: %v\n", result.Branch, result.Plan)
}

func run(cfg *config.Config, rng *rand.Rand) (*runResult, error) {
	frame := scene.Frame{
		egoID: {Position: scene.Point{X: 0, Y: 0}, Speed: 10},
		1:     {Position: scene.Point{X: 40, Y: 15}, Speed: 8, Heading: -math.Pi / 2},
		2:     {Position: scene.Point{X: 70, Y: -10}, Speed: 8, Heading: math.Pi / 2},
	}
	egoGoal := scene.NewPointGoal(scene.Point{X: 100, Y: 0}, 2)
	goals := []scene.Goal{
		scene.NewPointGoal(scene.Point{X: 40, Y: -40}, 2),
		scene.NewPointGoal(scene.Point{X: 100, Y: 0}, 2),
	}

	// One potentially occluded stopped vehicle sitting on the ego's route.
	occludedStates := map[scene.AgentID]scene.AgentState{
		hiddenID: {Position: scene.Point{X: 60, Y: 0}, Speed: 0},
	}
	elements := occlusion.ElementsFromStates(occludedStates, 10)
	factors := occlusion.Enumerate(elements, nil)

	tables := make(map[scene.AgentID]*belief.GoalsProbabilities)
	observations := make(map[scene.AgentID]recognition.Observation)
	for _, aid := range []scene.AgentID{1, 2} {
		gp, err := belief.NewWithPriors(goals, factors, nil, nil, cfg.OcclusionPrior)
		if err != nil {
			return nil, err
		}
		tables[aid] = gp

		// Place the first observation 10m behind the agent along its heading.
		state := frame[aid]
		initial := state
		initial.Position = state.Position.Add(scene.Point{
			X: -10 * math.Cos(state.Heading),
			Y: -10 * math.Sin(state.Heading),
		})
		initialFrame := frame.Clone()
		initialFrame[aid] = initial
		observations[aid] = recognition.Observation{
			Trajectory: scene.NewTrajectory(
				[]scene.Point{initial.Position, state.Position},
				[]float64{state.Speed, state.Speed},
			),
			InitialFrame: initialFrame,
		}
	}

	recognizer := recognition.NewRecognizer(simulate.NewLinePlanner(), simulate.NewPathReward())
	recognizer.Beta = cfg.Beta
	recognizer.Gamma = cfg.Gamma
	recognizer.NTrajectories = cfg.NTrajectories

	visible := &scene.Circle{Center: frame[egoID].Position, Radius: 150}
	merged, err := recognition.MergeBeliefs(
		recognizer, tables, observations, frame, visible,
		recognition.MergeOrder(cfg.MergeOrder), nil, rng)
	if err != nil {
		return nil, err
	}

	occludedMass := 0.0
	for f, p := range merged {
		if !f.NoOcclusions() {
			occludedMass += p
		}
	}
	callLog := logger.ForPlanningCall(int(egoID), 1)
	callLog.Info().Float64("occludedMass", occludedMass).Msg("beliefs merged")

	sim := simulate.New(frame, simulate.DefaultConfig())
	mcts := planning.NewMCTS(cfg.NSimulations, cfg.MaxRolloutSteps, rng)
	mcts.AllowConcealment = cfg.AllowConcealment
	mcts.StoreResults = cfg.StoreResults

	plan, branch, err := mcts.Search(egoID, egoGoal, frame, tables, sim)
	if err != nil {
		return nil, err
	}

	planTokens := make([]string, len(plan))
	for i, m := range plan {
		planTokens[i] = string(m)
	}
	return &runResult{
		Branch:      branch.Token(),
		Plan:        planTokens,
		Simulations: cfg.NSimulations,
		MergedPz:    occludedMass,
	}, nil
}
