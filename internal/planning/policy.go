package planning

import (
	"math"
	"math/rand"
)

// Policy selects one of the candidate action indices of a node. Candidates
// are always a non-empty subset of the node's action indices.
type Policy interface {
	Select(n *Node, candidates []int, rng *rand.Rand) int
}

// UCB1 is the upper-confidence-bound selection policy used during rollouts.
// Unvisited actions take priority; ties break uniformly at random.
type UCB1 struct {
	C float64
}

func (p UCB1) Select(n *Node, candidates []int, rng *rand.Rand) int {
	total := n.TotalVisits()
	best := make([]int, 0, len(candidates))
	bestScore := math.Inf(-1)
	for _, i := range candidates {
		var score float64
		if n.ActionVisits[i] == 0 {
			score = math.Inf(1)
		} else {
			score = n.AverageValue(i) + p.C*math.Sqrt(math.Log(float64(total)+1)/float64(n.ActionVisits[i]))
		}
		switch {
		case score > bestScore:
			bestScore = score
			best = best[:0]
			best = append(best, i)
		case score == bestScore:
			best = append(best, i)
		}
	}
	return best[rng.Intn(len(best))]
}

// MaxValue is the terminal selection policy picking the action with the
// highest mean backed-up value among visited actions.
type MaxValue struct{}

func (MaxValue) Select(n *Node, candidates []int, rng *rand.Rand) int {
	best := candidates[0]
	bestScore := math.Inf(-1)
	for _, i := range candidates {
		if n.ActionVisits[i] == 0 {
			continue
		}
		if v := n.AverageValue(i); v > bestScore {
			bestScore = v
			best = i
		}
	}
	return best
}

// MaxVisits is the terminal selection policy picking the most visited action.
type MaxVisits struct{}

func (MaxVisits) Select(n *Node, candidates []int, rng *rand.Rand) int {
	best := candidates[0]
	bestVisits := -1
	for _, i := range candidates {
		if n.ActionVisits[i] > bestVisits {
			bestVisits = n.ActionVisits[i]
			best = i
		}
	}
	return best
}
