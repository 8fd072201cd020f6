package planning

import (
	"errors"
	"math/rand"

	"github.com/gofi-ai/gofi/pkg/occlusion"
	"github.com/gofi-ai/gofi/pkg/scene"
)

const maxPlanDepth = 100

// Tree is a search tree whose super-root branches on occluded-factor
// instantiations. Each branch action resolves to an ordinary sub-tree rooted
// at the frame obtained by injecting the factor's present elements.
type Tree struct {
	nodes     map[Key]*Node
	superRoot *Node
	branches  []BranchAction

	actionPolicy Policy
	planPolicy   Policy
	rng          *rand.Rand
}

// RolloutContext carries the per-rollout branch decision through one
// select-simulate-backpropagate cycle. It is never shared across rollouts.
type RolloutContext struct {
	// Factor is the sampled occluded-factor instantiation.
	Factor *occlusion.OccludedFactor
	// Branch is the super-root action actually taken.
	Branch BranchAction
	// Root is the sub-tree root the rollout descends from.
	Root *Node
	// Concealed reports that a non-trivial factor was sampled but the
	// rollout follows the no-occlusion branch, hiding the factor from the
	// planning agent.
	Concealed bool

	branchIdx int
	path      []pathStep
}

type pathStep struct {
	node      *Node
	actionIdx int
}

// NewTree builds the super-root over the given factors and registers the
// ordinary root, holding the current frame and the ego's legal maneuvers,
// as the child of the no-occlusion branch.
func NewTree(
	rootFrame scene.Frame,
	rootActions []scene.Maneuver,
	factors []*occlusion.OccludedFactor,
	actionPolicy, planPolicy Policy,
	rng *rand.Rand,
) *Tree {
	branches := make([]BranchAction, len(factors))
	tokens := make([]string, len(factors))
	for i, f := range factors {
		branches[i] = BranchAction{Factor: f}
		tokens[i] = branches[i].Token()
	}

	superRoot := newNode(makeKey(SuperToken), rootFrame.Clone(), tokens)
	actionTokens := make([]string, len(rootActions))
	for i, a := range rootActions {
		actionTokens[i] = string(a)
	}
	root := newNode(makeKey(SuperToken, RootToken), rootFrame.Clone(), actionTokens)

	t := &Tree{
		nodes:        map[Key]*Node{superRoot.Key: superRoot, root.Key: root},
		superRoot:    superRoot,
		branches:     branches,
		actionPolicy: actionPolicy,
		planPolicy:   planPolicy,
		rng:          rng,
	}
	return t
}

// SuperRoot returns the synthetic top node.
func (t *Tree) SuperRoot() *Node { return t.superRoot }

// Node returns the node for a key, if it exists.
func (t *Tree) Node(key Key) (*Node, bool) {
	n, ok := t.nodes[key]
	return n, ok
}

// Len returns the number of materialized nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// ResolveBranch selects the super-root branch for one rollout of the given
// sampled factor. The no-occlusion factor, and any rollout before the
// no-occlusion branch has been visited, resolve deterministically so every
// branch is explored before the selection policy is trusted. Afterwards the
// action policy chooses between the true factor branch and falling back to
// the no-occlusion branch; the fallback conceals the factor from the
// planning agent and is disabled when allowConcealment is false.
func (t *Tree) ResolveBranch(factor *occlusion.OccludedFactor, allowConcealment bool) *RolloutContext {
	t.superRoot.StateVisits++

	rootIdx := t.superRoot.actionIndex(RootToken)
	factorIdx := rootIdx
	if !factor.NoOcclusions() {
		factorIdx = t.superRoot.actionIndex(factor.String())
	}

	var idx int
	switch {
	case factor.NoOcclusions() || t.superRoot.ActionVisits[rootIdx] == 0:
		idx = factorIdx
	case !allowConcealment:
		idx = factorIdx
	default:
		idx = t.actionPolicy.Select(t.superRoot, []int{factorIdx, rootIdx}, t.rng)
	}
	t.superRoot.ActionVisits[idx]++

	token := t.superRoot.Actions[idx]
	childKey := t.superRoot.Key.child(token)
	child, ok := t.nodes[childKey]
	if !ok {
		root := t.nodes[t.superRoot.Key.child(RootToken)]
		frame := factor.UpdateFrame(root.Frame, false)
		child = newNode(childKey, frame, root.Actions)
		t.nodes[childKey] = child
	}

	return &RolloutContext{
		Factor:    factor,
		Branch:    t.branches[idx],
		Root:      child,
		Concealed: !factor.NoOcclusions() && token == RootToken,
		branchIdx: idx,
	}
}

// NextAction picks the ego's next maneuver during one rollout, creating the
// node for the current trace lazily from the simulated frame and legal
// maneuvers. Returns false when the node has no legal actions.
func (t *Tree) NextAction(ctx *RolloutContext, trace []scene.Maneuver, frame scene.Frame, legal []scene.Maneuver) (scene.Maneuver, bool) {
	key := ctx.Root.Key
	for _, m := range trace {
		key = key.child(string(m))
	}

	node, ok := t.nodes[key]
	if !ok {
		tokens := make([]string, len(legal))
		for i, m := range legal {
			tokens[i] = string(m)
		}
		node = newNode(key, frame.Clone(), tokens)
		t.nodes[key] = node
	}
	if len(node.Actions) == 0 {
		return "", false
	}

	candidates := make([]int, len(node.Actions))
	for i := range candidates {
		candidates[i] = i
	}
	idx := t.actionPolicy.Select(node, candidates, t.rng)
	node.ActionVisits[idx]++
	node.StateVisits++
	ctx.path = append(ctx.path, pathStep{node: node, actionIdx: idx})
	return scene.Maneuver(node.Actions[idx]), true
}

// Backprop accumulates the rollout reward into the super-root branch action
// first, then into every (node, action) pair selected along the rollout.
func (t *Tree) Backprop(ctx *RolloutContext, reward float64) {
	t.superRoot.ActionValues[ctx.branchIdx] += reward
	for _, s := range ctx.path {
		s.node.ActionValues[s.actionIdx] += reward
	}
}

// SelectPlan applies the terminal selection policy at the super-root to pick
// the best factor branch, then extracts the best maneuver sequence inside
// that branch's sub-tree.
func (t *Tree) SelectPlan() (scene.Plan, BranchAction, error) {
	if t.superRoot.TotalVisits() == 0 {
		return nil, BranchAction{}, errors.New("planning: tree has no visits")
	}

	candidates := make([]int, len(t.superRoot.Actions))
	for i := range candidates {
		candidates[i] = i
	}
	branchIdx := t.planPolicy.Select(t.superRoot, candidates, t.rng)
	branch := t.branches[branchIdx]

	var plan scene.Plan
	key := t.superRoot.Key.child(t.superRoot.Actions[branchIdx])
	for depth := 0; depth < maxPlanDepth; depth++ {
		node, ok := t.nodes[key]
		if !ok || node.StateVisits == 0 || len(node.Actions) == 0 {
			break
		}
		candidates = candidates[:0]
		for i := range node.Actions {
			candidates = append(candidates, i)
		}
		idx := t.planPolicy.Select(node, candidates, t.rng)
		if node.ActionVisits[idx] == 0 {
			break
		}
		plan = append(plan, scene.Maneuver(node.Actions[idx]))
		key = key.child(node.Actions[idx])
	}
	return plan, branch, nil
}
