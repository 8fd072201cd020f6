// Package planning implements Monte-Carlo tree search whose root branches on
// occluded-factor instantiations before delegating to an ordinary search
// tree per branch.
package planning

import "github.com/gofi-ai/gofi/pkg/occlusion"

// RootToken is the super-root action token for the no-occlusion branch.
const RootToken = "Root"

// SuperToken is the key prefix of the synthetic super-root node.
const SuperToken = "Super"

// BranchAction is one action of the super-root: either the no-occlusion
// branch or a specific occluded-factor branch.
type BranchAction struct {
	// Factor backs the branch. A nil factor, or a factor with no present
	// elements, denotes the no-occlusion branch.
	Factor *occlusion.OccludedFactor
}

// IsRoot reports whether this is the no-occlusion branch.
func (a BranchAction) IsRoot() bool {
	return a.Factor == nil || a.Factor.NoOcclusions()
}

// Token returns the tree key token for the branch.
func (a BranchAction) Token() string {
	if a.IsRoot() {
		return RootToken
	}
	return a.Factor.String()
}
