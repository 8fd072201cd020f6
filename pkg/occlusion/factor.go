// Package occlusion models hidden-state hypotheses: which potentially
// occluded elements are actually present in the environment.
package occlusion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofi-ai/gofi/pkg/scene"
)

// ErrForcedBoth is returned when a factor is requested to be both forced
// visible and forced invisible.
var ErrForcedBoth = errors.New("occlusion: cannot force a factor both visible and invisible")

// OccludedFactor is one instantiation of the hidden state: an ordered set of
// possibly-occluded elements and a same-length presence vector. Factors are
// immutable once constructed.
type OccludedFactor struct {
	elements       []scene.Element
	presence       []bool
	forceVisible   bool
	forceInvisible bool
	repr           string
}

// New creates a factor over the given elements. A nil presence marks every
// element absent. The presence slice must match the element count.
func New(elements []scene.Element, presence []bool, forceVisible, forceInvisible bool) (*OccludedFactor, error) {
	if forceVisible && forceInvisible {
		return nil, ErrForcedBoth
	}
	if presence != nil && len(presence) != len(elements) {
		return nil, fmt.Errorf("occlusion: %d presence bits for %d elements", len(presence), len(elements))
	}
	if presence == nil {
		presence = make([]bool, len(elements))
	} else {
		presence = append([]bool(nil), presence...)
	}
	f := &OccludedFactor{
		elements:       elements,
		presence:       presence,
		forceVisible:   forceVisible,
		forceInvisible: forceInvisible,
	}
	f.repr = f.buildRepr()
	return f, nil
}

func (f *OccludedFactor) buildRepr() string {
	if len(f.elements) == 0 {
		return "OF()"
	}
	parts := make([]string, len(f.elements))
	for i, e := range f.elements {
		mark := "-"
		if f.presence[i] {
			mark = "+"
		}
		parts[i] = fmt.Sprintf("%d%s", e.ID, mark)
	}
	return "OF(" + strings.Join(parts, ",") + ")"
}

// Elements returns the factor's elements.
func (f *OccludedFactor) Elements() []scene.Element { return f.elements }

// Presence returns the presence bit for each element.
func (f *OccludedFactor) Presence() []bool { return f.presence }

// NoOcclusions reports whether no element is present, i.e. this is the
// distinguished no-occlusion factor.
func (f *OccludedFactor) NoOcclusions() bool {
	for _, p := range f.presence {
		if p {
			return false
		}
	}
	return true
}

// PresentElements returns the elements whose presence bit is set.
func (f *OccludedFactor) PresentElements() []scene.Element {
	var present []scene.Element
	for i, e := range f.elements {
		if f.presence[i] {
			present = append(present, e)
		}
	}
	return present
}

// PresentIDs returns the IDs of the present elements.
func (f *OccludedFactor) PresentIDs() []scene.AgentID {
	var ids []scene.AgentID
	for i, e := range f.elements {
		if f.presence[i] {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// ForceVisible reports whether the factor's probability is pinned to 1.
func (f *OccludedFactor) ForceVisible() bool { return f.forceVisible }

// ForceInvisible reports whether the factor's probability is pinned to 0.
func (f *OccludedFactor) ForceInvisible() bool { return f.forceInvisible }

// Equal reports whether two factors cover the same elements with the same
// presence assignment.
func (f *OccludedFactor) Equal(g *OccludedFactor) bool {
	if len(f.elements) != len(g.elements) {
		return false
	}
	for i := range f.elements {
		if f.elements[i].ID != g.elements[i].ID || f.presence[i] != g.presence[i] {
			return false
		}
	}
	return true
}

func (f *OccludedFactor) String() string { return f.repr }

// UpdateFrame adds the state of every present element to the frame. When
// inPlace is false the input frame is left untouched and a copy is returned.
func (f *OccludedFactor) UpdateFrame(frame scene.Frame, inPlace bool) scene.Frame {
	out := frame
	if !inPlace {
		out = frame.Clone()
	}
	for i, e := range f.elements {
		if f.presence[i] {
			out[e.ID] = e.State
		}
	}
	return out
}

// Enumerate creates every presence/absence instantiation over the given
// elements: 2^len(elements) factors, or a single no-occlusion factor when
// elements is empty. Combinations in which every element named in
// forcedVisible is present are tagged force-visible; combinations in which
// every such element is absent are tagged force-invisible. The enumeration
// is pure; repeated calls yield fresh factors.
func Enumerate(elements []scene.Element, forcedVisible []scene.AgentID) []*OccludedFactor {
	if len(elements) == 0 {
		f, _ := New(nil, nil, false, false)
		return []*OccludedFactor{f}
	}

	forcedIdx := make([]int, 0, len(forcedVisible))
	for i, e := range elements {
		for _, id := range forcedVisible {
			if e.ID == id {
				forcedIdx = append(forcedIdx, i)
				break
			}
		}
	}

	n := len(elements)
	factors := make([]*OccludedFactor, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		presence := make([]bool, n)
		for i := 0; i < n; i++ {
			presence[i] = mask&(1<<i) != 0
		}

		forceVisible, forceInvisible := false, false
		if len(forcedIdx) > 0 {
			allPresent, allAbsent := true, true
			for _, i := range forcedIdx {
				if presence[i] {
					allAbsent = false
				} else {
					allPresent = false
				}
			}
			forceVisible = allPresent
			forceInvisible = allAbsent
		}

		f, err := New(elements, presence, forceVisible, forceInvisible)
		if err != nil {
			// Unreachable: flags are mutually exclusive by construction.
			panic(err)
		}
		factors = append(factors, f)
	}
	return factors
}
