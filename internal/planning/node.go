package planning

import (
	"strings"

	"github.com/gofi-ai/gofi/pkg/scene"
)

// Key identifies a tree node by the token sequence taken to reach it,
// starting at the super-root.
type Key string

func makeKey(tokens ...string) Key {
	return Key(strings.Join(tokens, "|"))
}

func (k Key) child(token string) Key {
	return Key(string(k) + "|" + token)
}

// Node holds the visit and value statistics for one search-tree state. A
// node is created lazily on first visit with its legal actions populated;
// it counts as visited once backpropagation has touched it.
type Node struct {
	Key          Key
	Frame        scene.Frame
	Actions      []string
	ActionVisits []int
	ActionValues []float64
	StateVisits  int
}

func newNode(key Key, frame scene.Frame, actions []string) *Node {
	return &Node{
		Key:          key,
		Frame:        frame,
		Actions:      append([]string(nil), actions...),
		ActionVisits: make([]int, len(actions)),
		ActionValues: make([]float64, len(actions)),
	}
}

// actionIndex returns the index of the action token, or -1.
func (n *Node) actionIndex(token string) int {
	for i, a := range n.Actions {
		if a == token {
			return i
		}
	}
	return -1
}

// AverageValue returns the mean backed-up value of action i.
func (n *Node) AverageValue(i int) float64 {
	if n.ActionVisits[i] == 0 {
		return 0
	}
	return n.ActionValues[i] / float64(n.ActionVisits[i])
}

// TotalVisits returns the sum of action visit counts.
func (n *Node) TotalVisits() int {
	total := 0
	for _, v := range n.ActionVisits {
		total += v
	}
	return total
}
