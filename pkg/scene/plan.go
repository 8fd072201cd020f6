package scene

import "strings"

// Maneuver is one discrete action in a macro plan, e.g. "continue", "stop",
// "change-left". The planner oracle defines the vocabulary; this package only
// treats maneuvers as opaque tokens.
type Maneuver string

// Plan is an ordered maneuver sequence that generates a trajectory.
type Plan []Maneuver

// Clone returns a copy of the plan.
func (p Plan) Clone() Plan {
	q := make(Plan, len(p))
	copy(q, p)
	return q
}

func (p Plan) String() string {
	parts := make([]string, len(p))
	for i, m := range p {
		parts[i] = string(m)
	}
	return strings.Join(parts, "->")
}
