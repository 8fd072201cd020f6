// Package scene holds the world-model types shared by goal recognition and
// planning: agent states, frames, trajectories, goals, and occluded elements.
package scene

import (
	"math"
	"sort"
)

// AgentID identifies an agent in the scene.
type AgentID int

// Point is a 2D position in world coordinates (metres).
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Hypot(dx, dy)
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Circle is a circular region, used to represent the visible area around an agent.
type Circle struct {
	Center Point
	Radius float64
}

// Contains reports whether p lies inside the circle.
func (c Circle) Contains(p Point) bool {
	return c.Center.Dist(p) <= c.Radius
}

// AgentState is the physical state of one agent at one time step.
type AgentState struct {
	Time     float64
	Position Point
	Speed    float64
	Heading  float64
}

// Frame maps agent IDs to their state at a single time step.
type Frame map[AgentID]AgentState

// Clone returns a copy of the frame.
func (f Frame) Clone() Frame {
	g := make(Frame, len(f))
	for id, s := range f {
		g[id] = s
	}
	return g
}

// IDs returns the agent IDs in the frame in increasing order.
func (f Frame) IDs() []AgentID {
	ids := make([]AgentID, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Element is a hypothesised hidden agent: its identity, the state it would
// have if present, and the trajectory it is assumed to follow.
type Element struct {
	ID         AgentID
	State      AgentState
	Trajectory *Trajectory
}
