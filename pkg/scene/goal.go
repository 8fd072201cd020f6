package scene

import "fmt"

// Goal is a destination an agent may be heading towards. Implementations are
// used as map keys, so they must be pointers or comparable values.
type Goal interface {
	// Reached reports whether the goal is attained at position p.
	Reached(p Point) bool
	// Stopping reports whether this is a terminal stopping goal. A stopping
	// goal may legitimately already be reached when observation starts.
	Stopping() bool
	// Center returns a representative target position for the goal.
	Center() Point
	fmt.Stringer
}

// PointGoal is a circular target region around a point.
type PointGoal struct {
	Point     Point
	Threshold float64
}

// NewPointGoal creates a point goal with the given attainment threshold.
func NewPointGoal(p Point, threshold float64) *PointGoal {
	return &PointGoal{Point: p, Threshold: threshold}
}

func (g *PointGoal) Reached(p Point) bool { return g.Point.Dist(p) <= g.Threshold }
func (g *PointGoal) Stopping() bool       { return false }
func (g *PointGoal) Center() Point        { return g.Point }

func (g *PointGoal) String() string {
	return fmt.Sprintf("PointGoal(%.1f,%.1f)", g.Point.X, g.Point.Y)
}

// BoxGoal is an axis-aligned rectangular target region.
type BoxGoal struct {
	Min, Max Point
}

func (g *BoxGoal) Reached(p Point) bool {
	return p.X >= g.Min.X && p.X <= g.Max.X && p.Y >= g.Min.Y && p.Y <= g.Max.Y
}

func (g *BoxGoal) Stopping() bool { return false }

func (g *BoxGoal) Center() Point {
	return Point{(g.Min.X + g.Max.X) / 2, (g.Min.Y + g.Max.Y) / 2}
}

func (g *BoxGoal) String() string {
	return fmt.Sprintf("BoxGoal(%.1f,%.1f;%.1f,%.1f)", g.Min.X, g.Min.Y, g.Max.X, g.Max.Y)
}

// StoppingGoal is a point goal where the agent's intention is to come to a
// stop. Recognition treats it as feasible even when already reached.
type StoppingGoal struct {
	PointGoal
}

// NewStoppingGoal creates a stopping goal with the given attainment threshold.
func NewStoppingGoal(p Point, threshold float64) *StoppingGoal {
	return &StoppingGoal{PointGoal{Point: p, Threshold: threshold}}
}

func (g *StoppingGoal) Stopping() bool { return true }

func (g *StoppingGoal) String() string {
	return fmt.Sprintf("StoppingGoal(%.1f,%.1f)", g.Point.X, g.Point.Y)
}
