package scene

// Trajectory is a path through the world with a velocity at each waypoint.
// Path and Velocity always have the same length.
type Trajectory struct {
	Path     []Point
	Velocity []float64
}

// NewTrajectory builds a trajectory from parallel path and velocity slices.
// A nil velocity slice yields zero velocity at every waypoint.
func NewTrajectory(path []Point, velocity []float64) *Trajectory {
	if velocity == nil {
		velocity = make([]float64, len(path))
	}
	return &Trajectory{Path: path, Velocity: velocity}
}

// Len returns the number of waypoints.
func (t *Trajectory) Len() int { return len(t.Path) }

// Start returns the first waypoint. Panics on an empty trajectory.
func (t *Trajectory) Start() Point { return t.Path[0] }

// End returns the last waypoint. Panics on an empty trajectory.
func (t *Trajectory) End() Point { return t.Path[len(t.Path)-1] }

// Length returns the total path length.
func (t *Trajectory) Length() float64 {
	var d float64
	for i := 1; i < len(t.Path); i++ {
		d += t.Path[i-1].Dist(t.Path[i])
	}
	return d
}

// Duration estimates the travel time as sum of segment length over segment speed.
// Segments with non-positive speed contribute nothing.
func (t *Trajectory) Duration() float64 {
	var dur float64
	for i := 1; i < len(t.Path); i++ {
		v := (t.Velocity[i-1] + t.Velocity[i]) / 2
		if v > 0 {
			dur += t.Path[i-1].Dist(t.Path[i]) / v
		}
	}
	return dur
}

// Clone returns a deep copy of the trajectory.
func (t *Trajectory) Clone() *Trajectory {
	path := make([]Point, len(t.Path))
	copy(path, t.Path)
	vel := make([]float64, len(t.Velocity))
	copy(vel, t.Velocity)
	return &Trajectory{Path: path, Velocity: vel}
}

// InsertPrefix returns a new trajectory consisting of prefix followed by t.
// A nil prefix returns a copy of t.
func (t *Trajectory) InsertPrefix(prefix *Trajectory) *Trajectory {
	if prefix == nil || prefix.Len() == 0 {
		return t.Clone()
	}
	path := make([]Point, 0, prefix.Len()+t.Len())
	vel := make([]float64, 0, prefix.Len()+t.Len())
	path = append(path, prefix.Path...)
	vel = append(vel, prefix.Velocity...)
	path = append(path, t.Path...)
	vel = append(vel, t.Velocity...)
	return &Trajectory{Path: path, Velocity: vel}
}
