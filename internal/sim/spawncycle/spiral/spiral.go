package spiral

import (
	"math"

	"spawncycle.ai/internal/sim/model"
)

const (
	AngleStep   = 30
	RadiusStep  = 5
	StartRadius = 1
)

type State struct {
	Radius int
	Angle  int
}

func Initial() State { return State{Radius: StartRadius, Angle: 0} }

// Normalize clamps a loaded state into the valid range.
func (s State) Normalize() State {
	if s.Radius < StartRadius {
		s.Radius = StartRadius
	}
	s.Angle %= 360
	if s.Angle < 0 {
		s.Angle += 360
	}
	return s
}

// Succ returns the state after one step.
func (s State) Succ() State {
	s.Angle += AngleStep
	if s.Angle >= 360 {
		s.Angle = 0
		s.Radius += RadiusStep
	}
	return s
}

// Offset is the horizontal displacement of the point this state produces.
func (s State) Offset() (dx, dz int) {
	rad := float64(s.Angle) * math.Pi / 180
	r := float64(s.Radius)
	return int(math.Round(r * math.Cos(rad))), int(math.Round(r * math.Sin(rad)))
}

type Sequencer struct {
	state State
}

func New() *Sequencer { return &Sequencer{state: Initial()} }

func (q *Sequencer) Current() State { return q.state }

func (q *Sequencer) Load(s State) { q.state = s.Normalize() }

func (q *Sequencer) Reset() { q.state = Initial() }

// Next computes the point for the current state without mutating it.
func (q *Sequencer) Next(center model.Center) (x, z int, next State) {
	dx, dz := q.state.Offset()
	return center.X + dx, center.Z + dz, q.state.Succ()
}

// Commit installs a successor previously returned by Next.
func (q *Sequencer) Commit(next State) { q.state = next }

// Advance resolves the next point and steps the state. A height lookup
// failure leaves the state untouched.
func (q *Sequencer) Advance(center model.Center, heights model.HeightFunc) (model.Vec3i, error) {
	x, z, next := q.Next(center)
	y, err := heights(x, z)
	if err != nil {
		return model.Vec3i{}, err
	}
	q.Commit(next)
	return model.Vec3i{X: x, Y: y + 1, Z: z}, nil
}
