package square

import "spawncycle.ai/internal/sim/model"

const (
	ChunkSize        = 16
	chunkCenterNudge = ChunkSize / 2
)

// Step scales ring offsets into block coordinates.
type Step struct {
	Multiplier  int
	ChunkCenter bool
}

func ChunkCenterStep() Step { return Step{Multiplier: ChunkSize, ChunkCenter: true} }

func (s Step) apply(center model.Center, off Offset) (x, z int) {
	x = center.X + off.DX*s.Multiplier
	z = center.Z + off.DZ*s.Multiplier
	if s.ChunkCenter {
		x += chunkCenterNudge
		z += chunkCenterNudge
	}
	return x, z
}

type State struct {
	Ring      int
	StepIndex int
}

func (s State) Normalize() State {
	if s.Ring < 0 {
		s.Ring = 0
	}
	if s.StepIndex < 0 {
		s.StepIndex = 0
	}
	return s
}

// Succ returns the state after one step. It matches what Next commits.
func (s State) Succ() State {
	if s.StepIndex >= PerimeterLen(s.Ring) {
		return State{Ring: s.Ring + 1, StepIndex: 1}
	}
	s.StepIndex++
	return s
}

// Sequencer walks successive square rings. The perimeter of the current
// ring is cached and regenerated when the ring changes.
type Sequencer struct {
	state State

	perimeter     []Offset
	perimeterRing int

	// OnInconsistent is called when a loaded step index lies past the end of
	// its ring. The sequencer recovers by moving to the next ring.
	OnInconsistent func(s State, size int)
}

func New() *Sequencer { return &Sequencer{} }

func (q *Sequencer) Current() State { return q.state }

func (q *Sequencer) Load(s State) {
	q.state = s.Normalize()
	q.perimeter = nil
}

func (q *Sequencer) Reset() {
	q.state = State{}
	q.perimeter = nil
}

func (q *Sequencer) ringPerimeter(ring int) []Offset {
	if len(q.perimeter) == 0 || q.perimeterRing != ring {
		q.perimeter = Perimeter(ring)
		q.perimeterRing = ring
	}
	return q.perimeter
}

// Next computes the point for the current state without changing the
// progression. Only the perimeter cache may be refreshed.
func (q *Sequencer) Next(center model.Center, step Step) (x, z int, next State) {
	s := q.state
	per := q.ringPerimeter(s.Ring)
	if s.StepIndex >= len(per) {
		if s.StepIndex > len(per) && q.OnInconsistent != nil {
			q.OnInconsistent(s, len(per))
		}
		s.Ring++
		s.StepIndex = 0
		per = q.ringPerimeter(s.Ring)
	}
	x, z = step.apply(center, per[s.StepIndex])
	s.StepIndex++
	return x, z, s
}

func (q *Sequencer) Commit(next State) { q.state = next }

// Advance resolves the next point and steps the state. A height lookup
// failure leaves the state untouched.
func (q *Sequencer) Advance(center model.Center, step Step, heights model.HeightFunc) (model.Vec3i, error) {
	x, z, next := q.Next(center, step)
	y, err := heights(x, z)
	if err != nil {
		return model.Vec3i{}, err
	}
	q.Commit(next)
	return model.Vec3i{X: x, Y: y + 1, Z: z}, nil
}
