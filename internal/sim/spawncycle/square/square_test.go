package square

import (
	"errors"
	"testing"

	"spawncycle.ai/internal/sim/model"
)

func flat(h int) model.HeightFunc {
	return func(x, z int) (int, error) { return h, nil }
}

func chebyshev(o Offset) int {
	ax, az := o.DX, o.DZ
	if ax < 0 {
		ax = -ax
	}
	if az < 0 {
		az = -az
	}
	if ax > az {
		return ax
	}
	return az
}

func TestPerimeterShape(t *testing.T) {
	for r := 0; r <= 6; r++ {
		per := Perimeter(r)
		want := 8 * r
		if r == 0 {
			want = 1
		}
		if len(per) != want || PerimeterLen(r) != want {
			t.Fatalf("ring %d len=%d want %d", r, len(per), want)
		}
		seen := map[Offset]bool{}
		for _, o := range per {
			if chebyshev(o) != r {
				t.Fatalf("ring %d offset %+v at distance %d", r, o, chebyshev(o))
			}
			if seen[o] {
				t.Fatalf("ring %d repeats %+v", r, o)
			}
			seen[o] = true
		}
	}
}

func TestPerimeterOrder(t *testing.T) {
	per := Perimeter(1)
	want := []Offset{
		{-1, -1}, {0, -1}, {1, -1},
		{1, 0}, {1, 1},
		{0, 1}, {-1, 1},
		{-1, 0},
	}
	for i := range want {
		if per[i] != want[i] {
			t.Fatalf("ring 1 [%d]=%+v want %+v", i, per[i], want[i])
		}
	}
}

func TestChunkCenterFirstTwoPoints(t *testing.T) {
	q := New()
	p, err := q.Advance(model.Center{}, ChunkCenterStep(), flat(63))
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if p != (model.Vec3i{X: 8, Y: 64, Z: 8}) {
		t.Fatalf("first=%+v", p)
	}
	p, _ = q.Advance(model.Center{}, ChunkCenterStep(), flat(63))
	if p != (model.Vec3i{X: -8, Y: 64, Z: -8}) {
		t.Fatalf("second=%+v", p)
	}
	if got := q.Current(); got != (State{Ring: 1, StepIndex: 1}) {
		t.Fatalf("state=%+v", got)
	}
}

func TestIntegerStepNoNudge(t *testing.T) {
	q := New()
	q.Load(State{Ring: 2, StepIndex: 0})
	p, _ := q.Advance(model.Center{X: 100, Z: 200}, Step{Multiplier: 10}, flat(0))
	if p.X != 80 || p.Z != 180 || p.Y != 1 {
		t.Fatalf("point=%+v", p)
	}
}

func TestWalksWholeRingThenAdvances(t *testing.T) {
	q := New()
	q.Load(State{Ring: 2})
	for i := 0; i < 16; i++ {
		_, _ = q.Advance(model.Center{}, Step{Multiplier: 1}, flat(0))
	}
	if got := q.Current(); got != (State{Ring: 2, StepIndex: 16}) {
		t.Fatalf("end of ring state=%+v", got)
	}
	p, _ := q.Advance(model.Center{}, Step{Multiplier: 1}, flat(0))
	if p.X != -3 || p.Z != -3 {
		t.Fatalf("first of ring 3=%+v", p)
	}
}

func TestInconsistentIndexRecovers(t *testing.T) {
	q := New()
	var hit bool
	q.OnInconsistent = func(s State, size int) { hit = true }
	q.Load(State{Ring: 1, StepIndex: 40})
	_, _, next := q.Next(model.Center{}, Step{Multiplier: 1})
	if !hit {
		t.Fatalf("expected inconsistency callback")
	}
	if next != (State{Ring: 2, StepIndex: 1}) {
		t.Fatalf("next=%+v", next)
	}
}

func TestNextIsPure(t *testing.T) {
	q := New()
	q.Load(State{Ring: 3, StepIndex: 5})
	x1, z1, n1 := q.Next(model.Center{X: 1, Z: 2}, ChunkCenterStep())
	x2, z2, n2 := q.Next(model.Center{X: 1, Z: 2}, ChunkCenterStep())
	if x1 != x2 || z1 != z2 || n1 != n2 {
		t.Fatalf("Next not pure")
	}
	if q.Current() != (State{Ring: 3, StepIndex: 5}) {
		t.Fatalf("Next mutated state: %+v", q.Current())
	}
}

func TestResetReproducesFirstOutput(t *testing.T) {
	first, _ := New().Advance(model.Center{X: -5, Z: 9}, ChunkCenterStep(), flat(12))
	q := New()
	for i := 0; i < 30; i++ {
		_, _ = q.Advance(model.Center{X: -5, Z: 9}, ChunkCenterStep(), flat(12))
	}
	q.Reset()
	got, _ := q.Advance(model.Center{X: -5, Z: 9}, ChunkCenterStep(), flat(12))
	if got != first {
		t.Fatalf("after reset got=%+v want=%+v", got, first)
	}
}

func TestAdvanceHeightFailureKeepsState(t *testing.T) {
	q := New()
	q.Load(State{Ring: 1, StepIndex: 3})
	boom := errors.New("unloaded")
	if _, err := q.Advance(model.Center{}, ChunkCenterStep(), func(x, z int) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if q.Current() != (State{Ring: 1, StepIndex: 3}) {
		t.Fatalf("state mutated: %+v", q.Current())
	}
}

func TestSuccMatchesNext(t *testing.T) {
	q := New()
	q.Load(State{Ring: 1, StepIndex: 6})
	s := q.Current()
	for i := 0; i < 20; i++ {
		_, _, next := q.Next(model.Center{}, ChunkCenterStep())
		if want := s.Succ(); next != want {
			t.Fatalf("step %d: Next=%+v Succ=%+v", i, next, want)
		}
		q.Commit(next)
		s = next
	}
}
