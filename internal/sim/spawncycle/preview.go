package spawncycle

import (
	"spawncycle.ai/internal/sim/model"
	"spawncycle.ai/internal/sim/spawncycle/policy"
	"spawncycle.ai/internal/sim/spawncycle/spiral"
	"spawncycle.ai/internal/sim/spawncycle/square"
)

// Preview lists the next n columns the active sequence would visit from the
// given progression. No world is consulted and nothing is persisted.
func Preview(s Settings, sp spiral.State, sq square.State, n int) []model.Center {
	if n <= 0 {
		return nil
	}
	out := make([]model.Center, 0, n)
	if s.Mode == policy.ModeSquare {
		q := square.New()
		q.Load(sq)
		for i := 0; i < n; i++ {
			x, z, next := q.Next(s.Center, s.Step)
			q.Commit(next)
			out = append(out, model.Center{X: x, Z: z})
		}
		return out
	}
	q := spiral.New()
	q.Load(sp)
	for i := 0; i < n; i++ {
		x, z, next := q.Next(s.Center)
		q.Commit(next)
		out = append(out, model.Center{X: x, Z: z})
	}
	return out
}
