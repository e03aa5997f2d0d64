package gen

import "testing"

func TestHeightAt_FlatWithoutAmplitude(t *testing.T) {
	p := Params{Seed: 9, BaseHeight: 70, Amplitude: 0}
	for _, xz := range [][2]int{{0, 0}, {-513, 77}, {10000, -10000}} {
		if h := HeightAt(p, xz[0], xz[1]); h != 70 {
			t.Fatalf("HeightAt(%v)=%d want 70", xz, h)
		}
	}
}

func TestHeightAt_DeterministicAndBounded(t *testing.T) {
	p := Params{Seed: 1337, BaseHeight: 64, Amplitude: 24, Grid: 32}
	for x := -100; x <= 100; x += 7 {
		for z := -100; z <= 100; z += 11 {
			h := HeightAt(p, x, z)
			if h != HeightAt(p, x, z) {
				t.Fatalf("non-deterministic height at %d,%d", x, z)
			}
			// coarse ±24 plus detail ±6
			if h < 64-30 || h > 64+30 {
				t.Fatalf("height %d at %d,%d outside expected band", h, x, z)
			}
		}
	}
}

func TestHeightAt_ContinuousAlongLattice(t *testing.T) {
	p := Params{Seed: 5, BaseHeight: 64, Amplitude: 24, Grid: 64}
	prev := HeightAt(p, -1, 0)
	for x := 0; x < 256; x++ {
		h := HeightAt(p, x, 0)
		d := h - prev
		if d < -8 || d > 8 {
			t.Fatalf("jump of %d between x=%d and x=%d", d, x-1, x)
		}
		prev = h
	}
}
