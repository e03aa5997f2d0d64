package square

// Offset is a ring-relative cell, in step units.
type Offset struct {
	DX int
	DZ int
}

// Perimeter returns the ordered cells of the square ring at Chebyshev
// distance ring from the origin: top edge left to right, right edge top to
// bottom, bottom edge right to left, left edge bottom to top. Corners are
// visited once.
func Perimeter(ring int) []Offset {
	if ring <= 0 {
		return []Offset{{}}
	}
	r := ring
	out := make([]Offset, 0, 8*r)
	for x := -r; x <= r; x++ {
		out = append(out, Offset{DX: x, DZ: -r})
	}
	for z := -r + 1; z <= r; z++ {
		out = append(out, Offset{DX: r, DZ: z})
	}
	for x := r - 1; x >= -r; x-- {
		out = append(out, Offset{DX: x, DZ: r})
	}
	for z := r - 1; z > -r; z-- {
		out = append(out, Offset{DX: -r, DZ: z})
	}
	return out
}

// PerimeterLen is len(Perimeter(ring)) without allocating.
func PerimeterLen(ring int) int {
	if ring <= 0 {
		return 1
	}
	return 8 * ring
}
