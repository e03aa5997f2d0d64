package gen

import "spawncycle.ai/internal/sim/world/logic/mathx"

const (
	MinY = 0
	MaxY = 255
)

// Params shapes the height field. Heights are BaseHeight plus two octaves of
// value noise scaled by Amplitude (coarse) and Amplitude/4 (detail).
type Params struct {
	Seed       int64
	BaseHeight int
	Amplitude  int
	Grid       int // coarse lattice spacing in blocks
}

func (p Params) withDefaults() Params {
	if p.BaseHeight <= 0 {
		p.BaseHeight = 63
	}
	if p.Amplitude < 0 {
		p.Amplitude = 0
	}
	if p.Grid <= 0 {
		p.Grid = 64
	}
	return p
}

// noise returns bilinear value noise in [0,1000] on a lattice of the given
// spacing.
func noise(seed int64, x, z, grid int) int {
	gx, gz := mathx.FloorDiv(x, grid), mathx.FloorDiv(z, grid)
	fx, fz := mathx.Mod(x, grid), mathx.Mod(z, grid)
	corner := func(cx, cz int) int { return int(mathx.Hash2(seed, cx, cz) % 1001) }
	top := mathx.Lerp(corner(gx, gz), corner(gx+1, gz), fx, grid)
	bot := mathx.Lerp(corner(gx, gz+1), corner(gx+1, gz+1), fx, grid)
	return mathx.Lerp(top, bot, fz, grid)
}

// HeightAt returns the Y of the highest solid block in column (x,z).
func HeightAt(p Params, x, z int) int {
	p = p.withDefaults()
	coarse := noise(p.Seed, x, z, p.Grid)
	detailGrid := p.Grid / 4
	if detailGrid < 1 {
		detailGrid = 1
	}
	detail := noise(p.Seed+7919, x, z, detailGrid)
	h := p.BaseHeight + (coarse-500)*p.Amplitude/500 + (detail-500)*(p.Amplitude/4)/500
	return mathx.Clamp(h, MinY, MaxY-1)
}
