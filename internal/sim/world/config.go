package world

import (
	"spawncycle.ai/internal/sim/model"
	genpkg "spawncycle.ai/internal/sim/world/terrain/gen"
)

type WorldConfig struct {
	Name       string
	TickRateHz int
	Seed       int64
	BoundaryR  int

	// Terrain shape.
	BaseHeight int
	Amplitude  int
	Grid       int

	// Initial spawn column; Y is resolved from terrain.
	SpawnX int
	SpawnZ int
}

func (c *WorldConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "world"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.BoundaryR <= 0 {
		c.BoundaryR = 29_999_984
	}
	if c.BaseHeight <= 0 {
		c.BaseHeight = 63
	}
	if c.Amplitude < 0 {
		c.Amplitude = 0
	}
}

func (c WorldConfig) terrainParams() genpkg.Params {
	return genpkg.Params{
		Seed:       c.Seed,
		BaseHeight: c.BaseHeight,
		Amplitude:  c.Amplitude,
		Grid:       c.Grid,
	}
}

func (c WorldConfig) initialSpawnColumn() model.Center {
	return model.Center{X: c.SpawnX, Z: c.SpawnZ}
}
