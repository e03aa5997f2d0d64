package store

import genpkg "spawncycle.ai/internal/sim/world/terrain/gen"

const ChunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk caches the surface height of a 16x16 column area.
type Chunk struct {
	CX, CZ  int
	Heights []int16 // len = 16*16
}

func (c *Chunk) index(x, z int) int {
	return x + z*ChunkSize
}

func (c *Chunk) Get(x, z int) int {
	return int(c.Heights[c.index(x, z)])
}

func (c *Chunk) Set(x, z, h int) {
	c.Heights[c.index(x, z)] = int16(h)
}

// HeightStore lazily generates and caches column heights inside a square
// boundary of BoundaryR blocks around the origin. BoundaryR <= 0 means
// unbounded.
type HeightStore struct {
	Gen       genpkg.Params
	BoundaryR int
	Chunks    map[ChunkKey]*Chunk
}

func NewHeightStore(gen genpkg.Params, boundaryR int) *HeightStore {
	return &HeightStore{
		Gen:       gen,
		BoundaryR: boundaryR,
		Chunks:    map[ChunkKey]*Chunk{},
	}
}
