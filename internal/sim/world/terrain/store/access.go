package store

import (
	"sort"

	"spawncycle.ai/internal/sim/world/logic/mathx"
	genpkg "spawncycle.ai/internal/sim/world/terrain/gen"
)

func (s *HeightStore) InBounds(x, z int) bool {
	if s.BoundaryR > 0 {
		if x < -s.BoundaryR || x > s.BoundaryR || z < -s.BoundaryR || z > s.BoundaryR {
			return false
		}
	}
	return true
}

func (s *HeightStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// Height returns the highest solid block Y at (x,z); ok is false outside the
// boundary.
func (s *HeightStore) Height(x, z int) (int, bool) {
	if !s.InBounds(x, z) {
		return 0, false
	}
	ch := s.GetOrGenChunk(mathx.FloorDiv(x, ChunkSize), mathx.FloorDiv(z, ChunkSize))
	return ch.Get(mathx.Mod(x, ChunkSize), mathx.Mod(z, ChunkSize)), true
}

// SetHeight overrides the surface of one column (block placed or broken).
func (s *HeightStore) SetHeight(x, z, h int) bool {
	if !s.InBounds(x, z) {
		return false
	}
	ch := s.GetOrGenChunk(mathx.FloorDiv(x, ChunkSize), mathx.FloorDiv(z, ChunkSize))
	ch.Set(mathx.Mod(x, ChunkSize), mathx.Mod(z, ChunkSize), mathx.Clamp(h, genpkg.MinY, genpkg.MaxY-1))
	return true
}

func (s *HeightStore) GetOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:      cx,
		CZ:      cz,
		Heights: make([]int16, ChunkSize*ChunkSize),
	}
	s.GenerateChunk(ch)
	s.Chunks[k] = ch
	return ch
}
