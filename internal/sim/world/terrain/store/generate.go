package store

import genpkg "spawncycle.ai/internal/sim/world/terrain/gen"

func (s *HeightStore) GenerateChunk(ch *Chunk) {
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			ch.Set(x, z, genpkg.HeightAt(s.Gen, wx, wz))
		}
	}
}
