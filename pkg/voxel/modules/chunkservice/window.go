package chunkservice

import "github.com/go-mclib/voxelcore/pkg/voxel"

// UpdateAround implements the sliding load/unload window (§4.7 "Sliding
// window"). The caller feeds periodic avatar-position updates; chunks
// beyond unloadDistance are dropped (emitting chunk:unloaded before
// removal, §5 ordering) and a fresh CHUNK_REGISTER is sent for the new
// neighborhood.
func (s *Service) UpdateAround(worldX, worldZ float64, renderDistance, unloadDistance int32) {
	cx, cz, _, _ := voxel.WorldToChunk(worldX, worldZ, s.chunkSize)
	center := voxel.ChunkPos{CX: cx, CZ: cz}

	if s.haveCenter && center == s.lastCenter {
		return
	}
	s.lastCenter = center
	s.haveCenter = true

	for pos := range s.chunks {
		if pos.ChebyshevDistance(center) > unloadDistance {
			s.emitUnloaded(pos.CX, pos.CZ)
			delete(s.chunks, pos)
		}
	}

	if s.sender != nil {
		s.sender.SendChunkRegister(center.CX, center.CZ, renderDistance, unloadDistance)
	}
}
