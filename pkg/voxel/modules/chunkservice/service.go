// Package chunkservice implements chunk ingestion, block-type resolution,
// and the sliding load/unload window (§4.7). It is grounded on the
// teacher's world.Module: a mutex-guarded map of loaded chunks, a handler
// switch over inbound packet/message kinds, and onChunkLoad/onChunkUnload/
// onBlockUpdate callback slices — generalized from block-state ints to
// merged modifiers resolved through the block-type registry, and from a
// fixed view-distance packet to an explicit register/unload sliding window.
package chunkservice

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

// ModuleName is this module's registry key.
const ModuleName = "chunkservice"

// Sender is the outbound collaborator the sliding window needs to ask the
// server for a new neighborhood (§6 outbound CHUNK_REGISTER). Declared next
// to its only caller, the way blocktype.GroupFetcher sits next to Registry.
type Sender interface {
	SendChunkRegister(cx, cz, hr, lr int32)
}

// Service is the Chunk Service (C7).
type Service struct {
	client *voxel.Client

	registry  *blocktype.Registry
	sender    Sender
	chunkSize int
	worldMinY int
	worldMaxY int

	chunks map[voxel.ChunkPos]*Chunk

	updating     map[voxel.ChunkPos]bool
	needsAnother map[voxel.ChunkPos][]ChunkDTO

	lastCenter  voxel.ChunkPos
	haveCenter  bool

	onLoaded   []func(*Chunk)
	onUpdated  []func(*Chunk)
	onUnloaded []func(cx, cz int32)
}

// New builds a Chunk Service backed by registry (block-type resolution) and
// sender (outbound CHUNK_REGISTER).
func New(registry *blocktype.Registry, sender Sender, chunkSize, worldMinY, worldMaxY int) *Service {
	return &Service{
		registry:     registry,
		sender:       sender,
		chunkSize:    chunkSize,
		worldMinY:    worldMinY,
		worldMaxY:    worldMaxY,
		chunks:       make(map[voxel.ChunkPos]*Chunk),
		updating:     make(map[voxel.ChunkPos]bool),
		needsAnother: make(map[voxel.ChunkPos][]ChunkDTO),
	}
}

func (s *Service) Name() string      { return ModuleName }
func (s *Service) Init(c *voxel.Client) { s.client = c }

func (s *Service) Reset() {
	s.chunks = make(map[voxel.ChunkPos]*Chunk)
	s.updating = make(map[voxel.ChunkPos]bool)
	s.needsAnother = make(map[voxel.ChunkPos][]ChunkDTO)
	s.haveCenter = false
	s.registry.Clear()
}

// HandleMessage dispatches on the inbound envelope type (§6).
func (s *Service) HandleMessage(msg *voxel.Message) {
	ctx := context.Background()
	switch msg.Type {
	case voxel.MsgChunkUpdate:
		var dtos []ChunkDTO
		if err := json.Unmarshal(msg.Data, &dtos); err != nil {
			s.logf("malformed CHUNK_UPDATE: %v", err)
			return
		}
		if err := s.OnChunkUpdate(ctx, dtos); err != nil {
			s.logf("chunk update failed: %v", err)
		}
	case voxel.MsgBlockUpdate:
		var blocks []BlockDTO
		if err := json.Unmarshal(msg.Data, &blocks); err != nil {
			s.logf("malformed BLOCK_UPDATE: %v", err)
			return
		}
		if err := s.OnBlockUpdate(ctx, blocks); err != nil {
			s.logf("block update failed: %v", err)
		}
	case voxel.MsgItemUpdate:
		var items []ItemDTO
		if err := json.Unmarshal(msg.Data, &items); err != nil {
			s.logf("malformed ITEM_UPDATE: %v", err)
			return
		}
		s.OnItemUpdate(items)
	}
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.client != nil && s.client.Logger != nil {
		s.client.Logger.Printf(format, args...)
	}
}

// OnChunkLoaded registers cb to fire after a chunk is inserted and marked
// loaded (§5 ordering: strictly after insertion).
func (s *Service) OnChunkLoaded(cb func(*Chunk)) { s.onLoaded = append(s.onLoaded, cb) }

// OnChunkUpdated registers cb to fire after an existing chunk is replaced or
// re-merged.
func (s *Service) OnChunkUpdated(cb func(*Chunk)) { s.onUpdated = append(s.onUpdated, cb) }

// OnChunkUnloaded registers cb to fire strictly before a chunk entry is
// removed (§5 ordering).
func (s *Service) OnChunkUnloaded(cb func(cx, cz int32)) { s.onUnloaded = append(s.onUnloaded, cb) }

// Chunk returns the loaded chunk at pos, or nil.
func (s *Service) Chunk(pos voxel.ChunkPos) *Chunk { return s.chunks[pos] }

// ModifierAt implements blockcontext.BlockSource, collision.BlockSource,
// physics.BlockSource, entity.BlockSource, and entityphysics.BlockSource: all
// five consume the same shape (§9 Design Notes — one seam, many consumers).
func (s *Service) ModifierAt(pos voxel.BlockPos) (blocktype.Modifier, bool) {
	cx, cz, _, _ := voxel.WorldToChunk(float64(pos.X), float64(pos.Z), s.chunkSize)
	chunk, ok := s.chunks[voxel.ChunkPos{CX: cx, CZ: cz}]
	if !ok {
		return blocktype.Modifier{}, false
	}
	blk, ok := chunk.Blocks[pos]
	if !ok {
		if pos.Y < s.worldMinY || pos.Y > s.worldMaxY {
			return blocktype.Modifier{}, false
		}
		return blocktype.AirType().ModifierFor(0), true
	}
	return blk.CurrentModifier, true
}

// WaterLevelAt implements physics.ColumnSource.
func (s *Service) WaterLevelAt(x, z int) (int, bool) {
	cx, cz, lx, lz := voxel.WorldToChunk(float64(x), float64(z), s.chunkSize)
	chunk, ok := s.chunks[voxel.ChunkPos{CX: cx, CZ: cz}]
	if !ok {
		return 0, false
	}
	col, ok := chunk.Columns[[2]int{lx, lz}]
	if !ok || col.WaterLevel == nil {
		return 0, false
	}
	return *col.WaterLevel, true
}

// RedrawChunk recomputes every client block's modifier from its block type
// and status and marks the chunk dirty, publishing chunk:updated (§4.7
// Redraw helpers). Inline per-block overrides merged in at ingestion are
// not kept on the client block, so the recomputed modifier does not include
// them.
func (s *Service) RedrawChunk(ctx context.Context, pos voxel.ChunkPos) error {
	chunk, ok := s.chunks[pos]
	if !ok {
		return nil
	}
	if err := s.recomputeModifiers(ctx, chunk); err != nil {
		return err
	}
	chunk.IsRendered = false
	s.emitUpdated(chunk)
	return nil
}

// RedrawAllChunks redraws every currently loaded chunk.
func (s *Service) RedrawAllChunks(ctx context.Context) error {
	for pos := range s.chunks {
		if err := s.RedrawChunk(ctx, pos); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateAllModifiers is an alias kept distinct from RedrawAllChunks
// because callers reacting to a world/season flip (§4.7) name the intent,
// not the mechanism; both currently share the same implementation.
func (s *Service) RecalculateAllModifiers(ctx context.Context) error {
	return s.RedrawAllChunks(ctx)
}

func (s *Service) recomputeModifiers(ctx context.Context, chunk *Chunk) error {
	ids := make([]string, 0, len(chunk.Blocks))
	for _, b := range chunk.Blocks {
		ids = append(ids, b.TypeID)
	}
	if err := s.registry.Preload(ctx, ids); err != nil {
		return fmt.Errorf("preload block types for redraw: %w", err)
	}
	for _, b := range chunk.Blocks {
		bt, _ := s.registry.Get(ctx, b.TypeID)
		b.Type = bt
		b.CurrentModifier = bt.ModifierFor(b.Status)
	}
	return nil
}

func (s *Service) emitLoaded(chunk *Chunk) {
	for _, cb := range s.onLoaded {
		cb(chunk)
	}
}

func (s *Service) emitUpdated(chunk *Chunk) {
	for _, cb := range s.onUpdated {
		cb(chunk)
	}
}

func (s *Service) emitUnloaded(cx, cz int32) {
	for _, cb := range s.onUnloaded {
		cb(cx, cz)
	}
}
