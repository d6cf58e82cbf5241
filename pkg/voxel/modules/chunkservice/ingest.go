package chunkservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/compress/gzip"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

// yieldBatchSize is the cooperative yield granularity during block/item
// processing (§4.7, §5 Suspension points).
const yieldBatchSize = 50

// compressedPayload is the decompressed shape of a ChunkDTO's "c" field
// (§6 CHUNK_UPDATE).
type compressedPayload struct {
	Blocks     []BlockDTO       `json:"blocks"`
	HeightData []HeightEntryDTO `json:"heightData"`
	Backdrop   *BackdropDTO     `json:"backdrop"`
}

// OnChunkUpdate ingests a batch of chunk payloads in the order received
// (§4.7, §5 ordering guarantees).
func (s *Service) OnChunkUpdate(ctx context.Context, dtos []ChunkDTO) error {
	for _, dto := range dtos {
		if err := s.ingestOne(ctx, dto); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ingestOne(ctx context.Context, dto ChunkDTO) error {
	pos := voxel.ChunkPos{CX: dto.CX, CZ: dto.CZ}

	if s.updating[pos] {
		s.needsAnother[pos] = append(s.needsAnother[pos], dto)
		return nil
	}
	s.updating[pos] = true
	err := s.processChunk(ctx, pos, dto)
	s.updating[pos] = false

	if pending := s.needsAnother[pos]; len(pending) > 0 {
		delete(s.needsAnother, pos)
		for _, next := range pending {
			if ierr := s.ingestOne(ctx, next); ierr != nil {
				return ierr
			}
		}
	}
	return err
}

func (s *Service) processChunk(ctx context.Context, pos voxel.ChunkPos, dto ChunkDTO) error {
	if len(dto.Compressed) > 0 {
		inflated, err := inflate(dto.Compressed)
		if err != nil {
			return fmt.Errorf("inflate chunk (%d,%d): %w", pos.CX, pos.CZ, err)
		}
		dto.Blocks = inflated.Blocks
		dto.HeightData = inflated.HeightData
		dto.Backdrop = inflated.Backdrop
		dto.Compressed = nil
	}

	ids := make([]string, 0, len(dto.Blocks)+1)
	for i := range dto.Blocks {
		dto.Blocks[i].ID = blocktype.NormalizeID(dto.Blocks[i].ID)
		ids = append(ids, dto.Blocks[i].ID)
	}
	if len(dto.Items) > 0 {
		ids = append(ids, "w:1")
	}
	if err := s.registry.Preload(ctx, ids); err != nil {
		return fmt.Errorf("preload block-type groups for chunk (%d,%d): %w", pos.CX, pos.CZ, err)
	}

	_, existed := s.chunks[pos]
	chunk := newChunk(pos, s.chunkSize, s.worldMinY, s.worldMaxY)

	if err := s.placeBlocks(ctx, chunk, dto.Blocks); err != nil {
		return err
	}
	s.applyHeightOverrides(chunk, dto.HeightData)
	s.placeItems(chunk, dto.Items)
	chunk.Backdrop = normalizeBackdrop(dto.Backdrop)

	s.chunks[pos] = chunk
	chunk.IsLoaded = true

	if existed {
		s.emitUpdated(chunk)
	} else {
		s.emitLoaded(chunk)
	}
	return nil
}

// placeBlocks implements the "process chunk data" block pass (§4.7): resolve
// each block's type, merge its modifier, and update column aggregates in the
// same pass.
func (s *Service) placeBlocks(ctx context.Context, chunk *Chunk, blocks []BlockDTO) error {
	touched := make(map[[2]int]bool)
	for i, b := range blocks {
		bt, err := s.registry.Get(ctx, b.ID)
		if err != nil {
			s.logf("resolve block type %q at (%d,%d,%d): %v", b.ID, b.X, b.Y, b.Z, err)
			bt = blocktype.ErrorType()
		}
		modifier := bt.ModifierFor(b.Status)
		if b.Modifier != nil {
			modifier = mergeModifier(modifier, *b.Modifier)
		}

		pos := voxel.BlockPos{X: b.X, Y: b.Y, Z: b.Z}
		chunk.Blocks[pos] = &ClientBlock{
			Pos:             pos,
			TypeID:          b.ID,
			Status:          b.Status,
			Type:            bt,
			CurrentModifier: modifier,
		}
		s.accumulateColumn(chunk, pos, modifier, touched)

		if (i+1)%yieldBatchSize == 0 {
			runtime.Gosched()
		}
	}
	return nil
}

// mergeModifier applies inline per-block overrides on top of the type's
// base modifier (§4.7 merge order: type modifier, then inline overrides,
// then world/season modifiers). No world/season layer is applied: nothing
// in this module supplies one.
func mergeModifier(base, override blocktype.Modifier) blocktype.Modifier {
	merged := base
	if override.Physics.Solid {
		merged.Physics.Solid = true
	}
	if override.Physics.Resistance != 0 {
		merged.Physics.Resistance = override.Physics.Resistance
	}
	if override.Physics.CornerHeights != nil {
		merged.Physics.CornerHeights = override.Physics.CornerHeights
	}
	if override.Physics.PassableFrom != 0 {
		merged.Physics.PassableFrom = override.Physics.PassableFrom
	}
	if override.Physics.AutoClimbable != nil {
		merged.Physics.AutoClimbable = override.Physics.AutoClimbable
	}
	if override.Visibility.Shape != "" {
		merged.Visibility.Shape = override.Visibility.Shape
	}
	return merged
}

// accumulateColumn folds one block's contribution into its column's
// aggregates in the same pass that builds the client block (§4.7 "In the
// same pass, update column aggregates: minY (groundLevel), highestBlockY
// (maxHeight), running waterLevel"). touched tracks which columns have seen
// at least one solid block yet, so the first one seeds rather than compares
// against the world-bound defaults newChunk pre-fills every column with.
func (s *Service) accumulateColumn(chunk *Chunk, pos voxel.BlockPos, modifier blocktype.Modifier, touched map[[2]int]bool) {
	_, _, lx, lz := voxel.WorldToChunk(float64(pos.X), float64(pos.Z), s.chunkSize)
	key := [2]int{lx, lz}
	col := chunk.Columns[key]
	col.X, col.Z = lx, lz

	if modifier.Physics.Solid || modifier.Physics.CornerHeights != nil {
		if !touched[key] {
			col.GroundLevel = pos.Y
			touched[key] = true
		} else if pos.Y < col.GroundLevel {
			col.GroundLevel = pos.Y
		}
		// maxHeight stays at the newChunk-seeded world ceiling unless a
		// block actually exceeds it, in which case it becomes
		// highestBlock.y + 10, not "top of terrain" (§3 HeightColumn).
		if pos.Y+1 > s.worldMaxY && pos.Y+10 > col.MaxHeight {
			col.MaxHeight = pos.Y + 10
		}
	}
	if voxel.IsWaterShape(modifier.Visibility.Shape) {
		if col.WaterLevel == nil || pos.Y+1 > *col.WaterLevel {
			top := pos.Y + 1
			col.WaterLevel = &top
		}
	}
	chunk.Columns[key] = col
}

func (s *Service) applyHeightOverrides(chunk *Chunk, entries []HeightEntryDTO) {
	for _, h := range entries {
		key := [2]int{h.X, h.Z}
		col := chunk.Columns[key]
		col.X, col.Z = h.X, h.Z
		col.MaxHeight = h.MaxHeight
		col.GroundLevel = h.GroundLevel
		col.WaterLevel = h.WaterLevel
		chunk.Columns[key] = col
	}
}

// placeItems implements the item-placement pass (§4.7): an item lands only
// on a currently-AIR cell and becomes a client block of the synthetic ITEM
// type.
func (s *Service) placeItems(chunk *Chunk, items []ItemDTO) {
	for i, it := range items {
		pos := voxel.BlockPos{X: it.X, Y: it.Y, Z: it.Z}
		cx, cz, _, _ := voxel.WorldToChunk(float64(pos.X), float64(pos.Z), s.chunkSize)
		if cx != chunk.Pos.CX || cz != chunk.Pos.CZ {
			continue
		}
		if _, occupied := chunk.Blocks[pos]; occupied {
			continue
		}
		item := it
		chunk.Blocks[pos] = &ClientBlock{
			Pos:    pos,
			TypeID: ItemBlockType,
			Item:   &item,
		}
		if (i+1)%yieldBatchSize == 0 {
			runtime.Gosched()
		}
	}
}

func normalizeBackdrop(dto *BackdropDTO) BackdropDTO {
	none := []BackdropSideDTO{{Type: "none"}}
	out := BackdropDTO{}
	if dto == nil {
		out.North, out.East, out.South, out.West = none, none, none, none
		return out
	}
	out.North = orNone(dto.North, none)
	out.East = orNone(dto.East, none)
	out.South = orNone(dto.South, none)
	out.West = orNone(dto.West, none)
	return out
}

func orNone(side, none []BackdropSideDTO) []BackdropSideDTO {
	if len(side) == 0 {
		return none
	}
	return side
}

// OnBlockUpdate applies a batch of block deltas (§4.7 on_block_update),
// publishing chunk:updated exactly once per affected chunk.
func (s *Service) OnBlockUpdate(ctx context.Context, blocks []BlockDTO) error {
	touched := make(map[voxel.ChunkPos]*Chunk)
	for _, b := range blocks {
		b.ID = blocktype.NormalizeID(b.ID)
		pos := voxel.BlockPos{X: b.X, Y: b.Y, Z: b.Z}
		cx, cz, _, _ := voxel.WorldToChunk(float64(pos.X), float64(pos.Z), s.chunkSize)
		cpos := voxel.ChunkPos{CX: cx, CZ: cz}
		chunk, ok := s.chunks[cpos]
		if !ok {
			continue
		}

		var modifier blocktype.Modifier
		if blocktype.IsAir(b.ID) {
			delete(chunk.Blocks, pos)
		} else {
			bt, err := s.registry.Get(ctx, b.ID)
			if err != nil {
				s.logf("resolve block type %q at (%d,%d,%d): %v", b.ID, b.X, b.Y, b.Z, err)
				bt = blocktype.ErrorType()
			}
			modifier = bt.ModifierFor(b.Status)
			if b.Modifier != nil {
				modifier = mergeModifier(modifier, *b.Modifier)
			}
			chunk.Blocks[pos] = &ClientBlock{
				Pos: pos, TypeID: b.ID, Status: b.Status,
				Type: bt, CurrentModifier: modifier, Dirty: true,
			}
		}
		s.extendColumn(chunk, pos, modifier)
		chunk.IsRendered = false
		touched[cpos] = chunk
	}
	for _, chunk := range touched {
		s.emitUpdated(chunk)
	}
	return nil
}

// extendColumn widens an already-populated column's aggregates for a single
// incremental block update, unlike accumulateColumn which seeds a column
// from scratch during a full chunk rebuild.
func (s *Service) extendColumn(chunk *Chunk, pos voxel.BlockPos, modifier blocktype.Modifier) {
	_, _, lx, lz := voxel.WorldToChunk(float64(pos.X), float64(pos.Z), s.chunkSize)
	key := [2]int{lx, lz}
	col := chunk.Columns[key]
	col.X, col.Z = lx, lz

	if modifier.Physics.Solid || modifier.Physics.CornerHeights != nil {
		if pos.Y < col.GroundLevel {
			col.GroundLevel = pos.Y
		}
		if pos.Y+1 > col.MaxHeight {
			col.MaxHeight = pos.Y + 1
		}
	}
	if voxel.IsWaterShape(modifier.Visibility.Shape) {
		if col.WaterLevel == nil || pos.Y+1 > *col.WaterLevel {
			top := pos.Y + 1
			col.WaterLevel = &top
		}
	}
	chunk.Columns[key] = col
}

// OnItemUpdate applies item placements/deletions (§6 ITEM_UPDATE).
func (s *Service) OnItemUpdate(items []ItemDTO) {
	touched := make(map[voxel.ChunkPos]*Chunk)
	for _, it := range items {
		pos := voxel.BlockPos{X: it.X, Y: it.Y, Z: it.Z}
		cx, cz, _, _ := voxel.WorldToChunk(float64(pos.X), float64(pos.Z), s.chunkSize)
		cpos := voxel.ChunkPos{CX: cx, CZ: cz}
		chunk, ok := s.chunks[cpos]
		if !ok {
			continue
		}
		if it.IsDeleted() {
			if blk, ok := chunk.Blocks[pos]; ok && blk.TypeID == ItemBlockType {
				delete(chunk.Blocks, pos)
			}
			touched[cpos] = chunk
			continue
		}
		if _, occupied := chunk.Blocks[pos]; occupied {
			continue
		}
		item := it
		chunk.Blocks[pos] = &ClientBlock{Pos: pos, TypeID: ItemBlockType, Item: &item}
		touched[cpos] = chunk
	}
	for _, chunk := range touched {
		chunk.IsRendered = false
		s.emitUpdated(chunk)
	}
}

func inflate(compressed []byte) (*compressedPayload, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read gzip stream: %w", err)
	}

	var payload compressedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode decompressed chunk payload: %w", err)
	}
	return &payload, nil
}
