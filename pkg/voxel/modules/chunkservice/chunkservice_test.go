package chunkservice

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

type fakeFetcher struct {
	groups map[string]map[string]*blocktype.BlockType
}

func (f *fakeFetcher) FetchGroup(ctx context.Context, group string) (map[string]*blocktype.BlockType, error) {
	if g, ok := f.groups[group]; ok {
		return g, nil
	}
	return map[string]*blocktype.BlockType{}, nil
}

func newTestRegistry() *blocktype.Registry {
	dirt := &blocktype.BlockType{
		ID: "core:dirt",
		Modifiers: map[int]blocktype.Modifier{
			0: {Physics: blocktype.PhysicsFacet{Solid: true}},
		},
	}
	fetcher := &fakeFetcher{groups: map[string]map[string]*blocktype.BlockType{
		"core": {"core:dirt": dirt},
		"w":    {},
	}}
	return blocktype.New(fetcher)
}

type fakeSender struct {
	cx, cz, hr, lr int32
	calls          int
}

func (f *fakeSender) SendChunkRegister(cx, cz, hr, lr int32) {
	f.cx, f.cz, f.hr, f.lr = cx, cz, hr, lr
	f.calls++
}

func newTestService() (*Service, *fakeSender) {
	sender := &fakeSender{}
	svc := New(newTestRegistry(), sender, 16, -64, 320)
	return svc, sender
}

func TestChunkUpdateInsertsBlocksAndEmitsLoaded(t *testing.T) {
	svc, _ := newTestService()
	var loaded *Chunk
	svc.OnChunkLoaded(func(c *Chunk) { loaded = c })

	err := svc.OnChunkUpdate(context.Background(), []ChunkDTO{{
		CX: 0, CZ: 0,
		Blocks: []BlockDTO{{X: 0, Y: 63, Z: 0, ID: "core:dirt"}},
	}})
	if err != nil {
		t.Fatalf("OnChunkUpdate: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected chunk:loaded to fire")
	}
	blk, ok := loaded.Blocks[voxel.BlockPos{X: 0, Y: 63, Z: 0}]
	if !ok || !blk.CurrentModifier.Physics.Solid {
		t.Fatalf("expected solid dirt block at (0,63,0), got %+v ok=%v", blk, ok)
	}
	col := loaded.Columns[[2]int{0, 0}]
	if col.GroundLevel != 63 {
		t.Fatalf("expected groundLevel=63, got %d", col.GroundLevel)
	}
	if col.MaxHeight != 320 {
		t.Fatalf("expected maxHeight to stay at the world ceiling (320) for a column under it, got %d", col.MaxHeight)
	}
}

func TestMaxHeightOverridesOnlyWhenBlockExceedsWorldCeiling(t *testing.T) {
	svc, _ := newTestService()
	err := svc.OnChunkUpdate(context.Background(), []ChunkDTO{{
		CX: 0, CZ: 0,
		Blocks: []BlockDTO{{X: 0, Y: 325, Z: 0, ID: "core:dirt"}},
	}})
	if err != nil {
		t.Fatalf("OnChunkUpdate: %v", err)
	}
	col := svc.Chunk(voxel.ChunkPos{}).Columns[[2]int{0, 0}]
	if col.MaxHeight != 335 {
		t.Fatalf("expected maxHeight=highestBlock.y+10=335, got %d", col.MaxHeight)
	}
}

func TestChunkUpdateIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	dto := ChunkDTO{CX: 0, CZ: 0, Blocks: []BlockDTO{{X: 0, Y: 63, Z: 0, ID: "core:dirt"}}}

	svc.OnChunkUpdate(context.Background(), []ChunkDTO{dto})
	first := svc.Chunk(voxel.ChunkPos{})
	firstGround := first.Columns[[2]int{0, 0}].GroundLevel

	svc.OnChunkUpdate(context.Background(), []ChunkDTO{dto})
	second := svc.Chunk(voxel.ChunkPos{})
	if second.Columns[[2]int{0, 0}].GroundLevel != firstGround {
		t.Fatal("expected idempotent re-ingestion to produce the same derived state")
	}
}

func TestBlockUpdateIDZeroDeletesOnEmptyCellIsNoop(t *testing.T) {
	svc, _ := newTestService()
	svc.OnChunkUpdate(context.Background(), []ChunkDTO{{CX: 0, CZ: 0}})

	if err := svc.OnBlockUpdate(context.Background(), []BlockDTO{{X: 1, Y: 1, Z: 1, ID: "0"}}); err != nil {
		t.Fatalf("OnBlockUpdate: %v", err)
	}
	chunk := svc.Chunk(voxel.ChunkPos{})
	if _, ok := chunk.Blocks[voxel.BlockPos{X: 1, Y: 1, Z: 1}]; ok {
		t.Fatal("expected no block to be created by a delete on an empty cell")
	}
}

func TestDecompressionAndItemPlacement(t *testing.T) {
	svc, _ := newTestService()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	payload := compressedPayload{
		Blocks: []BlockDTO{{X: 0, Y: 63, Z: 0, ID: "core:dirt"}},
	}
	enc, _ := json.Marshal(payload)
	zw.Write(enc)
	zw.Close()

	err := svc.OnChunkUpdate(context.Background(), []ChunkDTO{{
		CX: 0, CZ: 0,
		Compressed: buf.Bytes(),
		Items:      []ItemDTO{{ID: "apple", X: 0, Y: 64, Z: 0, Texture: "apple.png"}},
	}})
	if err != nil {
		t.Fatalf("OnChunkUpdate: %v", err)
	}

	chunk := svc.Chunk(voxel.ChunkPos{})
	if _, ok := chunk.Blocks[voxel.BlockPos{X: 0, Y: 63, Z: 0}]; !ok {
		t.Fatal("expected decompressed block at (0,63,0)")
	}
	item, ok := chunk.Blocks[voxel.BlockPos{X: 0, Y: 64, Z: 0}]
	if !ok || item.TypeID != ItemBlockType {
		t.Fatalf("expected item client block of type %q at (0,64,0), got %+v", ItemBlockType, item)
	}
	if chunk.Columns[[2]int{0, 0}].GroundLevel != 63 {
		t.Fatalf("expected groundLevel=63, got %d", chunk.Columns[[2]int{0, 0}].GroundLevel)
	}
}

func TestSlidingWindowUnloadsFarChunksAndRegistersNewCenter(t *testing.T) {
	svc, sender := newTestService()

	svc.OnChunkUpdate(context.Background(), []ChunkDTO{{CX: 0, CZ: 0}})
	svc.OnChunkUpdate(context.Background(), []ChunkDTO{{CX: 1, CZ: 0}})

	var unloaded []voxel.ChunkPos
	svc.OnChunkUnloaded(func(cx, cz int32) { unloaded = append(unloaded, voxel.ChunkPos{CX: cx, CZ: cz}) })

	svc.UpdateAround(5*16, 0, 2, 3)

	if sender.calls != 1 || sender.cx != 5 || sender.cz != 0 || sender.hr != 2 || sender.lr != 3 {
		t.Fatalf("expected CHUNK_REGISTER{cx:5,cz:0,hr:2,lr:3}, got %+v", sender)
	}
	if len(unloaded) != 2 {
		t.Fatalf("expected both far chunks to unload, got %d", len(unloaded))
	}
	if svc.Chunk(voxel.ChunkPos{CX: 0, CZ: 0}) != nil {
		t.Fatal("expected chunk (0,0) to be unloaded")
	}
}

func TestBackdropDefaultsToNoneWhenMissing(t *testing.T) {
	svc, _ := newTestService()
	svc.OnChunkUpdate(context.Background(), []ChunkDTO{{CX: 0, CZ: 0}})
	chunk := svc.Chunk(voxel.ChunkPos{})
	if len(chunk.Backdrop.North) != 1 || chunk.Backdrop.North[0].Type != "none" {
		t.Fatalf("expected default none backdrop, got %+v", chunk.Backdrop.North)
	}
}
