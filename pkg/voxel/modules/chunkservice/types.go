package chunkservice

import (
	"time"

	"github.com/go-mclib/voxelcore/pkg/voxel"
	"github.com/go-mclib/voxelcore/pkg/voxel/modules/blocktype"
)

// BlockDTO is one block as it arrives over the wire (§6 "Block").
type BlockDTO struct {
	X        int                 `json:"x"`
	Y        int                 `json:"y"`
	Z        int                 `json:"z"`
	ID       string              `json:"id"`
	Status   int                 `json:"s,omitempty"`
	Modifier *blocktype.Modifier `json:"m,omitempty"`
}

// ItemDTO is one item placement as it arrives over the wire.
type ItemDTO struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Z       int    `json:"z"`
	Texture string `json:"texture"`
}

// IsDeleted reports whether this item record marks a deletion (§6
// ITEM_UPDATE).
func (i ItemDTO) IsDeleted() bool { return i.Texture == "__deleted__" }

// BackdropSideDTO is one entry of a backdrop side list.
type BackdropSideDTO struct {
	Type string `json:"type"`
}

// BackdropDTO is the four-sided backdrop record (§3 "Chunk (client view)").
type BackdropDTO struct {
	North []BackdropSideDTO `json:"n,omitempty"`
	East  []BackdropSideDTO `json:"e,omitempty"`
	South []BackdropSideDTO `json:"s,omitempty"`
	West  []BackdropSideDTO `json:"w,omitempty"`
}

// HeightEntryDTO is one server-provided height column (§3 "HeightColumn").
type HeightEntryDTO struct {
	X           int  `json:"x"`
	Z           int  `json:"z"`
	MaxHeight   int  `json:"maxHeight"`
	GroundLevel int  `json:"groundLevel"`
	WaterLevel  *int `json:"waterLevel,omitempty"`
}

// ChunkDTO is the wire transfer object (§6 CHUNK_UPDATE / §3 "Chunk").
type ChunkDTO struct {
	CX         int32            `json:"cx"`
	CZ         int32            `json:"cz"`
	Blocks     []BlockDTO       `json:"b,omitempty"`
	HeightData []HeightEntryDTO `json:"h,omitempty"`
	Items      []ItemDTO        `json:"i,omitempty"`
	Backdrop   *BackdropDTO     `json:"backdrop,omitempty"`
	Compressed []byte           `json:"c,omitempty"`
}

// HeightColumn is the derived per-column metadata (§3 "HeightColumn").
type HeightColumn struct {
	X, Z        int
	MaxHeight   int
	MinHeight   int
	GroundLevel int
	WaterLevel  *int

	// seeded is not set or read by the ingestion pass; accumulateColumn
	// tracks a column's first ground contribution in its own touched map
	// instead.
	seeded bool
}

// ClientBlock augments a block with its resolved type and merged modifier
// (§3 "Block" / "ClientBlock").
type ClientBlock struct {
	Pos             voxel.BlockPos
	TypeID          string
	Status          int
	Type            *blocktype.BlockType
	CurrentModifier blocktype.Modifier
	Dirty           bool
	UpdatedAt       time.Time
	Item            *ItemDTO
}

// ItemBlockType is the synthetic type id for item placements (§4.7
// "items become client blocks of type '1'").
const ItemBlockType = "1"

// Chunk is the client view of one loaded chunk column (§3 "Chunk (client
// view)").
type Chunk struct {
	Pos        voxel.ChunkPos
	IsLoaded   bool
	IsRendered bool

	Blocks  map[voxel.BlockPos]*ClientBlock
	Columns map[[2]int]HeightColumn
	Backdrop BackdropDTO
}

func newChunk(pos voxel.ChunkPos, chunkSize, worldMinY, worldMaxY int) *Chunk {
	c := &Chunk{
		Pos:     pos,
		Blocks:  make(map[voxel.BlockPos]*ClientBlock),
		Columns: make(map[[2]int]HeightColumn),
	}
	for x := 0; x < chunkSize; x++ {
		for z := 0; z < chunkSize; z++ {
			c.Columns[[2]int{x, z}] = HeightColumn{
				X: x, Z: z,
				MaxHeight:   worldMaxY,
				MinHeight:   worldMinY,
				GroundLevel: worldMinY,
			}
		}
	}
	return c
}
