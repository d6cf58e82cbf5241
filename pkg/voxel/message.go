package voxel

import "encoding/json"

// MessageType tags the envelope of an inbound wire message (§6).
type MessageType string

const (
	MsgChunkUpdate   MessageType = "CHUNK_UPDATE"
	MsgBlockUpdate   MessageType = "BLOCK_UPDATE"
	MsgItemUpdate    MessageType = "ITEM_UPDATE"
	MsgEntityPathway MessageType = "ENTITY_PATHWAY"
)

// Message is the inbound envelope {t, d}; modules decode Data themselves
// based on Type, the same way teacher modules switch on pkt.PacketID and
// then pkt.ReadInto a concrete struct.
type Message struct {
	Type MessageType     `json:"t"`
	Data json.RawMessage `json:"d"`
}
