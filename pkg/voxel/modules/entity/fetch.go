package entity

import "context"

// ModelFetcher is the collaborator the cache asks for an entity model it
// hasn't seen (§6 GET /entitymodel/{id}). A nil, nil return means the
// server answered 404 (§7 NotFound): cache the miss as absent, not an error.
type ModelFetcher interface {
	FetchModel(ctx context.Context, id string) (*EntityModel, error)
}

// RecordFetcher is the collaborator the cache asks for an entity record it
// hasn't seen (§6 GET /entity/{id}); same 404-as-nil contract.
type RecordFetcher interface {
	FetchEntity(ctx context.Context, id string) (*Record, error)
}

// Sender is the outbound collaborator for ENTITY_INTERACTION (§6).
type Sender interface {
	SendEntityInteraction(entityID string, tsMillis int64, action string, payload any)
}

// Outbound action tags (§6 ENTITY_INTERACTION "ac").
const (
	ActionEntityProximity   = "entityProximity"
	ActionEntityCollision   = "entityCollision"
	ActionHitDuringShortcut = "hitDuringShortcut"
	ActionFireShortcut      = "fireShortcut"
)
