// Package blocktype implements the lazy, group-partitioned block-type
// registry (§4.1). It is grounded on the teacher's `world.Module`'s
// sync.RWMutex-guarded map idiom, generalized from a single flat map to
// one map per group, coalescing concurrent loads with
// golang.org/x/sync/singleflight the way §9's "promise-deduplication maps"
// design note asks for.
package blocktype

import "strings"

// DefaultGroup is the implicit group for a bare (colon-less) id.
const DefaultGroup = "w"

// AirID is the canonical normalized id of the AIR sentinel (§3).
const AirID = "w:0"

// NormalizeID case-folds, trims, and coerces a raw block-type id into its
// canonical "group:name" shape, defaulting the group to "w" for legacy
// numeric or bare ids. It is idempotent: NormalizeID(NormalizeID(x)) ==
// NormalizeID(x) for all x, since any id already containing a colon is
// returned unchanged after folding.
func NormalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return AirID
	}
	if idx := strings.IndexByte(id, ':'); idx >= 0 {
		return id
	}
	return DefaultGroup + ":" + id
}

// SplitID separates a normalized id into its group and name parts.
func SplitID(id string) (group, name string) {
	idx := strings.IndexByte(id, ':')
	if idx < 0 {
		return DefaultGroup, id
	}
	return id[:idx], id[idx+1:]
}

// IsAir reports whether a raw (not necessarily normalized) id denotes AIR.
func IsAir(id string) bool {
	n := NormalizeID(id)
	return n == AirID
}
