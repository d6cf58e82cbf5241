package blocktype

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// GroupFetcher is the collaborator the registry needs to resolve a group of
// block-type ids it hasn't seen yet. It is declared here, next to its only
// caller, rather than in a shared interfaces package (§1: REST plumbing
// itself is out of scope — only this seam into it is ours to define).
type GroupFetcher interface {
	// FetchGroup returns every known BlockType belonging to group, keyed by
	// full normalized id.
	FetchGroup(ctx context.Context, group string) (map[string]*BlockType, error)
}

// Registry is the lazy, group-partitioned block-type cache (§4.1). Each
// group is fetched at most once: concurrent misses for ids in the same
// unloaded group coalesce onto a single in-flight GroupFetcher call via
// singleflight, mirroring the teacher's world.Module sync.RWMutex-guarded
// map but split one map per group instead of one flat map.
type Registry struct {
	fetcher GroupFetcher

	mu     sync.RWMutex
	groups map[string]map[string]*BlockType
	loaded map[string]bool

	sf singleflight.Group
}

// New builds a Registry backed by fetcher.
func New(fetcher GroupFetcher) *Registry {
	return &Registry{
		fetcher: fetcher,
		groups:  make(map[string]map[string]*BlockType),
		loaded:  make(map[string]bool),
	}
}

// ensureGroupLoaded fetches group exactly once even under concurrent callers,
// via singleflight's promise-deduplication (§9 Design Notes).
func (r *Registry) ensureGroupLoaded(ctx context.Context, group string) error {
	r.mu.RLock()
	done := r.loaded[group]
	r.mu.RUnlock()
	if done {
		return nil
	}

	_, err, _ := r.sf.Do(group, func() (interface{}, error) {
		r.mu.RLock()
		already := r.loaded[group]
		r.mu.RUnlock()
		if already {
			return nil, nil
		}

		fetched, ferr := r.fetcher.FetchGroup(ctx, group)
		if ferr != nil {
			return nil, fmt.Errorf("fetch block-type group %q: %w", group, ferr)
		}

		r.mu.Lock()
		g, ok := r.groups[group]
		if !ok {
			g = make(map[string]*BlockType)
			r.groups[group] = g
		}
		for id, bt := range fetched {
			// Rewrite any id whose embedded group disagrees with the group
			// just loaded (§4.1 ensure_group_loaded) before inserting, so a
			// legacy/cross-group id from the server lands under the group
			// it was actually fetched as.
			_, name := SplitID(NormalizeID(id))
			rewritten := group + ":" + name
			if bt.ID != rewritten {
				rewrittenBt := *bt
				rewrittenBt.ID = rewritten
				bt = &rewrittenBt
			}
			g[rewritten] = bt
		}
		r.loaded[group] = true
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// Get resolves id synchronously, fetching its group on first use. Returns
// ErrorType (never nil) when the id is unknown after a successful fetch, so
// callers never need a nil check (§7 MissingType).
func (r *Registry) Get(ctx context.Context, id string) (*BlockType, error) {
	id = NormalizeID(id)
	if id == AirID {
		return AirType(), nil
	}

	group, _ := SplitID(id)
	if err := r.ensureGroupLoaded(ctx, group); err != nil {
		return ErrorType(), err
	}

	r.mu.RLock()
	bt, ok := r.groups[group][id]
	r.mu.RUnlock()
	if !ok {
		return ErrorType(), nil
	}
	return bt, nil
}

// GetSync returns the cached BlockType without fetching, for hot paths
// (collision, movement) that must never block on network I/O. It returns
// ErrorType and false when the group hasn't been loaded yet or the id is
// absent; callers that need a guaranteed resolution should call Preload for
// the group first.
func (r *Registry) GetSync(id string) (bt *BlockType, resolved bool) {
	id = NormalizeID(id)
	if id == AirID {
		return AirType(), true
	}
	group, _ := SplitID(id)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded[group] {
		return ErrorType(), false
	}
	if bt, ok := r.groups[group][id]; ok {
		return bt, true
	}
	return ErrorType(), false
}

// Preload eagerly loads every group referenced by ids, deduplicating
// repeated groups and loading them in parallel (§4.1 preload, §4.7 "request
// them in parallel from the registry"), so a batch of GetSync calls right
// after can all hit.
func (r *Registry) Preload(ctx context.Context, ids []string) error {
	seen := make(map[string]bool)
	var groups []string
	for _, id := range ids {
		group, _ := SplitID(NormalizeID(id))
		if seen[group] {
			continue
		}
		seen[group] = true
		groups = append(groups, group)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(groups))
	for i, group := range groups {
		wg.Add(1)
		go func(i int, group string) {
			defer wg.Done()
			errs[i] = r.ensureGroupLoaded(ctx, group)
		}(i, group)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Clear drops every cached group, forcing the next Get to re-fetch. Used on
// reconnect/world-switch (Client.ResetAll).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = make(map[string]map[string]*BlockType)
	r.loaded = make(map[string]bool)
}
