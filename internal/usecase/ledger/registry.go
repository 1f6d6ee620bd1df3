package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/splitledger-backend/internal/domain"
)

// Loader builds the ledger of a group that is not in memory yet
type Loader func(ctx context.Context, groupID uuid.UUID) (*Ledger, error)

type entry struct {
	ops    sync.Mutex // serializes write workflows of one group
	ledger *Ledger
}

// Registry owns one ledger per group.
// Groups never share a lock, so work on different groups runs in parallel.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	load    Loader
}

// NewRegistry creates a registry that loads missing ledgers with the given loader
func NewRegistry(load Loader) *Registry {
	return &Registry{
		entries: make(map[uuid.UUID]*entry),
		load:    load,
	}
}

// Get returns the ledger of a group, loading it on first access
func (r *Registry) Get(ctx context.Context, groupID uuid.UUID) (*Ledger, error) {
	e, err := r.entry(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return e.ledger, nil
}

// Do runs fn with exclusive access to the group's ledger.
// Concurrent calls for the same group run one after the other; other groups are not blocked.
func (r *Registry) Do(ctx context.Context, groupID uuid.UUID, fn func(*Ledger) error) error {
	for {
		e, err := r.entry(ctx, groupID)
		if err != nil {
			return err
		}

		e.ops.Lock()
		// The ledger may have been evicted while we waited; work on the reloaded one instead
		if !r.current(groupID, e) {
			e.ops.Unlock()
			continue
		}

		err = ctx.Err()
		if err == nil {
			err = fn(e.ledger)
		}
		e.ops.Unlock()
		return err
	}
}

// Warm loads the ledgers of the given groups, at most concurrency at a time.
// It stops at the first group that fails to load.
func (r *Registry) Warm(ctx context.Context, groupIDs []uuid.UUID, concurrency int) error {
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, id := range groupIDs {
		g.Go(func() error {
			if _, err := r.Get(ctx, id); err != nil {
				return fmt.Errorf("warm ledger %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Put registers a ledger built by the caller, replacing any cached one
func (r *Registry) Put(l *Ledger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[l.GroupID()] = &entry{ledger: l}
}

// Evict drops the cached ledger so the next access reloads it from storage
func (r *Registry) Evict(groupID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, groupID)
}

func (r *Registry) current(groupID uuid.UUID, e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.entries[groupID] == e
}

// Len returns the number of ledgers in memory
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

func (r *Registry) entry(ctx context.Context, groupID uuid.UUID) (*entry, error) {
	r.mu.Lock()
	e, ok := r.entries[groupID]
	r.mu.Unlock()
	if ok {
		return e, nil
	}

	if r.load == nil {
		return nil, fmt.Errorf("ledger for group %s: %w", groupID, domain.ErrNotFound)
	}

	// Load outside the registry lock so a slow load does not stall other groups
	l, err := r.load(ctx, groupID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have loaded the same group meanwhile; keep the first one
	if e, ok := r.entries[groupID]; ok {
		return e, nil
	}
	e = &entry{ledger: l}
	r.entries[groupID] = e
	return e, nil
}
