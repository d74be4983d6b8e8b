package merge

import (
	"sync"

	"github.com/posix4e/ContactDedup/internal/types"
)

// Coordinator serializes merges that could touch the same record. Merges of
// groups with disjoint record ids run concurrently; a merge whose group
// overlaps a running merge waits until the overlapping ids are released.
type Coordinator struct {
	engine *Engine

	mu   sync.Mutex
	cond *sync.Cond
	busy map[string]struct{}
}

// NewCoordinator wraps a merge engine with per-record-id serialization.
func NewCoordinator(engine *Engine) *Coordinator {
	c := &Coordinator{
		engine: engine,
		busy:   make(map[string]struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Merge runs Engine.Merge under the coordinator: it blocks while any group
// member id is held by another in-flight merge, then holds all member ids
// for the duration of the merge.
func (c *Coordinator) Merge(group []*types.ContactRecord, primaryID string) (*types.ContactRecord, []MergeConflict, error) {
	ids := make([]string, 0, len(group))
	for _, rec := range group {
		if rec != nil {
			ids = append(ids, rec.ID)
		}
	}

	c.acquire(ids)
	defer c.release(ids)

	return c.engine.Merge(group, primaryID)
}

func (c *Coordinator) acquire(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.anyBusy(ids) {
		c.cond.Wait()
	}
	for _, id := range ids {
		c.busy[id] = struct{}{}
	}
}

func (c *Coordinator) release(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.busy, id)
	}
	c.cond.Broadcast()
}

func (c *Coordinator) anyBusy(ids []string) bool {
	for _, id := range ids {
		if _, ok := c.busy[id]; ok {
			return true
		}
	}
	return false
}
