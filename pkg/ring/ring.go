package ring

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultVirtualNodes is the ring fan-out used when none is configured.
const DefaultVirtualNodes = 150

// state is an immutable snapshot of the ring. Routing loads it without
// taking any lock; membership changes build a replacement and swap the
// pointer, so a reader never observes a half-built index.
type state struct {
	hashes []uint64          // sorted virtual-node positions
	owners map[uint64]string // position -> node
	nodes  map[string]struct{}
}

func (s *state) clone() *state {
	next := &state{
		hashes: append([]uint64(nil), s.hashes...),
		owners: make(map[uint64]string, len(s.owners)),
		nodes:  make(map[string]struct{}, len(s.nodes)),
	}
	for h, n := range s.owners {
		next.owners[h] = n
	}
	for n := range s.nodes {
		next.nodes[n] = struct{}{}
	}
	return next
}

// Ring is a consistent-hash router over a set of live node IDs. Each
// node contributes vnodes virtual entries so that load stays smooth
// even with a small pool.
type Ring struct {
	vnodes int

	mu    sync.Mutex // serializes membership changes
	state atomic.Pointer[state]
}

func New(vnodes int) *Ring {
	if vnodes <= 0 {
		vnodes = DefaultVirtualNodes
	}
	r := &Ring{vnodes: vnodes}
	r.state.Store(&state{
		owners: make(map[uint64]string),
		nodes:  make(map[string]struct{}),
	})
	return r
}

// AddNode inserts the node's virtual entries and republishes the
// sorted index. Adding an empty ID or an existing member is a no-op.
func (r *Ring) AddNode(node string) {
	if node == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.state.Load()
	if _, ok := cur.nodes[node]; ok {
		return
	}
	next := cur.clone()
	next.nodes[node] = struct{}{}
	for i := 0; i < r.vnodes; i++ {
		h := xxhash.Sum64String(fmt.Sprintf("%s:%d", node, i))
		next.owners[h] = node
		next.hashes = append(next.hashes, h)
	}
	sort.Slice(next.hashes, func(i, j int) bool { return next.hashes[i] < next.hashes[j] })
	r.state.Store(next)
}

// RemoveNode purges every entry belonging to the node. Removing an
// unknown node is a no-op. Once RemoveNode returns, Route can no
// longer yield the removed node.
func (r *Ring) RemoveNode(node string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.state.Load()
	if _, ok := cur.nodes[node]; !ok {
		return
	}
	next := &state{
		hashes: make([]uint64, 0, len(cur.hashes)),
		owners: make(map[uint64]string, len(cur.owners)),
		nodes:  make(map[string]struct{}, len(cur.nodes)),
	}
	for n := range cur.nodes {
		if n != node {
			next.nodes[n] = struct{}{}
		}
	}
	for h, n := range cur.owners {
		if n == node {
			continue
		}
		next.owners[h] = n
		next.hashes = append(next.hashes, h)
	}
	sort.Slice(next.hashes, func(i, j int) bool { return next.hashes[i] < next.hashes[j] })
	r.state.Store(next)
}

// Route maps a key to its owning node: the first entry at or after the
// key's hash, wrapping to the start of the ring. The boolean is false
// when the ring has no members; callers must treat that as a normal
// outcome, not a failure.
func (r *Ring) Route(key string) (string, bool) {
	s := r.state.Load()
	if len(s.hashes) == 0 {
		return "", false
	}
	h := xxhash.Sum64String(key)
	i := sort.Search(len(s.hashes), func(i int) bool { return s.hashes[i] >= h })
	if i == len(s.hashes) {
		i = 0
	}
	return s.owners[s.hashes[i]], true
}

// Nodes returns the live members in unspecified order.
func (r *Ring) Nodes() []string {
	s := r.state.Load()
	out := make([]string, 0, len(s.nodes))
	for n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// Len returns the number of live members.
func (r *Ring) Len() int {
	return len(r.state.Load().nodes)
}
