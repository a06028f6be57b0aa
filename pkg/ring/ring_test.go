package ring

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeEntryCount(t *testing.T) {
	r := New(50)
	r.AddNode("node-a")
	r.AddNode("node-b")
	r.AddNode("node-c")

	s := r.state.Load()
	require.Len(t, s.hashes, 3*50)
	require.Len(t, s.owners, 3*50)
	assert.Equal(t, 3, r.Len())
}

func TestAddNodeIdempotent(t *testing.T) {
	once := New(50)
	once.AddNode("node-a")

	twice := New(50)
	twice.AddNode("node-a")
	twice.AddNode("node-a")

	require.Equal(t, once.state.Load().hashes, twice.state.Load().hashes)
	require.Equal(t, once.state.Load().owners, twice.state.Load().owners)
	assert.Equal(t, 1, twice.Len())
}

func TestAddNodeEmptyID(t *testing.T) {
	r := New(50)
	r.AddNode("")
	assert.Equal(t, 0, r.Len())
}

func TestRemoveNodePurgesEntries(t *testing.T) {
	r := New(50)
	r.AddNode("node-a")
	r.AddNode("node-b")
	r.RemoveNode("node-a")

	s := r.state.Load()
	require.Len(t, s.hashes, 50)
	for _, owner := range s.owners {
		require.Equal(t, "node-b", owner)
	}

	for i := 0; i < 1000; i++ {
		node, ok := r.Route(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		require.Equal(t, "node-b", node)
	}
}

func TestRemoveNodeUnknownIsNoop(t *testing.T) {
	r := New(50)
	r.AddNode("node-a")
	r.RemoveNode("node-x")
	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.state.Load().hashes, 50)
}

func TestRouteDeterministic(t *testing.T) {
	r := New(100)
	for i := 0; i < 5; i++ {
		r.AddNode(fmt.Sprintf("node-%d", i))
	}
	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key-%d", i)
		first, ok := r.Route(key)
		require.True(t, ok)
		second, ok := r.Route(key)
		require.True(t, ok)
		assert.Equal(t, first, second)
	}
}

func TestRouteEmptyRing(t *testing.T) {
	r := New(100)
	node, ok := r.Route("anything")
	assert.False(t, ok)
	assert.Empty(t, node)

	r.AddNode("node-a")
	r.RemoveNode("node-a")
	_, ok = r.Route("anything")
	assert.False(t, ok)
}

// Adding one node to an N-node ring should move roughly 1/(N+1) of the
// key space, and every moved key must land on the new node.
func TestAddNodeMinimalDisruption(t *testing.T) {
	const keys = 5000

	r := New(100)
	for i := 0; i < 4; i++ {
		r.AddNode(fmt.Sprintf("node-%d", i))
	}

	before := make(map[string]string, keys)
	for i := 0; i < keys; i++ {
		key := fmt.Sprintf("key-%d", i)
		node, ok := r.Route(key)
		require.True(t, ok)
		before[key] = node
	}

	r.AddNode("node-4")

	moved := 0
	for key, prev := range before {
		node, ok := r.Route(key)
		require.True(t, ok)
		if node != prev {
			moved++
			require.Equal(t, "node-4", node, "reassigned key must belong to the new node")
		}
	}

	// Expectation is keys/5; allow generous slack for hash variance.
	assert.Less(t, moved, keys*35/100, "too many keys moved: %d of %d", moved, keys)
	assert.Greater(t, moved, 0, "a new node should take over some keys")
}

func TestConcurrentRouteAndMembership(t *testing.T) {
	r := New(50)
	r.AddNode("node-stable")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.AddNode(fmt.Sprintf("node-%d", i))
			r.RemoveNode(fmt.Sprintf("node-%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			node, ok := r.Route(fmt.Sprintf("key-%d", i))
			assert.True(t, ok)
			assert.NotEmpty(t, node)
		}
	}()
	wg.Wait()
}
