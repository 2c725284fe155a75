package arena

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/protocol"
)

func TestAutoReadyEnqueuesAndPairs(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")

	c.ToggleAutoReady(alice, true)
	assert.Equal(t, 0, c.battles.Len(), "one queued player is not a pair")

	c.ToggleAutoReady(bob, true)

	require.Equal(t, 1, c.battles.Len())
	assert.Equal(t, 1, alice.count(protocol.EvMatchFound))
	assert.Equal(t, 1, bob.count(protocol.EvMatchFound))
	assert.Equal(t, 0, c.queue.Len())

	p, _ := c.directory.Get("alice")
	assert.False(t, p.IsAutoReady, "pairing consumes the auto-ready flag")
}

func TestToggleAutoReadyOffDequeues(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")

	c.ToggleAutoReady(alice, true)
	require.True(t, c.queue.Contains("alice"))

	c.ToggleAutoReady(alice, false)
	assert.False(t, c.queue.Contains("alice"))
}

// An even queue of mutually available players drains to N/2 battles with no
// participant matched twice.
func TestQueueDrainsPairwise(t *testing.T) {
	c := newTestCore()
	const n = 6
	conns := make([]*fakeConn, n)
	for i := range conns {
		conns[i] = joinLobby(t, c, fmt.Sprintf("p%d", i))
	}

	// Enqueue everyone; each toggle triggers queue processing.
	for i := range conns {
		c.ToggleAutoReady(conns[i], true)
	}

	assert.Equal(t, n/2, c.battles.Len())
	assert.Equal(t, 0, c.queue.Len())
	for i, conn := range conns {
		assert.Equal(t, 1, conn.count(protocol.EvMatchFound), "p%d must be matched exactly once", i)
	}
}

func TestQueueDropsStaleEntry(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")
	carol := joinLobby(t, c, "carol")

	c.ToggleAutoReady(alice, true)

	// Simulate a disconnect racing queue processing: the entry is gone from
	// the directory but still sits in the queue.
	c.mu.Lock()
	c.queue.Enqueue("ghost")
	c.mu.Unlock()

	c.ToggleAutoReady(bob, true)

	require.Equal(t, 1, c.battles.Len(), "the stale entry is dropped, the live pair matches")
	assert.Equal(t, 1, alice.count(protocol.EvMatchFound))
	assert.Equal(t, 1, bob.count(protocol.EvMatchFound))
	assert.False(t, c.queue.Contains("ghost"))

	_ = carol
}

func TestQueueSkipsPlayersAlreadyInBattle(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")
	carol := joinLobby(t, c, "carol")

	negotiateBattle(t, c, alice, bob, "alice", "bob")

	// Bob somehow re-enters the queue while fighting.
	c.mu.Lock()
	c.queue.Enqueue("bob")
	c.mu.Unlock()

	c.ToggleAutoReady(carol, true)

	assert.Equal(t, 1, c.battles.Len(), "no second battle for bob")
	assert.Equal(t, 0, carol.count(protocol.EvMatchFound))
	assert.True(t, c.queue.Contains("carol"), "carol keeps waiting at the head of the line")
}
