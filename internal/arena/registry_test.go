package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/protocol"
)

func TestRegisterBindsIdentity(t *testing.T) {
	c := newTestCore()
	conn := &fakeConn{}

	c.Register(conn, "alice")

	p, ok := c.directory.Get("alice")
	require.True(t, ok)
	assert.Equal(t, conn, p.Conn)
}

func TestRegisterEmptyNicknameIsNoop(t *testing.T) {
	c := newTestCore()
	conn := &fakeConn{}

	c.Register(conn, "")

	assert.Equal(t, 0, c.directory.Len())
	assert.Empty(t, conn.events)
}

func TestDuplicateRegistrationEvictsOldConnection(t *testing.T) {
	c := newTestCore()
	old := joinLobby(t, c, "alice")
	old.clear()

	fresh := &fakeConn{}
	c.Register(fresh, "alice")

	require.Equal(t, 1, old.count(protocol.EvForceLogout), "old session must be told to log out")
	assert.True(t, old.isClosed(), "old session must be forcibly closed")

	p, ok := c.directory.Get("alice")
	require.True(t, ok)
	assert.Equal(t, fresh, p.Conn, "new connection must be bound after eviction")
}

func TestRegistrationPreservesProfileFields(t *testing.T) {
	c := newTestCore()
	old := joinLobby(t, c, "alice")
	_ = old

	p, _ := c.directory.Get("alice")
	p.IsReady = true
	p.IsAway = true

	fresh := &fakeConn{}
	c.Register(fresh, "alice")

	p, ok := c.directory.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "KR", p.Country, "country survives re-registration")
	assert.Equal(t, 3, p.Level, "level survives re-registration")
	assert.True(t, p.IsReady, "gameplay flags survive re-registration")
	assert.False(t, p.IsAway, "away flag resets on registration")
}

func TestDisconnectOfEvictedConnectionKeepsNewBinding(t *testing.T) {
	c := newTestCore()
	old := &fakeConn{}
	c.Register(old, "alice")

	fresh := &fakeConn{}
	c.Register(fresh, "alice")

	// The evicted connection's transport-level disconnect arrives late.
	c.HandleDisconnect(old, "forced")

	p, ok := c.directory.Get("alice")
	require.True(t, ok, "entry must survive the stale disconnect")
	assert.Equal(t, fresh, p.Conn)
}

func TestDisconnectRemovesDirectoryEntry(t *testing.T) {
	c := newTestCore()
	conn := joinLobby(t, c, "alice")

	c.HandleDisconnect(conn, "gone")

	_, ok := c.directory.Get("alice")
	assert.False(t, ok, "entry is removed, not marked offline")
}

func TestEvictedAutoReadyPlayerStaysMatchable(t *testing.T) {
	c := newTestCore()
	old := joinLobby(t, c, "alice")
	c.ToggleAutoReady(old, true)
	require.True(t, c.queue.Contains("alice"))

	// Eviction empties the queue entry but keeps the flag.
	fresh := &fakeConn{}
	c.Register(fresh, "alice")
	require.False(t, c.queue.Contains("alice"))

	c.EnterLobby(fresh, protocol.EnterLobby{Nickname: "alice", Country: "KR", Level: 3})
	assert.True(t, c.queue.Contains("alice"), "re-entering the lobby re-enqueues an auto-ready player")

	bob := joinLobby(t, c, "bob")
	c.ToggleAutoReady(bob, true)

	require.Equal(t, 1, c.battles.Len())
	assert.Equal(t, 1, fresh.count(protocol.EvMatchFound))
	assert.Equal(t, 1, bob.count(protocol.EvMatchFound))
}

func TestAtMostOneLiveConnectionPerNickname(t *testing.T) {
	c := newTestCore()
	conns := []*fakeConn{{}, {}, {}}
	for _, conn := range conns {
		c.Register(conn, "alice")
	}

	p, ok := c.directory.Get("alice")
	require.True(t, ok)
	assert.Equal(t, conns[2], p.Conn)
	assert.True(t, conns[0].isClosed())
	assert.True(t, conns[1].isClosed())
	assert.False(t, conns[2].isClosed())
}
