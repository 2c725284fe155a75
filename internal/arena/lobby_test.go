package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/protocol"
)

func TestEnterLobbyBroadcastsSnapshot(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")

	snap := lastSnapshot(t, alice)
	assert.Equal(t, []string{"alice", "bob"}, snapshotNames(snap))

	// The same broadcast reaches every subscriber with identical content.
	assert.Equal(t, snap, lastSnapshot(t, bob))
}

func TestEnterLobbyRequiresRegistration(t *testing.T) {
	c := newTestCore()
	conn := &fakeConn{}

	c.EnterLobby(conn, protocol.EnterLobby{Nickname: "ghost"})

	assert.Equal(t, 1, conn.count(protocol.EvError))
	assert.Equal(t, 0, conn.count(protocol.EvLobbyUpdate))
}

func TestEnterLobbyRejectsNicknameMismatch(t *testing.T) {
	c := newTestCore()
	conn := &fakeConn{}
	c.Register(conn, "alice")

	c.EnterLobby(conn, protocol.EnterLobby{Nickname: "mallory"})

	assert.Equal(t, 0, conn.count(protocol.EvLobbyUpdate))
}

func TestLeaveLobbyClearsReadiness(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	c.ToggleReady(alice, true)
	c.ToggleAutoReady(alice, true)

	c.LeaveLobby(alice)

	p, ok := c.directory.Get("alice")
	require.True(t, ok, "leaving the lobby keeps the directory entry")
	assert.False(t, p.IsReady)
	assert.False(t, p.IsAutoReady)
	assert.False(t, c.queue.Contains("alice"))
}

func TestSnapshotExcludesDisconnected(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")

	c.HandleDisconnect(bob, "gone")

	assert.Equal(t, []string{"alice"}, snapshotNames(lastSnapshot(t, alice)))
}

func TestSnapshotExcludesPlayersInBattle(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")
	carol := joinLobby(t, c, "carol")

	negotiateBattle(t, c, alice, bob, "alice", "bob")

	snap := lastSnapshot(t, carol)
	assert.Equal(t, []string{"carol"}, snapshotNames(snap))
}

func TestToggleReadyBroadcasts(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")
	bob.clear()

	c.ToggleReady(alice, true)

	snap := lastSnapshot(t, bob)
	require.Len(t, snap.Players, 2)
	assert.True(t, snap.Players[0].IsReady, "alice sorts first and is ready")
	assert.False(t, snap.Players[1].IsReady)
}

func TestLobbyAwayStatus(t *testing.T) {
	c := newTestCore()
	alice := joinLobby(t, c, "alice")
	bob := joinLobby(t, c, "bob")
	bob.clear()

	c.SetAwayStatus(alice, protocol.SetAwayStatus{IsAway: true})

	snap := lastSnapshot(t, bob)
	require.Len(t, snap.Players, 2)
	assert.True(t, snap.Players[0].IsAway)
}
