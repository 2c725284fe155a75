package arena

import (
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gridclash/arena/internal/protocol"
)

// event is one captured outbound message.
type event struct {
	name string
	data interface{}
}

// fakeConn collects outbound messages instead of sending them over WS.
type fakeConn struct {
	mu          sync.Mutex
	events      []event
	closed      bool
	closeReason string
}

func (f *fakeConn) Send(name string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{name: name, data: data})
}

func (f *fakeConn) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeReason = reason
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) named(name string) []event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event
	for _, ev := range f.events {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) last(name string) (event, bool) {
	evs := f.named(name)
	if len(evs) == 0 {
		return event{}, false
	}
	return evs[len(evs)-1], true
}

func (f *fakeConn) count(name string) int {
	return len(f.named(name))
}

func (f *fakeConn) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// newTestCore builds a core with discarded log output and no stats backend.
func newTestCore() *Core {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewCore(logger, nil)
}

// joinLobby registers a nickname and puts it in the lobby.
func joinLobby(t *testing.T, c *Core, nick string) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	c.Register(conn, nick)
	c.EnterLobby(conn, protocol.EnterLobby{Nickname: nick, Country: "KR", Level: 3})
	return conn
}

// negotiateBattle runs the full request/accept/confirm flow between two
// lobby members and returns the created battle id.
func negotiateBattle(t *testing.T, c *Core, a, b *fakeConn, aNick, bNick string) string {
	t.Helper()
	c.SendRequest(a, bNick)
	sent, ok := a.last(protocol.EvRequestSent)
	require.True(t, ok, "requester should get a requestSent ack")
	reqID := sent.data.(protocol.RequestSent).RequestID

	c.RespondToRequest(b, reqID, true)
	c.FinalConfirm(a, reqID, true)

	found, ok := a.last(protocol.EvMatchFound)
	require.True(t, ok, "requester should get matchFound")
	return found.data.(protocol.MatchFound).BattleID
}

// lastSnapshot returns the newest lobby_update payload a connection saw.
func lastSnapshot(t *testing.T, conn *fakeConn) protocol.LobbySnapshot {
	t.Helper()
	ev, ok := conn.last(protocol.EvLobbyUpdate)
	require.True(t, ok, "expected at least one lobby_update")
	return ev.data.(protocol.LobbySnapshot)
}

// snapshotNames flattens a snapshot to its nicknames.
func snapshotNames(s protocol.LobbySnapshot) []string {
	names := make([]string, 0, len(s.Players))
	for _, p := range s.Players {
		names = append(names, p.Nickname)
	}
	return names
}
