// internal/arena/lobby.go
package arena

import (
	"context"
	"time"

	"github.com/gridclash/arena/internal/models"
	"github.com/gridclash/arena/internal/protocol"
	"github.com/gridclash/arena/internal/transport"
)

// EnterLobby subscribes a registered connection to lobby broadcasts, applies
// the submitted profile, and pushes a fresh snapshot. Entering the lobby
// always clears the in-battle and away flags.
func (c *Core) EnterLobby(conn transport.Conn, payload protocol.EnterLobby) {
	// Profile enrichment happens before the lock: the stats collaborator is
	// the only external call in the core and must not stall other handlers.
	enriched, haveEnriched := c.lookupProfile(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Lobby Enter")
		return
	}
	if payload.Nickname != "" && payload.Nickname != p.Nickname {
		c.log.Warnf("[Lobby Denied] Nickname mismatch for %s (payload says %s)", p.Nickname, payload.Nickname)
		return
	}

	if payload.Country != "" {
		p.Country = payload.Country
	}
	p.Level = payload.Level
	if haveEnriched {
		if p.Level == 0 {
			p.Level = enriched.Level
		}
		if p.Country == "" {
			p.Country = enriched.Country
		}
	}
	p.InBattle = false
	p.IsAway = false

	c.groups.Join(lobbyGroup, conn)
	c.log.Infof("[Lobby Enter] %s entered lobby (country=%s level=%d)", p.Nickname, p.Country, p.Level)

	// A duplicate-login eviction keeps gameplay flags but empties the queue
	// entry, so an auto-ready player must be re-enqueued to stay matchable.
	if p.IsAutoReady && !c.queue.Contains(p.Nickname) {
		c.queue.Enqueue(p.Nickname)
		c.processQueue()
	}
	c.broadcastLobby()
}

// lookupProfile consults the read-only stats collaborator when the client
// did not supply a level of its own.
func (c *Core) lookupProfile(payload protocol.EnterLobby) (models.Profile, bool) {
	if payload.Level != 0 || payload.Nickname == "" {
		return models.Profile{}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	profile, hit, err := c.stats.Lookup(ctx, payload.Nickname)
	if err != nil {
		c.log.Warnf("[Lobby Enter] Stats lookup for %s failed: %v", payload.Nickname, err)
		return models.Profile{}, false
	}
	return profile, hit
}

// LeaveLobby unsubscribes the caller from lobby broadcasts and clears stale
// readiness, so a later re-entry starts from a clean slate. The directory
// entry itself stays.
func (c *Core) LeaveLobby(conn transport.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Lobby Leave")
		return
	}

	c.groups.Leave(lobbyGroup, conn)
	p.IsReady = false
	p.IsAutoReady = false
	c.queue.Remove(p.Nickname)

	c.log.Infof("[Lobby Leave] %s left lobby", p.Nickname)
	c.broadcastLobby()
}

// ToggleReady sets the caller's ready flag and re-broadcasts the lobby.
func (c *Core) ToggleReady(conn transport.Conn, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Lobby")
		return
	}
	p.IsReady = enabled
	c.log.Infof("[Lobby] %s ready status: %v", p.Nickname, enabled)
	c.broadcastLobby()
}

// ToggleAutoReady sets the caller's auto-match flag. Turning it on enqueues
// the caller and triggers queue processing; turning it off dequeues.
func (c *Core) ToggleAutoReady(conn transport.Conn, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Lobby")
		return
	}
	p.IsAutoReady = enabled
	c.log.Infof("[Lobby] %s auto-ready status: %v", p.Nickname, enabled)

	if enabled && !p.InBattle {
		c.queue.Enqueue(p.Nickname)
		c.processQueue()
	} else {
		c.queue.Remove(p.Nickname)
	}
	c.broadcastLobby()
}

// SetAwayStatus handles both scopes of the away flag. With a battle id the
// notice is relayed to the opponent only and the directory entry is left
// alone; without one it is a lobby status change.
func (c *Core) SetAwayStatus(conn transport.Conn, payload protocol.SetAwayStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Away")
		return
	}

	if payload.BattleID != "" {
		b, ok := c.battleFor(conn, p.Nickname, payload.BattleID, "Away")
		if !ok {
			return
		}
		if opp, ok := c.opponentOf(b, p.Nickname); ok {
			opp.Conn.Send(protocol.EvOpponentAwayStatus, protocol.AwayStatus{
				Nickname: p.Nickname,
				IsAway:   payload.IsAway,
			})
		}
		return
	}

	p.IsAway = payload.IsAway
	c.broadcastLobby()
}

// broadcastLobby pushes one consistent snapshot to every lobby member. The
// snapshot excludes entries without a live connection, entries outside the
// lobby group, and anyone currently in battle. Assumes the core lock is held.
func (c *Core) broadcastLobby() {
	players := []protocol.LobbyPlayer{}
	for _, p := range c.directory.All() {
		if p.Conn == nil || p.InBattle || !c.groups.Contains(lobbyGroup, p.Conn) {
			continue
		}
		players = append(players, protocol.LobbyPlayer{
			Nickname:    p.Nickname,
			Country:     p.Country,
			Level:       p.Level,
			IsReady:     p.IsReady,
			IsAutoReady: p.IsAutoReady,
			InBattle:    p.InBattle,
			IsAway:      p.IsAway,
		})
	}
	c.groups.Broadcast(lobbyGroup, protocol.EvLobbyUpdate, protocol.LobbySnapshot{Players: players})
	c.log.Debugf("[Lobby Update] Broadcasting info of %d player(s)", len(players))
}
