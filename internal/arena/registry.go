// internal/arena/registry.go
package arena

import (
	"github.com/gridclash/arena/internal/models"
	"github.com/gridclash/arena/internal/protocol"
	"github.com/gridclash/arena/internal/transport"
)

// Register binds a connection to a nickname. If the nickname already has a
// different live connection, the old one is told to log out and forcibly
// closed before the new binding takes effect. Profile fields and gameplay
// flags survive re-registration; only the binding and the away flag reset.
// An empty nickname is a silent no-op.
func (c *Core) Register(conn transport.Conn, nickname string) {
	if nickname == "" {
		c.log.Debug("[Register] Ignoring registration with empty nickname")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, exists := c.directory.Get(nickname)
	if exists && p.Conn != nil && p.Conn != conn {
		old := p.Conn
		c.log.Infof("[Login] Duplicate login for %s. Disconnecting old session.", nickname)
		old.Send(protocol.EvForceLogout, nil)
		delete(c.idents, old)
		c.groups.Drop(old)
		c.detach(old, nickname, false)
		old.Close("duplicate login")
	}

	if !exists {
		p = &models.Player{Nickname: nickname}
		c.directory.Put(p)
	}
	p.Conn = conn
	p.IsAway = false
	c.idents[conn] = nickname

	c.log.Infof("[Register] Connection registered as %s", nickname)
}
