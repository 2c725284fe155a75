// internal/arena/core.go
package arena

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gridclash/arena/internal/models"
	"github.com/gridclash/arena/internal/protocol"
	"github.com/gridclash/arena/internal/stats"
	"github.com/gridclash/arena/internal/transport"
)

// lobbyGroup is the broadcast group holding every lobby member.
const lobbyGroup = "lobby"

// errNoIdentity is returned when a message arrives on a connection that has
// not completed registration.
var errNoIdentity = errors.New("no identity bound to connection")

// Core is the matchmaking and session-coordination state machine. All shared
// state (directory, battle table, auto-match queue, pending negotiations,
// connection identity index) is guarded by a single mutex, so every inbound
// message is processed to completion before the next one mutates anything.
type Core struct {
	mu sync.Mutex

	log   *logrus.Logger
	stats stats.Provider

	groups    *transport.Groups
	directory *Directory
	battles   *BattleStore
	queue     *autoQueue

	// pending holds live negotiations keyed by their request id. cancelled
	// remembers who a cancelled negotiation was between, so a late
	// respond/confirm can name the now-unavailable counterpart.
	pending   map[uuid.UUID]*Negotiation
	cancelled map[uuid.UUID]cancelledNegotiation

	// idents is the connection -> nickname reverse index every handler uses
	// to resolve "who is this message from".
	idents map[transport.Conn]string
}

// NewCore wires an empty core around the given logger and stats collaborator.
func NewCore(log *logrus.Logger, sp stats.Provider) *Core {
	if sp == nil {
		sp = stats.Noop{}
	}
	return &Core{
		log:       log,
		stats:     sp,
		groups:    transport.NewGroups(),
		directory: NewDirectory(),
		battles:   NewBattleStore(),
		queue:     newAutoQueue(),
		pending:   make(map[uuid.UUID]*Negotiation),
		cancelled: make(map[uuid.UUID]cancelledNegotiation),
		idents:    make(map[transport.Conn]string),
	}
}

// HandleConnect records a fresh transport connection. No state is bound
// until the peer registers.
func (c *Core) HandleConnect(conn transport.Conn) {
	c.log.Info("[Connection] New client connected")
}

// HandleMessage decodes one inbound frame and routes it. Decode and
// validation failures are reported to the sender and never escalate.
func (c *Core) HandleMessage(conn transport.Conn, raw []byte) {
	env, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		c.log.Warnf("[Dispatch] %v", err)
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "invalid message"})
		return
	}

	switch env.Type {
	case protocol.MsgRegister:
		var p protocol.Register
		if c.decode(conn, env, &p) {
			c.Register(conn, p.Nickname)
		}
	case protocol.MsgEnterLobby:
		var p protocol.EnterLobby
		if c.decode(conn, env, &p) {
			c.EnterLobby(conn, p)
		}
	case protocol.MsgLeaveLobby:
		c.LeaveLobby(conn)
	case protocol.MsgToggleReady:
		var p protocol.Toggle
		if c.decode(conn, env, &p) {
			c.ToggleReady(conn, p.Enabled)
		}
	case protocol.MsgToggleAutoReady:
		var p protocol.Toggle
		if c.decode(conn, env, &p) {
			c.ToggleAutoReady(conn, p.Enabled)
		}
	case protocol.MsgSetAwayStatus:
		var p protocol.SetAwayStatus
		if c.decode(conn, env, &p) {
			c.SetAwayStatus(conn, p)
		}
	case protocol.MsgSendRequest, protocol.MsgSendManualRequest:
		var p protocol.SendRequest
		if c.decode(conn, env, &p) {
			c.SendRequest(conn, p.OpponentNickname)
		}
	case protocol.MsgRespondToRequest:
		var p protocol.RespondToRequest
		if c.decode(conn, env, &p) {
			c.RespondToRequest(conn, p.RequestID, p.Accepted)
		}
	case protocol.MsgFinalConfirm:
		var p protocol.FinalConfirm
		if c.decode(conn, env, &p) {
			c.FinalConfirm(conn, p.RequestID, p.Confirmed)
		}
	case protocol.MsgJoinRoom:
		var p protocol.Room
		if c.decode(conn, env, &p) {
			c.JoinRoom(conn, p.BattleID)
		}
	case protocol.MsgLeaveRoom:
		var p protocol.Room
		if c.decode(conn, env, &p) {
			c.LeaveRoom(conn, p.BattleID)
		}
	case protocol.MsgPlayerReadyForStart:
		var p protocol.Room
		if c.decode(conn, env, &p) {
			c.PlayerReadyForStart(conn, p.BattleID)
		}
	case protocol.MsgPlayerReadyForRematch:
		var p protocol.Room
		if c.decode(conn, env, &p) {
			c.PlayerReadyForRematch(conn, p.BattleID)
		}
	case protocol.MsgSendGridData:
		var p protocol.GridData
		if c.decode(conn, env, &p) {
			c.SendGridData(conn, p)
		}
	case protocol.MsgSendAttack:
		var p protocol.Attack
		if c.decode(conn, env, &p) {
			c.SendAttack(conn, p)
		}
	case protocol.MsgReportKO:
		var p protocol.ReportKO
		if c.decode(conn, env, &p) {
			c.ReportKO(conn, p)
		}
	case protocol.MsgDeclareDefeat:
		var p protocol.DeclareDefeat
		if c.decode(conn, env, &p) {
			c.DeclareDefeat(conn, p)
		}
	case protocol.MsgRequestRematch:
		var p protocol.Room
		if c.decode(conn, env, &p) {
			c.RequestRematch(conn, p.BattleID)
		}
	case protocol.MsgAnswerRematch:
		var p protocol.AnswerRematch
		if c.decode(conn, env, &p) {
			c.AnswerRematch(conn, p)
		}
	default:
		c.log.Warnf("[Dispatch] Unknown message type %q", env.Type)
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "unknown message type: " + env.Type})
	}
}

// HandleDisconnect releases everything bound to a connection: identity,
// lobby membership, queue entry, pending negotiations, and any live battle.
func (c *Core) HandleDisconnect(conn transport.Conn, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nick, ok := c.idents[conn]
	delete(c.idents, conn)
	c.groups.Drop(conn)
	if !ok {
		c.log.Infof("[Disconnect] Unregistered client disconnected. Reason: %s", reason)
		return
	}

	p, exists := c.directory.Get(nick)
	if !exists || p.Conn != conn {
		// Stale connection already evicted by a duplicate login. The entry
		// belongs to the newer connection now.
		c.log.Infof("[Disconnect] Evicted session for %s closed. Reason: %s", nick, reason)
		return
	}

	c.log.Infof("[Disconnect] %s disconnected. Reason: %s", nick, reason)
	c.detach(conn, nick, true)
}

// detach unwinds every piece of state tied to a connection's identity. With
// removeEntry the directory entry goes away too (disconnect); without it the
// entry survives for the nickname's next connection (duplicate-login evict).
// Assumes the core lock is held.
func (c *Core) detach(conn transport.Conn, nick string, removeEntry bool) {
	c.dropTombstones(nick)
	c.cancelNegotiations(nick)
	c.queue.Remove(nick)

	if b, ok := c.battles.ByPlayer(nick); ok {
		c.teardownBattle(b, nick)
	}

	if removeEntry {
		c.directory.Remove(nick)
	} else if p, ok := c.directory.Get(nick); ok {
		p.Conn = nil
	}
	c.broadcastLobby()
}

// decode unmarshals and validates one payload variant, reporting failures to
// the sender.
func (c *Core) decode(conn transport.Conn, env protocol.Envelope, v interface{}) bool {
	if err := env.Decode(v); err != nil {
		c.log.Warnf("[Dispatch] %v", err)
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: err.Error()})
		return false
	}
	return true
}

// identity resolves the caller's directory entry. Every handler does this
// lookup first instead of proceeding with an unbound connection.
func (c *Core) identity(conn transport.Conn) (*models.Player, error) {
	nick, ok := c.idents[conn]
	if !ok {
		return nil, errNoIdentity
	}
	p, ok := c.directory.Get(nick)
	if !ok {
		return nil, errNoIdentity
	}
	return p, nil
}

// rejectUnidentified logs and reports a message that arrived before
// registration.
func (c *Core) rejectUnidentified(conn transport.Conn, action string) {
	c.log.Warnf("[%s] Ignoring message from unregistered connection", action)
	conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "register first"})
}
