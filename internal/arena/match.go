// internal/arena/match.go
package arena

import (
	"github.com/google/uuid"

	"github.com/gridclash/arena/internal/models"
	"github.com/gridclash/arena/internal/protocol"
	"github.com/gridclash/arena/internal/transport"
)

// Negotiation is one live request/accept/confirm exchange. Negotiations are
// keyed by a request id generated at send time, so concurrent overlapping
// requests against the same target never get confused with each other.
type Negotiation struct {
	ID        uuid.UUID
	Requester string
	Target    string

	// Accepted flips when the target provisionally accepts; the battle is
	// created only at the requester's final confirmation.
	Accepted bool
}

// cancelledNegotiation is the tombstone of a cancelled negotiation. It is
// consumed by the first late respond/confirm that references it, or swept
// when either party's connection unwinds.
type cancelledNegotiation struct {
	Requester string
	Target    string
}

// SendRequest starts a manual negotiation against a target nickname. If the
// target is unknown, away, or already fighting, the requester gets an
// immediate unavailability notice and no state is created.
func (c *Core) SendRequest(conn transport.Conn, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Manual Request")
		return
	}
	if target == p.Nickname {
		conn.Send(protocol.EvUnavailable, protocol.Unavailable{Nickname: target, Reason: "cannot challenge yourself"})
		return
	}

	t, reason := c.availableTarget(target)
	if t == nil {
		c.log.Infof("[Manual Request] %s -> %s rejected: %s", p.Nickname, target, reason)
		conn.Send(protocol.EvUnavailable, protocol.Unavailable{Nickname: target, Reason: reason})
		return
	}

	neg := &Negotiation{ID: uuid.New(), Requester: p.Nickname, Target: target}
	c.pending[neg.ID] = neg

	c.log.Infof("[Manual Request] %s -> %s (request %s)", p.Nickname, target, neg.ID)
	t.Conn.Send(protocol.EvIncomingRequest, protocol.IncomingRequest{
		RequestID: neg.ID.String(),
		From:      p.Profile(),
	})
	conn.Send(protocol.EvRequestSent, protocol.RequestSent{
		RequestID:        neg.ID.String(),
		OpponentNickname: target,
	})
}

// RespondToRequest handles the target's answer. A decline ends the
// negotiation; an accept only notifies the requester, who still has to
// confirm before a battle exists.
func (c *Core) RespondToRequest(conn transport.Conn, requestID string, accepted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Manual Request")
		return
	}

	neg, ok := c.negotiationFor(requestID)
	if !ok {
		c.staleRequestNotice(conn, p.Nickname, requestID)
		return
	}
	if neg.Target != p.Nickname {
		conn.Send(protocol.EvUnavailable, protocol.Unavailable{Reason: "request no longer valid"})
		return
	}

	requester, exists := c.directory.Get(neg.Requester)
	if !exists || requester.Conn == nil {
		delete(c.pending, neg.ID)
		conn.Send(protocol.EvUnavailable, protocol.Unavailable{Nickname: neg.Requester, Reason: "requester is gone"})
		return
	}

	if !accepted {
		c.log.Infof("[Manual Request] %s declined request from %s", p.Nickname, neg.Requester)
		delete(c.pending, neg.ID)
		requester.Conn.Send(protocol.EvOpponentDeclined, protocol.RequestResult{
			RequestID: neg.ID.String(),
			Nickname:  p.Nickname,
		})
		return
	}

	c.log.Infof("[Manual Request] %s accepted request from %s, awaiting confirmation", p.Nickname, neg.Requester)
	neg.Accepted = true
	requester.Conn.Send(protocol.EvOpponentAccepted, protocol.RequestResult{
		RequestID: neg.ID.String(),
		Nickname:  p.Nickname,
	})
}

// FinalConfirm is the requester's last word on an accepted negotiation. On
// confirmation the battle is created, but only after re-checking that
// neither side slipped into another battle since the request went out.
func (c *Core) FinalConfirm(conn transport.Conn, requestID string, confirmed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Manual Request")
		return
	}

	neg, ok := c.negotiationFor(requestID)
	if !ok {
		c.staleRequestNotice(conn, p.Nickname, requestID)
		return
	}
	if neg.Requester != p.Nickname || !neg.Accepted {
		conn.Send(protocol.EvUnavailable, protocol.Unavailable{Reason: "request no longer valid"})
		return
	}
	delete(c.pending, neg.ID)

	target, exists := c.directory.Get(neg.Target)
	if !exists || target.Conn == nil {
		conn.Send(protocol.EvUnavailable, protocol.Unavailable{Nickname: neg.Target, Reason: "opponent is gone"})
		return
	}

	if !confirmed {
		c.log.Infof("[Manual Request] %s withdrew confirmed request %s", p.Nickname, neg.ID)
		target.Conn.Send(protocol.EvOpponentDeclined, protocol.RequestResult{
			RequestID: neg.ID.String(),
			Nickname:  p.Nickname,
		})
		return
	}

	// Final gate: the target may have entered another battle between accept
	// and confirm. That race must fail here, not overwrite the other battle.
	if p.InBattle || target.InBattle {
		c.log.Infof("[Manual Request] Confirmation of %s failed: a party is already in battle", neg.ID)
		conn.Send(protocol.EvUnavailable, protocol.Unavailable{Nickname: neg.Target, Reason: "opponent already in battle"})
		return
	}

	c.startBattle(p, target)
}

// availableTarget resolves a request target, returning nil and a reason when
// the target cannot receive requests right now.
func (c *Core) availableTarget(nickname string) (*models.Player, string) {
	t, ok := c.directory.Get(nickname)
	if !ok || t.Conn == nil {
		return nil, "player not found"
	}
	if t.InBattle {
		return nil, "player is in a battle"
	}
	if t.IsAway {
		return nil, "player is away"
	}
	return t, ""
}

// negotiationFor parses a request id and looks up its live negotiation.
func (c *Core) negotiationFor(requestID string) (*Negotiation, bool) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return nil, false
	}
	neg, ok := c.pending[id]
	return neg, ok
}

// cancelNegotiations ends every negotiation involving a nickname and tells
// the counterpart. Each cancellation leaves a tombstone so an in-flight
// respond/confirm from the other side still gets a named unavailability
// notice. Used when a player disconnects or enters a battle.
// Assumes the core lock is held.
func (c *Core) cancelNegotiations(nick string) {
	for id, neg := range c.pending {
		var other string
		switch nick {
		case neg.Requester:
			other = neg.Target
		case neg.Target:
			other = neg.Requester
		default:
			continue
		}
		delete(c.pending, id)
		c.cancelled[id] = cancelledNegotiation{Requester: neg.Requester, Target: neg.Target}
		if o, ok := c.directory.Get(other); ok && o.Conn != nil {
			o.Conn.Send(protocol.EvRequestCancelled, protocol.RequestResult{
				RequestID: id.String(),
				Nickname:  nick,
			})
		}
	}
}

// dropTombstones sweeps cancelled-negotiation records involving a nickname.
// Called when that player's connection unwinds, so unconsumed tombstones do
// not outlive the sessions they describe. Assumes the core lock is held.
func (c *Core) dropTombstones(nick string) {
	for id, tomb := range c.cancelled {
		if tomb.Requester == nick || tomb.Target == nick {
			delete(c.cancelled, id)
		}
	}
}

// staleRequestNotice answers a respond/confirm referencing a negotiation
// that no longer exists. A matching tombstone lets the notice name the
// counterpart; consuming it keeps the tombstone table from growing.
func (c *Core) staleRequestNotice(conn transport.Conn, nick, requestID string) {
	notice := protocol.Unavailable{Reason: "request no longer valid"}
	if id, err := uuid.Parse(requestID); err == nil {
		if tomb, ok := c.cancelled[id]; ok {
			switch nick {
			case tomb.Requester:
				notice.Nickname = tomb.Target
			case tomb.Target:
				notice.Nickname = tomb.Requester
			}
			delete(c.cancelled, id)
		}
	}
	conn.Send(protocol.EvUnavailable, notice)
}
