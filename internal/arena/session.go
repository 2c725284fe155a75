// internal/arena/session.go
package arena

import (
	"github.com/google/uuid"

	"github.com/gridclash/arena/internal/models"
	"github.com/gridclash/arena/internal/protocol"
	"github.com/gridclash/arena/internal/transport"
)

// startBattle atomically creates a battle for two confirmed-available
// players: flips both in-battle, clears lingering ready/away flags, pulls
// both out of the lobby group and the auto queue, cancels their other
// negotiations, and announces the match. Assumes the core lock is held.
func (c *Core) startBattle(p1, p2 *models.Player) {
	if p1.InBattle || p2.InBattle {
		c.log.Warnf("[Battle Start Failed] %s or %s is already in a battle", p1.Nickname, p2.Nickname)
		return
	}

	b := NewBattle(p1.Nickname, p2.Nickname)
	c.battles.Add(b)

	for _, p := range []*models.Player{p1, p2} {
		p.InBattle = true
		p.IsReady = false
		p.IsAutoReady = false
		p.IsAway = false
		c.queue.Remove(p.Nickname)
		c.cancelNegotiations(p.Nickname)
		c.groups.Leave(lobbyGroup, p.Conn)
		c.groups.Join(b.ID.String(), p.Conn)
	}

	c.log.Infof("[Battle Start] %s vs %s. Battle ID: %s", p1.Nickname, p2.Nickname, b.ID)

	p1.Conn.Send(protocol.EvMatchFound, protocol.MatchFound{
		BattleID:  b.ID.String(),
		Opponent:  p2.Profile(),
		IsPlayer1: true,
	})
	p2.Conn.Send(protocol.EvMatchFound, protocol.MatchFound{
		BattleID:  b.ID.String(),
		Opponent:  p1.Profile(),
		IsPlayer1: false,
	})

	c.broadcastLobby()
}

// JoinRoom re-subscribes a participant's connection to its battle's
// broadcast group. Battle creation already joins both sides, so this is an
// idempotent client-driven confirmation.
func (c *Core) JoinRoom(conn transport.Conn, battleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Game Join")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, battleID, "Game Join")
	if !ok {
		return
	}
	c.groups.Join(b.ID.String(), conn)
	c.log.Infof("[Game Join] %s joined room %s", p.Nickname, battleID)
}

// LeaveRoom is a voluntary exit from a live battle. The battle is torn down
// for both sides, exactly like a disconnect, but the leaver stays registered.
func (c *Core) LeaveRoom(conn transport.Conn, battleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Game Leave")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, battleID, "Game Leave")
	if !ok {
		return
	}
	c.log.Infof("[Game Leave] %s left room %s", p.Nickname, battleID)
	c.teardownBattle(b, p.Nickname)
	c.broadcastLobby()
}

// PlayerReadyForStart arms the caller's side of the start barrier. When both
// sides are armed the battle room gets one gameStart broadcast; the flags
// stay set until the next rematch cycle resets them.
func (c *Core) PlayerReadyForStart(conn transport.Conn, battleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Battle")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, battleID, "Battle")
	if !ok {
		return
	}
	if b.StartReady[p.Nickname] {
		return
	}
	b.StartReady[p.Nickname] = true
	if b.BothStartReady() {
		c.log.Infof("[Battle] Both players ready, starting game in room %s", battleID)
		c.groups.Broadcast(b.ID.String(), protocol.EvGameStart, protocol.Room{BattleID: b.ID.String()})
	}
}

// SendGridData relays an opaque board snapshot to the opponent only.
func (c *Core) SendGridData(conn transport.Conn, payload protocol.GridData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Battle")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, payload.BattleID, "Battle")
	if !ok {
		return
	}
	if opp, ok := c.opponentOf(b, p.Nickname); ok {
		opp.Conn.Send(protocol.EvOpponentGridUpdate, payload.GridData)
	}
}

// SendAttack relays an opaque attack event to the opponent only.
func (c *Core) SendAttack(conn transport.Conn, payload protocol.Attack) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Battle")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, payload.BattleID, "Battle")
	if !ok {
		return
	}
	if opp, ok := c.opponentOf(b, p.Nickname); ok {
		opp.Conn.Send(protocol.EvIncomingAttack, payload.AttackData)
	}
}

// ReportKO records a knockout against the named opponent and broadcasts the
// new counter set. The third knockout against the same opponent concludes
// the battle with the reporter as winner.
func (c *Core) ReportKO(conn transport.Conn, payload protocol.ReportKO) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Battle")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, payload.BattleID, "Battle")
	if !ok {
		return
	}
	if b.Over {
		return
	}

	opp, hasOpp := b.Opponent(p.Nickname)
	if !hasOpp || opp != payload.OpponentNickname {
		c.log.Warnf("[Battle] %s reported KO for %q who is not their opponent in %s", p.Nickname, payload.OpponentNickname, payload.BattleID)
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "opponent is not in this battle"})
		return
	}

	b.KOCounts[opp]++
	c.groups.Broadcast(b.ID.String(), protocol.EvUpdateOutCount, protocol.OutCount{
		BattleID: b.ID.String(),
		Counts:   b.CountsCopy(),
	})

	if b.KOCounts[opp] >= koThreshold {
		c.endBattle(b, p.Nickname, opp, ReasonKO)
	}
}

// DeclareDefeat is a self-reported loss; the opponent wins. Left marks a
// voluntary forfeit instead of an explicit loss declaration.
func (c *Core) DeclareDefeat(conn transport.Conn, payload protocol.DeclareDefeat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Battle")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, payload.BattleID, "Battle")
	if !ok {
		return
	}
	if b.Over {
		return
	}

	winner, hasOpp := b.Opponent(p.Nickname)
	if !hasOpp {
		return
	}
	reason := ReasonDefeat
	if payload.Left {
		reason = ReasonLeft
	}
	c.endBattle(b, winner, p.Nickname, reason)
}

// RequestRematch asks the opponent for another round. If the opponent has
// already asked too, the rematch starts without waiting for an answer.
func (c *Core) RequestRematch(conn transport.Conn, battleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Rematch")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, battleID, "Rematch")
	if !ok {
		return
	}
	if !b.Over {
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "battle is still running"})
		return
	}

	b.RematchRequested[p.Nickname] = true
	if opp, ok := c.opponentOf(b, p.Nickname); ok {
		opp.Conn.Send(protocol.EvRematchRequested, protocol.RequestResult{Nickname: p.Nickname})
	}

	if b.BothRematchRequested() {
		c.log.Infof("[Rematch] Both players agreed. Restarting room %s", battleID)
		c.beginRematch(b)
	}
}

// AnswerRematch resolves an outstanding rematch request. Accepting resets
// the battle in place and broadcasts startRematch; declining clears pending
// requests and leaves the battle awaiting a fresh one.
func (c *Core) AnswerRematch(conn transport.Conn, payload protocol.AnswerRematch) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Rematch")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, payload.BattleID, "Rematch")
	if !ok {
		return
	}
	if !b.Over {
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "battle is still running"})
		return
	}

	opp, hasOpp := c.opponentOf(b, p.Nickname)
	if !payload.Accepted {
		c.log.Infof("[Rematch] %s declined rematch in room %s", p.Nickname, payload.BattleID)
		b.ClearRematchRequests()
		if hasOpp {
			opp.Conn.Send(protocol.EvRematchDeclined, protocol.RequestResult{Nickname: p.Nickname})
		}
		return
	}

	oppNick, _ := b.Opponent(p.Nickname)
	if !b.RematchRequested[oppNick] {
		// Answer without a standing request; treat it as the answerer's own
		// request so the flow converges.
		b.RematchRequested[p.Nickname] = true
		if hasOpp {
			opp.Conn.Send(protocol.EvRematchAccepted, protocol.RequestResult{Nickname: p.Nickname})
		}
		return
	}

	c.log.Infof("[Rematch] %s accepted rematch in room %s", p.Nickname, payload.BattleID)
	c.groups.Broadcast(b.ID.String(), protocol.EvRematchAccepted, protocol.RequestResult{Nickname: p.Nickname})
	c.beginRematch(b)
}

// PlayerReadyForRematch arms the post-rematch readiness barrier; once both
// sides are armed gameplay resumes with a fresh gameStart.
func (c *Core) PlayerReadyForRematch(conn transport.Conn, battleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.identity(conn)
	if err != nil {
		c.rejectUnidentified(conn, "Rematch")
		return
	}
	b, ok := c.battleFor(conn, p.Nickname, battleID, "Rematch")
	if !ok {
		return
	}
	if b.RematchReady[p.Nickname] {
		return
	}
	b.RematchReady[p.Nickname] = true
	if b.BothRematchReady() {
		c.log.Infof("[Rematch] Both players ready, resuming game in room %s", battleID)
		c.groups.Broadcast(b.ID.String(), protocol.EvGameStart, protocol.Room{BattleID: b.ID.String()})
	}
}

// beginRematch resets counters and barriers in place and broadcasts
// startRematch. The battle keeps its id. Assumes the core lock is held.
func (c *Core) beginRematch(b *Battle) {
	b.ResetForRematch()
	c.groups.Broadcast(b.ID.String(), protocol.EvStartRematch, protocol.Room{BattleID: b.ID.String()})
}

// endBattle concludes the current round with one gameOver broadcast. The
// battle entity stays alive so the pair can negotiate a rematch.
// Assumes the core lock is held.
func (c *Core) endBattle(b *Battle, winner, loser, reason string) {
	b.Over = true
	c.log.Infof("[Battle] Room %s over: %s beats %s (%s)", b.ID, winner, loser, reason)
	c.groups.Broadcast(b.ID.String(), protocol.EvGameOver, protocol.GameOver{
		BattleID: b.ID.String(),
		Winner:   winner,
		Loser:    loser,
		Reason:   reason,
	})
}

// teardownBattle destroys a battle after one participant left or
// disconnected: the remaining participant gets exactly one opponentLeft
// notice, both sides drop their in-battle flag, and the record is removed.
// Assumes the core lock is held.
func (c *Core) teardownBattle(b *Battle, leaver string) {
	opp, hasOpp := b.Opponent(leaver)

	c.battles.Remove(b.ID)
	for _, nick := range b.Players {
		if p, ok := c.directory.Get(nick); ok {
			p.InBattle = false
			if p.Conn != nil {
				c.groups.Leave(b.ID.String(), p.Conn)
			}
		}
	}

	if hasOpp {
		if o, ok := c.directory.Get(opp); ok && o.Conn != nil {
			o.Conn.Send(protocol.EvOpponentLeft, protocol.RequestResult{Nickname: leaver})
		}
	}
	c.log.Infof("[Game Room] Room %s closed (%s left)", b.ID, leaver)
}

// battleFor parses and resolves a battle id and checks the caller is one of
// its participants, reporting failures to the caller.
func (c *Core) battleFor(conn transport.Conn, nick, battleID, action string) (*Battle, bool) {
	id, err := uuid.Parse(battleID)
	if err != nil {
		c.log.Warnf("[%s] Invalid battle id %q from %s", action, battleID, nick)
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "invalid battleId"})
		return nil, false
	}
	b, ok := c.battles.Get(id)
	if !ok || !b.Contains(nick) {
		c.log.Warnf("[%s] %s referenced unknown battle %s", action, nick, battleID)
		conn.Send(protocol.EvError, protocol.ErrorNotice{Message: "no such battle"})
		return nil, false
	}
	return b, true
}

// opponentOf resolves the live directory entry of a participant's opponent.
func (c *Core) opponentOf(b *Battle, nick string) (*models.Player, bool) {
	opp, ok := b.Opponent(nick)
	if !ok {
		return nil, false
	}
	p, ok := c.directory.Get(opp)
	if !ok || p.Conn == nil {
		return nil, false
	}
	return p, true
}
