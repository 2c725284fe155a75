// internal/arena/queue.go
package arena

import "github.com/gridclash/arena/internal/models"

// autoQueue is a FIFO set of nicknames opted into automatic matching.
// Guarded by the owning Core's mutex.
type autoQueue struct {
	order   []string
	members map[string]struct{}
}

func newAutoQueue() *autoQueue {
	return &autoQueue{members: make(map[string]struct{})}
}

// Enqueue appends a nickname unless it is already queued.
func (q *autoQueue) Enqueue(nickname string) {
	if _, ok := q.members[nickname]; ok {
		return
	}
	q.members[nickname] = struct{}{}
	q.order = append(q.order, nickname)
}

// Remove drops a nickname from the queue wherever it sits.
func (q *autoQueue) Remove(nickname string) {
	if _, ok := q.members[nickname]; !ok {
		return
	}
	delete(q.members, nickname)
	for i, n := range q.order {
		if n == nickname {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// popFront removes and returns the earliest-inserted nickname.
func (q *autoQueue) popFront() string {
	nick := q.order[0]
	q.order = q.order[1:]
	delete(q.members, nick)
	return nick
}

// pushFront reinserts a nickname at the head, preserving its priority after
// its tentative pair turned out to be stale.
func (q *autoQueue) pushFront(nickname string) {
	q.members[nickname] = struct{}{}
	q.order = append([]string{nickname}, q.order...)
}

// Contains reports queue membership.
func (q *autoQueue) Contains(nickname string) bool {
	_, ok := q.members[nickname]
	return ok
}

// Len returns the queue size.
func (q *autoQueue) Len() int {
	return len(q.order)
}

// processQueue drains the auto-match queue pairwise. Every candidate is
// re-validated before pairing so a stale entry left by a racing disconnect is
// dropped instead of matched. Assumes the core lock is held.
func (c *Core) processQueue() {
	for c.queue.Len() >= 2 {
		first := c.queue.popFront()
		p1, ok := c.autoMatchable(first)
		if !ok {
			continue
		}

		second := c.queue.popFront()
		p2, ok := c.autoMatchable(second)
		if !ok {
			// Keep the survivor at the head of the line.
			c.queue.pushFront(first)
			continue
		}

		c.log.Infof("[AutoMatch] Pairing %s vs %s", first, second)
		p1.IsAutoReady = false
		p2.IsAutoReady = false
		c.startBattle(p1, p2)
	}
}

// autoMatchable re-checks that a queued nickname still refers to a live,
// auto-ready player who is not in a battle.
func (c *Core) autoMatchable(nickname string) (*models.Player, bool) {
	entry, exists := c.directory.Get(nickname)
	if !exists || entry.Conn == nil || entry.InBattle || !entry.IsAutoReady {
		c.log.Debugf("[AutoMatch] Dropping stale queue entry %q", nickname)
		return nil, false
	}
	return entry, true
}
