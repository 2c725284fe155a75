// internal/arena/battle.go
package arena

import "github.com/google/uuid"

// koThreshold is the knockout count that concludes a battle.
const koThreshold = 3

// Game-over reasons.
const (
	ReasonKO     = "KO"
	ReasonDefeat = "defeat"
	ReasonLeft   = "left"
)

// Battle is an isolated two-party session. Participants are fixed for the
// battle's whole lifetime; on disconnect the battle is torn down, never
// shrunk. A rematch restarts the same battle id by resetting counters and
// ready maps in place.
type Battle struct {
	ID uuid.UUID

	// Players[0] is "player 1", used by clients for deterministic display.
	// Connections are resolved through the directory at send time, so a
	// participant who re-registers keeps receiving battle traffic.
	Players [2]string

	// StartReady is the pre-game readiness barrier. Flags stay true after
	// the barrier fires and are reset only by the next rematch cycle.
	StartReady map[string]bool

	// RematchRequested tracks who has asked for a rematch since the last
	// game over. RematchReady is the independent post-accept barrier.
	RematchRequested map[string]bool
	RematchReady     map[string]bool

	// KOCounts maps a participant to the number of knockouts reported
	// against them this round.
	KOCounts map[string]int

	Over bool
}

// NewBattle allocates a battle for the given pair with zeroed counters and
// barriers. The id is random so it stays unique under concurrent creation.
func NewBattle(p1, p2 string) *Battle {
	return &Battle{
		ID:      uuid.New(),
		Players: [2]string{p1, p2},
		StartReady: map[string]bool{
			p1: false, p2: false,
		},
		RematchRequested: map[string]bool{p1: false, p2: false},
		RematchReady:     map[string]bool{p1: false, p2: false},
		KOCounts:         map[string]int{p1: 0, p2: 0},
	}
}

// Contains reports whether nickname is a participant.
func (b *Battle) Contains(nickname string) bool {
	return b.Players[0] == nickname || b.Players[1] == nickname
}

// Opponent returns the other participant.
func (b *Battle) Opponent(nickname string) (string, bool) {
	switch nickname {
	case b.Players[0]:
		return b.Players[1], true
	case b.Players[1]:
		return b.Players[0], true
	}
	return "", false
}

// BothStartReady reports whether the start barrier is satisfied.
func (b *Battle) BothStartReady() bool {
	return b.StartReady[b.Players[0]] && b.StartReady[b.Players[1]]
}

// BothRematchRequested reports whether both sides asked for a rematch.
func (b *Battle) BothRematchRequested() bool {
	return b.RematchRequested[b.Players[0]] && b.RematchRequested[b.Players[1]]
}

// BothRematchReady reports whether the post-rematch barrier is satisfied.
func (b *Battle) BothRematchReady() bool {
	return b.RematchReady[b.Players[0]] && b.RematchReady[b.Players[1]]
}

// ResetForRematch restores the battle to its initial in-place state: zeroed
// knockout counters, disarmed barriers, round no longer over.
func (b *Battle) ResetForRematch() {
	for _, nick := range b.Players {
		b.StartReady[nick] = false
		b.RematchRequested[nick] = false
		b.RematchReady[nick] = false
		b.KOCounts[nick] = 0
	}
	b.Over = false
}

// ClearRematchRequests drops pending rematch requests after a decline,
// returning the battle to awaiting a fresh request.
func (b *Battle) ClearRematchRequests() {
	for _, nick := range b.Players {
		b.RematchRequested[nick] = false
	}
}

// CountsCopy returns a snapshot of the knockout counters safe to hand to the
// message layer.
func (b *Battle) CountsCopy() map[string]int {
	out := make(map[string]int, len(b.KOCounts))
	for k, v := range b.KOCounts {
		out[k] = v
	}
	return out
}

// BattleStore holds the live battles. Like the Directory it is guarded by
// the owning Core's mutex rather than a lock of its own.
type BattleStore struct {
	battles  map[uuid.UUID]*Battle
	byPlayer map[string]uuid.UUID
}

// NewBattleStore returns an empty battle table.
func NewBattleStore() *BattleStore {
	return &BattleStore{
		battles:  make(map[uuid.UUID]*Battle),
		byPlayer: make(map[string]uuid.UUID),
	}
}

// Add stores a battle and indexes both participants.
func (s *BattleStore) Add(b *Battle) {
	s.battles[b.ID] = b
	s.byPlayer[b.Players[0]] = b.ID
	s.byPlayer[b.Players[1]] = b.ID
}

// Remove deletes a battle and its participant index entries.
func (s *BattleStore) Remove(id uuid.UUID) {
	b, ok := s.battles[id]
	if !ok {
		return
	}
	delete(s.battles, id)
	for _, nick := range b.Players {
		if s.byPlayer[nick] == id {
			delete(s.byPlayer, nick)
		}
	}
}

// Get retrieves a battle by id.
func (s *BattleStore) Get(id uuid.UUID) (*Battle, bool) {
	b, ok := s.battles[id]
	return b, ok
}

// ByPlayer retrieves the battle a participant is in, if any.
func (s *BattleStore) ByPlayer(nickname string) (*Battle, bool) {
	id, ok := s.byPlayer[nickname]
	if !ok {
		return nil, false
	}
	return s.Get(id)
}

// Len returns the number of live battles.
func (s *BattleStore) Len() int {
	return len(s.battles)
}
