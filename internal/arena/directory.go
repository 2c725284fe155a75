// internal/arena/directory.go
package arena

import (
	"sort"

	"github.com/gridclash/arena/internal/models"
)

// Directory is the authoritative nickname-keyed player store. It carries no
// lock of its own: the owning Core serializes every access behind its mutex.
type Directory struct {
	players map[string]*models.Player
}

// NewDirectory returns an empty in-memory player directory.
func NewDirectory() *Directory {
	return &Directory{players: make(map[string]*models.Player)}
}

// Get retrieves a player entry if it exists.
func (d *Directory) Get(nickname string) (*models.Player, bool) {
	p, ok := d.players[nickname]
	return p, ok
}

// Put stores or replaces the entry for the player's nickname.
func (d *Directory) Put(p *models.Player) {
	d.players[p.Nickname] = p
}

// Remove deletes the entry for a nickname.
func (d *Directory) Remove(nickname string) {
	delete(d.players, nickname)
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	return len(d.players)
}

// All returns every entry ordered by nickname, so snapshot builds are
// deterministic.
func (d *Directory) All() []*models.Player {
	out := make([]*models.Player, 0, len(d.players))
	for _, p := range d.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nickname < out[j].Nickname })
	return out
}
