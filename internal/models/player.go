package models

import "github.com/gridclash/arena/internal/transport"

// Profile is the public slice of a player shown to other clients.
type Profile struct {
	Nickname string `json:"nickname"`
	Country  string `json:"country"`
	Level    int    `json:"level"`
}

// Player is one directory entry. The invariant maintained by the registry is
// that at most one live connection is bound to a nickname at any instant;
// rebinding evicts the previous connection before Conn is replaced.
type Player struct {
	Nickname string         `json:"nickname"`
	Country  string         `json:"country"`
	Level    int            `json:"level"`
	Conn     transport.Conn `json:"-"`

	IsReady     bool `json:"isReady"`
	IsAutoReady bool `json:"isAutoReady"`
	InBattle    bool `json:"inBattle"`
	IsAway      bool `json:"isAway"`
}

// Profile returns the public view of the player.
func (p *Player) Profile() Profile {
	return Profile{Nickname: p.Nickname, Country: p.Country, Level: p.Level}
}
