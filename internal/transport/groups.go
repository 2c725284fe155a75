// internal/transport/groups.go
package transport

import "sync"

// Groups is a broadcast-group registry, the in-process equivalent of
// socket.io rooms. A connection may belong to any number of groups; dropping
// a connection removes it from all of them.
type Groups struct {
	mu     sync.Mutex
	groups map[string]map[Conn]struct{}
}

// NewGroups returns an empty group registry.
func NewGroups() *Groups {
	return &Groups{groups: make(map[string]map[Conn]struct{})}
}

// Join subscribes conn to the named group. Joining twice is a no-op.
func (g *Groups) Join(group string, conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	members, ok := g.groups[group]
	if !ok {
		members = make(map[Conn]struct{})
		g.groups[group] = members
	}
	members[conn] = struct{}{}
}

// Leave unsubscribes conn from the named group.
func (g *Groups) Leave(group string, conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if members, ok := g.groups[group]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(g.groups, group)
		}
	}
}

// Contains reports whether conn is currently a member of the named group.
func (g *Groups) Contains(group string, conn Conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.groups[group][conn]
	return ok
}

// Broadcast sends the same message to every member of the named group.
func (g *Groups) Broadcast(group, name string, data interface{}) {
	g.mu.Lock()
	conns := make([]Conn, 0, len(g.groups[group]))
	for conn := range g.groups[group] {
		conns = append(conns, conn)
	}
	g.mu.Unlock()

	for _, conn := range conns {
		conn.Send(name, data)
	}
}

// Drop removes conn from every group it belongs to.
func (g *Groups) Drop(conn Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for group, members := range g.groups {
		delete(members, conn)
		if len(members) == 0 {
			delete(g.groups, group)
		}
	}
}
