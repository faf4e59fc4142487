package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"sync"
)

type Set map[domain.ConnectionID]struct{}

// Registry maps live connections to their sink and their current room
// binding. Sinks are attached for the lifetime of the transport channel;
// bindings exist only between join and leave/disconnect. Rooms are not
// materialized: a room is whatever roomMembers says it is, and the entry
// disappears with its last member.
type Registry struct {
	mu          sync.RWMutex
	sinks       map[domain.ConnectionID]contract.EventSink
	bindings    map[domain.ConnectionID]domain.Binding
	roomMembers map[string]Set
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:       make(map[domain.ConnectionID]contract.EventSink),
		bindings:    make(map[domain.ConnectionID]domain.Binding),
		roomMembers: make(map[string]Set),
	}
}

// Attach registers a connection's delivery sink. Called by the transport
// as soon as the channel is accepted, before any join.
func (r *Registry) Attach(conn domain.ConnectionID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[conn] = sink
}

// Detach drops the delivery sink. Idempotent, no-op on unknown connections.
func (r *Registry) Detach(conn domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sinks, conn)
}

// Bind upserts the {displayName, room} binding of a connection.
// Rebinding is allowed and moves the connection out of its previous room.
// Display names are not checked for uniqueness across connections.
func (r *Registry) Bind(conn domain.ConnectionID, displayName, roomName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.bindings[conn]; ok {
		r.removeFromRoom(conn, prev.RoomName)
	}

	r.bindings[conn] = domain.Binding{Conn: conn, DisplayName: displayName, RoomName: roomName}

	if _, ok := r.roomMembers[roomName]; !ok {
		r.roomMembers[roomName] = make(Set)
	}
	r.roomMembers[roomName][conn] = struct{}{}
}

// Unbind removes the binding if present and reports what it was.
// Disconnect and explicit leave can both fire for the same connection,
// so a miss is not an error.
func (r *Registry) Unbind(conn domain.ConnectionID) (domain.Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.bindings[conn]
	if !ok {
		return domain.Binding{}, false
	}
	delete(r.bindings, conn)
	r.removeFromRoom(conn, binding.RoomName)
	return binding, true
}

// removeFromRoom must be called with the write lock held.
// It ensures no empty sets are left in the room map.
func (r *Registry) removeFromRoom(conn domain.ConnectionID, roomName string) {
	members, ok := r.roomMembers[roomName]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(r.roomMembers, roomName)
	}
}

// Lookup returns the current binding of a connection. Absence means the
// connection never joined a room and callers must treat it as a silent no-op.
func (r *Registry) Lookup(conn domain.ConnectionID) (domain.Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.bindings[conn]
	return binding, ok
}

// MembersOf returns the unordered (connection, displayName) pairs currently
// bound to a room. Nil for a room with no members.
func (r *Registry) MembersOf(roomName string) []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomName]
	if !ok {
		return nil
	}
	var res []domain.Member
	for conn := range members {
		if binding, exists := r.bindings[conn]; exists {
			res = append(res, domain.Member{Conn: conn, DisplayName: binding.DisplayName})
		}
	}
	return res
}

// SinkOf resolves the delivery sink of a single connection.
func (r *Registry) SinkOf(conn domain.ConnectionID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[conn]
	return sink, ok
}

// SinksForRoom retrieves all active delivery sinks for a specific room.
// It performs a two-step lookup:
// 1. Identifies connections associated with the room via roomMembers.
// 2. Resolves those connections into actual EventSinks using the sinks map.
//
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) SinksForRoom(roomName string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomName]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for conn := range members {
		if sink, exists := r.sinks[conn]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}
