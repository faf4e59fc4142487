package event

import (
	"chat-relay/domain"
)

// DomainEvent is anything delivered to the members of a room.
type DomainEvent interface {
	Room() string
}

// SystemNotice is a presence notice, delivered either to a single
// connection or to a whole room.
type SystemNotice struct {
	RoomName string
	Text     string
}

func (e SystemNotice) Room() string { return e.RoomName }

// RosterUpdate carries the freshly computed member list of a room,
// bot identity first.
type RosterUpdate struct {
	RoomName string
	Users    []string
}

func (e RosterUpdate) Room() string { return e.RoomName }

// MessageBroadcast is one chat message fanned out to a room.
type MessageBroadcast struct {
	RoomName string
	domain.Message
}

func (e MessageBroadcast) Room() string { return e.RoomName }
