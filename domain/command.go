package domain

import (
	"time"
)

// Command is an inbound intent applied by the relay loop.
type Command interface {
	ConnID() ConnectionID
}

// JoinCommand binds a connection to a room under a display name.
// Rebinding an already joined connection is allowed and switches rooms.
type JoinCommand struct {
	Conn        ConnectionID
	DisplayName string
	RoomName    string
}

func (c JoinCommand) ConnID() ConnectionID { return c.Conn }

// LeaveCommand detaches a connection from its current room.
// A leave on a connection that never joined is a silent no-op.
type LeaveCommand struct {
	Conn ConnectionID
}

func (c LeaveCommand) ConnID() ConnectionID { return c.Conn }

// DisconnectCommand is fired by the transport when the channel closes.
// Semantically a leave, but triggered externally and unconditionally.
type DisconnectCommand struct {
	Conn ConnectionID
}

func (c DisconnectCommand) ConnID() ConnectionID { return c.Conn }

// PostMessageCommand broadcasts a chat message to the sender's room.
type PostMessageCommand struct {
	Conn      ConnectionID
	Text      string
	CreatedAt time.Time
}

func (c PostMessageCommand) ConnID() ConnectionID { return c.Conn }

// BotReplyCommand re-enters the relay loop with a generated reply.
// It carries the room name captured at trigger time, never a connection,
// so it stays deliverable after the triggering connection is gone.
type BotReplyCommand struct {
	RoomName  string
	Text      string
	CreatedAt time.Time
}

func (c BotReplyCommand) ConnID() ConnectionID { return "" }
