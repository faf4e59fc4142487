package gateway

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
)

// Wire events, inbound and outbound. Names follow the original client
// protocol, including the space in "chat message".
const (
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventChatMessage   = "chat message"
	EventSystemMessage = "system_message"
	EventRoomUsers     = "room_users"
)

// Frame is the JSON envelope exchanged on the socket.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinPayload struct {
	Username string `json:"username" validate:"required,min=1,max=32"`
	Room     string `json:"room" validate:"required,min=1,max=64"`
}

type ChatPayload struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// ChatEventPayload is the outbound shape of one broadcast message.
type ChatEventPayload struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// EncodeEvent maps a domain event onto its wire frame.
func EncodeEvent(evt event.DomainEvent) (Frame, error) {
	switch e := evt.(type) {
	case event.SystemNotice:
		return marshalFrame(EventSystemMessage, e.Text)
	case event.RosterUpdate:
		return marshalFrame(EventRoomUsers, e.Users)
	case event.MessageBroadcast:
		return marshalFrame(EventChatMessage, ChatEventPayload{Sender: e.Sender, Text: e.Text})
	default:
		return Frame{}, fmt.Errorf("%w: %T", errors.ErrUnknownFrame, evt)
	}
}

func marshalFrame(name string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: name, Data: data}, nil
}
