package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// Presence is the state machine governing connection lifecycle transitions.
// All synchronous mutation of the registry funnels through Apply, which the
// relay worker calls one command at a time, so a whole transition (validate,
// rebind, notify, roster) happens atomically within a single loop turn.
// The generator call is the only suspension point and re-enters the loop as
// a BotReplyCommand.
type Presence struct {
	log         *slog.Logger
	registry    contract.IRegistry
	roster      *Roster
	moderator   *moderation.Moderator
	dispatcher  *Dispatcher
	monitoring  *observability.Monitoring
	sinkTimeout time.Duration
}

func NewPresence(log *slog.Logger, registry contract.IRegistry, roster *Roster,
	moderator *moderation.Moderator, dispatcher *Dispatcher,
	monitoring *observability.Monitoring, sinkTimeout time.Duration) *Presence {
	return &Presence{
		log:         log,
		registry:    registry,
		roster:      roster,
		moderator:   moderator,
		dispatcher:  dispatcher,
		monitoring:  monitoring,
		sinkTimeout: sinkTimeout,
	}
}

// Apply runs one transition to completion. Invalid transitions (message or
// leave before join, unknown connections) are silent no-ops: nothing is
// emitted and nothing is surfaced to the connection.
func (p *Presence) Apply(ctx context.Context, cmd domain.Command) {
	switch c := cmd.(type) {
	case domain.JoinCommand:
		p.join(ctx, c)
	case domain.LeaveCommand:
		p.depart(ctx, c.Conn)
	case domain.DisconnectCommand:
		// Semantically identical to leave, fired by the transport.
		p.depart(ctx, c.Conn)
	case domain.PostMessageCommand:
		p.message(ctx, c)
	case domain.BotReplyCommand:
		p.botReply(ctx, c)
	default:
		p.log.Warn(fmt.Sprintf("Unknown command type %T dropped", cmd))
	}
}

func (p *Presence) join(ctx context.Context, cmd domain.JoinCommand) {
	prev, wasBound := p.registry.Lookup(cmd.Conn)
	p.registry.Bind(cmd.Conn, cmd.DisplayName, cmd.RoomName)

	// Switching rooms rebinds. The prior room gets a fresh roster since
	// the authoritative value must follow every membership change.
	if wasBound && prev.RoomName != cmd.RoomName {
		p.toRoom(ctx, event.RosterUpdate{
			RoomName: prev.RoomName,
			Users:    p.roster.Resolve(prev.RoomName),
		})
	}

	p.toConn(ctx, cmd.Conn, event.SystemNotice{
		RoomName: cmd.RoomName,
		Text:     fmt.Sprintf("You joined Room: %s", cmd.RoomName),
	})
	p.toOthers(ctx, cmd.RoomName, cmd.Conn, event.SystemNotice{
		RoomName: cmd.RoomName,
		Text:     fmt.Sprintf("%s has joined the chat.", cmd.DisplayName),
	})
	p.toRoom(ctx, event.RosterUpdate{
		RoomName: cmd.RoomName,
		Users:    p.roster.Resolve(cmd.RoomName),
	})
}

// depart covers both explicit leave and transport disconnect. The two can
// race for the same connection; the registry miss on the second one makes
// it a silent no-op with zero outbound events.
func (p *Presence) depart(ctx context.Context, conn domain.ConnectionID) {
	binding, ok := p.registry.Unbind(conn)
	if !ok {
		return
	}

	p.toRoom(ctx, event.SystemNotice{
		RoomName: binding.RoomName,
		Text:     fmt.Sprintf("%s left.", binding.DisplayName),
	})
	p.toRoom(ctx, event.RosterUpdate{
		RoomName: binding.RoomName,
		Users:    p.roster.Resolve(binding.RoomName),
	})
}

func (p *Presence) message(ctx context.Context, cmd domain.PostMessageCommand) {
	binding, ok := p.registry.Lookup(cmd.Conn)
	if !ok {
		// Never create a room or a binding as a side effect of a message.
		p.log.Debug("Message from unbound connection ignored", "conn", cmd.Conn)
		return
	}

	info := whatlanggo.Detect(cmd.Text)
	p.log.Debug("Inbound message",
		"room", binding.RoomName,
		"sender", binding.DisplayName,
		"lang", info.Lang.Iso6391(),
	)

	// Literal broadcast first, unconditionally, so plain chat latency is
	// never affected by the trigger check. Trigger detection runs on the
	// original text; only the broadcast copy is censored.
	p.broadcastMessage(ctx, binding.RoomName, binding.DisplayName, cmd.Text, cmd.CreatedAt)

	if prompt, matched := p.dispatcher.PromptFor(cmd.Text); matched {
		p.monitoring.IncrGeneratorCalls()
		p.dispatcher.Launch(ctx, binding.RoomName, prompt)
	}
}

// botReply broadcasts a generated (or fallback) reply under the bot
// identity. The room may have emptied since trigger time; delivery to zero
// sinks is a no-op, not an error.
func (p *Presence) botReply(ctx context.Context, cmd domain.BotReplyCommand) {
	p.broadcastMessage(ctx, cmd.RoomName, BotName, cmd.Text, cmd.CreatedAt)
}

func (p *Presence) broadcastMessage(ctx context.Context, roomName, sender, text string, at time.Time) {
	p.monitoring.IncrBroadcasts()
	p.toRoom(ctx, event.MessageBroadcast{
		RoomName: roomName,
		Message: domain.Message{
			ID:        uuid.New(),
			Sender:    sender,
			Text:      p.moderator.Censor(text),
			CreatedAt: at,
		},
	})
}

func (p *Presence) toRoom(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range p.registry.SinksForRoom(evt.Room()) {
		p.deliver(ctx, sink, evt)
	}
}

func (p *Presence) toOthers(ctx context.Context, roomName string, exclude domain.ConnectionID, evt event.DomainEvent) {
	for _, member := range p.registry.MembersOf(roomName) {
		if member.Conn == exclude {
			continue
		}
		if sink, ok := p.registry.SinkOf(member.Conn); ok {
			p.deliver(ctx, sink, evt)
		}
	}
}

func (p *Presence) toConn(ctx context.Context, conn domain.ConnectionID, evt event.DomainEvent) {
	if sink, ok := p.registry.SinkOf(conn); ok {
		p.deliver(ctx, sink, evt)
	}
}

// deliver pushes one event into one sink under the sink timeout. A slow or
// full sink loses the event rather than stalling the relay loop.
func (p *Presence) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	deliveryCtx, cancel := context.WithTimeout(ctx, p.sinkTimeout)
	defer cancel()
	if err := sink.Consume(deliveryCtx, evt); err != nil {
		p.log.Debug("Sink delivery failed", "room", evt.Room(), "error", err)
	}
}
