package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// recordSink keeps every delivered event for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordSink) all() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type presenceFixture struct {
	presence *Presence
	registry *Registry
	commands chan domain.Command
}

func newPresenceFixture(t *testing.T, generate generatorFunc) *presenceFixture {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	moderator, err := moderation.NewModerator([]string{"badger"}, '*')
	require.NoError(t, err)

	commands := make(chan domain.Command, 16)
	telemetry := make(chan event.Event, 16)
	monitoring := observability.NewMonitoring()
	dispatcher := NewDispatcher(log, generate, func(cmd domain.Command) {
		commands <- cmd
	}, telemetry, monitoring)

	presence := NewPresence(log, registry, NewRoster(registry), moderator,
		dispatcher, monitoring, 100*time.Millisecond)

	return &presenceFixture{presence: presence, registry: registry, commands: commands}
}

func (f *presenceFixture) connect() (domain.ConnectionID, *recordSink) {
	conn := domain.ConnectionID(uuid.NewString())
	sink := &recordSink{}
	f.registry.Attach(conn, sink)
	return conn, sink
}

// awaitCommand waits for the asynchronous continuation to re-enter the loop.
func (f *presenceFixture) awaitCommand(t *testing.T) domain.Command {
	t.Helper()
	select {
	case cmd := <-f.commands:
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: no command re-entered the loop")
		return nil
	}
}

func TestPresence_Join_Emits_Private_Notice_Then_Roster(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, sinkA := f.connect()

	// When A joins the lobby
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})

	// Then A receives the private notice first, then the roster
	events := sinkA.all()
	req.Len(events, 2)
	req.Equal(event.SystemNotice{RoomName: "lobby", Text: "You joined Room: lobby"}, events[0])
	req.Equal(event.RosterUpdate{RoomName: "lobby", Users: []string{BotName, "A"}}, events[1])
}

func TestPresence_Second_Join_Notifies_Others_And_Broadcasts_Roster(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, sinkA := f.connect()
	connB, sinkB := f.connect()

	// Given A already joined
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})

	// When B joins
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connB, DisplayName: "B", RoomName: "lobby"})

	// Then A gets the third-party notice and the full roster
	eventsA := sinkA.all()[2:]
	req.Equal(event.SystemNotice{RoomName: "lobby", Text: "B has joined the chat."}, eventsA[0])
	req.Equal(event.RosterUpdate{RoomName: "lobby", Users: []string{BotName, "A", "B"}}, eventsA[1])

	// And B gets its own private notice plus the same roster, but never
	// the third-party notice about itself
	eventsB := sinkB.all()
	req.Len(eventsB, 2)
	req.Equal(event.SystemNotice{RoomName: "lobby", Text: "You joined Room: lobby"}, eventsB[0])
	req.Equal(event.RosterUpdate{RoomName: "lobby", Users: []string{BotName, "A", "B"}}, eventsB[1])
}

func TestPresence_Rejoining_Same_Room_Does_Not_Duplicate_Roster_Entry(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, sinkA := f.connect()

	// When A joins the same room twice
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})

	// Then the latest roster still lists A once
	events := sinkA.all()
	last, ok := events[len(events)-1].(event.RosterUpdate)
	req.True(ok)
	req.Equal([]string{BotName, "A"}, last.Users)
}

func TestPresence_Switching_Rooms_Updates_The_Old_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, _ := f.connect()
	connB, sinkB := f.connect()

	// Given A and B in the lobby
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connB, DisplayName: "B", RoomName: "lobby"})

	// When A switches to another room
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "den"})

	// Then B sees a lobby roster without A
	events := sinkB.all()
	last, ok := events[len(events)-1].(event.RosterUpdate)
	req.True(ok)
	req.Equal("lobby", last.RoomName)
	req.Equal([]string{BotName, "B"}, last.Users)
}

func TestPresence_Leave_Before_Join_Emits_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, sinkA := f.connect()

	// When a never-joined connection leaves and disconnects
	f.presence.Apply(ctx, domain.LeaveCommand{Conn: connA})
	f.presence.Apply(ctx, domain.DisconnectCommand{Conn: connA})

	// Then zero outbound events were produced
	req.Empty(sinkA.all())
}

func TestPresence_Message_Before_Join_Is_Ignored(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, sinkA := f.connect()

	// When an unbound connection sends a message
	f.presence.Apply(ctx, domain.PostMessageCommand{Conn: connA, Text: "hello", CreatedAt: time.Now()})

	// Then nothing is emitted and no room was created as a side effect
	req.Empty(sinkA.all())
	req.Empty(f.registry.MembersOf("lobby"))
	req.Empty(f.commands)
}

func TestPresence_Plain_Message_Broadcasts_Once_To_The_Whole_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, sinkA := f.connect()
	connB, sinkB := f.connect()

	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connB, DisplayName: "B", RoomName: "lobby"})
	sizeA, sizeB := len(sinkA.all()), len(sinkB.all())

	// When A sends a plain message
	f.presence.Apply(ctx, domain.PostMessageCommand{Conn: connA, Text: "hello", CreatedAt: time.Now()})

	// Then both members, sender included, receive exactly one broadcast
	for _, tc := range []struct {
		sink *recordSink
		size int
	}{{sinkA, sizeA}, {sinkB, sizeB}} {
		events := tc.sink.all()[tc.size:]
		req.Len(events, 1)
		msg, ok := events[0].(event.MessageBroadcast)
		req.True(ok)
		req.Equal("A", msg.Sender)
		req.Equal("hello", msg.Text)
	}

	// And no generator continuation was scheduled
	req.Empty(f.commands)
}

func TestPresence_Message_Content_Is_Censored(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, nil)
	connA, sinkA := f.connect()
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})
	size := len(sinkA.all())

	// When the message contains a blacklisted word
	f.presence.Apply(ctx, domain.PostMessageCommand{Conn: connA, Text: "you badger", CreatedAt: time.Now()})

	// Then the broadcast copy is censored
	msg, ok := sinkA.all()[size].(event.MessageBroadcast)
	req.True(ok)
	req.Equal("you ******", msg.Text)
}

func TestPresence_Trigger_Broadcasts_Literal_Then_Bot_Reply(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	prompts := make(chan string, 1)
	f := newPresenceFixture(t, func(_ context.Context, prompt string) (string, error) {
		prompts <- prompt
		return "Here is a joke.", nil
	})
	connA, sinkA := f.connect()
	connB, sinkB := f.connect()
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connB, DisplayName: "B", RoomName: "lobby"})
	sizeA, sizeB := len(sinkA.all()), len(sinkB.all())

	// When A sends a trigger message, mixed case and padded
	f.presence.Apply(ctx, domain.PostMessageCommand{Conn: connA, Text: "  GeMiNi tell me a  joke  ", CreatedAt: time.Now()})

	// Then the literal broadcast happens synchronously
	literal, ok := sinkA.all()[sizeA].(event.MessageBroadcast)
	req.True(ok)
	req.Equal("A", literal.Sender)

	// And the continuation re-enters the loop with the generated reply,
	// prompted with everything after the prefix, verbatim
	cmd := f.awaitCommand(t)
	req.Equal("tell me a  joke", <-prompts)
	reply, ok := cmd.(domain.BotReplyCommand)
	req.True(ok)
	req.Equal("lobby", reply.RoomName)
	req.Equal("Here is a joke.", reply.Text)

	// And applying it broadcasts under the bot identity to everyone
	f.presence.Apply(ctx, reply)
	botMsg, ok := sinkB.all()[sizeB+1].(event.MessageBroadcast)
	req.True(ok)
	req.Equal(BotName, botMsg.Sender)
	req.Equal("Here is a joke.", botMsg.Text)
}

func TestPresence_Generator_Failure_Falls_Back_To_Fixed_Reply(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, func(_ context.Context, _ string) (string, error) {
		return "", fmt.Errorf("model overloaded")
	})
	connA, _ := f.connect()
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})

	// When the generator fails
	f.presence.Apply(ctx, domain.PostMessageCommand{Conn: connA, Text: "gemini help", CreatedAt: time.Now()})

	// Then the loop receives the fixed fallback under the bot identity
	cmd := f.awaitCommand(t)
	reply, ok := cmd.(domain.BotReplyCommand)
	req.True(ok)
	req.Equal(FallbackReply, reply.Text)
}

func TestPresence_Bot_Reply_Survives_The_Trigger_Connection_Disconnect(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newPresenceFixture(t, func(_ context.Context, _ string) (string, error) {
		return "Still here.", nil
	})
	connA, _ := f.connect()
	connB, sinkB := f.connect()
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connA, DisplayName: "A", RoomName: "lobby"})
	f.presence.Apply(ctx, domain.JoinCommand{Conn: connB, DisplayName: "B", RoomName: "lobby"})

	// Given A triggered the generator
	f.presence.Apply(ctx, domain.PostMessageCommand{Conn: connA, Text: "gemini ping", CreatedAt: time.Now()})
	reply := f.awaitCommand(t)

	// When A disconnects before the reply is applied
	f.presence.Apply(ctx, domain.DisconnectCommand{Conn: connA})
	f.registry.Detach(connA)
	sizeB := len(sinkB.all())

	// Then the room still receives the bot reply
	f.presence.Apply(ctx, reply)
	botMsg, ok := sinkB.all()[sizeB].(event.MessageBroadcast)
	req.True(ok)
	req.Equal(BotName, botMsg.Sender)
	req.Equal("Still here.", botMsg.Text)

	// And A is gone from the registry and from the roster
	_, bound := f.registry.Lookup(connA)
	req.False(bound)
	req.Equal([]string{BotName, "B"}, NewRoster(f.registry).Resolve("lobby"))
}
