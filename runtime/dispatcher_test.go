package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PromptFor(t *testing.T) {
	d := &Dispatcher{}

	testCases := []struct {
		name      string
		text      string
		prompt    string
		triggered bool
	}{
		{name: "plain message", text: "hello there", prompt: "", triggered: false},
		{name: "simple trigger", text: "gemini tell me a joke", prompt: "tell me a joke", triggered: true},
		{name: "mixed case prefix", text: "GeMiNi tell me a joke", prompt: "tell me a joke", triggered: true},
		{name: "surrounding whitespace trimmed", text: "   gemini ping  ", prompt: "ping", triggered: true},
		{name: "internal whitespace kept verbatim", text: "gemini a  b", prompt: "a  b", triggered: true},
		{name: "bare word without trailing space", text: "gemini", prompt: "", triggered: false},
		{name: "prefix mid sentence", text: "ask gemini something", prompt: "", triggered: false},
		{name: "trigger with empty remainder", text: "gemini  ", prompt: "", triggered: false},
		{name: "empty text", text: "", prompt: "", triggered: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			prompt, triggered := d.PromptFor(tc.text)
			req.Equal(tc.triggered, triggered)
			req.Equal(tc.prompt, prompt)
		})
	}
}

func TestDispatcher_Launch_Enqueues_Generated_Reply(t *testing.T) {
	req := require.New(t)
	commands := make(chan domain.Command, 1)
	telemetry := make(chan event.Event, 4)
	monitoring := observability.NewMonitoring()
	d := NewDispatcher(logs.GetLoggerFromLevel(slog.LevelDebug),
		generatorFunc(func(_ context.Context, prompt string) (string, error) {
			return "reply to " + prompt, nil
		}),
		func(cmd domain.Command) { commands <- cmd }, telemetry, monitoring)

	// When a generation is launched
	d.Launch(context.Background(), "lobby", "ping")

	// Then the reply re-enters the loop bound to the captured room
	select {
	case cmd := <-commands:
		reply, ok := cmd.(domain.BotReplyCommand)
		req.True(ok)
		req.Equal("lobby", reply.RoomName)
		req.Equal("reply to ping", reply.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: no reply enqueued")
	}

	// And a latency sample was reported, with no failure counted
	sample := <-telemetry
	req.Equal(event.GeneratorLatencyType, sample.Type)
	req.Zero(monitoring.Snapshot().GeneratorFailures)
}

func TestDispatcher_Launch_Falls_Back_On_Failure(t *testing.T) {
	req := require.New(t)
	commands := make(chan domain.Command, 1)
	telemetry := make(chan event.Event, 4)
	monitoring := observability.NewMonitoring()
	d := NewDispatcher(logs.GetLoggerFromLevel(slog.LevelDebug),
		generatorFunc(func(_ context.Context, _ string) (string, error) {
			return "", errors.New("quota exhausted")
		}),
		func(cmd domain.Command) { commands <- cmd }, telemetry, monitoring)

	// When the single attempt fails
	d.Launch(context.Background(), "lobby", "ping")

	// Then the fixed fallback is enqueued, no retry
	select {
	case cmd := <-commands:
		reply, ok := cmd.(domain.BotReplyCommand)
		req.True(ok)
		req.Equal(FallbackReply, reply.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: no reply enqueued")
	}

	// And the failure was reported after the latency sample
	req.Equal(event.GeneratorLatencyType, (<-telemetry).Type)
	failure := <-telemetry
	req.Equal(event.GeneratorFailureType, failure.Type)
	payload, ok := failure.Payload.(event.GeneratorFailure)
	req.True(ok)
	req.Equal("quota exhausted", payload.Reason)

	// And the failure counter reflects the single attempt
	req.Equal(uint64(1), monitoring.Snapshot().GeneratorFailures)
}
