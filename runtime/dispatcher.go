package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	// TriggerPrefix routes a message body to the generator. Fixed literal,
	// matched case-insensitively at the start of the trimmed text only.
	// No escaping mechanism exists for a literal "gemini ..." message.
	TriggerPrefix = "gemini "

	// FallbackReply is broadcast under the bot identity whenever the
	// generator call fails, whatever the reason.
	FallbackReply = "Sorry, I can't answer right now. Try again in a moment."
)

// Dispatcher owns the asynchronous half of the message transition: trigger
// detection, the single generator attempt, and the re-broadcast of the
// reply. The synchronous literal broadcast stays in the presence engine.
type Dispatcher struct {
	log        *slog.Logger
	generator  contract.Generator
	enqueue    func(domain.Command)
	telemetry  chan<- event.Event
	monitoring *observability.Monitoring
}

func NewDispatcher(log *slog.Logger, generator contract.Generator,
	enqueue func(domain.Command), telemetry chan<- event.Event,
	monitoring *observability.Monitoring) *Dispatcher {
	return &Dispatcher{
		log:        log,
		generator:  generator,
		enqueue:    enqueue,
		telemetry:  telemetry,
		monitoring: monitoring,
	}
}

// PromptFor trims the text and tests it against the trigger prefix.
// The returned prompt is everything after the prefix, internal whitespace
// kept verbatim.
func (d *Dispatcher) PromptFor(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(TriggerPrefix) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(TriggerPrefix)], TriggerPrefix) {
		return "", false
	}
	return trimmed[len(TriggerPrefix):], true
}

// Launch performs the generator call as an independent continuation.
// It never blocks the relay loop, captures the room name by value so the
// reply survives the triggering connection's teardown, and applies no retry:
// exactly one attempt, one fallback on any failure.
func (d *Dispatcher) Launch(ctx context.Context, roomName, prompt string) {
	go func() {
		start := time.Now()
		reply, err := d.generator.Generate(ctx, prompt)
		leadTime := time.Since(start)

		d.report(event.Event{
			Type:      event.GeneratorLatencyType,
			CreatedAt: time.Now().UTC(),
			Payload:   event.GeneratorLatency{RoomName: roomName, LeadTime: leadTime},
		})

		if err != nil {
			d.log.Warn("generator call failed, using fallback",
				"room", roomName, "error", err)
			d.monitoring.IncrGeneratorFailures()
			d.report(event.Event{
				Type:      event.GeneratorFailureType,
				CreatedAt: time.Now().UTC(),
				Payload:   event.GeneratorFailure{RoomName: roomName, Reason: err.Error()},
			})
			reply = FallbackReply
		}

		d.enqueue(domain.BotReplyCommand{
			RoomName:  roomName,
			Text:      reply,
			CreatedAt: time.Now().UTC(),
		})
	}()
}

func (d *Dispatcher) report(e event.Event) {
	select {
	case d.telemetry <- e:
	default:
		d.log.Debug("Observability telemetry event lost")
	}
}
