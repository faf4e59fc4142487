// Package runtime handles command propagation, presence bookkeeping, and
// event fan-out towards connected clients. It orchestrates the relay
// without containing transport or UI logic.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime/workers"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

//go:embed censored/*
var censoredFolder embed.FS

// Options groups the tuning knobs of the command pipeline.
type Options struct {
	BufferSize           int
	SinkTimeout          time.Duration
	MetricInterval       time.Duration
	LatencyThreshold     time.Duration
	LowCapacityThreshold int
	CharReplacement      rune
}

// Orchestrator wires the registry, the presence engine, and the supervised
// workers together. A single relay worker drains the command channel, which
// gives every transition single-turn atomicity without a registry-wide lock
// on the hot path.
type Orchestrator struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   *Registry
	generator  contract.Generator
	monitoring *observability.Monitoring
	commands   chan domain.Command
	telemetry  chan event.Event
	opts       Options
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry *Registry, generator contract.Generator,
	monitoring *observability.Monitoring, telemetry chan event.Event,
	opts Options) *Orchestrator {
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		generator:  generator,
		monitoring: monitoring,
		commands:   make(chan domain.Command, opts.BufferSize),
		telemetry:  telemetry,
		opts:       opts,
	}
}

// Attach registers a connection's sink the moment the transport accepts it.
func (o *Orchestrator) Attach(conn domain.ConnectionID, sink contract.EventSink) {
	o.registry.Attach(conn, sink)
	o.monitoring.IncrConnections()
}

// Detach drops the sink once the transport channel is gone.
func (o *Orchestrator) Detach(conn domain.ConnectionID) {
	o.registry.Detach(conn)
	o.monitoring.DecrConnections()
}

func (o *Orchestrator) Join(conn domain.ConnectionID, displayName, roomName string) {
	o.Dispatch(domain.JoinCommand{Conn: conn, DisplayName: displayName, RoomName: roomName})
}

func (o *Orchestrator) Leave(conn domain.ConnectionID) {
	o.Dispatch(domain.LeaveCommand{Conn: conn})
}

func (o *Orchestrator) Disconnect(conn domain.ConnectionID) {
	o.Dispatch(domain.DisconnectCommand{Conn: conn})
}

func (o *Orchestrator) PostMessage(conn domain.ConnectionID, text string) {
	o.Dispatch(domain.PostMessageCommand{Conn: conn, Text: text, CreatedAt: time.Now().UTC()})
}

// Dispatch enqueues a command for the relay loop. A full channel drops the
// command rather than blocking the transport goroutines.
func (o *Orchestrator) Dispatch(cmd domain.Command) {
	select {
	case o.commands <- cmd:
	default:
		o.log.Warn(fmt.Sprintf("Command channel full, dropping %T", cmd))
	}
}

// Start prepares all components and hands them to the supervisor. Heavy
// preparation (loading embedded word lists, building the Aho-Corasick
// automaton) happens before any worker runs. Start blocks until ctx is
// canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	moderator, err := o.prepareModeration("censored", o.opts.CharReplacement)
	if err != nil {
		return err
	}

	dispatcher := NewDispatcher(o.log, o.generator, o.Dispatch, o.telemetry, o.monitoring)
	roster := NewRoster(o.registry)
	presence := NewPresence(o.log, o.registry, roster, moderator, dispatcher,
		o.monitoring, o.opts.SinkTimeout)

	handlers := []event.Handler{
		event.NewLatencyHandler(o.log, o.opts.LatencyThreshold),
		event.NewGeneratorFailureHandler(o.log),
		event.NewChannelCapacityHandler(o.log, o.opts.LowCapacityThreshold),
	}

	o.supervisor.Add(workers.NewRelayWorker(presence, o.commands, o.log))
	o.supervisor.Add(workers.NewTelemetryWorker(o.log, o.telemetry, handlers))
	o.supervisor.Add(workers.NewChannelCapacityWorker(o.log,
		[]workers.NamedChannel{{Name: "commands", Channel: o.commands}},
		o.telemetry, o.opts.MetricInterval))
	o.supervisor.Add(workers.NewHealthWorker(o.log, o.monitoring, o.opts.MetricInterval))

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// prepareModeration loads censored words and builds the Aho-Corasick automaton.
func (o *Orchestrator) prepareModeration(path string, charReplacement rune) (*moderation.Moderator, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}

	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	return moderation.NewModerator(data.Words, charReplacement)
}

// Stop initiates a graceful shutdown by canceling the supervision context.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
