package workers

import (
	"chat-relay/domain/event"
	"context"
	"log/slog"
)

type TelemetryWorker struct {
	log       *slog.Logger
	telemetry chan event.Event
	handlers  []event.Handler
}

func NewTelemetryWorker(log *slog.Logger,
	telemetry chan event.Event,
	handlers []event.Handler) *TelemetryWorker {
	return &TelemetryWorker{
		log:       log,
		telemetry: telemetry,
		handlers:  handlers,
	}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry worker")
			return nil
		case evt := <-w.telemetry:
			w.handle(evt)
		}
	}
}

func (w TelemetryWorker) handle(event event.Event) {
	for _, h := range w.handlers {
		h.Handle(event)
	}
}
