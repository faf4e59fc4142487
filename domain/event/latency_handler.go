package event

import (
	"log/slog"
	"time"
)

type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold}
}

func (h *LatencyHandler) Handle(e Event) {
	if e.Type != GeneratorLatencyType {
		return
	}
	payload, ok := e.Payload.(GeneratorLatency)
	if !ok {
		return
	}

	h.log.Info("telemetry: generator latency",
		"room", payload.RoomName,
		"lead_time_ms", payload.LeadTime.Milliseconds(),
	)

	if payload.LeadTime > h.latencyThreshold {
		h.log.Warn("high generator latency detected", "lead_time", payload.LeadTime)
	}
}
