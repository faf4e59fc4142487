package event

import (
	"chat-relay/errors"
	"log/slog"
	"sync"
)

// GeneratorFailureHandler counts generator failures per room.
// Failures are already recovered with a fallback reply by the time they
// reach telemetry; this keeps track of them for operability.
type GeneratorFailureHandler struct {
	mu      sync.Mutex
	log     *slog.Logger
	counter uint64
	perRoom map[string]uint64
}

func NewGeneratorFailureHandler(log *slog.Logger) *GeneratorFailureHandler {
	return &GeneratorFailureHandler{
		log:     log,
		counter: 0,
		perRoom: make(map[string]uint64),
	}
}

func (h *GeneratorFailureHandler) Handle(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch event.Type {
	case GeneratorFailureType:
		payload, ok := event.Payload.(GeneratorFailure)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter++
		h.perRoom[payload.RoomName]++
		h.log.Warn("generator call failed",
			"room", payload.RoomName,
			"reason", payload.Reason,
			"total_failures", h.counter,
		)
	}
}

// Count returns the total number of failures observed so far.
func (h *GeneratorFailureHandler) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counter
}
