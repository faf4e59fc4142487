package sink

import (
	"chat-relay/domain/event"
	"context"
)

// ConnSink buffers events for one connection's write pump.
type ConnSink struct {
	Events chan event.DomainEvent
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the relay loop.
// Redirect the event through the concerned owner of the channel;
// the transport write pump will take it from now. A full channel drops
// the event rather than stalling the loop.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
