package event

import "time"

type Type string

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	GeneratorLatencyType    Type = "GENERATOR_LATENCY"
	GeneratorFailureType    Type = "GENERATOR_FAILURE"
)

// Event is a technical telemetry envelope, separate from DomainEvent.
// It never reaches connected clients.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

// GeneratorLatency reports one completed generator call.
type GeneratorLatency struct {
	RoomName string
	LeadTime time.Duration
}

// GeneratorFailure reports one failed generator call. The failure is
// recovered locally with a fallback reply; this event only feeds telemetry.
type GeneratorFailure struct {
	RoomName string
	Reason   string
}
