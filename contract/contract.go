//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one connection's delivery channel towards its client.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the single source of truth for who is online and where.
// Sinks live for the whole connection; bindings only while joined.
type IRegistry interface {
	Attach(conn domain.ConnectionID, sink EventSink)
	Detach(conn domain.ConnectionID)
	Bind(conn domain.ConnectionID, displayName, roomName string)
	Unbind(conn domain.ConnectionID) (domain.Binding, bool)
	Lookup(conn domain.ConnectionID) (domain.Binding, bool)
	MembersOf(roomName string) []domain.Member
	SinkOf(conn domain.ConnectionID) (EventSink, bool)
	SinksForRoom(roomName string) []EventSink
}

// IPresence applies one inbound command to completion.
type IPresence interface {
	Apply(ctx context.Context, cmd domain.Command)
}

// Generator is the external text-generation collaborator.
// One attempt per call; timeout and retry policy belong to the implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
