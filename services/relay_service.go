package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/runtime"
)

type IRelayService interface {
	Attach(conn domain.ConnectionID, sink contract.EventSink)
	Detach(conn domain.ConnectionID)
	Join(conn domain.ConnectionID, displayName, roomName string)
	Leave(conn domain.ConnectionID)
	Disconnect(conn domain.ConnectionID)
	PostMessage(conn domain.ConnectionID, text string)
}

type RelayService struct {
	orchestrator *runtime.Orchestrator
}

func NewRelayService(o *runtime.Orchestrator) *RelayService {
	return &RelayService{orchestrator: o}
}

func (s *RelayService) Attach(conn domain.ConnectionID, sink contract.EventSink) {
	s.orchestrator.Attach(conn, sink)
}

func (s *RelayService) Detach(conn domain.ConnectionID) {
	s.orchestrator.Detach(conn)
}

func (s *RelayService) Join(conn domain.ConnectionID, displayName, roomName string) {
	s.orchestrator.Join(conn, displayName, roomName)
}

func (s *RelayService) Leave(conn domain.ConnectionID) {
	s.orchestrator.Leave(conn)
}

func (s *RelayService) Disconnect(conn domain.ConnectionID) {
	s.orchestrator.Disconnect(conn)
}

func (s *RelayService) PostMessage(conn domain.ConnectionID, text string) {
	s.orchestrator.PostMessage(conn, text)
}
