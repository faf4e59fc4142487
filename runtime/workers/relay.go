package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
)

// Ensure *RelayWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*RelayWorker)(nil)

// RelayWorker drains the command channel and applies each command to the
// presence engine. Exactly one instance runs: transitions mutate shared
// presence state and must be processed one at a time to completion.
type RelayWorker struct {
	presence contract.IPresence
	commands chan domain.Command
	log      *slog.Logger
}

func NewRelayWorker(presence contract.IPresence,
	commands chan domain.Command, log *slog.Logger) *RelayWorker {
	return &RelayWorker{
		presence: presence,
		commands: commands,
		log:      log,
	}
}

func (w *RelayWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.presence.Apply(ctx, cmd)
		}
	}
}
