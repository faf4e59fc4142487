package workers

import (
	"chat-relay/domain"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRelayWorker_Applies_Commands_In_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	presence := mocks.NewMockIPresence(ctrl)
	commands := make(chan domain.Command, 4)

	done := make(chan struct{})
	var applied []domain.Command
	presence.EXPECT().
		Apply(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, cmd domain.Command) {
			applied = append(applied, cmd)
			if len(applied) == 2 {
				close(done)
			}
		}).
		Times(2)

	worker := NewRelayWorker(presence, commands, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = worker.Run(ctx)
	}()

	// When two commands are enqueued
	join := domain.JoinCommand{Conn: "c1", DisplayName: "A", RoomName: "lobby"}
	post := domain.PostMessageCommand{Conn: "c1", Text: "hello", CreatedAt: time.Now()}
	commands <- join
	commands <- post

	// Then both reach the presence engine, in enqueue order
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Goroutine did not terminate in time")
	}
	req.Equal([]domain.Command{join, post}, applied)
}

func TestRelayWorker_Stops_On_Closed_Channel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	presence := mocks.NewMockIPresence(ctrl)
	commands := make(chan domain.Command)
	close(commands)

	worker := NewRelayWorker(presence, commands, log)

	// Then Run returns nil so the supervisor never restarts it
	req.NoError(worker.Run(context.Background()))
}
