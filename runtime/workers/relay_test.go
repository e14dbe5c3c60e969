package workers

import (
	"chat-gateway/codec"
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/mocks"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const selfID = int64(1)

func record(serverID int64, groupID domain.GroupID, content string) contract.Record {
	m := domain.NewChatMessage(serverID, groupID, "alice", content, time.Now())
	return contract.Record{Value: codec.EncodeMessage(m)}
}

func TestRelayWorker_DropsSelfOriginAndBroadcastsOthers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockMessageBus(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	relay := NewRelayWorker(logs.GetLoggerFromLevel(slog.LevelDebug), bus, registry, selfID, 1, time.Hour)

	// Given one record from this instance, one from another and one unreadable
	bus.EXPECT().LiveConsume(gomock.Any(), contract.WorkerID(1)).Return([]contract.Record{
		record(selfID, "42", "mine"),
		record(2, "42", "theirs"),
		{Value: []byte{0xff}},
	}, nil)

	// Then only the foreign record is broadcast, to every local member
	var frame codec.Frame
	registry.EXPECT().
		Broadcast(domain.GroupID("42"), gomock.Any(), nil).
		DoAndReturn(func(_ domain.GroupID, payload []byte, _ contract.Member) int {
			req.NoError(json.Unmarshal(payload, &frame))
			return 3
		}).
		Times(1)

	// When the relay ticks
	relay.Tick(context.Background())

	req.Equal("theirs", frame.Content)
	req.Equal("CHAT", frame.Type)
}

func TestRelayWorker_TickErrorIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockMessageBus(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	relay := NewRelayWorker(logs.GetLoggerFromLevel(slog.LevelDebug), bus, registry, selfID, 2, time.Hour)

	// Given worker 1 failing while worker 2 still returns a partial batch
	bus.EXPECT().LiveConsume(gomock.Any(), contract.WorkerID(1)).Return(nil, errors.New("broker down"))
	bus.EXPECT().LiveConsume(gomock.Any(), contract.WorkerID(2)).
		Return([]contract.Record{record(3, "8", "hello")}, errors.New("shard 5 failed"))

	// Then the partial batch is still delivered
	registry.EXPECT().Broadcast(domain.GroupID("8"), gomock.Any(), nil).Return(1)

	relay.Tick(context.Background())
}

func TestRelayWorker_ReleasesWorkersOnStop(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockMessageBus(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	relay := NewRelayWorker(logs.GetLoggerFromLevel(slog.LevelDebug), bus, registry, selfID, 2, 5*time.Millisecond)

	// Given every tick finds nothing
	bus.EXPECT().LiveConsume(gomock.Any(), gomock.Any()).Return(nil, nil).MinTimes(2)

	// Then both bus workers are released when the relay stops
	bus.EXPECT().Release(gomock.Any(), contract.WorkerID(1)).Return(nil)
	bus.EXPECT().Release(gomock.Any(), contract.WorkerID(2)).Return(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := relay.Run(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
}
