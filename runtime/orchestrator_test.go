package runtime_test

import (
	"chat-presence/mocks"
	"chat-presence/runtime"
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"go.uber.org/mock/gomock"
)

func Test_Orchestrator_registers_workers_then_runs_supervisor(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	supervisor := mocks.NewMockISupervisor(ctrl)
	sweeper := mocks.NewMockWorker(ctrl)
	other := mocks.NewMockWorker(ctrl)

	gomock.InOrder(
		supervisor.EXPECT().Add(sweeper).Return(supervisor),
		supervisor.EXPECT().Add(other).Return(supervisor),
		supervisor.EXPECT().Run(gomock.Any()),
	)

	orchestrator := runtime.NewOrchestrator(log, supervisor, sweeper)
	orchestrator.Add(other)
	orchestrator.Start(context.Background())
	// Second start is ignored
	orchestrator.Start(context.Background())
}

func Test_Orchestrator_stop_delegates_to_supervisor(t *testing.T) {
	ctrl := gomock.NewController(t)
	supervisor := mocks.NewMockISupervisor(ctrl)
	supervisor.EXPECT().Stop()

	runtime.NewOrchestrator(slog.Default(), supervisor).Stop()
}
