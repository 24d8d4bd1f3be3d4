package workers

import (
	"chat-presence/contract"
	"chat-presence/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultRestartInterval = 200 * time.Millisecond

// Supervisor runs each worker in its own goroutine,
// recovers panics and restarts the worker after restartInterval.
// Cancelling the parent context or calling Stop ends every worker.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	restartInterval time.Duration
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = DefaultRestartInterval
	}
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

// Run blocks until every worker returned.
// If the parent cancels, we cancel. If we call Stop, only our children cancel.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// reporter is a worker able to describe its latest pass, logged when it crashes.
type reporter interface {
	LastReport() (SweepReport, bool)
}

// Start runs a worker under supervision.
// A panic or an error restarts the worker, a nil return ends it for good.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		for restarts := 0; ; restarts++ {
			if ctx.Err() != nil {
				s.log.Info("Stopping worker", "name", name, "restarts", restarts)
				return
			}
			err := s.runOnce(ctx, worker)
			switch {
			case err == nil:
				s.log.Info("Worker finished", "name", name, "restarts", restarts)
				return
			case ctx.Err() != nil:
				s.log.Info("Worker stopped (context canceled)", "name", name, "restarts", restarts)
				return
			}

			s.log.Warn("Worker crashed, restarting", s.crashAttrs(name, worker, restarts+1, err)...)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

// runOnce turns a panic of the worker into an ErrWorkerPanic.
func (s *Supervisor) runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

func (s *Supervisor) crashAttrs(name string, worker contract.Worker, restart int, err error) []any {
	attrs := []any{"name", name, "restart", restart, "error", err}
	if r, ok := worker.(reporter); ok {
		if report, ok := r.LastReport(); ok {
			attrs = append(attrs, slog.Group("last_sweep",
				"checked", report.Checked,
				"evicted", report.Evicted,
				"failed", report.Failed,
			))
		}
	}
	return attrs
}

// Stop cancels the supervised context; Run returns once all workers exit.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
