// Package runtime starts and stops the background side of the chat server.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"chat-presence/contract"
	"context"
	"log/slog"
	"sync"
)

type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	workers    []contract.Worker
	running    bool
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, workers ...contract.Worker) *Orchestrator {
	return &Orchestrator{log: log, supervisor: supervisor, workers: workers}
}

// Add registers more workers; it only has an effect before Start.
func (o *Orchestrator) Add(workers ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, workers...)
}

// Start hands every worker to the supervisor and blocks until they all stopped.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		o.log.Warn("Orchestrator already started")
		return
	}
	o.running = true
	for _, w := range o.workers {
		o.log.Debug("Registering worker", "name", contract.GetWorkerName(w))
		o.supervisor.Add(w)
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "workers", len(o.workers))
	o.supervisor.Run(ctx)
	o.log.Info("All supervised workers stopped")
}

func (o *Orchestrator) Stop() {
	o.supervisor.Stop()
}
