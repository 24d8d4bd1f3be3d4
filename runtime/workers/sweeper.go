package workers

import (
	"chat-presence/domain"
	"chat-presence/observability"
	"chat-presence/services"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SweepReport summarises one pass over the participants.
type SweepReport struct {
	Checked int
	Evicted int
	Failed  int
}

// SweeperWorker evicts participants silent for longer than threshold, every interval.
type SweeperWorker struct {
	mu        sync.Mutex
	log       *slog.Logger
	presence  services.IPresenceService
	monitor   *observability.SweepMonitor
	clock     domain.Clock
	interval  time.Duration
	threshold time.Duration
	last      atomic.Pointer[SweepReport]
}

func NewSweeperWorker(
	log *slog.Logger,
	presence services.IPresenceService,
	monitor *observability.SweepMonitor,
	clock domain.Clock,
	interval, threshold time.Duration,
) *SweeperWorker {
	return &SweeperWorker{
		log:       log,
		presence:  presence,
		monitor:   monitor,
		clock:     clock,
		interval:  interval,
		threshold: threshold,
	}
}

// Run sweeps on every tick until the context is cancelled.
// A tick that fires during a long sweep is dropped by the ticker, not queued.
func (w *SweeperWorker) Run(ctx context.Context) error {
	w.log.Info("Starting inactivity sweeper", "interval", w.interval, "threshold", w.threshold)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping sweeper")
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// LastReport returns the outcome of the latest finished sweep, false before the first one.
func (w *SweeperWorker) LastReport() (SweepReport, bool) {
	report := w.last.Load()
	if report == nil {
		return SweepReport{}, false
	}
	return *report, true
}

// Sweep evicts every inactive participant of the current snapshot.
// Sweeps never overlap. Each eviction is attempted independently and
// failures are logged and counted, never returned.
func (w *SweeperWorker) Sweep(ctx context.Context) SweepReport {
	w.mu.Lock()
	defer w.mu.Unlock()

	var report SweepReport
	startedAt := time.Now()
	defer func() {
		done := report
		w.last.Store(&done)
		if w.monitor != nil {
			w.monitor.RecordSweep(startedAt, time.Since(startedAt))
		}
	}()

	participants, err := w.presence.ListParticipants(ctx)
	if err != nil {
		w.log.Error("Unable to snapshot participants", "error", err)
		report.Failed++
		return report
	}
	if len(participants) == 0 {
		w.log.Debug("No participant to sweep")
		return report
	}

	now := w.clock.Now()
	cutoff := domain.InactivityCutoff(now, w.threshold)
	for _, p := range participants {
		report.Checked++
		if !p.IsInactive(now, w.threshold) {
			continue
		}
		if ctx.Err() != nil {
			w.log.Debug("Sweep interrupted", "checked", report.Checked)
			return report
		}
		evicted, err := w.presence.Evict(ctx, p.Name, cutoff)
		if evicted {
			report.Evicted++
			if w.monitor != nil {
				w.monitor.IncrEvictions()
			}
		}
		if err != nil {
			// An eviction whose leave notice was lost counts both ways
			w.log.Error("Eviction failed", "name", p.Name, "evicted", evicted, "error", err)
			report.Failed++
			if w.monitor != nil {
				w.monitor.IncrEvictionFailures()
			}
		}
	}
	w.log.Debug("Sweep done", "checked", report.Checked, "evicted", report.Evicted, "failed", report.Failed)
	return report
}
