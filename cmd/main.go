package main

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/infrastructure/http/server"
	"chat-presence/infrastructure/storage"
	"chat-presence/internal"
	"chat-presence/observability"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// store bundles the repositories of one driver with what releases them.
type store struct {
	participants contract.IParticipantRepository
	messages     contract.IMessageRepository
	badger       *badger.DB
	close        func() error
}

// run keeps every defer (store close first among them) inside a function that returns,
// main only translates the result into an exit code.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Store
	st, err := openStore(ctx, config, log)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing store...", "driver", config.StoreDriver)
		if err := st.close(); err != nil {
			log.Error("Store close failed", "error", err)
		}
	}()

	// 3. Services
	clock := domain.SystemClock{}
	roster := services.NewRoster()
	presence := services.NewPresenceService(st.participants, st.messages, roster, clock, log)
	chat := services.NewMessageService(st.participants, st.messages, roster, clock, config.IncludeSentMessages, log)
	monitor := observability.NewSweepMonitor(log)

	// 4. Supervision of the inactivity sweeper
	sweeper := workers.NewSweeperWorker(log, presence, monitor, clock, config.SweepInterval, config.InactivityThreshold)
	orchestrator := runtime.NewOrchestrator(log, workers.NewSupervisor(log, config.RestartInterval), sweeper)
	workersCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		orchestrator.Start(workersCtx)
	}()

	// 5. Optional Badger inspector
	var debugServer *http.Server
	if config.DebugPort > 0 && st.badger != nil {
		debugServer = internal.NewDebugServer(st.badger, config.DebugPort, "/inspect", nil, func() map[string]any {
			stats := monitor.Snapshot()
			return map[string]any{"sweeps": stats.Sweeps, "evictions": stats.Evictions, "failures": stats.EvictionFailures}
		}, log)
		go func() {
			if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Debug inspector stopped", "error", err)
			}
		}()
		log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
	}

	// 6. HTTP
	srv := server.NewServer(log, presence, chat, monitor, config.AccessLog)
	listener, err := net.Listen("tcp", config.Address())
	if err != nil {
		stopWorkers()
		<-workersDone
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}
	go func() {
		if err := srv.Serve(listener); err != nil {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	// 7. Wait for SIGINT/SIGTERM then stop HTTP and workers; the store closes on return
	shutdownCtx, forceShutdown := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer forceShutdown()
	wait := gfshutdown.GracefulShutdown(shutdownCtx, config.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
		"workers": func(ctx context.Context) error {
			stopWorkers()
			select {
			case <-workersDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		"debug": func(ctx context.Context) error {
			if debugServer == nil {
				return nil
			}
			return debugServer.Shutdown(ctx)
		},
	})
	if code := <-wait; code != exitOK {
		return code, fmt.Errorf("shutdown completed with exit code %d", code)
	}
	log.Info("Shutdown completed successfully")
	return exitOK, nil
}

func openStore(ctx context.Context, config internal.Config, log *slog.Logger) (store, error) {
	switch config.StoreDriver {
	case internal.DriverMemory:
		log.Warn("Using the in-memory store, nothing survives a restart")
		return store{
			participants: repositories.NewMemoryParticipantRepository(),
			messages:     repositories.NewMemoryMessageRepository(),
			close:        func() error { return nil },
		}, nil

	case internal.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLiteFilepath), 0o755); err != nil {
			return store{}, err
		}
		db, err := storage.OpenSQLite(config.SQLiteFilepath)
		if err != nil {
			return store{}, err
		}
		return store{
			participants: storage.NewParticipantRepository(db),
			messages:     storage.NewMessageRepository(db),
			close:        func() error { return storage.CloseSQLite(db) },
		}, nil

	case internal.DriverBadger:
		db, err := badger.Open(buildBadgerOpts(ctx, config, log))
		if err != nil {
			return store{}, fmt.Errorf("database opening failed: %w", err)
		}
		messages, err := repositories.NewMessageRepository(db, log)
		if err != nil {
			_ = db.Close()
			return store{}, err
		}
		return store{
			participants: repositories.NewParticipantRepository(db, log),
			messages:     messages,
			badger:       db,
			close: func() error {
				return errors.Join(messages.Close(), db.Close())
			},
		}, nil
	}
	return store{}, fmt.Errorf("unsupported store driver %q", config.StoreDriver)
}

func buildBadgerOpts(ctx context.Context, config internal.Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
