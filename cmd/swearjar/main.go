package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"swear-jar/contract"
	"swear-jar/domain/event"
	"swear-jar/errors"
	"swear-jar/infrastructure/discord"
	"swear-jar/infrastructure/speech"
	"swear-jar/infrastructure/storage"
	"swear-jar/internal"
	"swear-jar/runtime"
	"swear-jar/runtime/workers"
	"swear-jar/services"
	"swear-jar/sink"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "swearjar terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run keeps every defer on the exit path, main only maps the result to an exit code.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Ledger substrate
	repository, closeLedger, err := openLedger(ctx, log, config)
	if err != nil {
		if errors.Is(err, errors.ErrUnknownBackend) {
			return exitConfig, err
		}
		return exitRuntime, err
	}
	defer closeLedger()

	// 3. Lexicon
	matcher, err := runtime.PrepareModeration(log, runtime.NewEmbeddedLexiconLoader(), config.LexiconExtraPath)
	if err != nil {
		return exitConfig, fmt.Errorf("lexicon loading failed: %w", err)
	}

	// 4. Streams & supervision
	telemetry := make(chan event.Event, config.BufferSize)
	supervisor := workers.NewSupervisor(log, telemetry, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, telemetry, config.BufferSize)

	// 5. Platform & speech engine
	adapter, err := discord.NewAdapter(log, config.DiscordToken, discord.Streams{
		Messages:  orchestrator.Messages(),
		Presences: orchestrator.Presences(),
	}, config.SilenceGap)
	if err != nil {
		return exitConfig, err
	}
	recognizer := speech.NewWhisperRecognizer(log, config.OpenAIAPIKey, config.WhisperModel, config.WhisperLanguage)

	sinks := sink.NewFactory(ctx, log, recognizer, orchestrator.Utterances(), telemetry,
		config.RecognitionTimeout, config.MaxUtteranceFrames)
	tracker := runtime.NewOccupancyTracker(log, adapter, adapter, sinks, config.PlatformTimeout)

	ledger := services.NewLedgerService(log, repository)
	moderation := services.NewModerationService(log, matcher, ledger, adapter, adapter, services.JarRates{
		UnitRate:       config.UnitRate,
		CurrencySymbol: config.CurrencySymbol,
		Size:           config.LeaderboardSize,
	}, telemetry)

	// 6. Debug surface
	if config.DebugPort > 0 {
		debug := internal.NewDebugServer(log, moderation.LeaderboardReport, tracker.Presences)
		internal.StartDebugServer(ctx, log, config.DebugPort, debug)
	}

	counter := event.NewCounter()
	pipeline := runtime.Pipeline{
		Coordinator: moderation,
		Reconciler:  tracker,
		Handlers: []event.Handler{
			event.NewLexiconHitHandler(log),
			event.NewOffenseHandler(log, counter),
			event.NewWorkerRestartHandler(log, counter),
			event.NewStreamUsageHandler(log, config.LowCapacityThreshold),
			event.NewProcessSampleHandler(log),
		},
		MetricInterval: config.MetricInterval,
		QueueSize:      config.QueueSize,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- orchestrator.Start(ctx, pipeline)
	}()

	// 7. Connect once consumers are registered
	if err := adapter.Open(ctx); err != nil {
		shutdown(log, tracker, orchestrator, adapter)
		return exitRuntime, err
	}

	// 8. Wait for a signal or an engine failure
	var engineErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case engineErr = <-errChan:
		if engineErr != nil {
			log.Error("Engine stopped", "error", engineErr)
		}
	}

	// 9. Leave every room before closing the gateway
	shutdown(log, tracker, orchestrator, adapter)
	if engineErr != nil {
		return exitRuntime, engineErr
	}
	log.Info("Program stopped cleanly")
	return exitOK, nil
}

type roomLeaver interface {
	Close(ctx context.Context) error
}

type engine interface {
	Stop()
}

// shutdown leaves every room, stops the workers, then closes the gateway.
func shutdown(log *slog.Logger, rooms roomLeaver, orch engine, gateway io.Closer) {
	log.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rooms.Close(ctx); err != nil {
		log.Warn("Some rooms could not be left", "error", err)
	}
	orch.Stop()
	if err := gateway.Close(); err != nil {
		log.Warn("Gateway close failed", "error", err)
	}
}

// openLedger builds the configured substrate and the function releasing it.
func openLedger(ctx context.Context, log *slog.Logger, config internal.Config) (contract.LedgerRepository, func(), error) {
	switch config.LedgerBackend {
	case "memory":
		log.Warn("In-memory ledger, offenses are lost on restart")
		return storage.NewMemoryLedgerRepository(), func() {}, nil

	case "badger":
		db, err := badger.Open(buildBadgerOpts(ctx, log, config))
		if err != nil {
			return nil, nil, fmt.Errorf("database opening failed: %w", err)
		}
		if log.Enabled(ctx, slog.LevelDebug) && config.InspectPort > 0 {
			endpoint := "/inspect"
			log.Info("Debug Badger inspector available",
				"url", fmt.Sprintf("http://localhost:%d%s", config.InspectPort, endpoint))
			database.StartDebugServer(db, config.InspectPort, endpoint, LedgerMapper)
		}
		return storage.NewBadgerLedgerRepository(db, log), func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr, Password: config.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis unreachable at %s: %w", config.RedisAddr, err)
		}
		return storage.NewRedisLedgerRepository(client, config.RedisPrefix), func() {
			log.Info("Closing Redis client...")
			_ = client.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", errors.ErrUnknownBackend, config.LedgerBackend)
	}
}

func buildBadgerOpts(ctx context.Context, log *slog.Logger, config internal.Config) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG).WithBypassLockGuard(true)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

// LedgerMapper renders ledger rows in the Badger inspector.
func LedgerMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Type = "LEDGER"
	count, err := storage.DecodeCount(val)
	if err != nil {
		row.Detail = "Error: decode failed"
		return row
	}
	row.Detail = strconv.FormatUint(count, 10) + " offenses"
	return row
}
