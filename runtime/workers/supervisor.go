package workers

import (
	"context"
	"fmt"
	"log/slog"
	"swear-jar/contract"
	"swear-jar/domain/event"
	"swear-jar/errors"
	"swear-jar/observability"
	"sync"
	"time"
)

// Supervisor runs every registered worker in its own goroutine and restarts a
// worker that panics or returns an error. A worker returning nil is done for good.
// Run returns once every worker has returned.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	telemetryChan   chan event.Event
	restartInterval time.Duration
}

func NewSupervisor(log *slog.Logger, telemetryChan chan event.Event, restartInterval time.Duration) *Supervisor {
	return &Supervisor{
		wg:              &sync.WaitGroup{},
		log:             log,
		telemetryChan:   telemetryChan,
		restartInterval: restartInterval,
	}
}

// Run derives the supervision context from ctx. Canceling ctx or calling
// Stop stops every worker.
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

// Start supervises one worker. Between two runs it waits restartInterval.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		for ctx.Err() == nil {
			err := s.runOnce(ctx, worker)
			if err == nil {
				s.log.Info("Worker finished", "name", name)
				return
			}
			if ctx.Err() != nil {
				break
			}

			panicked := errors.Is(err, errors.ErrWorkerPanic)
			s.log.Warn("Worker crashed, restarting", "name", name, "panic", panicked, "error", err)
			observability.WorkerRestarts.WithLabelValues(name).Inc()
			s.notifyRestart(name, panicked)

			select {
			case <-ctx.Done():
			case <-time.After(s.restartInterval):
			}
		}
		s.log.Info("Worker stopped", "name", name)
	}()
}

func (s *Supervisor) runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels the supervision context. Run returns once every worker has.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}

func (s *Supervisor) notifyRestart(name string, panicked bool) {
	if s.telemetryChan == nil {
		return
	}
	select {
	case s.telemetryChan <- event.New(event.WorkerRestartedType, event.WorkerRestarted{Worker: name, Panicked: panicked}):
	default:
		s.log.Debug("Restart telemetry lost", "name", name)
	}
}
