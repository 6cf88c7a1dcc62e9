package event

import (
	"log/slog"
	"swear-jar/errors"
)

// WorkerRestartHandler keeps the restart tally. Panics are logged as errors,
// plain failures as warnings.
type WorkerRestartHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewWorkerRestartHandler(log *slog.Logger, counter *Counter) *WorkerRestartHandler {
	return &WorkerRestartHandler{log: log, counter: counter}
}

func (h *WorkerRestartHandler) Handle(event Event) {
	if event.Type != WorkerRestartedType {
		return
	}
	restart, ok := event.Payload.(WorkerRestarted)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.counter.Increment(WorkerRestartedType)
	total := h.counter.Get(WorkerRestartedType)
	if restart.Panicked {
		h.log.Error("Worker restarted after panic", "worker", restart.Worker, "restarts", total)
		return
	}
	h.log.Warn("Worker restarted after failure", "worker", restart.Worker, "restarts", total)
}
