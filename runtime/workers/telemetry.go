package workers

import (
	"context"
	"log/slog"
	"swear-jar/domain/event"
)

// TelemetryWorker fans runtime events out to the configured handlers.
type TelemetryWorker struct {
	log      *slog.Logger
	inbox    <-chan event.Event
	handlers event.Handlers
}

func NewTelemetryWorker(log *slog.Logger, inbox <-chan event.Event, handlers []event.Handler) *TelemetryWorker {
	return &TelemetryWorker{log: log, inbox: inbox, handlers: handlers}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	done := ctx.Done()
	for {
		select {
		case <-done:
			w.log.Debug("Telemetry dispatch stopped")
			return nil
		case evt, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.handlers.Handle(evt)
		}
	}
}
