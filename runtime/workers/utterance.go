package workers

import (
	"context"
	"log/slog"
	"swear-jar/domain/event"

	"github.com/abadojack/whatlanggo"
)

type UtteranceHandler interface {
	HandleUtterance(ctx context.Context, utterance event.UtteranceRecognized) error
}

// UtteranceWorker charges recognized speech to the ledger.
type UtteranceWorker struct {
	log           *slog.Logger
	handler       UtteranceHandler
	utteranceChan chan event.Event
}

func NewUtteranceWorker(log *slog.Logger, handler UtteranceHandler, utteranceChan chan event.Event) *UtteranceWorker {
	return &UtteranceWorker{log: log, handler: handler, utteranceChan: utteranceChan}
}

func (w UtteranceWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case e, ok := <-w.utteranceChan:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			utterance, ok := e.Payload.(event.UtteranceRecognized)
			if !ok {
				continue
			}
			w.log.Debug("Utterance recognized",
				"id", utterance.ID,
				"speaker", utterance.Speaker,
				"room", utterance.Room,
				"lang", whatlanggo.Detect(utterance.Text).Lang.Iso6391())
			if err := w.handler.HandleUtterance(ctx, utterance); err != nil {
				w.log.Error("Unable to moderate utterance", "utterance", utterance.ID, "error", err)
			}
		}
	}
}
