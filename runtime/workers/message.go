package workers

import (
	"context"
	"log/slog"
	"swear-jar/domain/event"

	"github.com/abadojack/whatlanggo"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, msg event.MessageSent) error
}

// MessageWorker feeds typed messages to the moderation coordinator one at a time.
type MessageWorker struct {
	log         *slog.Logger
	handler     MessageHandler
	messageChan chan event.Event
}

func NewMessageWorker(log *slog.Logger, handler MessageHandler, messageChan chan event.Event) *MessageWorker {
	return &MessageWorker{log: log, handler: handler, messageChan: messageChan}
}

func (w MessageWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case e, ok := <-w.messageChan:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			msg, ok := e.Payload.(event.MessageSent)
			if !ok {
				continue
			}
			w.log.Debug("Message received",
				"community", msg.Community,
				"author", msg.Author,
				"lang", whatlanggo.Detect(msg.Content).Lang.Iso6391())
			if err := w.handler.HandleMessage(ctx, msg); err != nil {
				w.log.Error("Unable to moderate message", "message", msg.ID, "error", err)
			}
		}
	}
}
