package event

import (
	"log/slog"
	"swear-jar/errors"
)

// OffenseHandler logs every ledger mutation and every dropped recognition.
type OffenseHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewOffenseHandler(log *slog.Logger, counter *Counter) *OffenseHandler {
	return &OffenseHandler{log: log, counter: counter}
}

func (h *OffenseHandler) Handle(event Event) {
	switch event.Type {
	case OffenseRecordedType:
		payload, ok := event.Payload.(OffenseRecorded)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(OffenseRecordedType)
		h.log.Info("Offense recorded",
			"participant", payload.Participant,
			"source", payload.Source,
			"delta", payload.Delta,
			"total", payload.Total)
	case RecognitionDroppedType:
		payload, ok := event.Payload.(RecognitionDropped)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.counter.Increment(RecognitionDroppedType)
		h.log.Debug("Recognition dropped",
			"community", payload.Community,
			"room", payload.Room,
			"speaker", payload.Speaker,
			"reason", payload.Reason)
	}
}
