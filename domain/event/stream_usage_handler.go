package event

import (
	"log/slog"
	"swear-jar/errors"
)

// StreamUsageHandler warns when a stream is about to fill up, which means the
// platform produces events faster than the workers moderate them.
type StreamUsageHandler struct {
	log       *slog.Logger
	threshold int
}

func NewStreamUsageHandler(log *slog.Logger, threshold int) *StreamUsageHandler {
	return &StreamUsageHandler{log: log, threshold: threshold}
}

func (h *StreamUsageHandler) Handle(event Event) {
	if event.Type != StreamUsageType {
		return
	}
	usage, ok := event.Payload.(StreamUsage)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	if usage.Capacity <= 0 {
		return
	}
	if left := usage.Left(); left <= h.threshold {
		h.log.Warn("Stream almost full", "stream", usage.Stream, "length", usage.Length, "left", left)
	}
}
