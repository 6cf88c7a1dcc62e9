package event

import (
	"log/slog"
	"swear-jar/errors"
)

type ProcessSampleHandler struct {
	log *slog.Logger
}

func NewProcessSampleHandler(log *slog.Logger) *ProcessSampleHandler {
	return &ProcessSampleHandler{log: log}
}

func (h *ProcessSampleHandler) Handle(event Event) {
	if event.Type != ProcessSampleType {
		return
	}
	sample, ok := event.Payload.(ProcessSample)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.log.Debug("Agent process",
		"pid", sample.PID,
		"status", sample.Status,
		"cpu_percent", sample.CPUPercent,
		"rss_bytes", sample.RSS)
}
