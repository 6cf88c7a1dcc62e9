package sink

import (
	"context"
	"log/slog"
	"swear-jar/contract"
	"swear-jar/domain"
	"swear-jar/domain/event"
	"time"
)

var _ contract.SinkFactory = (*Factory)(nil)

// Factory builds one TranscriptionSink per presence, all bound to the agent lifetime.
type Factory struct {
	ctx                context.Context
	log                *slog.Logger
	recognizer         contract.Recognizer
	utteranceChan      chan event.Event
	telemetryChan      chan event.Event
	recognitionTimeout time.Duration
	maxFrames          int
}

func NewFactory(ctx context.Context,
	log *slog.Logger,
	recognizer contract.Recognizer,
	utteranceChan chan event.Event,
	telemetryChan chan event.Event,
	recognitionTimeout time.Duration,
	maxFrames int) *Factory {
	return &Factory{
		ctx:                ctx,
		log:                log,
		recognizer:         recognizer,
		utteranceChan:      utteranceChan,
		telemetryChan:      telemetryChan,
		recognitionTimeout: recognitionTimeout,
		maxFrames:          maxFrames,
	}
}

func (f *Factory) NewSink(community domain.CommunityID, room domain.RoomID) contract.AudioSink {
	return NewTranscriptionSink(f.ctx, f.log, f.recognizer, f.utteranceChan, f.telemetryChan,
		community, room, f.recognitionTimeout, f.maxFrames)
}
