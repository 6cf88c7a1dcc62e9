package workers

import (
	"context"
	"log/slog"
	"reflect"
	"swear-jar/domain/event"
	"swear-jar/observability"
	"time"
)

// GaugedStream names a buffered channel whose fill level is sampled.
type GaugedStream struct {
	Name   string
	Stream any
}

// StreamGaugeWorker samples len and cap of every gauged stream on a fixed
// interval. Samples that cannot be published immediately are dropped.
type StreamGaugeWorker struct {
	log       *slog.Logger
	streams   []GaugedStream
	telemetry chan<- event.Event
	every     time.Duration
}

func NewStreamGaugeWorker(log *slog.Logger, streams []GaugedStream,
	telemetry chan<- event.Event, every time.Duration) *StreamGaugeWorker {
	return &StreamGaugeWorker{log: log, streams: streams, telemetry: telemetry, every: every}
}

func (w StreamGaugeWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stream gauge stopped")
			return nil
		case <-ticker.C:
			for _, s := range w.streams {
				usage, ok := w.measure(s)
				if !ok {
					continue
				}
				w.publish(usage)
			}
		}
	}
}

func (w StreamGaugeWorker) measure(s GaugedStream) (event.StreamUsage, bool) {
	v := reflect.ValueOf(s.Stream)
	if v.Kind() != reflect.Chan {
		w.log.Error("Gauged value is not a channel", "stream", s.Name)
		return event.StreamUsage{}, false
	}
	observability.ChannelLength.WithLabelValues(s.Name).Set(float64(v.Len()))
	return event.StreamUsage{Stream: s.Name, Length: v.Len(), Capacity: v.Cap()}, true
}

func (w StreamGaugeWorker) publish(usage event.StreamUsage) {
	select {
	case w.telemetry <- event.New(event.StreamUsageType, usage):
	default:
		w.log.Debug("Stream usage sample dropped", "stream", usage.Stream)
	}
}
